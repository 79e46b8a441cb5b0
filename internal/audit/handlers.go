package audit

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/pagination"
)

// Handler provides HTTP endpoints for the audit log
type Handler struct {
	store Store
}

// NewHandler creates a new audit handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up audit endpoints. Mount under an admin-guarded group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/audit", h.ListEntries)
}

// ListEntries returns audit entries, newest first, with optional filters.
// GET /v1/admin/audit?eventType=&actorId=&targetId=&limit=
func (h *Handler) ListEntries(c *gin.Context) {
	f := Filter{
		EventType: c.Query("eventType"),
		ActorID:   c.Query("actorId"),
		TargetID:  c.Query("targetId"),
		Limit:     pagination.ParseLimit(c.Query("limit")),
	}

	entries, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list audit entries",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Middleware records every mutating admin request as an audit entry after
// the handler runs. Read-only requests are not logged.
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}

		entry := &Entry{
			EventType:  EventAdminAction,
			ActorType:  ActorAdmin,
			Action:     actionFor(c.Request.Method),
			TargetID:   targetFrom(c),
			TargetType: targetTypeFrom(c.FullPath()),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}

		ctx := c.Request.Context()
		if err := store.Append(ctx, entry); err != nil {
			logging.L(ctx).Warn("failed to write audit entry",
				"path", c.FullPath(), "error", err)
		}
	}
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// targetFrom picks the most specific path parameter as the target ID.
func targetFrom(c *gin.Context) string {
	for _, name := range []string{"id", "name", "ip", "userId"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}

// targetTypeFrom derives the entity type from the route's first segment
// after the admin prefix.
func targetTypeFrom(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "admin" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	for _, p := range parts {
		if p != "" && p[0] != ':' && p != "v1" {
			return p
		}
	}
	return ""
}
