package sessions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/pagination"
)

// Handler provides HTTP endpoints for sessions
type Handler struct {
	store Store
}

// NewHandler creates a new session handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up session endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/flag", h.FlagSession)
	r.POST("/sessions/:id/terminate", h.TerminateSession)
	r.GET("/sessions", h.ListSessions)
}

type createRequest struct {
	UserID     string  `json:"userId" binding:"required"`
	DeviceID   string  `json:"deviceId"`
	Confidence float64 `json:"confidence"`
}

// CreateSession opens a new session after a successful authentication.
// POST /v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'userId'",
		})
		return
	}

	ses := &Session{
		UserID:     req.UserID,
		DeviceID:   req.DeviceID,
		Confidence: req.Confidence,
	}
	if err := h.store.Create(c.Request.Context(), ses); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to create session",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": ses})
}

// GetSession returns one session.
// GET /v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	ses, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "No session exists with that ID",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": ses})
}

// FlagSession marks a session for review.
// POST /v1/sessions/:id/flag
func (h *Handler) FlagSession(c *gin.Context) {
	h.setStatus(c, StatusFlagged)
}

// TerminateSession ends a session.
// POST /v1/sessions/:id/terminate
func (h *Handler) TerminateSession(c *gin.Context) {
	h.setStatus(c, StatusTerminated)
}

func (h *Handler) setStatus(c *gin.Context, status Status) {
	id := c.Param("id")
	if err := h.store.SetStatus(c.Request.Context(), id, status); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "No session exists with that ID",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

// ListSessions returns sessions by status, defaulting to active.
// GET /v1/sessions?status=&limit=
func (h *Handler) ListSessions(c *gin.Context) {
	status := Status(c.DefaultQuery("status", string(StatusActive)))
	switch status {
	case StatusActive, StatusFlagged, StatusTerminated:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be active, flagged, or terminated",
		})
		return
	}
	limit := pagination.ParseLimit(c.Query("limit"))

	list, err := h.store.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list sessions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": list,
		"count":    len(list),
		"status":   status,
	})
}
