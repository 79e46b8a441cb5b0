package authevents

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/pagination"
)

// Handler provides HTTP endpoints for auth events and dashboard stats
type Handler struct {
	service *Service
	store   Store
}

// NewHandler creates a new auth event handler
func NewHandler(service *Service, store Store) *Handler {
	return &Handler{service: service, store: store}
}

// RegisterRoutes sets up event endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events/user/:userId", h.ListUserEvents)
	r.GET("/dashboard/stats", h.GetStats)
}

// ListUserEvents returns recent authentication events for one user.
// GET /v1/events/user/:userId?limit=
func (h *Handler) ListUserEvents(c *gin.Context) {
	userID := c.Param("userId")
	limit := pagination.ParseLimit(c.Query("limit"))

	events, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list events",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"events": events,
		"count":  len(events),
	})
}

// GetStats returns the 24-hour dashboard aggregate.
// GET /v1/dashboard/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to compute statistics",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}
