package anomaly

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/pagination"
)

// Handler provides HTTP endpoints for anomaly alerts
type Handler struct {
	store Store
}

// NewHandler creates a new alert handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up alert endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts", h.ListAlerts)
	r.GET("/alerts/user/:userId", h.ListUserAlerts)
	r.POST("/alerts/:id/resolve", h.ResolveAlert)
}

// ListAlerts returns recent alerts across all users.
// GET /v1/alerts?limit=
func (h *Handler) ListAlerts(c *gin.Context) {
	limit := pagination.ParseLimit(c.Query("limit"))

	alerts, err := h.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ListUserAlerts returns recent alerts for one user.
// GET /v1/alerts/user/:userId?limit=
func (h *Handler) ListUserAlerts(c *gin.Context) {
	userID := c.Param("userId")
	limit := pagination.ParseLimit(c.Query("limit"))

	alerts, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert marks an alert as resolved.
// POST /v1/alerts/:id/resolve
func (h *Handler) ResolveAlert(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Resolve(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "alert_not_found",
			"message": "No alert exists with that ID",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": true})
}
