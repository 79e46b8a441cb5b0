package device

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/validation"
)

// Handler provides HTTP endpoints for device tracking
type Handler struct {
	store Store
}

// NewHandler creates a new device handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up device endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/devices/observe", h.ObserveDevice)
	r.GET("/devices/user/:userId", h.ListUserDevices)
}

type observeRequest struct {
	UserID      string `json:"userId" binding:"required"`
	Fingerprint string `json:"fingerprint" binding:"required"`
	UserAgent   string `json:"userAgent"`
}

// ObserveDevice records a device sighting, creating or reinforcing the
// user/device pairing.
// POST /v1/devices/observe
func (h *Handler) ObserveDevice(c *gin.Context) {
	var req observeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'userId' and 'fingerprint'",
		})
		return
	}
	req.UserAgent = validation.SanitizeString(req.UserAgent, 512)

	d, err := h.store.Observe(c.Request.Context(), req.UserID, req.Fingerprint, req.UserAgent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to record device observation",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": d})
}

// ListUserDevices returns a user's known devices.
// GET /v1/devices/user/:userId
func (h *Handler) ListUserDevices(c *gin.Context) {
	userID := c.Param("userId")

	devices, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list devices",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":  userID,
		"devices": devices,
		"count":   len(devices),
	})
}
