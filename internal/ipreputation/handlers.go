package ipreputation

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/validation"
)

// Handler provides HTTP endpoints for IP reputation
type Handler struct {
	store Store
}

// NewHandler creates a new IP reputation handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up IP reputation endpoints. The blacklist mutation
// belongs under an admin-guarded group.
func (h *Handler) RegisterRoutes(r, admin *gin.RouterGroup) {
	r.GET("/ip-reputation/blacklist", h.ListBlacklist)
	r.GET("/ip-reputation/:ip", h.GetReputation)
	r.POST("/ip-reputation/:ip/attempts", h.RecordAttempt)
	admin.PUT("/ip-reputation/:ip/blacklist", h.SetBlacklist)
}

// GetReputation returns the standing of one IP. Unknown IPs come back
// with a neutral score rather than a 404 so callers need no special case.
// GET /v1/ip-reputation/:ip
func (h *Handler) GetReputation(c *gin.Context) {
	ip := c.Param("ip")
	if net.ParseIP(ip) == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_ip",
			"message": "Path parameter must be a valid IP address",
		})
		return
	}

	r, err := h.store.Get(c.Request.Context(), ip)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"reputation": &Reputation{
			IPAddress:       ip,
			ReputationScore: NeutralScore,
		}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load IP reputation",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": r})
}

type attemptRequest struct {
	Outcome Outcome `json:"outcome" binding:"required,oneof=success failure blocked"`
}

// RecordAttempt folds one authentication outcome into an IP's counters.
// POST /v1/ip-reputation/:ip/attempts
func (h *Handler) RecordAttempt(c *gin.Context) {
	ip := c.Param("ip")
	if net.ParseIP(ip) == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_ip",
			"message": "Path parameter must be a valid IP address",
		})
		return
	}

	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'outcome' of success, failure or blocked",
		})
		return
	}

	r, err := h.store.RecordAttempt(c.Request.Context(), ip, req.Outcome)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to record attempt",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": r})
}

type blacklistRequest struct {
	Blacklisted bool   `json:"blacklisted"`
	Reason      string `json:"reason"`
}

// SetBlacklist marks or clears an IP on the blacklist.
// PUT /v1/admin/ip-reputation/:ip/blacklist
func (h *Handler) SetBlacklist(c *gin.Context) {
	ip := c.Param("ip")
	if net.ParseIP(ip) == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_ip",
			"message": "Path parameter must be a valid IP address",
		})
		return
	}

	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'blacklisted' and optional 'reason'",
		})
		return
	}
	req.Reason = validation.SanitizeString(req.Reason, 512)

	r, err := h.store.SetBlacklist(c.Request.Context(), ip, req.Blacklisted, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to update blacklist",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": r})
}

// ListBlacklist returns all blacklisted IPs.
// GET /v1/ip-reputation/blacklist
func (h *Handler) ListBlacklist(c *gin.Context) {
	list, err := h.store.ListBlacklisted(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list blacklisted IPs",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blacklist": list, "count": len(list)})
}
