package tlsprint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/pagination"
)

// Handler provides HTTP endpoints for TLS fingerprints
type Handler struct {
	store Store
}

// NewHandler creates a new fingerprint handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up fingerprint endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/tls/observe", h.ObserveFingerprint)
	r.GET("/tls/fingerprints", h.ListFingerprints)
}

type observeRequest struct {
	JA3 string `json:"ja3"`
	JA4 string `json:"ja4"`
}

// ObserveFingerprint records a TLS fingerprint sighting.
// POST /v1/tls/observe
func (h *Handler) ObserveFingerprint(c *gin.Context) {
	var req observeRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.JA3 == "" && req.JA4 == "") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'ja3' or 'ja4'",
		})
		return
	}

	fp, err := h.store.Observe(c.Request.Context(), req.JA3, req.JA4)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to record fingerprint observation",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fingerprint": fp})
}

// ListFingerprints returns recently seen fingerprints.
// GET /v1/tls/fingerprints?limit=
func (h *Handler) ListFingerprints(c *gin.Context) {
	limit := pagination.ParseLimit(c.Query("limit"))

	prints, err := h.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list fingerprints",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fingerprints": prints,
		"count":        len(prints),
	})
}
