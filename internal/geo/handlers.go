package geo

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/idgen"
	"github.com/silentauth/silentauth/internal/logging"
)

// Handler provides HTTP endpoints for travel checks
type Handler struct {
	store  Store
	alerts anomaly.Store
}

// NewHandler creates a new geo handler. alerts may be nil.
func NewHandler(store Store, alerts anomaly.Store) *Handler {
	return &Handler{store: store, alerts: alerts}
}

// RegisterRoutes sets up geo endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/geo/check", h.CheckLogin)
}

type checkRequest struct {
	UserID    string  `json:"userId" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	City      string  `json:"city"`
}

// CheckLogin compares a login location against the user's previous one
// and records the new position.
// POST /v1/geo/check
func (h *Handler) CheckLogin(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'userId' and valid coordinates",
		})
		return
	}

	ctx := c.Request.Context()
	current := &Location{
		UserID:    req.UserID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		City:      req.City,
		Timestamp: time.Now(),
	}

	prev, err := h.store.LastLocation(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load location history",
		})
		return
	}

	check := CheckTravel(prev, current)

	if err := h.store.SaveLocation(ctx, current); err != nil {
		logging.L(ctx).Error("failed to save login location",
			"user_id", req.UserID, "error", err)
	}

	if check.Suspicious && h.alerts != nil {
		severity := anomaly.SeverityHigh
		if check.Critical {
			severity = anomaly.SeverityCritical
		}
		alert := &anomaly.Alert{
			ID:          idgen.WithPrefix("alr_"),
			UserID:      req.UserID,
			AlertType:   "impossible_travel",
			Severity:    severity,
			Description: "Login implies implausible travel speed",
			RiskScore:   check.RiskScore,
			CreatedAt:   time.Now(),
		}
		if err := h.alerts.Save(ctx, alert); err != nil {
			logging.L(ctx).Error("failed to save travel alert",
				"user_id", req.UserID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"travel": check})
}
