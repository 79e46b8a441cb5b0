package behavior

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/validation"
)

// Handler provides HTTP endpoints for behavioral samples and baselines
type Handler struct {
	store    Store
	provider *Provider
}

// NewHandler creates a new behavior handler
func NewHandler(store Store, provider *Provider) *Handler {
	return &Handler{store: store, provider: provider}
}

// RegisterRoutes sets up behavior endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/behavior/samples", h.IngestSamples)
	r.GET("/behavior/baseline/:userId", h.GetBaseline)
}

// ingestRequest carries one or more samples for a single user.
type ingestRequest struct {
	UserID    string    `json:"userId" binding:"required"`
	SessionID string    `json:"sessionId"`
	Samples   []*Sample `json:"samples" binding:"required"`
}

// IngestSamples stores a batch of aggregated behavioral samples.
// POST /v1/behavior/samples
func (h *Handler) IngestSamples(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'userId' and 'samples' array",
		})
		return
	}

	if len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "At least one sample is required",
		})
		return
	}
	if len(req.Samples) > validation.MaxBatchSamples {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "too_many_samples",
			"message": "Batch exceeds maximum sample count",
		})
		return
	}

	for _, sm := range req.Samples {
		errs := validation.Validate(
			validation.FiniteFeature("mouseVelocity", sm.MouseVelocity),
			validation.FiniteFeature("mouseAcceleration", sm.MouseAcceleration),
			validation.FiniteFeature("clickInterval", sm.ClickInterval),
			validation.FiniteFeature("dwellTime", sm.DwellTime),
			validation.FiniteFeature("flightTime", sm.FlightTime),
			validation.FiniteFeature("typingSpeed", sm.TypingSpeed),
			validation.FiniteFeature("scrollSpeed", sm.ScrollSpeed),
			validation.FiniteFeature("scrollFrequency", sm.ScrollFrequency),
			validation.FiniteFeature("straightLineRatio", sm.StraightLineRatio),
			validation.FiniteFeature("curveComplexity", sm.CurveComplexity),
		)
		if len(errs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_sample",
				"message": errs.Error(),
			})
			return
		}
	}

	ctx := c.Request.Context()
	saved := 0
	for _, sm := range req.Samples {
		sm.UserID = req.UserID
		if sm.SessionID == "" {
			sm.SessionID = req.SessionID
		}
		if err := h.store.Save(ctx, sm); err != nil {
			logging.L(ctx).Error("failed to save behavioral sample",
				"user_id", req.UserID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "storage_failed",
				"message": "Failed to store behavioral samples",
			})
			return
		}
		saved++
	}

	count, err := h.store.CountByUser(ctx, req.UserID)
	if err != nil {
		count = -1
	}

	c.JSON(http.StatusCreated, gin.H{
		"saved":       saved,
		"totalCount":  count,
		"hasBaseline": count >= MinSamplesForBaseline,
	})
}

// GetBaseline returns the user's current baseline profile.
// GET /v1/behavior/baseline/:userId
func (h *Handler) GetBaseline(c *gin.Context) {
	userID := c.Param("userId")

	profile, err := h.provider.Baseline(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "baseline_failed",
			"message": "Failed to compute baseline",
		})
		return
	}
	if profile == nil {
		c.JSON(http.StatusOK, gin.H{
			"userId":      userID,
			"hasBaseline": false,
			"message":     "Insufficient sample history for a baseline",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      userID,
		"hasBaseline": true,
		"baseline":    profile,
	})
}
