package experiments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/validation"
)

// Handler provides HTTP endpoints for A/B experiments
type Handler struct {
	store Store
}

// NewHandler creates a new experiments handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up experiment endpoints. Mutations belong under an
// admin-guarded group.
func (h *Handler) RegisterRoutes(r, admin *gin.RouterGroup) {
	r.GET("/experiments", h.ListExperiments)
	r.GET("/experiments/:id", h.GetExperiment)
	admin.POST("/experiments", h.CreateExperiment)
	admin.POST("/experiments/:id/status", h.SetStatus)
}

// ListExperiments returns all experiments, newest first.
// GET /v1/experiments
func (h *Handler) ListExperiments(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list experiments",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": list, "count": len(list)})
}

// GetExperiment returns one experiment with per-arm success rates.
// GET /v1/experiments/:id
func (h *Handler) GetExperiment(c *gin.Context) {
	exp, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "experiment_not_found",
			"message": "No experiment exists with that ID",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load experiment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment": exp,
		"results": gin.H{
			"controlSuccessRate": exp.SuccessRate(GroupControl),
			"variantSuccessRate": exp.SuccessRate(GroupVariant),
		},
	})
}

type createRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	ControlPolicy string  `json:"controlPolicy" binding:"required"`
	VariantPolicy string  `json:"variantPolicy" binding:"required"`
	TrafficSplit  float64 `json:"trafficSplit"`
	PrimaryMetric string  `json:"primaryMetric"`
	CreatedBy     string  `json:"createdBy"`
}

// CreateExperiment registers a new draft experiment.
// POST /v1/admin/experiments
func (h *Handler) CreateExperiment(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'name', 'controlPolicy' and 'variantPolicy'",
		})
		return
	}

	if req.TrafficSplit == 0 {
		req.TrafficSplit = 0.5
	}
	if req.PrimaryMetric == "" {
		req.PrimaryMetric = "silent_auth_rate"
	}

	exp := &Experiment{
		Name:          validation.SanitizeString(req.Name, 256),
		Description:   validation.SanitizeString(req.Description, 1024),
		Status:        StatusDraft,
		ControlPolicy: req.ControlPolicy,
		VariantPolicy: req.VariantPolicy,
		TrafficSplit:  req.TrafficSplit,
		PrimaryMetric: req.PrimaryMetric,
		CreatedBy:     req.CreatedBy,
	}
	if err := exp.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_experiment",
			"message": err.Error(),
		})
		return
	}

	if err := h.store.Create(c.Request.Context(), exp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to create experiment",
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"experiment": exp})
}

type statusRequest struct {
	Status Status `json:"status" binding:"required,oneof=draft running paused completed"`
}

// SetStatus transitions an experiment's lifecycle state.
// POST /v1/admin/experiments/:id/status
func (h *Handler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'status' of draft, running, paused or completed",
		})
		return
	}

	exp, err := h.store.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "experiment_not_found",
			"message": "No experiment exists with that ID",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to update experiment",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiment": exp})
}
