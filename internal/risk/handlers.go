package risk

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/pagination"
	"github.com/silentauth/silentauth/internal/policy"
)

// Notifier pushes assessment outcomes to the dashboard channel.
type Notifier interface {
	ConfidenceUpdate(userID string, score float64)
	AnomalyAlert(alert *anomaly.Alert)
}

// EventRecorder logs the authentication outcome of an assessment.
type EventRecorder interface {
	RecordAuth(ctx context.Context, userID, eventType string, confidence float64, sessionID string)
}

// PolicyAssigner picks the policy variant for a user, for A/B experiments.
type PolicyAssigner interface {
	PolicyFor(userID string) (policyName string, assigned bool)
}

// Handler provides HTTP endpoints for risk assessment
type Handler struct {
	engine   *Engine
	store    Store
	policies policy.Store
	alerts   anomaly.Store
	notifier Notifier
	assigner PolicyAssigner
	events   EventRecorder
}

// NewHandler creates a new risk handler. alerts, notifier, and assigner
// may be nil.
func NewHandler(engine *Engine, store Store, policies policy.Store) *Handler {
	return &Handler{engine: engine, store: store, policies: policies}
}

// WithAlerts attaches an alert store for anomalous assessments.
func (h *Handler) WithAlerts(alerts anomaly.Store) *Handler {
	h.alerts = alerts
	return h
}

// WithNotifier attaches a dashboard notifier.
func (h *Handler) WithNotifier(n Notifier) *Handler {
	h.notifier = n
	return h
}

// WithAssigner attaches an experiment policy assigner.
func (h *Handler) WithAssigner(a PolicyAssigner) *Handler {
	h.assigner = a
	return h
}

// WithEvents attaches an authentication event recorder.
func (h *Handler) WithEvents(e EventRecorder) *Handler {
	h.events = e
	return h
}

// RegisterRoutes sets up risk endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk/assess", h.Assess)
	r.GET("/risk/scores/:userId", h.ListScores)
}

type assessRequest struct {
	Request
	Policy string `json:"policy,omitempty"`
}

// Assess runs a composite risk assessment for one authentication attempt.
// POST /v1/risk/assess
func (h *Handler) Assess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'userId' and 'sample'",
		})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId is required",
		})
		return
	}

	ctx := c.Request.Context()
	pol := h.resolvePolicy(c, req.UserID, req.Policy)

	assessment, err := h.engine.Assess(ctx, &req.Request, pol)
	if err != nil {
		logging.L(ctx).Error("risk assessment failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "assessment_failed",
			"message": "Failed to compute risk assessment",
		})
		return
	}

	if assessment.Anomaly != nil && assessment.Anomaly.IsAnomaly {
		if alert := anomaly.BuildAlert(req.UserID, assessment.Anomaly); alert != nil {
			if h.alerts != nil {
				if err := h.alerts.Save(ctx, alert); err != nil {
					logging.L(ctx).Error("failed to save alert", "user_id", req.UserID, "error", err)
				}
			}
			if h.notifier != nil {
				h.notifier.AnomalyAlert(alert)
			}
		}
	}
	if h.notifier != nil {
		h.notifier.ConfidenceUpdate(req.UserID, assessment.OverallScore)
	}
	if h.events != nil {
		h.events.RecordAuth(ctx, req.UserID, eventTypeFor(assessment.Decision),
			assessment.OverallScore, req.SessionID)
	}

	resp := gin.H{"assessment": assessment}
	if assessment.Decision == DecisionStepUp {
		resp["stepUpMethod"] = pol.StepUpMethod
	}
	c.JSON(http.StatusOK, resp)
}

func eventTypeFor(d Decision) string {
	switch d {
	case DecisionAllow:
		return "silent_auth"
	case DecisionStepUp:
		return "step_up"
	default:
		return "failed"
	}
}

// resolvePolicy picks the policy for this assessment: an experiment
// assignment wins, then an explicit request override, then "default".
// Store failures fall back to the stock policy.
func (h *Handler) resolvePolicy(c *gin.Context, userID, requested string) policy.Policy {
	name := "default"
	if requested != "" {
		name = requested
	}
	if h.assigner != nil {
		if assigned, ok := h.assigner.PolicyFor(userID); ok {
			name = assigned
		}
	}

	ctx := c.Request.Context()
	p, err := h.policies.Get(ctx, name)
	if err != nil {
		if name != "default" {
			logging.L(ctx).Warn("policy not found, using default", "policy", name)
		}
		def := policy.Default()
		return def
	}
	return *p
}

// ListScores returns recent assessments for a user, most recent first.
// GET /v1/risk/scores/:userId?limit=
func (h *Handler) ListScores(c *gin.Context) {
	userID := c.Param("userId")
	limit := pagination.ParseLimit(c.Query("limit"))

	scores, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list risk scores",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"scores": scores,
		"count":  len(scores),
	})
}
