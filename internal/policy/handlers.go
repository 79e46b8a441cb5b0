package policy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/logging"
)

// Handler provides HTTP endpoints for decision policies
type Handler struct {
	store Store
}

// NewHandler creates a new policy handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up policy endpoints. Mount under an admin-guarded group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/policies", h.ListPolicies)
	r.GET("/policies/:name", h.GetPolicy)
	r.PUT("/policies/:name", h.SavePolicy)
}

// ListPolicies returns all stored policies.
// GET /v1/admin/policies
func (h *Handler) ListPolicies(c *gin.Context) {
	policies, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list policies",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies, "count": len(policies)})
}

// GetPolicy returns one policy by name.
// GET /v1/admin/policies/:name
func (h *Handler) GetPolicy(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "policy_not_found",
			"message": "No policy exists with that name",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": p})
}

// SavePolicy creates or updates a policy. Weight configurations that do
// not sum to 1.0 are accepted with a warning in the response.
// PUT /v1/admin/policies/:name
func (h *Handler) SavePolicy(c *gin.Context) {
	var p Policy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a policy object",
		})
		return
	}
	p.Name = c.Param("name")

	warnings, err := p.Validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_policy",
			"message": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Save(ctx, &p); err != nil {
		logging.L(ctx).Error("failed to save policy", "name", p.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to save policy",
		})
		return
	}

	for _, w := range warnings {
		logging.L(ctx).Warn("policy saved with warning", "name", p.Name, "warning", w)
	}

	resp := gin.H{"policy": p}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}
