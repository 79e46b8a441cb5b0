package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/validation"
)

// Handler provides HTTP endpoints for user accounts
type Handler struct {
	store Store
}

// NewHandler creates a new user handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up user endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users/register", h.Register)
	r.POST("/users/verify-password", h.VerifyPassword)
	r.GET("/users/:userId", h.GetUser)
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account.
// POST /v1/users/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'username' and 'password'",
		})
		return
	}

	errs := validation.Validate(
		validation.MaxLength("username", req.Username, 64),
		validation.MaxLength("email", req.Email, 256),
	)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "weak_password",
			"message": "Password must be at least 8 characters",
		})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "hash_failed",
			"message": "Failed to process password",
		})
		return
	}

	u := &User{
		Username:     validation.SanitizeString(req.Username, 64),
		Email:        validation.SanitizeString(req.Email, 256),
		PasswordHash: hash,
	}
	if err := h.store.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "username_taken",
				"message": "That username is already registered",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to create user",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u})
}

type verifyRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyPassword checks the fallback credential during step-up.
// POST /v1/users/verify-password
func (h *Handler) VerifyPassword(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'username' and 'password'",
		})
		return
	}

	u, err := h.store.GetByUsername(c.Request.Context(), req.Username)
	if err != nil || CheckPassword(u.PasswordHash, req.Password) != nil {
		// Same response for unknown user and wrong password
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Username or password is incorrect",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "userId": u.ID})
}

// GetUser returns one account by ID.
// GET /v1/users/:userId
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.store.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "No user exists with that ID",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
