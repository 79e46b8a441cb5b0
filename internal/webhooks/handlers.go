package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/idgen"
)

// Handler provides HTTP endpoints for webhook subscription management.
type Handler struct {
	store      Store
	dispatcher *Dispatcher
}

// NewHandler creates a new webhook handler.
func NewHandler(store Store, dispatcher *Dispatcher) *Handler {
	return &Handler{store: store, dispatcher: dispatcher}
}

// RegisterRoutes sets up webhook endpoints. Subscription management is
// admin-only since webhook payloads carry security events.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/webhooks", h.CreateSubscription)
	admin.GET("/webhooks", h.ListSubscriptions)
	admin.GET("/webhooks/:id", h.GetSubscription)
	admin.DELETE("/webhooks/:id", h.DeleteSubscription)
	admin.POST("/webhooks/:id/test", h.TestSubscription)
}

type createSubscriptionRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}

// CreateSubscription registers a new webhook endpoint. The signing
// secret is returned once and never again.
// POST /v1/admin/webhooks
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'url' and a non-empty 'events' list",
		})
		return
	}

	events := make([]EventType, 0, len(req.Events))
	for _, e := range req.Events {
		et := EventType(e)
		if !knownEvent(et) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown_event",
				"message": "Unknown event type: " + e + ". Valid types: " + knownEventList(),
			})
			return
		}
		events = append(events, et)
	}

	secret := generateSecret()
	sub := &Subscription{
		ID:        idgen.WithPrefix("wh_"),
		URL:       req.URL,
		Secret:    secret,
		Events:    events,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := h.store.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to create webhook subscription",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"webhook": sub,
		"secret":  secret,
		"usage": gin.H{
			"header":    "X-SilentAuth-Signature",
			"signature": "hex(HMAC-SHA256(body, secret))",
		},
	})
}

// ListSubscriptions returns all registered webhooks, newest first.
// GET /v1/admin/webhooks
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list webhook subscriptions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": subs, "count": len(subs)})
}

// GetSubscription returns one webhook subscription.
// GET /v1/admin/webhooks/:id
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Webhook subscription not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load webhook subscription",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": sub})
}

// DeleteSubscription removes a webhook subscription.
// DELETE /v1/admin/webhooks/:id
func (h *Handler) DeleteSubscription(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Webhook subscription not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_failed",
			"message": "Failed to delete webhook subscription",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// TestSubscription delivers a synthetic webhook.test event so operators
// can verify their endpoint and signature handling.
// POST /v1/admin/webhooks/:id/test
func (h *Handler) TestSubscription(c *gin.Context) {
	sub, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Webhook subscription not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load webhook subscription",
		})
		return
	}

	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      EventTest,
		Timestamp: time.Now(),
		Data:      map[string]any{"message": "test delivery"},
	}
	go h.dispatcher.Deliver(context.WithoutCancel(c.Request.Context()), sub, event)

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "eventId": event.ID})
}

func knownEvent(t EventType) bool {
	for _, et := range KnownEvents {
		if et == t {
			return true
		}
	}
	return false
}

func knownEventList() string {
	names := make([]string, len(KnownEvents))
	for i, et := range KnownEvents {
		names[i] = string(et)
	}
	return strings.Join(names, ", ")
}

func generateSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
