// Package webhooks delivers security events to external endpoints.
//
// Operators register webhook URLs to receive alert and block
// notifications, typically feeding a SIEM or an incident channel.
// Payloads are signed with HMAC-SHA256 so receivers can verify origin.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/silentauth/silentauth/internal/circuitbreaker"
	"github.com/silentauth/silentauth/internal/retry"
)

// EventType identifies what happened.
type EventType string

const (
	EventAlertCreated EventType = "alert.created"
	EventUserBlocked  EventType = "user.blocked"
	EventTest         EventType = "webhook.test"
)

// KnownEvents lists the event types a subscription may select.
var KnownEvents = []EventType{EventAlertCreated, EventUserBlocked, EventTest}

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("webhook subscription not found")

// A subscription is disabled after this many consecutive delivery
// failures so a dead endpoint does not consume retries forever.
const maxConsecutiveFailures = 20

// Event is the payload POSTed to subscribed endpoints.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Subscription is a registered webhook endpoint.
type Subscription struct {
	ID                  string      `json:"id"`
	URL                 string      `json:"url"`
	Secret              string      `json:"-"`
	Events              []EventType `json:"events"`
	Active              bool        `json:"active"`
	CreatedAt           time.Time   `json:"createdAt"`
	LastSuccess         *time.Time  `json:"lastSuccess,omitempty"`
	LastError           string      `json:"lastError,omitempty"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
}

// Wants reports whether the subscription selects the given event type.
func (s *Subscription) Wants(t EventType) bool {
	for _, et := range s.Events {
		if et == t {
			return true
		}
	}
	return false
}

// Store persists webhook subscriptions.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context) ([]*Subscription, error)
	GetByEvent(ctx context.Context, eventType EventType) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error
}

// Dispatcher fans an event out to every active subscription that selects
// its type. Deliveries retry with backoff, and a per-subscription circuit
// breaker stops hammering endpoints that keep failing.
type Dispatcher struct {
	store   Store
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewDispatcher creates a dispatcher over the given subscription store.
func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{
		store:   store,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: circuitbreaker.New(5, 2*time.Minute),
	}
}

// Dispatch sends the event to all matching subscriptions. Deliveries run
// in their own goroutines; Dispatch only fails when the store lookup does.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	subs, err := d.store.GetByEvent(ctx, event.Type)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}
		go d.Deliver(context.WithoutCancel(ctx), sub, event)
	}
	return nil
}

// Deliver sends one event to one subscription and records the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, sub *Subscription, event *Event) {
	if !d.breaker.Allow(sub.ID) {
		return
	}

	err := retry.Do(ctx, 3, 500*time.Millisecond, func() error {
		return d.post(ctx, sub, event)
	})
	if err != nil {
		d.breaker.RecordFailure(sub.ID)
		d.recordFailure(ctx, sub, err)
		return
	}

	d.breaker.RecordSuccess(sub.ID)
	d.recordSuccess(ctx, sub)
}

func (d *Dispatcher) post(ctx context.Context, sub *Subscription, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SilentAuth-Event", string(event.Type))
	req.Header.Set("X-SilentAuth-Timestamp", fmt.Sprintf("%d", event.Timestamp.Unix()))
	if sub.Secret != "" {
		req.Header.Set("X-SilentAuth-Signature", Sign(payload, sub.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The endpoint rejected the payload; retrying will not help.
		return retry.Permanent(fmt.Errorf("endpoint returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
}

// Sign computes the hex HMAC-SHA256 of payload under secret. Receivers
// recompute it to verify the X-SilentAuth-Signature header.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Dispatcher) recordSuccess(ctx context.Context, sub *Subscription) {
	now := time.Now()
	sub.LastSuccess = &now
	sub.LastError = ""
	sub.ConsecutiveFailures = 0
	_ = d.store.Update(ctx, sub)
}

func (d *Dispatcher) recordFailure(ctx context.Context, sub *Subscription, err error) {
	sub.LastError = err.Error()
	sub.ConsecutiveFailures++
	if sub.ConsecutiveFailures >= maxConsecutiveFailures {
		sub.Active = false
	}
	_ = d.store.Update(ctx, sub)
}
