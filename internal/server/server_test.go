package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/silentauth/silentauth/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		Env:                 "development",
		LogLevel:            "error",
		LogFormat:           "text",
		SilentAuthThreshold: config.DefaultSilentAuthThreshold,
		DeviceWeight:        config.DefaultDeviceWeight,
		TLSWeight:           config.DefaultTLSWeight,
		BehavioralWeight:    config.DefaultBehavioralWeight,
		StepUpMethod:        config.DefaultStepUpMethod,
		AlertThreshold:      config.DefaultAlertThreshold,
		ScoreTimeoutMs:      config.DefaultScoreTimeoutMs,
		RateLimitRPS:        1000,
	}
}

// newTestServer creates an in-memory server
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/behavior/samples",
		"GET:/v1/behavior/baseline/:userId",
		"POST:/v1/risk/assess",
		"GET:/v1/risk/scores/:userId",
		"GET:/v1/alerts",
		"POST:/v1/devices/observe",
		"POST:/v1/tls/observe",
		"POST:/v1/users/register",
		"POST:/v1/sessions",
		"GET:/v1/dashboard/stats",
		"POST:/v1/geo/check",
		"GET:/v1/ip-reputation/:ip",
		"GET:/v1/experiments",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

func TestAdminRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/v1/admin/policies",
		"PUT:/v1/admin/policies/:name",
		"GET:/v1/admin/audit",
		"POST:/v1/admin/experiments",
		"PUT:/v1/admin/ip-reputation/:ip/blacklist",
		"POST:/v1/admin/webhooks",
		"GET:/v1/admin/webhooks",
		"DELETE:/v1/admin/webhooks/:id",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Admin route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Admin guard tests
// ---------------------------------------------------------------------------

func TestAdminSecretEnforced(t *testing.T) {
	cfg := testConfig()
	cfg.AdminSecret = "s3cret"
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/policies", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without secret, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/admin/policies", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with secret, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminOpenInDevelopmentWithoutSecret(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/policies", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 in development demo mode, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// End-to-end assessment flow
// ---------------------------------------------------------------------------

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	return w
}

func TestAssessmentFlow(t *testing.T) {
	s := newTestServer(t)

	// Ingest enough samples to form a baseline.
	samples := `{
		"userId": "usr_flow",
		"sessionId": "ses_flow",
		"samples": [
			{"typingSpeed": 80, "dwellTime": 100},
			{"typingSpeed": 82, "dwellTime": 104},
			{"typingSpeed": 78, "dwellTime": 96}
		]
	}`
	if w := postJSON(t, s, "/v1/behavior/samples", samples); w.Code != http.StatusOK {
		t.Fatalf("sample ingest failed: %d %s", w.Code, w.Body.String())
	}

	// Assess with a sample near the baseline.
	assess := `{
		"userId": "usr_flow",
		"sessionId": "ses_flow",
		"sample": {"typingSpeed": 81, "dwellTime": 101}
	}`
	w := postJSON(t, s, "/v1/risk/assess", assess)
	if w.Code != http.StatusOK {
		t.Fatalf("assessment failed: %d %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	assessment, ok := resp["assessment"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing assessment in response: %v", resp)
	}
	if _, ok := assessment["overallScore"].(float64); !ok {
		t.Errorf("missing overallScore: %v", assessment)
	}
	if assessment["decision"] == nil {
		t.Errorf("missing decision: %v", assessment)
	}
}

// ---------------------------------------------------------------------------
// IP blacklist guard
// ---------------------------------------------------------------------------

func TestBlacklistedIPRejected(t *testing.T) {
	s := newTestServer(t)

	// httptest requests come from 192.0.2.1.
	ctx := context.Background()
	if _, err := s.stores.ips.SetBlacklist(ctx, "192.0.2.1", true, "test block"); err != nil {
		t.Fatalf("failed to blacklist: %v", err)
	}

	w := postJSON(t, s, "/v1/risk/assess", `{"userId":"usr_1","sample":{"typingSpeed":80}}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for blacklisted IP, got %d: %s", w.Code, w.Body.String())
	}

	rep, err := s.stores.ips.Get(ctx, "192.0.2.1")
	if err != nil {
		t.Fatalf("failed to read reputation: %v", err)
	}
	if rep.BlockedAttempts != 1 {
		t.Errorf("blockedAttempts = %d, want 1", rep.BlockedAttempts)
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
