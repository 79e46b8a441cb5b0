// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/audit"
	"github.com/silentauth/silentauth/internal/authevents"
	"github.com/silentauth/silentauth/internal/behavior"
	"github.com/silentauth/silentauth/internal/config"
	"github.com/silentauth/silentauth/internal/device"
	"github.com/silentauth/silentauth/internal/experiments"
	"github.com/silentauth/silentauth/internal/geo"
	"github.com/silentauth/silentauth/internal/health"
	"github.com/silentauth/silentauth/internal/ipreputation"
	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/metrics"
	"github.com/silentauth/silentauth/internal/policy"
	"github.com/silentauth/silentauth/internal/ratelimit"
	"github.com/silentauth/silentauth/internal/realtime"
	"github.com/silentauth/silentauth/internal/retry"
	"github.com/silentauth/silentauth/internal/risk"
	"github.com/silentauth/silentauth/internal/security"
	"github.com/silentauth/silentauth/internal/sessions"
	"github.com/silentauth/silentauth/internal/tlsprint"
	"github.com/silentauth/silentauth/internal/traces"
	"github.com/silentauth/silentauth/internal/users"
	"github.com/silentauth/silentauth/internal/validation"
	"github.com/silentauth/silentauth/internal/webhooks"
)

// baselineCacheTTL bounds how long a cached baseline may outlive its
// underlying samples in Redis.
const baselineCacheTTL = time.Hour

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// stores groups every persistence interface the server wires up, so the
// Postgres and in-memory paths build the same shape.
type stores struct {
	samples      behavior.Store
	alerts       anomaly.Store
	policies     policy.Store
	assessments  risk.Store
	devices      device.Store
	fingerprints tlsprint.Store
	users        users.Store
	events       authevents.Store
	sessions     sessions.Store
	locations    geo.Store
	ips          ipreputation.Store
	experiments  experiments.Store
	audits       audit.Store
	webhookSubs  webhooks.Store
}

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg            *config.Config
	stores         stores
	engine         *risk.Engine
	baselines      *behavior.Provider
	eventsSvc      *authevents.Service
	experiments    *experiments.Service
	realtimeHub    *realtime.Hub
	webhookDisp    *webhooks.Dispatcher
	webhookEmit    *webhooks.Emitter
	rateLimiter    *ratelimit.Limiter
	checks         *health.Registry
	db             *sql.DB       // nil if using in-memory
	redis          *redis.Client // nil unless REDIS_URL set
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	shutdownTraces func(context.Context) error
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		checks: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		if err := s.initPostgres(ctx); err != nil {
			return nil, err
		}
	} else {
		s.initMemory()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Baseline cache (Redis if REDIS_URL set, otherwise in-process)
	var cache behavior.BaselineCache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		s.redis = redis.NewClient(redisOpts)
		cache = behavior.NewRedisCache(s.redis, baselineCacheTTL)
		s.checks.Register("redis", func(ctx context.Context) health.Status {
			if err := s.redis.Ping(ctx).Err(); err != nil {
				return health.Status{Healthy: false, Detail: err.Error()}
			}
			return health.Status{Healthy: true}
		})
		s.logger.Info("baseline cache backed by redis")
	} else {
		cache = behavior.NewMemoryCache()
	}
	s.baselines = behavior.NewProvider(s.stores.samples, cache)

	// Composite risk engine
	deviceSvc := device.NewService(s.stores.devices)
	tlsSvc := tlsprint.NewService(s.stores.fingerprints)
	s.engine = risk.NewEngine(s.baselines, deviceSvc, tlsSvc, s.stores.assessments).
		WithFetchTimeout(time.Duration(cfg.ScoreTimeoutMs) * time.Millisecond)

	// Auth event aggregation for the dashboard
	s.eventsSvc = authevents.NewService(s.stores.events, s.stores.devices)

	// A/B experiments over decision policies
	s.experiments = experiments.NewService(s.stores.experiments)

	// Realtime hub for the dashboard's live feed
	s.realtimeHub = realtime.NewHub(s.logger)

	// Webhook delivery for SIEM and incident-channel integrations
	s.webhookDisp = webhooks.NewDispatcher(s.stores.webhookSubs)
	s.webhookEmit = webhooks.NewEmitter(s.webhookDisp, s.logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// initPostgres opens the connection pool and builds Postgres-backed stores,
// running each store's migration.
func (s *Server) initPostgres(ctx context.Context) error {
	db, err := sql.Open("postgres", s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// The database may still be starting alongside us.
	if err := retry.Do(ctx, 5, time.Second, db.Ping); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db
	s.checks.Register("database", health.DBChecker("database", db))
	s.logger.Info("using PostgreSQL storage", "url", maskDSN(s.cfg.DatabaseURL))

	samples := behavior.NewPostgresStore(db)
	alerts := anomaly.NewPostgresStore(db)
	policies := policy.NewPostgresStore(db)
	assessments := risk.NewPostgresStore(db)
	devices := device.NewPostgresStore(db)
	fingerprints := tlsprint.NewPostgresStore(db)
	userStore := users.NewPostgresStore(db)
	events := authevents.NewPostgresStore(db)
	sessionStore := sessions.NewPostgresStore(db)
	locations := geo.NewPostgresStore(db)
	ips := ipreputation.NewPostgresStore(db)
	experimentStore := experiments.NewPostgresStore(db)
	audits := audit.NewPostgresStore(db)
	webhookSubs := webhooks.NewPostgresStore(db)

	migrations := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"behavior", samples.Migrate},
		{"anomaly", alerts.Migrate},
		{"policy", policies.Migrate},
		{"risk", assessments.Migrate},
		{"device", devices.Migrate},
		{"tlsprint", fingerprints.Migrate},
		{"users", userStore.Migrate},
		{"authevents", events.Migrate},
		{"sessions", sessionStore.Migrate},
		{"geo", locations.Migrate},
		{"ipreputation", ips.Migrate},
		{"experiments", experimentStore.Migrate},
		{"audit", audits.Migrate},
		{"webhooks", webhookSubs.Migrate},
	}
	for _, m := range migrations {
		if err := m.fn(ctx); err != nil {
			s.logger.Warn("failed to migrate store", "store", m.name, "error", err)
		}
	}

	if err := policies.SeedDefault(ctx, s.defaultPolicy()); err != nil {
		s.logger.Warn("failed to seed default policy", "error", err)
	}

	s.stores = stores{
		samples:      samples,
		alerts:       alerts,
		policies:     policies,
		assessments:  assessments,
		devices:      devices,
		fingerprints: fingerprints,
		users:        userStore,
		events:       events,
		sessions:     sessionStore,
		locations:    locations,
		ips:          ips,
		experiments:  experimentStore,
		audits:       audits,
		webhookSubs:  webhookSubs,
	}
	return nil
}

// initMemory builds the in-memory store set for demo mode.
func (s *Server) initMemory() {
	policies := policy.NewMemoryStore()
	_ = policies.Save(context.Background(), s.defaultPolicy())

	s.stores = stores{
		samples:      behavior.NewMemoryStore(),
		alerts:       anomaly.NewMemoryStore(),
		policies:     policies,
		assessments:  risk.NewMemoryStore(),
		devices:      device.NewMemoryStore(),
		fingerprints: tlsprint.NewMemoryStore(),
		users:        users.NewMemoryStore(),
		events:       authevents.NewMemoryStore(),
		sessions:     sessions.NewMemoryStore(),
		locations:    geo.NewMemoryStore(),
		ips:          ipreputation.NewMemoryStore(),
		experiments:  experiments.NewMemoryStore(),
		audits:       audit.NewMemoryStore(),
		webhookSubs:  webhooks.NewMemoryStore(),
	}
}

// defaultPolicy builds the stock policy from configuration, so operators
// can tune initial thresholds through the environment.
func (s *Server) defaultPolicy() *policy.Policy {
	p := policy.Default()
	p.SilentAuthThreshold = s.cfg.SilentAuthThreshold
	p.DeviceWeight = s.cfg.DeviceWeight
	p.TLSWeight = s.cfg.TLSWeight
	p.BehavioralWeight = s.cfg.BehavioralWeight
	p.StepUpMethod = policy.StepUpMethod(s.cfg.StepUpMethod)
	p.AlertThreshold = s.cfg.AlertThreshold
	return &p
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		rlCfg.RequestsPerSecond = float64(s.cfg.RateLimitRPS)
		rlCfg.BurstSize = s.cfg.RateLimitRPS * 2
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		ctx = logging.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// adminAuthMiddleware guards admin routes with the X-Admin-Secret header.
// In development with no secret configured the routes stay open for demos.
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			if s.cfg.IsProduction() {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "admin_disabled",
					"message": "Admin routes require ADMIN_SECRET to be configured",
				})
				return
			}
			c.Next()
			return
		}

		provided := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or missing X-Admin-Secret header",
			})
			return
		}
		c.Next()
	}
}

// blacklistGuard rejects assessment requests from blacklisted IPs before
// any scoring work happens, and counts the blocked attempt.
func (s *Server) blacklistGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		rep, err := s.stores.ips.Get(c.Request.Context(), ip)
		if err != nil || !rep.Blacklisted {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if _, err := s.stores.ips.RecordAttempt(ctx, ip, ipreputation.OutcomeBlocked); err != nil {
			logging.L(ctx).Warn("failed to record blocked attempt", "ip", ip, "error", err)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "ip_blacklisted",
			"message": "Requests from this address are blocked",
		})
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for the dashboard's live feed
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate :userId URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.UserIDParamMiddleware())

	// Admin group: guarded and audited
	admin := v1.Group("/admin")
	admin.Use(s.adminAuthMiddleware(), audit.Middleware(s.stores.audits))

	// Behavioral telemetry and baselines
	behavior.NewHandler(s.stores.samples, s.baselines).RegisterRoutes(v1)

	// Risk assessment pipeline
	riskHandler := risk.NewHandler(s.engine, s.stores.assessments, s.stores.policies).
		WithAlerts(s.stores.alerts).
		WithNotifier(&notifierFanout{realtime.NewNotifier(s.realtimeHub), s.webhookEmit}).
		WithAssigner(s.experiments).
		WithEvents(&fanoutRecorder{s.eventsSvc, s.experiments, s.stores.ips, s.webhookEmit})
	assess := v1.Group("")
	assess.Use(s.blacklistGuard())
	riskHandler.RegisterRoutes(assess)

	// Anomaly alerts
	anomaly.NewHandler(s.stores.alerts).RegisterRoutes(v1)

	// Device and TLS fingerprint familiarity
	device.NewHandler(s.stores.devices).RegisterRoutes(v1)
	tlsprint.NewHandler(s.stores.fingerprints).RegisterRoutes(v1)

	// Users and sessions
	users.NewHandler(s.stores.users).RegisterRoutes(v1)
	sessions.NewHandler(s.stores.sessions).RegisterRoutes(v1)

	// Auth events and dashboard stats
	authevents.NewHandler(s.eventsSvc, s.stores.events).RegisterRoutes(v1)

	// Impossible-travel checks
	geo.NewHandler(s.stores.locations, s.stores.alerts).RegisterRoutes(v1)

	// IP reputation (blacklist mutation is admin-only)
	ipreputation.NewHandler(s.stores.ips).RegisterRoutes(v1, admin)

	// A/B experiments (lifecycle mutation is admin-only)
	experiments.NewHandler(s.stores.experiments).RegisterRoutes(v1, admin)

	// Decision policies (admin-only)
	policy.NewHandler(s.stores.policies).RegisterRoutes(admin)

	// Audit log (admin-only)
	audit.NewHandler(s.stores.audits).RegisterRoutes(admin)

	// Webhook subscriptions (admin-only)
	webhooks.NewHandler(s.stores.webhookSubs, s.webhookDisp).RegisterRoutes(admin)

	// Realtime hub stats
	v1.GET("/realtime/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.realtimeHub.Stats())
	})
}

// notifierFanout pushes assessment outcomes to the dashboard feed and,
// for alerts, to registered webhooks.
type notifierFanout struct {
	rt *realtime.Notifier
	wh *webhooks.Emitter
}

func (n *notifierFanout) ConfidenceUpdate(userID string, score float64) {
	n.rt.ConfidenceUpdate(userID, score)
}

func (n *notifierFanout) AnomalyAlert(alert *anomaly.Alert) {
	n.rt.AnomalyAlert(alert)
	n.wh.EmitAlertCreated(alert)
}

// fanoutRecorder forwards authentication outcomes to every interested
// consumer: the event log, the live experiment, IP reputation, and the
// webhook emitter for block decisions.
type fanoutRecorder struct {
	events      *authevents.Service
	experiments *experiments.Service
	ips         ipreputation.Store
	webhooks    *webhooks.Emitter
}

func (r *fanoutRecorder) RecordAuth(ctx context.Context, userID, eventType string, confidence float64, sessionID string) {
	r.events.RecordAuth(ctx, userID, eventType, confidence, sessionID)
	r.experiments.RecordAuth(ctx, userID, eventType, confidence, sessionID)

	outcome := ipreputation.OutcomeSuccess
	if eventType == authevents.TypeFailed {
		outcome = ipreputation.OutcomeFailure
		r.webhooks.EmitUserBlocked(userID, sessionID, confidence)
	}
	ip := logging.ClientIP(ctx)
	if ip == "" {
		return
	}
	if _, err := r.ips.RecordAttempt(ctx, ip, outcome); err != nil {
		logging.L(ctx).Warn("failed to record ip attempt", "ip", ip, "error", err)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.checks.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "SilentAuth",
		"description": "Risk-based passwordless authentication",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing (no-op when no OTLP endpoint is configured)
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTraces = shutdownTraces
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// DB pool metrics
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			s.logger.Warn("trace exporter shutdown error", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// generateRequestID creates a random request identifier.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return "req-" + hex.EncodeToString(b)
}
