// Package http implements the REST API of the student hub: the dashboard,
// checklist, verification, coach stream, city insights, account and billing
// endpoints, plus health and metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/application/query"
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/internal/interface/http/handlers"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	// Zero keeps coach streams open for as long as the client stays.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of JSON request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// EnableMetrics - expose GET /metrics.
	EnableMetrics bool

	// RateLimitRPS and RateLimitBurst configure the per-IP token bucket
	// (RPS 0 = disabled).
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		MaxBodyBytes:   256 << 10,
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
		RateLimitRPS:   5,
		RateLimitBurst: 20,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FeatureToggles reports per-user rollout decisions.
type FeatureToggles interface {
	CoachEnabled(userID string) bool
	CityInsightsEnabled(userID string) bool
	CheckoutEnabled(userID string) bool
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Query Handlers (CQRS Read Side)
	GetMe        *query.GetMeHandler
	GetChecklist *query.GetChecklistHandler
	CityInsights *query.CityInsightsHandler

	// Command Handlers (CQRS Write Side)
	CompleteOnboarding  *command.CompleteOnboardingHandler
	ToggleProgress      *command.ToggleProgressHandler
	RequestVerification *command.RequestVerificationHandler
	ConfirmVerification *command.ConfirmVerificationHandler
	CoachConversation   *command.CoachConversationHandler
	SendSolutionMessage *command.SendSolutionMessageHandler
	DeleteAccount       *command.DeleteAccountHandler
	StartCheckout       *command.StartCheckoutHandler

	// Authentication
	Tokens TokenVerifier

	// Features gates the rollout-controlled endpoints. Nil enables all.
	Features FeatureToggles

	// Logger
	Logger *logger.Logger

	// Health Check Dependencies
	HealthChecker handlers.HealthChecker

	// Stripe webhook (nil = route not mounted)
	StripeWebhook http.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger

	// Middleware state
	rateLimiter *rateLimiter

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: chi.NewRouter(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	if config.RateLimitRPS > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitRPS, config.RateLimitBurst, 10*time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures middleware and all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	if s.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}

	// CORS wraps everything so that error bodies carry the headers too.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Client-Info", "apikey"},
		ExposedHeaders:   []string{"X-Request-ID", headerQuotaRemaining},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(handlers.SecurityHeadersMiddleware)
	if s.rateLimiter != nil {
		r.Use(s.rateLimitMiddleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth) // Kubernetes alias
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)

	if s.config.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Public Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/verify", s.handleVerifyPage)

	if s.deps.StripeWebhook != nil {
		r.Method(http.MethodPost, "/webhooks/stripe", s.deps.StripeWebhook)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Authenticated Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
		r.Use(handlers.NoCacheMiddleware)
		r.Use(s.authMiddleware)

		r.Get("/me", s.handleGetMe)
		r.Get("/me/gates", s.handleGetGates)
		r.Put("/me/onboarding", s.handleCompleteOnboarding)
		r.Get("/me/checklist", s.handleGetChecklist)
		r.Put("/me/checklist/{phase}/{item}", s.handleToggleItem)
		r.Put("/me/documents/{doc}", s.handleToggleDocument)

		r.Post("/verification/request", s.handleRequestVerification)

		r.Post("/coach/messages", s.handleCoachMessages)
		r.Post("/solution-chats/{id}/messages", s.handleSolutionMessage)
		r.Post("/city-insights", s.handleCityInsights)

		r.Post("/account/delete", s.handleDeleteAccount)
		r.Post("/billing/checkout", s.handleCheckout)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
