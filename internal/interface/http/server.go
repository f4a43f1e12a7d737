// Package http implements the REST API of the gradebook: standings, roster,
// grades, attendance, groups and reward draws, plus health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spinelli666/tabela-gamificacao-alunos/config"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/app"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/interface/http/handlers"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxHeaderBytes int
	MaxBodyBytes   int64

	EnableCORS     bool
	AllowedOrigins []string

	// EnableMetrics exposes GET /metrics.
	EnableMetrics bool

	// RateLimitPerMinute is per client IP. Zero disables limiting.
	RateLimitPerMinute int

	// APIKeyHash is the bcrypt hash guarding write routes. Empty leaves them open.
	APIKeyHash   string
	APIKeyHeader string

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerMinute: 120,
		APIKeyHeader:       "X-API-Key",
		Version:            "v1",
	}
}

// ConfigFrom maps the application configuration onto server settings.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Host = cfg.HTTP.Host
	c.Port = cfg.HTTP.Port
	c.ReadTimeout = cfg.HTTP.ReadTimeout
	c.WriteTimeout = cfg.HTTP.WriteTimeout
	c.IdleTimeout = cfg.HTTP.IdleTimeout
	c.EnableCORS = cfg.HTTP.EnableCORS
	c.AllowedOrigins = cfg.HTTP.AllowedOrigins
	c.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	c.APIKeyHash = cfg.HTTP.APIKeyHash
	c.APIKeyHeader = cfg.HTTP.APIKeyHeader
	c.EnableMetrics = cfg.Observability.MetricsEnabled
	c.Version = cfg.App.Version
	return c
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FeatureGate answers runtime feature toggles. *config.FeatureFlags implements it.
type FeatureGate interface {
	IsEnabled(name string) bool
}

// featureLister is implemented by gates that can list their flags.
type featureLister interface {
	Snapshot() map[string]bool
}

// Recorder observes served requests. *metrics.Metrics implements it.
type Recorder interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	App *app.Application

	// Features nil means every feature is on.
	Features FeatureGate

	Metrics Recorder

	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	app        *app.Application
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger

	auth    *handlers.APIKeyAuth
	limiter *handlers.IPRateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		app:    deps.App,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))
	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s.auth = handlers.NewAPIKeyAuth(cfg.APIKeyHeader, cfg.APIKeyHash, s.deny)
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = handlers.NewIPRateLimiter(cfg.RateLimitPerMinute)
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler exposes the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(handlers.SecurityHeadersMiddleware)
	if s.config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.config.APIKeyHeader, "X-Actor", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if s.limiter != nil {
		r.Use(s.limiter.Middleware(getClientIP, s.deny))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.deny(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.deny(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if s.config.EnableMetrics {
		h := s.deps.MetricsHandler
		if h == nil {
			h = promhttp.Handler()
		}
		r.Method(http.MethodGet, "/metrics", h)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(handlers.NoCacheMiddleware)
		api.Use(handlers.RequestSizeLimitMiddleware(s.maxBodyBytes(), s.deny))

		// Reads are public.
		api.Get("/features", s.handleFeatures)
		api.Get("/standings", s.handleGetStandings)
		api.Get("/students", s.handleListStudents)
		api.Get("/students/{id}/standing", s.handleGetStudentStanding)
		api.Get("/activities/report", s.handleActivityReport)
		api.With(s.requireFeature(config.FeatureGradeHistory)).Get("/grades/{id}/history", s.handleGradeHistory)
		api.Get("/attendance", s.handleAttendanceReport)
		api.With(s.requireFeature(config.FeatureGroupRankings)).Get("/groups/rankings", s.handleGroupRankings)
		api.Get("/rewards/draws", s.handleRewardHistory)
		api.Get("/rewards/pending", s.handlePendingRewards)

		// Writes require the staff API key.
		api.Group(func(w chi.Router) {
			w.Use(s.auth.Middleware)

			w.Post("/students", s.handleRegisterStudent)
			w.Put("/students/{id}", s.handleUpdateStudent)
			w.Delete("/students/{id}", s.handleDeleteStudent)

			w.Post("/activities", s.handleCreateActivity)
			w.Put("/activities/{id}", s.handleUpdateActivity)
			w.Delete("/activities/{id}", s.handleDeleteActivity)
			w.Post("/activities/{id}/grades", s.handleRecordGrade)
			w.Put("/activities/{id}/grades/{studentID}", s.handleUpdateGrade)
			w.Delete("/grades/{id}", s.handleDeleteGrade)

			w.Post("/attendance", s.handleRecordAttendance)
			w.With(s.requireFeature(config.FeatureBulkAttendance)).Post("/attendance/bulk", s.handleRecordBulkAttendance)
			w.Put("/attendance/{id}", s.handleUpdateAttendance)
			w.Delete("/attendance/{id}", s.handleDeleteAttendance)

			w.Post("/groups", s.handleCreateGroup)
			w.Put("/groups/{id}", s.handleUpdateGroup)
			w.Delete("/groups/{id}", s.handleDeleteGroup)
			w.Post("/groups/{id}/members", s.handleAddGroupMembers)
			w.Delete("/groups/{id}/members/{studentID}", s.handleRemoveGroupMember)

			w.With(s.requireFeature(config.FeatureRewardDraws)).Post("/rewards/draws", s.handleDrawReward)
			w.With(s.requireFeature(config.FeatureRewardRedeem)).Post("/rewards/draws/{id}/redeem", s.handleRedeemReward)
		})
	})

	return r
}

func (s *Server) maxBodyBytes() int64 {
	if s.config.MaxBodyBytes > 0 {
		return s.config.MaxBodyBytes
	}
	return 1 << 20
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// loggingMiddleware logs every request and feeds the HTTP metrics. The route
// label is the chi pattern so ids do not explode cardinality.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveHTTP(r.Method, route, status, duration)
		}

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("route", route),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Latency(duration),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic recovered",
					logger.Any("error", rec),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireFeature answers 403 while the named feature is switched off.
func (s *Server) requireFeature(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.deps.Features != nil && !s.deps.Features.IsEnabled(name) {
				writeJSONErrorWithDetails(w, r, http.StatusForbidden, "feature_disabled",
					"This feature is currently disabled", map[string]string{"feature": name})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deny implements handlers.DenyFunc.
func (s *Server) deny(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSONError(w, r, status, code, message)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
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
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error. Details carries per-field validation
// messages when present.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
	Page       int       `json:"page,omitempty"`
	PageSize   int       `json:"page_size,omitempty"`
	HasMore    bool      `json:"has_more,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, resp JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a success response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

// writeJSONWithMeta writes a success response with custom metadata.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	writeEnvelope(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSONErrorWithDetails(w, r, status, code, message, nil)
}

// writeJSONErrorWithDetails writes an error response with details.
func writeJSONErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeEnvelope(w, status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

// writeDomainError maps application errors onto HTTP statuses. Unknown errors
// are logged and hidden behind a generic 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	switch {
	case shared.IsValidation(err):
		var details any
		if fields := validation.Fields(err); len(fields) > 0 {
			details = fields
		}
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", message, details)
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", message)
	case shared.IsConflict(err):
		writeJSONError(w, r, http.StatusConflict, "conflict", message)
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// getClientIP returns the client address. middleware.RealIP has already
// resolved proxy headers into RemoteAddr.
func getClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 && !strings.HasSuffix(ip, "]") {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}

// getRequestID returns the id assigned by middleware.RequestID.
func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// getActor names who performed a write. Staff clients send X-Actor.
func getActor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		return actor
	}
	return "api"
}

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getQueryParamBool extracts a boolean query parameter.
func getQueryParamBool(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1" || value == "yes"
}

// decodeJSON reads the request body into dst. Malformed bodies are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.WrapError("http", "decodeJSON", shared.ErrInvalidInput, "request body too large", err)
		}
		return shared.WrapError("http", "decodeJSON", shared.ErrInvalidInput, "request body must be valid JSON", err)
	}
	return nil
}
