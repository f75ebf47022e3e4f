package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Rauan228/HackNU2/internal/config"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/Rauan228/HackNU2/internal/realtime"
	"github.com/Rauan228/HackNU2/internal/report"
	"github.com/Rauan228/HackNU2/internal/server/middleware"
	"github.com/Rauan228/HackNU2/internal/server/ratelimit"
	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPingInterval is how often event streams send a keep-alive.
const DefaultPingInterval = 30 * time.Second

// Store is the persistence the API reads directly: accounts and ownership lookups.
type Store interface {
	UserStore
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	Ping(ctx context.Context) error
}

// Sessions runs analysis sessions.
type Sessions interface {
	StartSession(ctx context.Context, applicationID uuid.UUID) (*smartbot.StartResult, error)
	ProcessReply(ctx context.Context, sessionID, text string) (*smartbot.ReplyResult, error)
	GetSession(ctx context.Context, sessionID string) (*smartbot.SessionView, error)
	Abandon(ctx context.Context, sessionID string) (*types.Session, error)
}

// Views builds employer-facing reports.
type Views interface {
	SessionView(ctx context.Context, sessionID string) (*report.ApplicationView, error)
	JobViews(ctx context.Context, jobID uuid.UUID) ([]report.ApplicationView, error)
}

// Events is the realtime subscription source.
type Events interface {
	Subscribe(key string) *realtime.Subscription
	Unsubscribe(sub *realtime.Subscription)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Store     Store
	Sessions  Sessions
	Views     Views
	Events    Events
	JWT       *JWTService
	Passwords *config.PasswordConfig
	Limiter   *ratelimit.Limiter
	Logger    *zap.Logger
}

// Options tune the HTTP layer.
type Options struct {
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	PingInterval    time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	sessions    Sessions
	views       Views
	events      Events
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	authHandler *AuthHandler
	log         *zap.Logger
	opts        Options

	// closing is closed on shutdown so event streams return.
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new server instance
func New(d Deps, opts Options) (*Server, error) {
	if d.Store == nil || d.Sessions == nil || d.Views == nil || d.Events == nil || d.JWT == nil || d.Passwords == nil {
		return nil, errors.New("server: store, sessions, views, events, jwt and passwords are required")
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		store:       d.Store,
		sessions:    d.Sessions,
		views:       d.Views,
		events:      d.Events,
		jwtService:  d.JWT,
		rateLimiter: d.Limiter,
		log:         logger.OrNop(d.Logger),
		opts:        opts,
		closing:     make(chan struct{}),
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	s.authHandler = NewAuthHandler(NewUserService(d.Store, d.Passwords), d.JWT, s.log)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Generation calls and event streams outlive a short write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	authed := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	candidate := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(types.RoleCandidate)(h))
	}
	employer := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(types.RoleEmployer)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	mux.Handle("POST /smartbot/sessions", candidate(s.handleStartSession))
	mux.Handle("GET /smartbot/sessions/{id}", candidate(s.handleGetSession))
	mux.Handle("POST /smartbot/sessions/{id}/replies", candidate(s.handleReply))
	mux.Handle("POST /smartbot/sessions/{id}/abandon", candidate(s.handleAbandon))
	mux.Handle("GET /smartbot/sessions/{id}/events", candidate(s.handleSessionEvents))

	mux.Handle("POST /employer/applications/{id}/analysis", employer(s.handleEmployerStart))
	mux.Handle("GET /employer/jobs/{id}/applications", employer(s.handleJobApplications))
	mux.Handle("GET /employer/jobs/{id}/summary", employer(s.handleJobSummary))
	mux.Handle("GET /employer/jobs/{id}/export.xlsx", employer(s.handleJobExport))
	mux.Handle("GET /employer/jobs/{id}/events", employer(s.handleJobEvents))
	mux.Handle("GET /employer/sessions/{id}", employer(s.handleEmployerSession))

	return s.withRecover(s.withRateLimit(s.withLogging(s.withCORS(mux))))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.closeStreams()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// withCORS adds CORS headers for the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(s.opts.AllowedOrigins))
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging logs every request with its status and latency.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			s.log.Warn("request completed", fields...)
			return
		}
		s.log.Debug("request completed", fields...)
	})
}

// withRecover turns handler panics into 500 responses.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panicked", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeError(w, s.log, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID returns the client IP from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	s.log.Info("rate limit exceeded", zap.Int("limit", info.Limit), zap.Duration("retry_after", info.RetryAfter))
	writeJSON(w, s.log, http.StatusTooManyRequests, response)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, s.log, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes an error JSON response
func writeError(w http.ResponseWriter, log *zap.Logger, status int, code, message string) {
	writeJSON(w, log, status, map[string]string{"error": code, "message": message})
}

// writeErr maps err to its status. Internal errors are logged and not echoed.
func writeErr(w http.ResponseWriter, log *zap.Logger, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeError(w, log, status, errorCode(err), "internal server error")
		return
	}
	writeError(w, log, status, errorCode(err), err.Error())
}
