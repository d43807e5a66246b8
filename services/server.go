package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/krshsl/praxis/coach/telemetry"
	ws "github.com/krshsl/praxis/coach/websocket"
)

// Server holds all server dependencies
type Server struct {
	config             *Config
	store              repository.Store
	metrics            *telemetry.Manager
	authService        *AuthService
	authEndpoints      *AuthEndpoints
	interviewEndpoints *InterviewEndpoints
	sessionEndpoints   *SessionEndpoints
	reportEndpoints    *ReportEndpoints
	eventStream        *EventStreamHandler
	wsHub              *ws.Hub
}

// Dependencies are the wired services the server exposes.
type Dependencies struct {
	Store      repository.Store
	Metrics    *telemetry.Manager
	Auth       *AuthService
	Sessions   *SessionService
	Reports    *ReportService
	Interviews *InterviewService
	Hub        *ws.Hub
}

// NewServer creates a new server instance
func NewServer(config *Config, deps Dependencies) *Server {
	hub := deps.Hub
	if hub == nil {
		hub = ws.NewHub()
	}
	return &Server{
		config:             config,
		store:              deps.Store,
		metrics:            deps.Metrics,
		authService:        deps.Auth,
		authEndpoints:      NewAuthEndpoints(deps.Auth),
		interviewEndpoints: NewInterviewEndpoints(deps.Store, deps.Interviews),
		sessionEndpoints:   NewSessionEndpoints(deps.Sessions),
		reportEndpoints:    NewReportEndpoints(deps.Reports),
		eventStream:        NewEventStreamHandler(deps.Store, deps.Sessions, deps.Interviews, hub, config.WebSocket.AllowedOrigins),
		wsHub:              hub,
	}
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.healthHandler)
	if s.config.Metrics.Enabled && s.metrics != nil {
		r.Handle(s.config.Metrics.Path, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		s.authEndpoints.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			s.interviewEndpoints.RegisterRoutes(r)
			s.sessionEndpoints.RegisterRoutes(r)
			s.reportEndpoints.RegisterRoutes(r)
			r.Get("/ws", s.eventStream.ServeHTTP)
		})
	})

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.wsHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server exited")
	return nil
}

// CheckOrigin validates the origin of WebSocket connections against a
// comma-separated allow list. An empty list denies everything.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "up"

	if err := s.store.Ping(r.Context()); err != nil {
		slog.Warn("Health check: store unreachable", "error", err)
		status = "degraded"
		dbStatus = "down"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "database": dbStatus})
	slog.Debug("Health check", "status", status, "database", dbStatus)
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": "1.0.0"})
}
