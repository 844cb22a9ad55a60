// Package webapi exposes the orchestration core over HTTP for the board UI:
// project registration and scanning, task lifecycle, and a WebSocket stream
// of board updates.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/devboard/devboard/internal/board"
	"github.com/devboard/devboard/internal/registry"
)

// Server is the board API server.
type Server struct {
	registry  *registry.Registry
	lifecycle *board.Lifecycle
	addr      string
	logger    *log.Logger
	wsHub     *WebSocketHub
	devMode   bool
	devOrigin string
}

// Config holds server configuration.
type Config struct {
	Addr      string
	Registry  *registry.Registry
	Lifecycle *board.Lifecycle
	DevMode   bool   // Enable CORS for local development
	DevOrigin string // Allowed origin in dev mode (e.g., "http://localhost:5173")
}

// New creates a new API server.
func New(cfg Config) *Server {
	return &Server{
		registry:  cfg.Registry,
		lifecycle: cfg.Lifecycle,
		addr:      cfg.Addr,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "webapi"}),
		wsHub:     NewWebSocketHub(),
		devMode:   cfg.DevMode,
		devOrigin: cfg.DevOrigin,
	}
}

// Start starts the API server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	s.logger.Info("starting API server", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Project endpoints
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("POST /projects", s.handleRegisterProject)
	mux.HandleFunc("POST /projects/scan", s.handleScanProjects)
	mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	mux.HandleFunc("GET /projects/{id}/branches", s.handleProjectBranches)
	mux.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)

	// Task endpoints
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.HandleFunc("POST /tasks/{id}/move", s.handleMoveTask)
	mux.HandleFunc("POST /tasks/reorder", s.handleReorderTasks)
	mux.HandleFunc("POST /tasks/{id}/branch", s.handleBranchFromTask)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)

	// WebSocket
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Apply middleware
	var handler http.Handler = mux
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	return s.loggingMiddleware(handler)
}

// corsMiddleware adds CORS headers for local development.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.devOrigin
		if origin == "" {
			origin = "http://localhost:5173"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON response helpers
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

func parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// serviceError maps a typed service failure to an HTTP response. The error
// kind, not the message text, selects the status.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	var validationErr *board.ValidationError
	var regValidationErr *registry.ValidationError
	var provisionErr *board.SessionProvisionError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &regValidationErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, registry.ErrProjectNotFound), errors.Is(err, board.ErrTaskNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrDuplicateName),
		errors.Is(err, registry.ErrDuplicateProject),
		errors.Is(err, board.ErrDuplicateBranch),
		errors.Is(err, board.ErrSessionExists):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrInvalidRepo):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &provisionErr):
		s.logger.Error("session provisioning failed", "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		s.logger.Error("request failed", "error", err)
		jsonError(w, "Internal error", http.StatusInternalServerError)
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
