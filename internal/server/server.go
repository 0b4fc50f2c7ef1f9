// Package server provides the HTTP and WebSocket surface of the vetagent
// chat service and its lifecycle management.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pawsense/vetagent/internal/agent"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/observability"
)

// ChatEngine is the conversational surface the server exposes.
type ChatEngine interface {
	HandleMessage(ctx context.Context, sessionID, message string) (*agent.TurnResult, error)
}

// Server serves the chat API over HTTP and WebSocket.
type Server struct {
	engine   ChatEngine
	sessions agent.SessionStore
	config   config.ServerConfig
	limiter  *rate.Limiter
}

// New creates a server. sessions may be the same store the engine writes to;
// the server only reads from it.
func New(engine ChatEngine, sessions agent.SessionStore, cfg config.ServerConfig) *Server {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	return &Server{
		engine:   engine,
		sessions: sessions,
		config:   cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

// writeError writes a JSON error body in the {"error": ...} shape.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleChat processes one POST /api/chat turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	if errors.Is(err, agent.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if err != nil {
		log.Printf("server: chat turn failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	observability.Turns.WithLabelValues(string(result.Status)).Inc()
	writeJSON(w, http.StatusOK, result)
}

// handleGetSession serves GET /api/sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	state, err := s.sessions.Load(r.Context(), sessionID)
	if errors.Is(err, agent.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("server: load session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleHealth serves the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the underlying ResponseWriter so WebSocket upgrades
// still work behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return hj.Hijack()
}

// route reduces a request path to a low-cardinality metric label.
func route(path string) string {
	if strings.HasPrefix(path, "/api/sessions/") {
		return "/api/sessions/{id}"
	}
	return path
}

// observeMiddleware logs each request and records metrics.
func observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		label := route(r.URL.Path)
		observability.HTTPRequests.WithLabelValues(r.Method, label, fmt.Sprintf("%d", rec.code)).Inc()
		observability.HTTPDuration.WithLabelValues(label).Observe(elapsed.Seconds())
		log.Printf("server: %s %s -> %d (%s)", r.Method, r.URL.Path, rec.code, elapsed.Round(time.Millisecond))
	})
}

// rateLimitMiddleware rejects requests beyond the configured rate.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			observability.RateLimited.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Handler builds the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("/ws/chat", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	handler := s.rateLimitMiddleware(mux)
	handler = observeMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	return handler
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully. It returns the actual listen address, which differs from the
// configured one when port 0 was requested.
func (s *Server) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: serve error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	log.Printf("server: listening on %s", listener.Addr())
	return listener.Addr().String(), nil
}
