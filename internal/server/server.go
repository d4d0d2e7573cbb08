// Package server exposes the router over HTTP. The envelope status becomes
// the HTTP status and the envelope body becomes the response body.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

type Router interface {
	RouteJSON(ctx context.Context, raw []byte) models.Envelope
	TranscriptionStatus(ctx context.Context, jobName string) models.Envelope
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
	CheckTimeout time.Duration
}

type Server struct {
	config Config
	router Router
	checks map[string]Check
	logger logger.Logger
	http   *http.Server
}

func New(cfg Config, router Router, checks map[string]Check, log logger.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}
	s := &Server{
		config: cfg,
		router: router,
		checks: checks,
		logger: logger.ForComponent(log, "http-server"),
	}
	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orchestrate", s.handleOrchestrate)
	mux.HandleFunc("GET /v1/transcriptions/{job}", s.handleTranscription)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe blocks until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.config.Address})
	if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeEnvelope(w, models.NewErrorEnvelope(http.StatusRequestEntityTooLarge, string(errors.ErrCodeInvalidInput), "Request body too large"))
			return
		}
		writeEnvelope(w, models.NewErrorEnvelope(http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "Unable to read request body"))
		return
	}

	start := time.Now()
	env := s.router.RouteJSON(r.Context(), raw)
	s.logger.Info("request handled", map[string]interface{}{
		"path":       r.URL.Path,
		"statusCode": env.StatusCode,
		"durationMs": time.Since(start).Milliseconds(),
	})
	writeEnvelope(w, env)
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, s.router.TranscriptionStatus(r.Context(), r.PathValue("job")))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.CheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}

func writeEnvelope(w http.ResponseWriter, env models.Envelope) {
	writeJSON(w, env.StatusCode, env.Body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
