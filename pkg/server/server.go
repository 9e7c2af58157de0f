// Package server exposes the audit engine and the audit history over a small
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/amosWeiskopf/auditsmith/internal/config"
	"github.com/amosWeiskopf/auditsmith/internal/models"
	"github.com/amosWeiskopf/auditsmith/pkg/audit"
	"github.com/amosWeiskopf/auditsmith/pkg/history"
)

// maxRequestBytes caps the size of a JSON request body
const maxRequestBytes = 1 << 20

// Engine is the part of audit.Engine the server needs
type Engine interface {
	Audit(ctx context.Context, req audit.Request) (*models.AuditResult, error)
	QuickCheck(ctx context.Context, rawURL string) (*models.PageCheck, error)
}

// Server serves the audit API
type Server struct {
	engine  Engine
	store   *history.Store
	config  config.ServerConfig
	log     logrus.FieldLogger
	metrics http.Handler
	started time.Time
}

// New creates a Server. metrics may be nil, in which case /metrics is not
// routed.
func New(engine Engine, store *history.Store, cfg config.ServerConfig, log logrus.FieldLogger, metrics http.Handler) *Server {
	return &Server{
		engine:  engine,
		store:   store,
		config:  cfg,
		log:     log,
		metrics: metrics,
		started: time.Now(),
	}
}

// NewForEngine wires a Server to a concrete engine, serving its registry on
// /metrics.
func NewForEngine(engine *audit.Engine, store *history.Store, cfg config.ServerConfig, log logrus.FieldLogger) *Server {
	return New(engine, store, cfg, log, promhttp.HandlerFor(engine.Registry(), promhttp.HandlerOpts{}))
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/audit/{id}", s.handleGetAudit)
	mux.HandleFunc("GET /api/audit-history", s.handleHistory)
	mux.HandleFunc("POST /api/quick-check", s.handleQuickCheck)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type quickCheckRequest struct {
	URL string `json:"url"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime_seconds"`
	Audits    int       `json:"audits_in_history"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req audit.Request
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Audit(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.store.Add(result)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, ok := s.store.Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Kind:    "not_found",
			Message: fmt.Sprintf("audit %q not found", id),
		}})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleQuickCheck(w http.ResponseWriter, r *http.Request) {
	var req quickCheckRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	check, err := s.engine.QuickCheck(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Seconds(),
		Audits:    s.store.Len(),
	})
}

// decode reads a JSON body into v. Malformed bodies are validation errors.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return &audit.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// statusFor maps an engine error kind to an HTTP status
func statusFor(kind string) int {
	switch kind {
	case audit.KindValidation:
		return http.StatusBadRequest
	case audit.KindSeedUnreachable:
		return http.StatusBadGateway
	case audit.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := audit.ErrorKind(err)
	status := statusFor(kind)
	entry := s.log.WithError(err).WithField("kind", kind)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: err.Error()}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"elapsed": time.Since(start),
		}).Debug("request served")
	})
}
