package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/leit-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and conversion HTTP endpoints.
type Server struct {
	httpServer *http.Server
	registry   *domain.Registry
	policy     domain.Policy
	logger     *slog.Logger
}

// ScaleInfo describes one registered scale.
type ScaleInfo struct {
	Name         string  `json:"name"`
	Slope        float64 `json:"slope"`
	Offset       float64 `json:"offset"`
	AbsoluteZero float64 `json:"absolute_zero"`
}

// ConvertResponse is the body returned by GET /convert.
type ConvertResponse struct {
	Input       domain.ScaleValue   `json:"input"`
	Kelvin      float64             `json:"kelvin"`
	Conversions []domain.ScaleValue `json:"conversions"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /scales,
// and /convert routes. Conversions resolve scale names against reg and apply policy.
func NewServer(addr string, ready ReadinessChecker, reg *domain.Registry, policy domain.Policy, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		registry: reg,
		policy:   policy,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /scales", s.handleScales)
	mux.HandleFunc("GET /convert", s.handleConvert)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleScales(w http.ResponseWriter, _ *http.Request) {
	scales := s.registry.Scales()
	out := make([]ScaleInfo, 0, len(scales))
	for _, sc := range scales {
		out = append(out, ScaleInfo{
			Name:         sc.Name(),
			Slope:        sc.Slope(),
			Offset:       sc.Offset(),
			AbsoluteZero: sc.AbsoluteZero(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	value, err := strconv.ParseFloat(strings.TrimSpace(q.Get("value")), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		writeError(w, http.StatusBadRequest, "value must be a finite number")
		return
	}
	if strings.TrimSpace(q.Get("from")) == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	from, err := s.registry.Resolve(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	targets := s.registry.Scales()
	if to := q.Get("to"); to != "" {
		if targets, err = s.registry.ResolveAll(strings.Split(to, ",")); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	converted, err := domain.ConvertReading(domain.Reading{
		Temperature: domain.Temperature{Value: value, Scale: from},
	}, targets, s.policy)
	switch {
	case errors.Is(err, domain.ErrBelowAbsoluteZero):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("converted via http", "from", from.Name(), "value", value, "targets", len(targets))
	writeJSON(w, http.StatusOK, ConvertResponse{
		Input:       converted.Input,
		Kelvin:      converted.Kelvin,
		Conversions: converted.Conversions,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
