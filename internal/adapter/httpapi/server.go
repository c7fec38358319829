// Package httpapi exposes the closure aggregation and plan analysis HTTP
// surface, along with health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gptogo/lane-closure-impact/internal/domain"
	"github.com/gptogo/lane-closure-impact/internal/pipeline"
)

// Server routes closure and analysis requests to the aggregator and the
// analysis backend.
type Server struct {
	httpServer     *http.Server
	agg            *pipeline.Aggregator
	analyzer       pipeline.PlanAnalyzer // nil when no backend credential is configured
	allowedOrigins []string
	logger         *slog.Logger
}

// NewServer creates the HTTP server. analyzer may be nil; the analyze routes
// then answer with a server-configuration error, matching the contract for a
// missing backend credential.
func NewServer(addr string, agg *pipeline.Aggregator, analyzer pipeline.PlanAnalyzer, allowedOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second, // analysis calls wait on the generative backend
			IdleTimeout:  60 * time.Second,
		},
		agg:            agg,
		analyzer:       analyzer,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/closures", s.withCORS(s.handleClosures))
	mux.HandleFunc("POST /api/analyze", s.withCORS(s.handleAnalyze))
	mux.HandleFunc("POST /api/analyze-plan", s.withCORS(s.handleAnalyzePlan))

	// Preflight and method-mismatch fallbacks per route. The fallback keeps
	// the JSON envelope and CORS headers so browser clients can read the
	// denial.
	for _, route := range []string{"/api/closures", "/api/analyze", "/api/analyze-plan"} {
		mux.HandleFunc("OPTIONS "+route, s.handlePreflight)
		mux.HandleFunc(route, s.withCORS(s.handleMethodNotAllowed))
	}

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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.agg.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleClosures serves the canonical closure set for one island, built
// fresh per request.
func (s *Server) handleClosures(w http.ResponseWriter, r *http.Request) {
	island := r.URL.Query().Get("island")

	closures, err := s.agg.FetchClosures(r.Context(), island)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closures": closures})
}

type analyzeRequest struct {
	Closures    *[]domain.ClosureAnalysisInput `json:"closures"`
	DrivingPlan string                         `json:"drivingPlan"`
}

// handleAnalyze implements the raw analysis contract: display-ready closures
// plus a plan already carrying date context, scored in one backend call.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	if s.analyzer == nil {
		s.logger.Error("analysis requested without a configured backend credential")
		writeJSON(w, http.StatusInternalServerError, errorResponse("Server configuration error: Missing API key."))
		return
	}

	impacted, err := s.analyzer.AnalyzePlan(r.Context(), *req.Closures, req.DrivingPlan)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"impactedClosures": impacted})
}

type analyzePlanRequest struct {
	Island      string `json:"island"`
	DrivingPlan string `json:"drivingPlan"`
}

type analyzePlanResponse struct {
	Closures         []domain.ClosureRecord   `json:"closures"`
	ImpactedClosures []domain.ImpactedClosure `json:"impactedClosures"`
}

// handleAnalyzePlan runs the full cycle: fetch and normalize the island's
// closures, then score them against the plan. Results are keyed to the
// returned closures by id.
func (s *Server) handleAnalyzePlan(w http.ResponseWriter, r *http.Request) {
	var req analyzePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("Bad Request: Invalid JSON format. "+err.Error()))
		return
	}
	if s.analyzer == nil {
		s.logger.Error("analysis requested without a configured backend credential")
		writeJSON(w, http.StatusInternalServerError, errorResponse("Server configuration error: Missing API key."))
		return
	}

	closures, err := s.agg.FetchClosures(r.Context(), req.Island)
	if err != nil {
		s.writeError(w, err)
		return
	}

	impacted, err := s.agg.AnalyzePlan(r.Context(), closures, req.DrivingPlan)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzePlanResponse{Closures: closures, ImpactedClosures: impacted})
}

func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (analyzeRequest, bool) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("Bad Request: Invalid JSON format. "+err.Error()))
		return analyzeRequest{}, false
	}
	if req.Closures == nil || strings.TrimSpace(req.DrivingPlan) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("Bad Request: Missing or invalid 'closures' array or 'drivingPlan' string."))
		return analyzeRequest{}, false
	}
	return req, true
}

// writeError maps the domain error taxonomy onto HTTP statuses and the error
// envelope shape clients discriminate on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrUpstreamData):
		status = http.StatusBadGateway
	}
	if status != http.StatusBadRequest {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse(err.Error()))
}

// withCORS decorates API handlers with allow-list CORS headers.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r.Header.Get("Origin"))
		next(w, r)
	}
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w, r.Header.Get("Origin"))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse("Method Not Allowed"))
}

// setCORSHeaders allows listed origins only. A non-listed origin receives
// the first allowed origin rather than a wildcard, which denies the
// browser's request without leaking the allow-list.
func (s *Server) setCORSHeaders(w http.ResponseWriter, origin string) {
	if len(s.allowedOrigins) == 0 {
		return
	}
	allowed := s.allowedOrigins[0]
	for _, o := range s.allowedOrigins {
		if origin == o {
			allowed = origin
			break
		}
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Origin", allowed)
}

func errorResponse(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
