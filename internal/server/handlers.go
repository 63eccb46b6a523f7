package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/middleware"
)

// RouteOptions configures the HTTP surface.
type RouteOptions struct {
	Checker          *health.Checker
	Metrics          *metrics.Metrics
	CORS             middleware.CORSConfig
	RequestTimeout   time.Duration
	RefreshPerMinute int
	AdminKeyHashes   []string
}

// Handler builds the route table and middleware chain.
//
//	GET  /                 latest word-cloud page
//	GET  /api/v1/cloud     latest report (?top=N trims entries and words)
//	GET  /api/v1/history   stored snapshots (?limit=N)
//	GET  /api/v1/profiles  extraction profile names
//	POST /api/v1/refresh   start a regeneration (admin key when configured)
//	GET  /health/live
//	GET  /health/ready
//
// Middleware, outermost first: RequestID, Metrics, Timeout, CORS.
func (s *Server) Handler(opts RouteOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/v1/cloud", s.handleCloud)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/profiles", s.handleProfiles)

	var refresh http.Handler = http.HandlerFunc(s.handleRefresh)
	if opts.RefreshPerMinute > 0 {
		refresh = middleware.RateLimit(middleware.NewRateLimiter(opts.RefreshPerMinute))(refresh)
	}
	refresh = middleware.RequireAPIKey(opts.AdminKeyHashes)(refresh)
	mux.Handle("POST /api/v1/refresh", refresh)

	checker := opts.Checker
	if checker == nil {
		checker = health.NewChecker()
	}
	checker.Register("cloud", s.readinessCheck)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if opts.Metrics != nil {
		mws = append(mws, middleware.Metrics(opts.Metrics))
	}
	mws = append(mws, middleware.Timeout(opts.RequestTimeout), middleware.CORS(opts.CORS))
	return middleware.Chain(mux, mws...)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.gen.RenderPage(&buf, s.Latest()); err != nil {
		s.logger.Error("rendering page failed", "error", err)
		s.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "failed to render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCloud(w http.ResponseWriter, r *http.Request) {
	report := s.Latest()
	if report == nil {
		s.writeError(w, apperrors.New(apperrors.ErrNotReady, http.StatusServiceUnavailable, "the first generation has not finished"))
		return
	}
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "top must be a positive integer, got %q", v))
			return
		}
		report = trimReport(report, n)
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, apperrors.ErrStorageDisabled)
		return
	}
	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", v))
			return
		}
		limit = history.ClampLimit(n)
	}
	snapshots, err := s.history.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		s.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "failed to list snapshots"))
		return
	}
	if snapshots == nil {
		snapshots = []history.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"profiles": s.profiles})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status := "started"
	if !s.TriggerRefresh() {
		status = "already_running"
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": status})
}

// readinessCheck is up once a report exists, degraded while the first
// generation is still running or after it failed.
func (s *Server) readinessCheck(_ context.Context) health.ComponentHealth {
	if s.Latest() != nil {
		return health.ComponentHealth{Status: health.StatusUp}
	}
	if s.isRefreshing() {
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "first generation running"}
	}
	if err := s.lastError(); err != nil {
		return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
	}
	return health.ComponentHealth{Status: health.StatusDegraded, Message: "no cloud yet"}
}

func trimReport(r *trend.Report, n int) *trend.Report {
	trimmed := *r
	trimmed.Entries = trend.TopTokens(r, n)
	if n < len(r.Words) {
		trimmed.Words = r.Words[:n]
	}
	return &trimmed
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": err.Error()})
}
