package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quantfolio/quantfolio/internal/cache"
	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/metrics"
	"github.com/quantfolio/quantfolio/internal/pipeline"
	"github.com/quantfolio/quantfolio/internal/portfolio"
	"github.com/quantfolio/quantfolio/internal/schema"
	"github.com/quantfolio/quantfolio/internal/store"
)

// Server is the dashboard backend: it serves evaluation data over HTTP and
// pushes refreshed reports to websocket subscribers. It renders nothing —
// clients own all presentation.
type Server struct {
	cfg     config.ServerConfig
	engine  *pipeline.Engine
	metrics *metrics.Registry
	cache   *cache.ReportCache // optional
	alerts  *store.AlertStore  // optional
	hub     *Hub
	limiter *rate.Limiter

	latest latestReport
}

// NewServer wires the serving surface. Cache and alert store may be nil when
// the corresponding backends are not configured.
func NewServer(cfg config.ServerConfig, engine *pipeline.Engine, m *metrics.Registry, rc *cache.ReportCache, as *store.AlertStore) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		metrics: m,
		cache:   rc,
		alerts:  as,
		hub:     NewHub(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/report/filters", s.handleReportFilters).Methods(http.MethodGet)
	api.HandleFunc("/breakdown", s.handleBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/regime", s.handleRegime).Methods(http.MethodGet)
	api.HandleFunc("/alerts/recent", s.handleRecentAlerts).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.handleSubscribe)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Prometheus(), promhttp.HandlerOpts{}))
	}

	return r
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("dashboard API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Publish records a freshly evaluated report as the current state: in-memory
// latest, cache, alert audit, and websocket broadcast. The scheduler and the
// evaluate endpoint both land here.
func (s *Server) Publish(ctx context.Context, report *pipeline.Report) {
	s.latest.set(report)

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, report); err != nil {
			log.Warn().Err(err).Msg("failed to cache report")
		}
	}
	if s.alerts != nil && len(report.Alerts) > 0 {
		if err := s.alerts.SaveAlerts(ctx, report.ID, report.Timestamp, report.Alerts); err != nil {
			log.Warn().Err(err).Msg("failed to audit alerts")
		}
	}

	s.hub.Broadcast(report)
}

type evaluateRequest struct {
	Records []schema.RawRow `json:"records"`
	VIX     float64         `json:"vix"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed evaluation request: "+err.Error())
		return
	}

	report := s.engine.Evaluate(req.Records, req.VIX)
	s.Publish(r.Context(), report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.currentReport(r.Context())
	if report == nil {
		writeError(w, http.StatusNotFound, "no evaluation available yet")
		return
	}

	q := r.URL.Query()
	if len(q["sector"]) == 0 && q.Get("min_score") == "" && q.Get("max_score") == "" {
		writeJSON(w, http.StatusOK, report)
		return
	}

	f := portfolio.Filter{
		Sectors:  q["sector"],
		MinScore: math.Inf(-1),
		MaxScore: math.Inf(1),
	}
	if raw := q.Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be numeric")
			return
		}
		f.MinScore = v
	}
	if raw := q.Get("max_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_score must be numeric")
			return
		}
		f.MaxScore = v
	}

	filtered := *report
	filtered.Records = f.Apply(report.Records)
	writeJSON(w, http.StatusOK, &filtered)
}

// handleReportFilters serves the choices for the dashboard's filter widgets:
// the sectors present in the latest report and the score band to seed a
// range selector with.
func (s *Server) handleReportFilters(w http.ResponseWriter, r *http.Request) {
	report := s.currentReport(r.Context())
	if report == nil {
		writeError(w, http.StatusNotFound, "no evaluation available yet")
		return
	}

	resp := map[string]interface{}{
		"sectors": portfolio.Sectors(report.Records),
	}
	if minScore, maxScore, err := portfolio.ScoreBounds(report.Records); err == nil {
		resp["min_score"] = minScore
		resp["max_score"] = maxScore
	}
	writeJSON(w, http.StatusOK, resp)
}

// currentReport resolves the latest report, consulting the cache when the
// in-memory copy is empty (fresh process, warm cache).
func (s *Server) currentReport(ctx context.Context) *pipeline.Report {
	if report := s.latest.get(); report != nil {
		return report
	}

	if s.cache != nil {
		report, err := s.cache.Latest(ctx)
		if err == nil {
			return report
		}
		if !errors.Is(err, cache.ErrNoReport) {
			log.Warn().Err(err).Msg("cache read failed")
		}
	}
	return nil
}

type breakdownResponse struct {
	Available bool                      `json:"available"`
	Reason    string                    `json:"reason,omitempty"`
	Matrix    portfolio.BreakdownMatrix `json:"matrix,omitempty"`
	Fallback  []schema.ScoreRecord      `json:"fallback,omitempty"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	report := s.latest.get()
	if report == nil {
		writeError(w, http.StatusNotFound, "no evaluation available yet")
		return
	}

	result := s.engine.Breakdown(report.Records)
	resp := breakdownResponse{Available: result.Available, Reason: result.Reason, Matrix: result.Matrix}
	if !result.Available {
		resp.Fallback = portfolio.FallbackList(report.Records)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("vix")
	vix, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "vix query parameter must be numeric")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vix":       vix,
		"threshold": s.engine.Regime().Threshold(),
		"regime":    s.engine.Regime().Classify(vix),
	})
}

func (s *Server) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusNotFound, "alert history store not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	alerts, err := s.alerts.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read alert history")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
