package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"cost-forecast-engine/config"
	"cost-forecast-engine/forecast"
	"cost-forecast-engine/store"
)

// Observer receives per-request and cache observations. The metrics
// package implements it; nil disables recording.
type Observer interface {
	ObserveRequest(method, route string, code int, duration time.Duration)
	ObserveCache(hit bool)
}

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	store    *store.Store
	cache    store.ForecastCache
	engine   *forecast.Engine
	cfg      *config.Config
	log      logrus.FieldLogger
	observer Observer
	limiter  *rate.Limiter
}

// NewServer creates a new API server. metricsHandler, when non-nil, is
// mounted at /metrics.
func NewServer(cfg *config.Config, st *store.Store, cache store.ForecastCache, engine *forecast.Engine, log logrus.FieldLogger, observer Observer, metricsHandler http.Handler) *Server {
	if log == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		log = logger
	}
	server := &Server{
		router:   mux.NewRouter(),
		store:    st,
		cache:    cache,
		engine:   engine,
		cfg:      cfg,
		log:      log,
		observer: observer,
	}
	if cfg.RateLimit.Enabled {
		server.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}
	server.setupRoutes(metricsHandler)
	return server
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware, s.rateLimitMiddleware, s.authMiddleware)

	// Series management
	api.HandleFunc("/series", s.createSeries).Methods("POST")
	api.HandleFunc("/series", s.listSeries).Methods("GET")
	api.HandleFunc("/series/{id}", s.getSeries).Methods("GET")
	api.HandleFunc("/series/{id}", s.deleteSeries).Methods("DELETE")
	api.HandleFunc("/series/{id}/points", s.addPoints).Methods("POST")

	// Forecasting
	api.HandleFunc("/series/{id}/forecast", s.runForecast).Methods("POST")
	api.HandleFunc("/backends", s.listBackends).Methods("GET")

	// System endpoints stay outside the middleware chain.
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	s.router.HandleFunc("/", s.rootHandler).Methods("GET")
}

// CreateSeriesRequest registers a new cost series.
type CreateSeriesRequest struct {
	ID          string            `json:"id"`
	Granularity string            `json:"granularity"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// PointRequest represents one incoming cost observation.
type PointRequest struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// AddPointsRequest appends points to a series.
type AddPointsRequest struct {
	Points []PointRequest `json:"points"`
}

// ForecastRequest asks for a forecast over a stored series.
type ForecastRequest struct {
	Horizon          int                      `json:"horizon,omitempty"`
	Algorithms       []forecast.AlgorithmSpec `json:"algorithms"`
	MilestoneSummary bool                     `json:"milestone_summary,omitempty"`
}

// SeriesListResponse represents the series list response
type SeriesListResponse struct {
	Series []store.SeriesInfo `json:"series"`
	Count  int                `json:"count"`
}

// PointsResponse represents a series query result
type PointsResponse struct {
	Series string            `json:"series"`
	Labels map[string]string `json:"labels"`
	Points []forecast.Point  `json:"points"`
	Count  int               `json:"count"`
}

// BackendStatus reports one backend's availability.
type BackendStatus struct {
	ID        forecast.BackendID `json:"id"`
	Available bool               `json:"available"`
	Hint      string             `json:"hint,omitempty"`
}

var startTime = time.Now()

// createSeries registers a new cost series
func (s *Server) createSeries(w http.ResponseWriter, r *http.Request) {
	var req CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	granularity := forecast.Granularity(req.Granularity)
	if req.Granularity == "" {
		granularity = forecast.GranularityDaily
	}

	created, err := s.store.CreateSeries(req.ID, granularity, req.Labels)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, store.SeriesInfo{
		ID:          created.ID,
		Granularity: created.Granularity,
		Labels:      created.Labels,
		Size:        created.Size(),
		LastSeen:    created.LastSeen,
	})
}

// listSeries returns stored series, optionally filtered by labels given as
// query parameters.
func (s *Server) listSeries(w http.ResponseWriter, r *http.Request) {
	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	list := s.store.ListSeries(filters)
	s.writeJSON(w, http.StatusOK, SeriesListResponse{Series: list, Count: len(list)})
}

// getSeries returns the points of one series within an optional time range
func (s *Server) getSeries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	series, exists := s.store.GetSeries(id)
	if !exists {
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}

	query := r.URL.Query()
	start, err := parseTimeParam(query.Get("start"), time.Time{})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid start: %v", err))
		return
	}
	end, err := parseTimeParam(query.Get("end"), time.Now().AddDate(100, 0, 0))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid end: %v", err))
		return
	}

	points := series.Range(start, end)

	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
			return
		}
		if limit > 0 && len(points) > limit {
			points = points[len(points)-limit:]
		}
	}

	s.writeJSON(w, http.StatusOK, PointsResponse{
		Series: id,
		Labels: series.Labels,
		Points: points,
		Count:  len(points),
	})
}

// deleteSeries removes a series and its cached forecasts
func (s *Server) deleteSeries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.store.DeleteSeries(id) {
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(r.Context(), id); err != nil {
			s.log.WithError(err).WithField("series", id).Warn("cache invalidation failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// addPoints appends observations to a series
func (s *Server) addPoints(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Points) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty points list")
		return
	}

	for i, p := range req.Points {
		timestamp, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("point %d: invalid timestamp: %v", i, err))
			return
		}
		if err := s.store.AddPoint(id, timestamp, p.Value); err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"count":  len(req.Points),
	})
}

// runForecast executes a forecast request against a stored series
func (s *Server) runForecast(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	series, exists := s.store.GetSeries(id)
	if !exists {
		s.writeError(w, http.StatusNotFound, "series not found")
		return
	}

	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Horizon > s.cfg.Forecast.MaxHorizon {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("horizon %d exceeds maximum %d", req.Horizon, s.cfg.Forecast.MaxHorizon))
		return
	}

	engineReq := forecast.Request{
		Horizon:          req.Horizon,
		Specs:            req.Algorithms,
		MilestoneSummary: req.MilestoneSummary,
	}

	key := store.CacheKey(id, series.Revision(), engineReq)
	if s.cache != nil {
		if cached, hit, err := s.cache.Get(r.Context(), key); err == nil && hit {
			if s.observer != nil {
				s.observer.ObserveCache(true)
			}
			s.writeJSON(w, http.StatusOK, cached)
			return
		}
		if s.observer != nil {
			s.observer.ObserveCache(false)
		}
	}

	output, err := s.engine.Run(r.Context(), series.Snapshot(), engineReq)
	if err != nil {
		s.writeError(w, forecastErrorStatus(err), err.Error())
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), key, output); err != nil {
			s.log.WithError(err).WithField("series", id).Warn("forecast cache write failed")
		}
	}
	s.writeJSON(w, http.StatusOK, output)
}

// listBackends reports the availability of every optional backend
func (s *Server) listBackends(w http.ResponseWriter, r *http.Request) {
	registry := s.engine.Registry()

	var statuses []BackendStatus
	for _, id := range forecast.AllBackends {
		status := BackendStatus{ID: id, Available: registry.Available(id)}
		if !status.Available {
			status.Hint = registry.InstallHint(id)
		}
		statuses = append(statuses, status)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"backends": statuses})
}

// healthCheck returns health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
		"series":    s.store.Count(),
	})
}

// rootHandler provides API information
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "Cost Forecast Engine",
		"version":     "0.1.0",
		"description": "Multi-algorithm cost forecasting over daily and monthly series",
		"endpoints": map[string]string{
			"POST   /api/v1/series":               "Create a cost series",
			"GET    /api/v1/series":               "List series (query params filter labels)",
			"GET    /api/v1/series/{id}":          "Read series points",
			"DELETE /api/v1/series/{id}":          "Delete a series",
			"POST   /api/v1/series/{id}/points":   "Append observations",
			"POST   /api/v1/series/{id}/forecast": "Run forecast algorithms",
			"GET    /api/v1/backends":             "Backend availability",
			"GET    /health":                      "Health check",
			"GET    /metrics":                     "Prometheus metrics",
		},
	})
}

// writeJSON encodes a response body with status code
func (s *Server) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("response encoding failed")
	}
}

// writeError encodes an error response
func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

// forecastErrorStatus maps engine errors to HTTP status codes. Validation
// problems are the caller's fault; anything else is a server failure.
func forecastErrorStatus(err error) int {
	switch {
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrInvalidValue),
		errors.Is(err, forecast.ErrInvalidParameter),
		errors.Is(err, forecast.ErrInsufficientSeasonalHistory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseTimeParam parses an RFC3339 timestamp or a relative duration like
// "-24h"; empty input selects the fallback.
func parseTimeParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if raw[0] == '-' {
		duration, err := time.ParseDuration(raw[1:])
		if err != nil {
			return time.Time{}, err
		}
		return time.Now().Add(-duration), nil
	}
	return time.Parse(time.RFC3339, raw)
}
