package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveAlgorithm("sma", "ok", 5*time.Millisecond)
	c.ObserveAlgorithm("prophet", "unavailable", time.Millisecond)
	c.ObserveRequest("POST", "/api/v1/series/{id}/forecast", 200, 20*time.Millisecond)
	c.ObserveCache(true)
	c.ObserveCache(false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`forecast_algorithm_runs_total{algorithm="sma",status="ok"} 1`,
		`forecast_algorithm_runs_total{algorithm="prophet",status="unavailable"} 1`,
		`http_requests_total{code="200",method="POST",route="/api/v1/series/{id}/forecast"} 1`,
		`forecast_cache_events_total{event="hit"} 1`,
		`forecast_cache_events_total{event="miss"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Metrics output missing %q", want)
		}
	}
}
