// Package forecast implements the multi-algorithm cost forecasting engine:
// native numeric algorithms, capability-gated backend adapters, the ensemble
// combiner and the milestone summarizer. The engine consumes an in-memory
// time series and produces an in-memory forecast table; it performs no I/O.
package forecast

import (
	"fmt"
	"math"
	"time"
)

// Granularity is the fixed time step between consecutive series points.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// DefaultHorizon returns the conventional forecast length for a granularity:
// a year ahead at the series' native step.
func (g Granularity) DefaultHorizon() int {
	if g == GranularityMonthly {
		return 12
	}
	return 365
}

// Step advances an anchor timestamp by n steps at this granularity. Monthly
// steps keep the anchor's day-of-month, clamped to the last day of shorter
// months, so a series anchored on the 31st steps Jan 31, Feb 29, Mar 31
// rather than normalizing past month ends.
func (g Granularity) Step(anchor time.Time, n int) time.Time {
	if g == GranularityMonthly {
		return addMonthsClamped(anchor, n)
	}
	return anchor.AddDate(0, 0, n)
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if days := first.AddDate(0, 1, -1).Day(); d > days {
		d = days
	}
	return first.AddDate(0, 0, d-1)
}

// Point is a single observed value at a timestamp.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries is an ordered sequence of points at a fixed granularity.
// Timestamps are strictly increasing. The engine treats a series as
// read-only; it is owned by the caller.
type TimeSeries struct {
	Points      []Point     `json:"points"`
	Granularity Granularity `json:"granularity"`
}

// Len returns the number of points in the series.
func (ts *TimeSeries) Len() int { return len(ts.Points) }

// Values returns the observed values in order. The slice is a copy.
func (ts *TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		values[i] = p.Value
	}
	return values
}

// LastTimestamp returns the timestamp of the final observation.
func (ts *TimeSeries) LastTimestamp() time.Time {
	if len(ts.Points) == 0 {
		return time.Time{}
	}
	return ts.Points[len(ts.Points)-1].Timestamp
}

// IsConstant reports whether every value in the series equals the first one.
func (ts *TimeSeries) IsConstant() bool {
	if len(ts.Points) == 0 {
		return true
	}
	first := ts.Points[0].Value
	for _, p := range ts.Points[1:] {
		if p.Value != first {
			return false
		}
	}
	return true
}

// MinDataPoints is the default minimum history length required to forecast.
const MinDataPoints = 10

// ValidateSeries checks a series against the engine's input contract:
// at least minPoints observations, every value finite, timestamps strictly
// increasing. A failed validation is fatal for the request; no algorithm
// runs afterwards.
func ValidateSeries(ts *TimeSeries, minPoints int) error {
	if minPoints <= 0 {
		minPoints = MinDataPoints
	}
	if ts == nil || len(ts.Points) < minPoints {
		got := 0
		if ts != nil {
			got = len(ts.Points)
		}
		return fmt.Errorf("%w: need at least %d points, have %d", ErrInsufficientData, minPoints, got)
	}
	switch ts.Granularity {
	case GranularityDaily, GranularityMonthly:
	default:
		return fmt.Errorf("%w: unknown granularity %q", ErrInvalidParameter, ts.Granularity)
	}
	for i, p := range ts.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidValue, i)
		}
		if i > 0 && !p.Timestamp.After(ts.Points[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrInvalidValue, i)
		}
	}
	return nil
}
