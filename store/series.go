package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cost-forecast-engine/forecast"
)

// Series holds one cost series with metadata. Points stay sorted by
// timestamp; writing an existing timestamp replaces the value.
type Series struct {
	ID          string
	Granularity forecast.Granularity
	Labels      map[string]string
	LastSeen    time.Time

	points   []forecast.Point
	revision int
	mu       sync.RWMutex
}

// NewSeries creates an empty cost series.
func NewSeries(id string, granularity forecast.Granularity, labels map[string]string) *Series {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &Series{
		ID:          id,
		Granularity: granularity,
		Labels:      labels,
		LastSeen:    time.Now(),
	}
}

// AddPoint inserts a point in timestamp order (thread-safe).
func (s *Series) AddPoint(timestamp time.Time, value float64) {
	s.addPointCapped(timestamp, value, 0)
}

// addPointCapped inserts a point and, when maxPoints > 0, evicts the oldest
// points inside the same critical section, so concurrent writers can never
// grow the series past the cap.
func (s *Series) addPointCapped(timestamp time.Time, value float64, maxPoints int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Timestamp.After(timestamp)
	})

	if pos > 0 && s.points[pos-1].Timestamp.Equal(timestamp) {
		s.points[pos-1].Value = value
	} else {
		s.points = append(s.points, forecast.Point{})
		copy(s.points[pos+1:], s.points[pos:])
		s.points[pos] = forecast.Point{Timestamp: timestamp, Value: value}
		if maxPoints > 0 && len(s.points) > maxPoints {
			s.points = s.points[len(s.points)-maxPoints:]
		}
	}
	s.revision++
	s.LastSeen = time.Now()
}

// Range returns points within [start, end].
func (s *Series) Range(start, end time.Time) []forecast.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Timestamp.After(end)
	})
	if startIdx >= endIdx {
		return nil
	}

	result := make([]forecast.Point, endIdx-startIdx)
	copy(result, s.points[startIdx:endIdx])
	return result
}

// Snapshot returns the full series as forecast input. The copy keeps the
// engine isolated from concurrent writes.
func (s *Series) Snapshot() *forecast.TimeSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := make([]forecast.Point, len(s.points))
	copy(points, s.points)
	return &forecast.TimeSeries{Points: points, Granularity: s.Granularity}
}

// Size returns the number of points.
func (s *Series) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Revision returns a counter that changes on every write, used to key
// cached forecasts to the data they were computed from.
func (s *Series) Revision() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// SeriesInfo is the listing view of a stored series.
type SeriesInfo struct {
	ID          string               `json:"id"`
	Granularity forecast.Granularity `json:"granularity"`
	Labels      map[string]string    `json:"labels"`
	Size        int                  `json:"size"`
	LastSeen    time.Time            `json:"last_seen"`
}

// Store is the in-memory registry of cost series.
type Store struct {
	series             map[string]*Series
	maxSeries          int
	maxPointsPerSeries int
	mu                 sync.RWMutex
}

// NewStore creates a store. Non-positive limits disable the respective cap.
func NewStore(maxSeries, maxPointsPerSeries int) *Store {
	return &Store{
		series:             make(map[string]*Series),
		maxSeries:          maxSeries,
		maxPointsPerSeries: maxPointsPerSeries,
	}
}

// CreateSeries registers a new series. Creating an existing ID fails.
func (st *Store) CreateSeries(id string, granularity forecast.Granularity, labels map[string]string) (*Series, error) {
	if id == "" {
		return nil, fmt.Errorf("series id cannot be empty")
	}
	switch granularity {
	case forecast.GranularityDaily, forecast.GranularityMonthly:
	default:
		return nil, fmt.Errorf("unknown granularity %q", granularity)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.series[id]; exists {
		return nil, fmt.Errorf("series %q already exists", id)
	}
	if st.maxSeries > 0 && len(st.series) >= st.maxSeries {
		return nil, fmt.Errorf("series limit exceeded: %d", st.maxSeries)
	}

	s := NewSeries(id, granularity, labels)
	st.series[id] = s
	return s, nil
}

// AddPoint appends a point to an existing series, evicting the oldest point
// once the per-series cap is reached.
func (st *Store) AddPoint(id string, timestamp time.Time, value float64) error {
	st.mu.RLock()
	s, exists := st.series[id]
	st.mu.RUnlock()
	if !exists {
		return fmt.Errorf("series %q not found", id)
	}

	s.addPointCapped(timestamp, value, st.maxPointsPerSeries)
	return nil
}

// GetSeries returns a series by ID.
func (st *Store) GetSeries(id string) (*Series, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, exists := st.series[id]
	return s, exists
}

// DeleteSeries removes a series.
func (st *Store) DeleteSeries(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.series[id]; !exists {
		return false
	}
	delete(st.series, id)
	return true
}

// ListSeries returns metadata for every series matching the label filters,
// sorted by ID. Empty filters match everything.
func (st *Store) ListSeries(labelFilters map[string]string) []SeriesInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var result []SeriesInfo
	for _, s := range st.series {
		if !matchesLabels(s.Labels, labelFilters) {
			continue
		}
		result = append(result, SeriesInfo{
			ID:          s.ID,
			Granularity: s.Granularity,
			Labels:      s.Labels,
			Size:        s.Size(),
			LastSeen:    s.LastSeen,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of stored series.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.series)
}

// CleanupStale removes series without recent writes and returns how many
// were dropped.
func (st *Store) CleanupStale(maxAge time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	var staleIDs []string
	for id, s := range st.series {
		if now.Sub(s.LastSeen) > maxAge {
			staleIDs = append(staleIDs, id)
		}
	}
	for _, id := range staleIDs {
		delete(st.series, id)
	}
	return len(staleIDs)
}

func matchesLabels(seriesLabels, filters map[string]string) bool {
	for key, value := range filters {
		if seriesLabels[key] != value {
			return false
		}
	}
	return true
}
