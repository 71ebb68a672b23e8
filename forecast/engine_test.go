package forecast

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg, nil, nil)
}

func TestEngineRun_ConstantSeriesEndToEnd(t *testing.T) {
	engine := newTestEngine(t, nil)
	series := constantSeries(365, 100)

	output, err := engine.Run(context.Background(), series, Request{
		Specs: []AlgorithmSpec{
			{ID: AlgorithmSMA, Params: Params{Window: 7}, Ensemble: true},
			{ID: AlgorithmES, Params: Params{Alpha: 0.3}, Ensemble: true},
			{ID: AlgorithmEnsemble},
		},
		MilestoneSummary: true,
	})
	require.NoError(t, err)
	require.NotNil(t, output.Table)
	assert.Empty(t, output.Warnings)

	// Daily series with no explicit horizon forecasts a year ahead.
	assert.Equal(t, 365, output.Table.Horizon())
	assert.Equal(t, 365, output.Table.HistoryLen())

	for _, id := range []AlgorithmID{AlgorithmSMA, AlgorithmES, AlgorithmEnsemble} {
		col, ok := output.Table.Column(id)
		require.True(t, ok, "missing column %s", id)
		for h := 0; h < output.Table.Horizon(); h++ {
			v := col.Values[output.Table.HistoryLen()+h]
			require.InDelta(t, 100, v, 1e-9, "column %s step %d", id, h)
		}
	}

	require.NotNil(t, output.Milestones)
	for _, m := range output.Milestones.Milestones {
		require.True(t, m.Available, "milestone %s", m.Label)
		assert.InDelta(t, 100, m.Values[AlgorithmEnsemble], 1e-9)
	}
}

func TestEngineRun_TrendFollowedByHoltWinters(t *testing.T) {
	engine := newTestEngine(t, nil)
	series := linearSeries(48, 10, 0.5)

	output, err := engine.Run(context.Background(), series, Request{
		Horizon: 6,
		Specs: []AlgorithmSpec{
			{ID: AlgorithmHW, Params: Params{Alpha: 0.3, Beta: Float(0.1), SeasonalPeriods: 1}},
		},
	})
	require.NoError(t, err)

	// Double smoothing reproduces a perfectly linear trend exactly.
	col, ok := output.Table.Column(AlgorithmHW)
	require.True(t, ok)
	last := series.Values()[series.Len()-1]
	for h := 0; h < 6; h++ {
		v := col.Values[output.Table.HistoryLen()+h]
		require.InDelta(t, last+0.5*float64(h+1), v, 1e-6, "step %d", h)
	}
}

func TestEngineRun_DisabledBackendDegrades(t *testing.T) {
	engine := newTestEngine(t, func(cfg *Config) {
		cfg.Backends.EnableProphet = false
	})
	series := constantSeries(60, 100)

	output, err := engine.Run(context.Background(), series, Request{
		Horizon: 5,
		Specs: []AlgorithmSpec{
			{ID: AlgorithmES, Params: Params{Alpha: 0.5}},
			{ID: AlgorithmProphet},
		},
	})
	require.NoError(t, err)

	require.Len(t, output.Warnings, 1)
	assert.True(t, strings.HasPrefix(output.Warnings[0], "[prophet-missing]"), "warning %q", output.Warnings[0])

	prophet, _ := output.Table.Column(AlgorithmProphet)
	for h := 0; h < 5; h++ {
		assert.True(t, math.IsNaN(prophet.Values[output.Table.HistoryLen()+h]))
	}
	es, _ := output.Table.Column(AlgorithmES)
	for h := 0; h < 5; h++ {
		assert.InDelta(t, 100, es.Values[output.Table.HistoryLen()+h], 1e-9)
	}
}

func TestEngineRun_ConstantSeriesBackendFallback(t *testing.T) {
	engine := newTestEngine(t, nil)
	series := constantSeries(60, 42)

	output, err := engine.Run(context.Background(), series, Request{
		Horizon: 4,
		Specs:   []AlgorithmSpec{{ID: AlgorithmNeuralProphet}},
	})
	require.NoError(t, err)

	require.Len(t, output.Warnings, 1)
	assert.True(t, strings.HasPrefix(output.Warnings[0], "[neural_prophet-constant]"), "warning %q", output.Warnings[0])

	col, _ := output.Table.Column(AlgorithmNeuralProphet)
	for h := 0; h < 4; h++ {
		assert.InDelta(t, 42, col.Values[output.Table.HistoryLen()+h], 1e-9)
	}
}

func TestEngineRun_MilestonesBeyondShortHorizon(t *testing.T) {
	engine := newTestEngine(t, nil)
	series := constantSeries(30, 100)

	output, err := engine.Run(context.Background(), series, Request{
		Horizon:          7,
		Specs:            []AlgorithmSpec{{ID: AlgorithmSMA, Params: Params{Window: 7}}},
		MilestoneSummary: true,
	})
	require.NoError(t, err)

	yearEnd, ok := output.Milestones.Milestone(MilestoneEndOfYear)
	require.True(t, ok)
	assert.False(t, yearEnd.Available)
	assert.Nil(t, yearEnd.Values)
}

func TestEngineRun_FatalValidation(t *testing.T) {
	engine := newTestEngine(t, nil)

	cases := []struct {
		name    string
		series  *TimeSeries
		request Request
		want    error
	}{
		{
			name:    "too few points",
			series:  constantSeries(5, 1),
			request: Request{Specs: []AlgorithmSpec{{ID: AlgorithmSMA}}},
			want:    ErrInsufficientData,
		},
		{
			name:    "bad alpha",
			series:  constantSeries(30, 1),
			request: Request{Specs: []AlgorithmSpec{{ID: AlgorithmES, Params: Params{Alpha: 1.5}}}},
			want:    ErrInvalidParameter,
		},
		{
			name:    "short seasonal history",
			series:  constantSeries(20, 1),
			request: Request{Specs: []AlgorithmSpec{{ID: AlgorithmHW, Params: Params{Alpha: 0.3, SeasonalPeriods: 12}}}},
			want:    ErrInsufficientSeasonalHistory,
		},
		{
			name:    "unknown algorithm",
			series:  constantSeries(30, 1),
			request: Request{Specs: []AlgorithmSpec{{ID: "croston"}}},
			want:    ErrInvalidParameter,
		},
		{
			name:    "ensemble without members",
			series:  constantSeries(30, 1),
			request: Request{Specs: []AlgorithmSpec{{ID: AlgorithmEnsemble}}},
			want:    ErrInvalidParameter,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Run(context.Background(), tc.series, tc.request)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestEngineRun_DefaultsApplied(t *testing.T) {
	engine := newTestEngine(t, nil)
	series := constantSeries(30, 100)

	// Zero-valued params fall back to the configured defaults, so these
	// succeed instead of failing validation.
	output, err := engine.Run(context.Background(), series, Request{
		Horizon: 3,
		Specs: []AlgorithmSpec{
			{ID: AlgorithmSMA},
			{ID: AlgorithmES},
			{ID: AlgorithmTheta},
		},
	})
	require.NoError(t, err)
	for _, id := range []AlgorithmID{AlgorithmSMA, AlgorithmES, AlgorithmTheta} {
		col, ok := output.Table.Column(id)
		require.True(t, ok)
		assert.InDelta(t, 100, col.Values[output.Table.HistoryLen()], 1e-6)
	}
}

func TestApplyDefaults_OptionalBetaGamma(t *testing.T) {
	engine := newTestEngine(t, nil)

	p := engine.applyDefaults(AlgorithmHW, Params{Alpha: 0.3, SeasonalPeriods: 1})
	require.NotNil(t, p.Beta)
	require.NotNil(t, p.Gamma)
	assert.Equal(t, 0.1, *p.Beta)
	assert.Equal(t, 0.1, *p.Gamma)

	// An explicit zero is a real setting, not a request for the default.
	p = engine.applyDefaults(AlgorithmHW, Params{Alpha: 0.3, Beta: Float(0), Gamma: Float(0)})
	assert.Zero(t, *p.Beta)
	assert.Zero(t, *p.Gamma)
}

func TestEngineRun_ExplicitZeroBetaFreezesTrend(t *testing.T) {
	engine := newTestEngine(t, nil)

	// One initial jump, then flat. The initial trend estimate is that first
	// step (10); beta=0 keeps it frozen, where the default beta would decay
	// it over the flat stretch.
	series := dailySeries(0, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)

	output, err := engine.Run(context.Background(), series, Request{
		Horizon: 3,
		Specs: []AlgorithmSpec{
			{ID: AlgorithmHW, Params: Params{Alpha: 1, Beta: Float(0), Gamma: Float(0), SeasonalPeriods: 1}},
		},
	})
	require.NoError(t, err)

	col, ok := output.Table.Column(AlgorithmHW)
	require.True(t, ok)
	for h := 0; h < 3; h++ {
		v := col.Values[output.Table.HistoryLen()+h]
		require.InDelta(t, 10+10*float64(h+1), v, 1e-9, "step %d", h)
	}
}
