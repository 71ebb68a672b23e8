package forecast

import (
	"context"
	"math"
	"testing"
)

func TestDispatcher_PreservesRequestOrder(t *testing.T) {
	cfg := DefaultBackendConfig()
	cfg.EnableARIMA = false
	reg := NewRegistry(cfg)

	specs := []AlgorithmSpec{
		{ID: AlgorithmES, Params: Params{Alpha: 0.5}},
		{ID: AlgorithmSMA, Params: Params{Window: 7}},
		{ID: AlgorithmARIMA, Params: Params{Order: Order{P: 1, D: 1, Q: 1}}},
		{ID: AlgorithmTheta, Params: Params{Theta: 2}},
	}

	for _, workers := range []int{1, 4} {
		d := NewDispatcher(reg, workers, nil, nil)
		outcomes, err := d.Run(context.Background(), constantSeries(30, 100), 5, specs)
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", workers, err)
		}
		if len(outcomes) != len(specs) {
			t.Fatalf("workers=%d: expected %d outcomes, got %d", workers, len(specs), len(outcomes))
		}
		for i, spec := range specs {
			if outcomes[i].ID != spec.ID {
				t.Errorf("workers=%d: position %d: expected %s, got %s", workers, i, spec.ID, outcomes[i].ID)
			}
		}
	}
}

func TestDispatcher_IsolatesBackendFailures(t *testing.T) {
	cfg := DefaultBackendConfig()
	cfg.EnableARIMA = false
	reg := NewRegistry(cfg)
	d := NewDispatcher(reg, 1, nil, nil)

	specs := []AlgorithmSpec{
		{ID: AlgorithmES, Params: Params{Alpha: 0.5}},
		{ID: AlgorithmARIMA},
		{ID: AlgorithmSMA, Params: Params{Window: 5}},
	}
	outcomes, err := d.Run(context.Background(), constantSeries(30, 100), 5, specs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The missing backend's column is all-missing with a warning...
	if !outcomes[1].Column.AllMissing() {
		t.Error("Expected all-missing arima column")
	}
	if len(outcomes[1].Warnings) != 1 {
		t.Errorf("Expected exactly one warning, got %d", len(outcomes[1].Warnings))
	}

	// ...and the neighbors are untouched.
	for _, i := range []int{0, 2} {
		for pos, v := range outcomes[i].Column {
			if math.IsNaN(v) || v != 100 {
				t.Errorf("Column %s position %d affected by failure: %f", outcomes[i].ID, pos, v)
			}
		}
		if len(outcomes[i].Warnings) != 0 {
			t.Errorf("Column %s should carry no warnings", outcomes[i].ID)
		}
	}
}

func TestDispatcher_CancelledContext(t *testing.T) {
	reg := NewRegistry(DefaultBackendConfig())
	d := NewDispatcher(reg, 1, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Run(ctx, constantSeries(30, 100), 5, []AlgorithmSpec{{ID: AlgorithmES, Params: Params{Alpha: 0.5}}}); err == nil {
		t.Error("Expected context cancellation error")
	}
}

func TestDispatcher_UnknownAlgorithmIsFatal(t *testing.T) {
	reg := NewRegistry(DefaultBackendConfig())
	d := NewDispatcher(reg, 1, nil, nil)

	if _, err := d.Run(context.Background(), constantSeries(30, 100), 5, []AlgorithmSpec{{ID: "croston"}}); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}
