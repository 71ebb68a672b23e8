package forecast

import (
	"math"
	"strings"
	"testing"
)

func TestRegistry_AllBackendsAvailableByDefault(t *testing.T) {
	reg := NewRegistry(DefaultBackendConfig())
	for _, id := range AllBackends {
		if !reg.Available(id) {
			t.Errorf("Expected backend %s to be available", id)
		}
	}
}

func TestRegistry_DisabledBackendIsUnavailable(t *testing.T) {
	cfg := DefaultBackendConfig()
	cfg.EnableARIMA = false
	reg := NewRegistry(cfg)

	if reg.Available(BackendARIMA) {
		t.Error("Disabled arima backend should be unavailable")
	}
	if !reg.Available(BackendSARIMA) {
		t.Error("Other backends should stay available")
	}
}

func TestInvokeBackend_MissingBackend(t *testing.T) {
	cfg := DefaultBackendConfig()
	cfg.EnableProphet = false
	reg := NewRegistry(cfg)

	out := invokeBackend(reg, BackendProphet, linearSeries(30, 10, 1), 5, Params{})

	if out.Status != StatusUnavailable {
		t.Fatalf("Expected StatusUnavailable, got %v", out.Status)
	}
	if !out.Column.AllMissing() {
		t.Error("Expected an all-missing column")
	}
	if len(out.Column) != 5 {
		t.Errorf("Expected column length 5, got %d", len(out.Column))
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("Expected exactly one warning, got %d", len(out.Warnings))
	}
	if !strings.HasPrefix(out.Warnings[0], "[prophet-missing]") {
		t.Errorf("Expected [prophet-missing] tag, got %q", out.Warnings[0])
	}
}

func TestInvokeBackend_ConstantSeriesNeuralFallback(t *testing.T) {
	reg := NewRegistry(DefaultBackendConfig())

	out := invokeBackend(reg, BackendNeuralProphet, constantSeries(50, 100), 8, Params{})

	if out.Status != StatusFallback {
		t.Fatalf("Expected StatusFallback, got %v", out.Status)
	}
	for i, v := range out.Column {
		if v != 100 {
			t.Errorf("Expected flat fallback 100 at step %d, got %f", i, v)
		}
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("Expected exactly one warning, got %d", len(out.Warnings))
	}
	if !strings.HasPrefix(out.Warnings[0], "[neural_prophet-constant]") {
		t.Errorf("Expected [neural_prophet-constant] tag, got %q", out.Warnings[0])
	}
}

func TestInvokeBackend_SuccessHasNoWarnings(t *testing.T) {
	reg := NewRegistry(DefaultBackendConfig())

	out := invokeBackend(reg, BackendARIMA, linearSeries(40, 1, 1), 5, Params{})

	if out.Status != StatusOK {
		t.Fatalf("Expected StatusOK, got %v (warnings: %v)", out.Status, out.Warnings)
	}
	if out.Column.AllMissing() {
		t.Error("Expected a populated column")
	}
	if len(out.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", out.Warnings)
	}
}

func TestARIMAModel_RandomWalkWithDrift(t *testing.T) {
	// Pure differencing model (0,1,0): with a constant step the forecast
	// continues the line exactly.
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i + 1)
	}

	model := newARIMAModel(false)
	if err := model.Train(values, Params{Order: Order{P: 0, D: 1, Q: 0}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	got, err := model.Predict(3)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	wants := []float64{41, 42, 43}
	for i, want := range wants {
		if math.Abs(got[i]-want) > 1e-9 {
			t.Errorf("Expected %f at step %d, got %f", want, i, got[i])
		}
	}
}

func TestSARIMAModel_SeasonalNaive(t *testing.T) {
	// Seasonal differencing only: the forecast repeats the seasonal pattern.
	pattern := []float64{5, 8, 13, 21, 13, 8, 5, 3, 2, 3, 5, 8}
	values := make([]float64, 36)
	for i := range values {
		values[i] = pattern[i%12]
	}

	model := newARIMAModel(true)
	err := model.Train(values, Params{
		Order:         Order{P: 0, D: 0, Q: 0},
		SeasonalOrder: SeasonalOrder{P: 0, D: 1, Q: 0, Period: 12},
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	got, err := model.Predict(12)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for h, v := range got {
		want := pattern[(36+h)%12]
		if math.Abs(v-want) > 1e-9 {
			t.Errorf("Expected %f at step %d, got %f", want, h, v)
		}
	}
}

func TestARIMAModel_InsufficientData(t *testing.T) {
	model := newARIMAModel(false)
	if err := model.Train([]float64{1, 2, 3}, Params{}); err == nil {
		t.Error("Expected error for 3-point series")
	}
}

func TestTrendModel_ExtendsPiecewiseLine(t *testing.T) {
	model := newTrendModel()
	values := make([]float64, 60)
	for i := range values {
		values[i] = 10 + 0.5*float64(i)
	}
	if err := model.Train(values, Params{}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	got, err := model.Predict(5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for h, v := range got {
		want := 10 + 0.5*float64(60+h)
		if math.Abs(v-want) > 1e-6 {
			t.Errorf("Expected %f at step %d, got %f", want, h, v)
		}
	}
}

func TestNeuralModel_Deterministic(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 50 + 10*math.Sin(float64(i)/5)
	}

	run := func() []float64 {
		model := newNeuralModel()
		if err := model.Train(values, Params{}); err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		got, err := model.Predict(10)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		return got
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Expected deterministic predictions, step %d: %f != %f", i, first[i], second[i])
		}
	}
}

func TestNeuralModel_ConstantSeriesRefusesToTrain(t *testing.T) {
	model := newNeuralModel()
	values := make([]float64, 30)
	for i := range values {
		values[i] = 7
	}
	if err := model.Train(values, Params{}); err != errConstantSeries {
		t.Errorf("Expected errConstantSeries, got %v", err)
	}
}

func TestGenericModel_SubAlgorithms(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100
	}

	for _, sub := range []string{SubExponentialSmoothing, SubARIMA, SubTheta, SubLinearRegression} {
		model := newGenericModel()
		if err := model.Train(values, Params{SubAlgorithm: sub}); err != nil {
			t.Fatalf("%s: Train failed: %v", sub, err)
		}
		got, err := model.Predict(5)
		if err != nil {
			t.Fatalf("%s: Predict failed: %v", sub, err)
		}
		for h, v := range got {
			if math.Abs(v-100) > 1e-3 {
				t.Errorf("%s: expected ~100 at step %d, got %f", sub, h, v)
			}
		}
	}
}

func TestGenericModel_UnknownSubAlgorithm(t *testing.T) {
	model := newGenericModel()
	values := make([]float64, 40)
	if err := model.Train(values, Params{SubAlgorithm: "gradient_boosting"}); err == nil {
		t.Error("Expected error for unknown sub-algorithm")
	}
}
