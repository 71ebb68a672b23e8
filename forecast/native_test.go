package forecast

import (
	"errors"
	"math"
	"testing"
	"time"
)

// dailySeries builds a daily series from values, starting 2024-01-01.
func dailySeries(values ...float64) *TimeSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Timestamp: start.AddDate(0, 0, i), Value: v}
	}
	return &TimeSeries{Points: points, Granularity: GranularityDaily}
}

// constantSeries builds a daily series of n identical values.
func constantSeries(n int, value float64) *TimeSeries {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return dailySeries(values...)
}

// linearSeries builds a daily series rising from start by step per period.
func linearSeries(n int, start, step float64) *TimeSeries {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + step*float64(i)
	}
	return dailySeries(values...)
}

func TestMovingAverageForecast_FirstStepIsWindowMean(t *testing.T) {
	series := dailySeries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	col, err := MovingAverageForecast(series, 5, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(col) != 5 {
		t.Fatalf("Expected 5 forecast values, got %d", len(col))
	}

	// First step is exactly the mean of the last 3 actuals.
	if col[0] != 9.0 {
		t.Errorf("Expected first forecast 9.0, got %f", col[0])
	}

	// Second step slides the window over the first forecast: mean(9, 10, 9).
	want := (9.0 + 10.0 + 9.0) / 3.0
	if math.Abs(col[1]-want) > 1e-12 {
		t.Errorf("Expected second forecast %f, got %f", want, col[1])
	}
}

func TestMovingAverageForecast_ConstantSeries(t *testing.T) {
	col, err := MovingAverageForecast(constantSeries(30, 100), 10, 7)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, v := range col {
		if v != 100 {
			t.Errorf("Expected 100 at step %d, got %f", i, v)
		}
	}
}

func TestMovingAverageForecast_InvalidWindow(t *testing.T) {
	series := dailySeries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	if _, err := MovingAverageForecast(series, 5, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for window 0, got %v", err)
	}
	if _, err := MovingAverageForecast(series, 5, 11); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for oversized window, got %v", err)
	}
	if _, err := MovingAverageForecast(series, 5, 10); err != nil {
		t.Errorf("Window equal to series length should be valid: %v", err)
	}
}

func TestExponentialSmoothing_Recursion(t *testing.T) {
	// S1=1, S2=0.5*2+0.5*1=1.5, S3=0.5*3+0.5*1.5=2.25
	col, err := ExponentialSmoothingForecast(dailySeries(1, 2, 3), 4, 0.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, v := range col {
		if math.Abs(v-2.25) > 1e-12 {
			t.Errorf("Expected flat forecast 2.25 at step %d, got %f", i, v)
		}
	}
}

func TestExponentialSmoothing_AlphaOneRepeatsLastValue(t *testing.T) {
	col, err := ExponentialSmoothingForecast(dailySeries(5, 9, 2, 7, 3, 8, 1, 6, 4, 42), 6, 1.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, v := range col {
		if v != 42 {
			t.Errorf("Expected 42 at step %d, got %f", i, v)
		}
	}
}

func TestExponentialSmoothing_ConstantSeriesAnyAlpha(t *testing.T) {
	for _, alpha := range []float64{0.1, 0.5, 0.9, 1.0} {
		col, err := ExponentialSmoothingForecast(constantSeries(20, 63.5), 5, alpha)
		if err != nil {
			t.Fatalf("alpha=%f: unexpected error: %v", alpha, err)
		}
		for _, v := range col {
			if v != 63.5 {
				t.Errorf("alpha=%f: expected constant 63.5, got %f", alpha, v)
			}
		}
	}
}

func TestExponentialSmoothing_InvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.5, 1.5} {
		if _, err := ExponentialSmoothingForecast(constantSeries(10, 1), 3, alpha); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("alpha=%f: expected ErrInvalidParameter, got %v", alpha, err)
		}
	}
}

func TestHoltWinters_RequiresTwoFullSeasons(t *testing.T) {
	series := constantSeries(10, 50)

	col, err := HoltWintersForecast(series, 5, 0.3, 0.1, 0.1, 12)
	if !errors.Is(err, ErrInsufficientSeasonalHistory) {
		t.Fatalf("Expected ErrInsufficientSeasonalHistory, got %v", err)
	}
	if col != nil {
		t.Error("Expected no partial column on failure")
	}

	// Exactly two seasons is enough.
	if _, err := HoltWintersForecast(constantSeries(24, 50), 5, 0.3, 0.1, 0.1, 12); err != nil {
		t.Errorf("Two full seasons should fit: %v", err)
	}
}

func TestHoltWinters_LinearTrendSlope(t *testing.T) {
	// 100, 100.5, ... 282: trend 0.5 per period, no noise, no seasonality.
	series := linearSeries(365, 100, 0.5)

	col, err := HoltWintersForecast(series, 30, 0.3, 0.1, 0, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := 1; i < len(col); i++ {
		slope := col[i] - col[i-1]
		if math.Abs(slope-0.5) > 1e-6 {
			t.Fatalf("Expected forecast slope 0.5 at step %d, got %f", i, slope)
		}
	}
}

func TestHoltWinters_AdditiveSeasonalPattern(t *testing.T) {
	// Alternating 10, 20 with period 2 and no trend.
	values := make([]float64, 20)
	for i := range values {
		if i%2 == 0 {
			values[i] = 10
		} else {
			values[i] = 20
		}
	}
	series := dailySeries(values...)

	col, err := HoltWintersForecast(series, 4, 0.3, 0.1, 0.1, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// n=20 is even, so step 1 lands on the high phase.
	wants := []float64{20, 10, 20, 10}
	for i, want := range wants {
		if math.Abs(col[i]-want) > 0.5 {
			t.Errorf("Expected ~%f at step %d, got %f", want, i, col[i])
		}
	}
}

func TestHoltWinters_InvalidParameters(t *testing.T) {
	series := constantSeries(30, 1)
	if _, err := HoltWintersForecast(series, 5, 0, 0.1, 0.1, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for alpha 0, got %v", err)
	}
	if _, err := HoltWintersForecast(series, 5, 0.3, -0.1, 0.1, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for negative beta, got %v", err)
	}
	if _, err := HoltWintersForecast(series, 5, 0.3, 0.1, 1.1, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for gamma > 1, got %v", err)
	}
}

func TestTheta_ConstantSeries(t *testing.T) {
	col, err := ThetaForecast(constantSeries(50, 100), 10, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, v := range col {
		if math.Abs(v-100) > 1e-9 {
			t.Errorf("Expected 100 at step %d, got %f", i, v)
		}
	}
}

func TestTheta_TrendingSeriesKeepsRising(t *testing.T) {
	col, err := ThetaForecast(linearSeries(100, 10, 1), 10, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := 1; i < len(col); i++ {
		if col[i] <= col[i-1] {
			t.Errorf("Expected rising forecast, step %d: %f <= %f", i, col[i], col[i-1])
		}
	}
}

func TestTheta_InvalidParameter(t *testing.T) {
	if _, err := ThetaForecast(constantSeries(10, 1), 3, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for theta 0, got %v", err)
	}
}

func TestValidateSeries(t *testing.T) {
	if err := ValidateSeries(constantSeries(10, 1), 10); err != nil {
		t.Errorf("10 points should satisfy the default minimum: %v", err)
	}
	if err := ValidateSeries(constantSeries(9, 1), 10); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}

	bad := constantSeries(10, 1)
	bad.Points[4].Value = math.NaN()
	if err := ValidateSeries(bad, 10); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for NaN, got %v", err)
	}

	dup := constantSeries(10, 1)
	dup.Points[5].Timestamp = dup.Points[4].Timestamp
	if err := ValidateSeries(dup, 10); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for duplicate timestamp, got %v", err)
	}
}
