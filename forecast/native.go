package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Native algorithms. Each function maps a validated series plus parameters
// to a ForecastColumn of length horizon. All of them are pure and fully
// deterministic: no randomness, no I/O, no shared state.

// MovingAverageForecast forecasts with a simple moving average of width
// window. The first horizon step is the mean of the last window observed
// values; later steps slide the window over the forecasts already produced,
// so multi-step horizons flatten toward the initial window mean.
func MovingAverageForecast(series *TimeSeries, horizon, window int) (ForecastColumn, error) {
	n := series.Len()
	if window < 1 || window > n {
		return nil, fmt.Errorf("%w: sma window %d outside [1, %d]", ErrInvalidParameter, window, n)
	}

	return smaValues(series.Values(), horizon, window), nil
}

// smaValues is the rolling-extension SMA core: the window is seeded with the
// last window actuals and forecasts feed back into it as it slides past the
// end of the history.
func smaValues(values []float64, horizon, window int) ForecastColumn {
	buf := make([]float64, window)
	copy(buf, values[len(values)-window:])

	col := make(ForecastColumn, horizon)
	for h := 0; h < horizon; h++ {
		sum := 0.0
		for _, v := range buf {
			sum += v
		}
		next := sum / float64(window)
		col[h] = next
		copy(buf, buf[1:])
		buf[window-1] = next
	}
	return col
}

// ExponentialSmoothingForecast runs simple exponential smoothing over the
// whole history (S1 = y1, St = alpha*yt + (1-alpha)*S(t-1)) and repeats the
// final smoothed value for every horizon step. alpha must lie in (0, 1];
// alpha = 1 degenerates to repeating the last observed value.
func ExponentialSmoothingForecast(series *TimeSeries, horizon int, alpha float64) (ForecastColumn, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: es alpha %g outside (0, 1]", ErrInvalidParameter, alpha)
	}
	return ConstantColumn(horizon, smooth(series.Values(), alpha)), nil
}

// smooth runs the SES recursion over values and returns the final smoothed
// state.
func smooth(values []float64, alpha float64) float64 {
	smoothed := values[0]
	for _, v := range values[1:] {
		smoothed = alpha*v + (1-alpha)*smoothed
	}
	return smoothed
}

// HoltWintersForecast runs additive triple exponential smoothing: level,
// trend and a seasonal index array of length periods, updated across the
// whole history. The forecast at step h is
//
//	level + h*trend + seasonal[(n+h) mod periods]
//
// A periods value <= 1 omits the seasonal term entirely, reducing the model
// to Holt's double exponential smoothing. With periods > 1 the history must
// cover at least two full seasons.
func HoltWintersForecast(series *TimeSeries, horizon int, alpha, beta, gamma float64, periods int) (ForecastColumn, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: hw alpha %g outside (0, 1]", ErrInvalidParameter, alpha)
	}
	if beta < 0 || beta > 1 {
		return nil, fmt.Errorf("%w: hw beta %g outside [0, 1]", ErrInvalidParameter, beta)
	}
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("%w: hw gamma %g outside [0, 1]", ErrInvalidParameter, gamma)
	}

	values := series.Values()
	n := len(values)

	if periods <= 1 {
		return holtForecast(values, horizon, alpha, beta), nil
	}
	if n < 2*periods {
		return nil, fmt.Errorf("%w: need %d points for %d seasonal periods, have %d",
			ErrInsufficientSeasonalHistory, 2*periods, periods, n)
	}

	// Initialize from the first two seasons: level is the first-season
	// mean, trend the per-step change between season means, and the
	// seasonal indices the first-season deviations from the level.
	firstSeason := mean(values[:periods])
	secondSeason := mean(values[periods : 2*periods])
	level := firstSeason
	trend := (secondSeason - firstSeason) / float64(periods)

	seasonal := make([]float64, periods)
	for i := 0; i < periods; i++ {
		seasonal[i] = values[i] - firstSeason
	}

	for i := periods; i < n; i++ {
		s := seasonal[i%periods]
		prevLevel := level
		level = alpha*(values[i]-s) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[i%periods] = gamma*(values[i]-level) + (1-gamma)*s
	}

	col := make(ForecastColumn, horizon)
	for h := 1; h <= horizon; h++ {
		col[h-1] = level + float64(h)*trend + seasonal[(n+h)%periods]
	}
	return col, nil
}

// holtForecast is double exponential smoothing: level and trend only.
func holtForecast(values []float64, horizon int, alpha, beta float64) ForecastColumn {
	level := values[0]
	trend := values[1] - values[0]
	for _, v := range values[1:] {
		prevLevel := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	col := make(ForecastColumn, horizon)
	for h := 1; h <= horizon; h++ {
		col[h-1] = level + float64(h)*trend
	}
	return col
}

// ThetaForecast implements the classic two-line theta decomposition. The
// series is split into an ordinary least squares trend line and a theta
// line (the detrended series scaled by theta, re-trended), which is then
// smoothed with simple exponential smoothing. The forecast at each step is
// the equally weighted mean of the trend line's extrapolation and the SES
// line's flat extrapolation.
func ThetaForecast(series *TimeSeries, horizon int, theta float64) (ForecastColumn, error) {
	if theta <= 0 {
		return nil, fmt.Errorf("%w: theta %g must be positive", ErrInvalidParameter, theta)
	}

	return thetaValues(series.Values(), horizon, theta), nil
}

func thetaValues(values []float64, horizon int, theta float64) ForecastColumn {
	n := len(values)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	// Theta line: scale the detrended series by theta, keep the trend.
	thetaLine := make([]float64, n)
	for i, v := range values {
		fitted := intercept + slope*float64(i)
		thetaLine[i] = theta*(v-fitted) + fitted
	}

	// SES over the theta line; the flat extrapolation partner of the trend.
	const sesAlpha = 0.5
	smoothed := smooth(thetaLine, sesAlpha)

	col := make(ForecastColumn, horizon)
	for h := 1; h <= horizon; h++ {
		trendExtrap := intercept + slope*float64(n-1+h)
		col[h-1] = (trendExtrap + smoothed) / 2
	}
	return col
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
