package forecast

import "math"

// AlgorithmID identifies one forecasting algorithm, native or backend-adapted.
type AlgorithmID string

const (
	AlgorithmSMA           AlgorithmID = "sma"
	AlgorithmES            AlgorithmID = "es"
	AlgorithmHW            AlgorithmID = "hw"
	AlgorithmARIMA         AlgorithmID = "arima"
	AlgorithmSARIMA        AlgorithmID = "sarima"
	AlgorithmTheta         AlgorithmID = "theta"
	AlgorithmProphet       AlgorithmID = "prophet"
	AlgorithmNeuralProphet AlgorithmID = "neural_prophet"
	AlgorithmDarts         AlgorithmID = "darts"
	AlgorithmEnsemble      AlgorithmID = "ensemble"
)

// KnownAlgorithm reports whether id is a recognized algorithm identifier
// that the dispatcher can execute. The ensemble is not dispatchable; it is
// derived from other columns by the combiner.
func KnownAlgorithm(id AlgorithmID) bool {
	switch id {
	case AlgorithmSMA, AlgorithmES, AlgorithmHW, AlgorithmARIMA, AlgorithmSARIMA,
		AlgorithmTheta, AlgorithmProphet, AlgorithmNeuralProphet, AlgorithmDarts:
		return true
	}
	return false
}

// Order holds non-seasonal autoregressive model orders (p, d, q).
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// SeasonalOrder holds seasonal autoregressive model orders (P, D, Q, s).
type SeasonalOrder struct {
	P      int `json:"p"`
	D      int `json:"d"`
	Q      int `json:"q"`
	Period int `json:"period"`
}

// Params carries the tunable parameters for a single algorithm invocation.
// Zero values select the documented defaults (see Defaults in engine.go).
// Beta and Gamma are pointers because zero is a meaningful setting for them
// (frozen trend, frozen seasonality): nil means unset, &0 means zero.
type Params struct {
	// SMA
	Window int `json:"window,omitempty"`

	// ES and Holt-Winters smoothing coefficients.
	Alpha float64  `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty"`

	// Holt-Winters seasonal period. Values <= 1 drop the seasonal term.
	SeasonalPeriods int `json:"seasonal_periods,omitempty"`

	// Theta scaling factor for the theta decomposition line.
	Theta float64 `json:"theta,omitempty"`

	// Autoregressive backend orders.
	Order         Order         `json:"order,omitempty"`
	SeasonalOrder SeasonalOrder `json:"seasonal_order,omitempty"`

	// Changepoint-trend backend.
	Changepoints int `json:"changepoints,omitempty"`

	// Neural trend backend.
	HiddenUnits int `json:"hidden_units,omitempty"`
	Epochs      int `json:"epochs,omitempty"`

	// Generic backend sub-algorithm choice.
	SubAlgorithm string `json:"sub_algorithm,omitempty"`
}

// Float returns a pointer to v, for the optional Params fields.
func Float(v float64) *float64 { return &v }

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// AlgorithmSpec requests one algorithm with its parameters. Specs are
// immutable once constructed; their order in a request fixes the column
// order of the assembled table.
type AlgorithmSpec struct {
	ID       AlgorithmID `json:"id"`
	Params   Params      `json:"params"`
	Ensemble bool        `json:"ensemble"` // include this column in the ensemble mean
}

// ForecastColumn is a sequence of exactly horizon forecasted values, one per
// future timestamp. NaN marks a missing entry. A column produced by this
// engine is either all-present or all-missing.
type ForecastColumn []float64

// MissingColumn returns an all-missing column of the given length.
func MissingColumn(horizon int) ForecastColumn {
	col := make(ForecastColumn, horizon)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

// ConstantColumn returns a column repeating a single value.
func ConstantColumn(horizon int, value float64) ForecastColumn {
	col := make(ForecastColumn, horizon)
	for i := range col {
		col[i] = value
	}
	return col
}

// AllMissing reports whether every entry in the column is NaN.
func (c ForecastColumn) AllMissing() bool {
	for _, v := range c {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
