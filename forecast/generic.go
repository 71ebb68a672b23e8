package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// genericModel is the generic multi-algorithm backend: a single adapter
// parameterized by a sub-algorithm choice, mirroring the shape of
// multi-model forecasting libraries.
type genericModel struct {
	sub     string
	horizon func(horizon int) ([]float64, error)
}

// Sub-algorithms understood by the generic backend.
const (
	SubExponentialSmoothing = "exponential_smoothing"
	SubARIMA                = "arima"
	SubTheta                = "theta"
	SubLinearRegression     = "linear_regression"
)

func newGenericModel() *genericModel {
	return &genericModel{}
}

func (m *genericModel) Name() BackendID { return BackendDarts }

func (m *genericModel) Train(values []float64, params Params) error {
	m.sub = params.SubAlgorithm
	if m.sub == "" {
		m.sub = SubExponentialSmoothing
	}

	switch m.sub {
	case SubExponentialSmoothing:
		alpha := params.Alpha
		if alpha <= 0 || alpha > 1 {
			alpha = 0.5
		}
		smoothed := smooth(values, alpha)
		m.horizon = func(horizon int) ([]float64, error) {
			return ConstantColumn(horizon, smoothed), nil
		}

	case SubARIMA:
		inner := newARIMAModel(false)
		if err := inner.Train(values, params); err != nil {
			return err
		}
		m.horizon = inner.Predict

	case SubTheta:
		theta := params.Theta
		if theta <= 0 {
			theta = 2
		}
		vals := append([]float64(nil), values...)
		m.horizon = func(horizon int) ([]float64, error) {
			return thetaValues(vals, horizon, theta), nil
		}

	case SubLinearRegression:
		predict, err := fitLaggedRegression(values)
		if err != nil {
			return err
		}
		m.horizon = predict

	default:
		return fmt.Errorf("%w: unknown sub-algorithm %q", ErrInvalidParameter, m.sub)
	}
	return nil
}

func (m *genericModel) Predict(horizon int) ([]float64, error) {
	if m.horizon == nil {
		return nil, fmt.Errorf("model not trained")
	}
	return m.horizon(horizon)
}

// fitLaggedRegression fits y_t against its previous lags by ridge-stabilized
// least squares and returns an autoregressive predictor over the fitted
// coefficients. The tiny ridge term keeps collinear lag sets (constant or
// perfectly linear series) solvable without changing well-conditioned fits.
func fitLaggedRegression(values []float64) (func(int) ([]float64, error), error) {
	lags := 12
	if lags > len(values)/2 {
		lags = len(values) / 2
	}
	if lags < 1 {
		return nil, fmt.Errorf("insufficient data for lagged regression: have %d points", len(values))
	}

	samples := len(values) - lags
	cols := lags + 1
	x := mat.NewDense(samples, cols, nil)
	y := mat.NewVecDense(samples, nil)
	for s := 0; s < samples; s++ {
		x.Set(s, 0, 1)
		for i := 0; i < lags; i++ {
			x.Set(s, 1+i, values[s+i])
		}
		y.SetVec(s, values[s+lags])
	}

	// Normal equations (X'X + lambda*I) beta = X'y.
	const ridge = 1e-6
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 0; i < cols; i++ {
		xtx.Set(i, i, xtx.At(i, i)+ridge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("lagged regression failed: %v", err)
	}

	coeffs := make([]float64, cols)
	for i := range coeffs {
		coeffs[i] = beta.AtVec(i)
	}
	window := append([]float64(nil), values[len(values)-lags:]...)

	return func(horizon int) ([]float64, error) {
		w := append([]float64(nil), window...)
		out := make([]float64, horizon)
		for h := 0; h < horizon; h++ {
			pred := coeffs[0]
			for i := 0; i < lags; i++ {
				pred += coeffs[1+i] * w[i]
			}
			out[h] = pred
			copy(w, w[1:])
			w[lags-1] = pred
		}
		return out, nil
	}, nil
}
