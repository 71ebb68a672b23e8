package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// trendModel is the changepoint-trend backend: a piecewise linear trend with
// hinge terms at evenly spaced changepoints, fitted by least squares. It is
// the engine's stand-in for the changepoint-detecting trend models found in
// heavier forecasting toolkits.
type trendModel struct {
	changepoints []float64
	coeffs       []float64 // intercept, base slope, one delta per changepoint
	n            int
	trained      bool
}

const defaultChangepoints = 5

// changepointRange places changepoints over the first 80% of the history so
// the final segment's slope is estimated from untouched recent data.
const changepointRange = 0.8

func newTrendModel() *trendModel {
	return &trendModel{}
}

func (m *trendModel) Name() BackendID { return BackendProphet }

func (m *trendModel) Train(values []float64, params Params) error {
	n := len(values)
	k := params.Changepoints
	if k < 0 {
		return fmt.Errorf("%w: negative changepoint count", ErrInvalidParameter)
	}
	if k == 0 {
		k = defaultChangepoints
	}
	// Each segment needs a few points to pin its slope down.
	if maxK := n/4 - 1; k > maxK {
		k = maxK
	}
	if k < 0 {
		k = 0
	}
	if n < 4 {
		return fmt.Errorf("insufficient data for trend fit: have %d points", n)
	}

	m.changepoints = make([]float64, k)
	for j := 0; j < k; j++ {
		m.changepoints[j] = changepointRange * float64(n-1) * float64(j+1) / float64(k+1)
	}

	// Design matrix: [1, t, (t - c_j)+ ...], solved by QR least squares.
	cols := 2 + k
	x := mat.NewDense(n, cols, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		t := float64(i)
		x.Set(i, 0, 1)
		x.Set(i, 1, t)
		for j, c := range m.changepoints {
			if t > c {
				x.Set(i, 2+j, t-c)
			}
		}
		y.Set(i, 0, values[i])
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return fmt.Errorf("trend least squares failed: %v", err)
	}

	m.coeffs = make([]float64, cols)
	for i := range m.coeffs {
		m.coeffs[i] = beta.At(i, 0)
	}
	m.n = n
	m.trained = true
	return nil
}

func (m *trendModel) Predict(horizon int) ([]float64, error) {
	if !m.trained {
		return nil, fmt.Errorf("model not trained")
	}
	out := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		t := float64(m.n - 1 + h)
		v := m.coeffs[0] + m.coeffs[1]*t
		for j, c := range m.changepoints {
			if t > c {
				v += m.coeffs[2+j] * (t - c)
			}
		}
		out[h-1] = v
	}
	return out, nil
}
