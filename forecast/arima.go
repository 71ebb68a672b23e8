package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// arimaModel is the autoregressive backend family. It fits an ARIMA(p,d,q)
// model by conditional sum of squares; with seasonal set it first applies
// seasonal differencing at the seasonal period (the SARIMA variant).
type arimaModel struct {
	seasonal bool

	order  Order
	sorder SeasonalOrder

	intercept float64
	arCoeffs  []float64
	maCoeffs  []float64
	residuals []float64

	// Differencing state needed to integrate forecasts back to the
	// original scale. levels[0] is the raw series; each following entry is
	// one differencing step further.
	diffed        []float64
	regularLevels [][]float64
	seasonLevels  [][]float64

	trained bool
}

func newARIMAModel(seasonal bool) *arimaModel {
	return &arimaModel{seasonal: seasonal}
}

func (m *arimaModel) Name() BackendID {
	if m.seasonal {
		return BackendSARIMA
	}
	return BackendARIMA
}

func (m *arimaModel) Train(values []float64, params Params) error {
	m.order = params.Order
	if m.order == (Order{}) {
		m.order = Order{P: 1, D: 1, Q: 1}
	}
	if m.seasonal {
		m.sorder = params.SeasonalOrder
		if m.sorder == (SeasonalOrder{}) {
			m.sorder = SeasonalOrder{P: 1, D: 1, Q: 1, Period: 12}
		}
	}
	if m.order.P < 0 || m.order.D < 0 || m.order.Q < 0 {
		return fmt.Errorf("%w: negative arima order", ErrInvalidParameter)
	}

	minPoints := m.order.P + m.order.D + m.order.Q + 10
	if m.seasonal {
		minPoints += m.sorder.Period * m.sorder.D
	}
	if len(values) < minPoints {
		return fmt.Errorf("insufficient data for order (%d,%d,%d): need %d points, have %d",
			m.order.P, m.order.D, m.order.Q, minPoints, len(values))
	}

	// Seasonal differencing first, then regular differencing.
	work := append([]float64(nil), values...)
	m.seasonLevels = nil
	if m.seasonal {
		for i := 0; i < m.sorder.D; i++ {
			m.seasonLevels = append(m.seasonLevels, work)
			work = diff(work, m.sorder.Period)
		}
	}
	m.regularLevels = nil
	for i := 0; i < m.order.D; i++ {
		m.regularLevels = append(m.regularLevels, work)
		work = diff(work, 1)
	}
	if len(work) <= m.order.P+m.order.Q {
		return fmt.Errorf("differencing left too few points (%d)", len(work))
	}
	m.diffed = work

	if err := m.fitCSS(); err != nil {
		return err
	}
	m.trained = true
	return nil
}

// fitCSS estimates the AR and MA coefficients on the differenced series:
// Yule-Walker initial AR estimates refined by gradient descent on the
// conditional sum of squares, MA terms started at 0.1 like a cold CSS fit.
func (m *arimaModel) fitCSS() error {
	y := m.diffed
	n := len(y)
	p, q := m.order.P, m.order.Q

	m.intercept = mean(y)
	m.arCoeffs = make([]float64, p)
	m.maCoeffs = make([]float64, q)

	if p > 0 {
		if ar := yuleWalker(acf(y, p), p); ar != nil {
			copy(m.arCoeffs, ar)
		}
	}
	for i := range m.maCoeffs {
		m.maCoeffs[i] = 0.1
	}

	const (
		maxIter      = 100
		tolerance    = 1e-6
		learningRate = 0.01
	)

	residuals := make([]float64, n)
	start := p
	if q > start {
		start = q
	}

	prevSSE := math.Inf(1)
	for iter := 0; iter < maxIter; iter++ {
		sse := 0.0
		arGrad := make([]float64, p)
		maGrad := make([]float64, q)

		for t := start; t < n; t++ {
			pred := m.predictOne(y, residuals, t)
			residuals[t] = y[t] - pred
			sse += residuals[t] * residuals[t]

			for i := 0; i < p; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < q; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := 0; i < p; i++ {
			m.arCoeffs[i] -= learningRate * arGrad[i] / float64(n)
			m.arCoeffs[i] = clamp(m.arCoeffs[i], -0.99, 0.99) // stationarity bound
		}
		for i := 0; i < q; i++ {
			m.maCoeffs[i] -= learningRate * maGrad[i] / float64(n)
			m.maCoeffs[i] = clamp(m.maCoeffs[i], -0.99, 0.99) // invertibility bound
		}

		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return fmt.Errorf("css optimization diverged")
		}
		if math.Abs(prevSSE-sse) < tolerance {
			break
		}
		prevSSE = sse
	}

	// Final residual pass with the converged coefficients.
	for t := 0; t < n; t++ {
		if t < start {
			residuals[t] = y[t] - m.intercept
			continue
		}
		residuals[t] = y[t] - m.predictOne(y, residuals, t)
	}
	m.residuals = residuals
	return nil
}

// predictOne computes the one-step CSS prediction at index t.
func (m *arimaModel) predictOne(y, residuals []float64, t int) float64 {
	pred := m.intercept
	for i := 0; i < m.order.P && t-i-1 >= 0; i++ {
		pred += m.arCoeffs[i] * (y[t-i-1] - m.intercept)
	}
	for i := 0; i < m.order.Q && t-i-1 >= 0; i++ {
		pred += m.maCoeffs[i] * residuals[t-i-1]
	}
	return pred
}

func (m *arimaModel) Predict(horizon int) ([]float64, error) {
	if !m.trained {
		return nil, fmt.Errorf("model not trained")
	}
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1", ErrInvalidParameter)
	}

	n := len(m.diffed)
	extY := make([]float64, n+horizon)
	copy(extY, m.diffed)
	extRes := make([]float64, n+horizon)
	copy(extRes, m.residuals)

	// Forecast on the differenced scale; future shocks are their
	// expectation, zero.
	for h := 0; h < horizon; h++ {
		t := n + h
		pred := m.intercept
		for i := 0; i < m.order.P && t-i-1 >= 0; i++ {
			pred += m.arCoeffs[i] * (extY[t-i-1] - m.intercept)
		}
		for i := 0; i < m.order.Q && t-i-1 >= 0; i++ {
			pred += m.maCoeffs[i] * extRes[t-i-1]
		}
		extY[t] = pred
	}
	forecasts := append([]float64(nil), extY[n:]...)

	// Integrate back: regular differencing levels innermost-first, then the
	// seasonal levels.
	for i := len(m.regularLevels) - 1; i >= 0; i-- {
		level := m.regularLevels[i]
		prev := level[len(level)-1]
		for h := range forecasts {
			forecasts[h] += prev
			prev = forecasts[h]
		}
	}
	for i := len(m.seasonLevels) - 1; i >= 0; i-- {
		level := m.seasonLevels[i]
		s := m.sorder.Period
		ext := append(append([]float64(nil), level...), forecasts...)
		for h := range forecasts {
			t := len(level) + h
			ext[t] += ext[t-s]
			forecasts[h] = ext[t]
		}
	}
	return forecasts, nil
}

// diff computes the lagged difference series v[t+lag] - v[t].
func diff(values []float64, lag int) []float64 {
	if len(values) <= lag {
		return nil
	}
	out := make([]float64, len(values)-lag)
	for i := range out {
		out[i] = values[i+lag] - values[i]
	}
	return out
}

// acf computes the autocorrelation function up to maxLag (inclusive).
// acf[0] is always 1.
func acf(values []float64, maxLag int) []float64 {
	n := len(values)
	if n == 0 || maxLag < 0 {
		return nil
	}
	mu := mean(values)
	var c0 float64
	for _, v := range values {
		c0 += (v - mu) * (v - mu)
	}
	out := make([]float64, maxLag+1)
	out[0] = 1
	if c0 == 0 {
		return out
	}
	for lag := 1; lag <= maxLag && lag < n; lag++ {
		var c float64
		for t := lag; t < n; t++ {
			c += (values[t] - mu) * (values[t-lag] - mu)
		}
		out[lag] = c / c0
	}
	return out
}

// yuleWalker solves the Yule-Walker equations for initial AR estimates by
// solving the Toeplitz system R*phi = r.
func yuleWalker(acfValues []float64, order int) []float64 {
	if order <= 0 || len(acfValues) <= order {
		return nil
	}
	r := mat.NewDense(order, order, nil)
	rhs := mat.NewVecDense(order, nil)
	for i := 0; i < order; i++ {
		rhs.SetVec(i, acfValues[i+1])
		for j := 0; j < order; j++ {
			lag := i - j
			if lag < 0 {
				lag = -lag
			}
			r.Set(i, j, acfValues[lag])
		}
	}
	var phi mat.VecDense
	if err := phi.SolveVec(r, rhs); err != nil {
		return nil
	}
	out := make([]float64, order)
	for i := range out {
		out[i] = clamp(phi.AtVec(i), -0.99, 0.99)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
