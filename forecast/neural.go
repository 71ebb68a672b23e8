package forecast

import (
	"fmt"
	"math"
	"math/rand"
)

// neuralModel is the neural trend backend: a single-hidden-layer
// autoregressive network over lagged, min-max normalized values, trained by
// full-batch gradient descent. Weights are initialized from a fixed seed so
// training is fully deterministic for a given input.
//
// A zero-variance series cannot be normalized and would never converge; Train
// reports errConstantSeries so the adapter boundary substitutes the flat
// fallback instead.
type neuralModel struct {
	lags   int
	hidden int

	w1 [][]float64 // hidden x lags
	b1 []float64
	w2 []float64 // hidden
	b2 float64

	window   []float64 // last lags normalized values
	min, max float64
	trained  bool
}

const (
	defaultNeuralHidden = 8
	defaultNeuralEpochs = 200
	neuralLearningRate  = 0.05
	neuralSeed          = 1
)

func newNeuralModel() *neuralModel {
	return &neuralModel{}
}

func (m *neuralModel) Name() BackendID { return BackendNeuralProphet }

func (m *neuralModel) Train(values []float64, params Params) error {
	n := len(values)

	m.min, m.max = values[0], values[0]
	for _, v := range values {
		m.min = math.Min(m.min, v)
		m.max = math.Max(m.max, v)
	}
	if m.max == m.min {
		return errConstantSeries
	}

	m.lags = 12
	if m.lags > n/2 {
		m.lags = n / 2
	}
	if m.lags < 1 {
		return fmt.Errorf("insufficient data for neural trend fit: have %d points", n)
	}
	m.hidden = params.HiddenUnits
	if m.hidden <= 0 {
		m.hidden = defaultNeuralHidden
	}
	epochs := params.Epochs
	if epochs <= 0 {
		epochs = defaultNeuralEpochs
	}

	norm := make([]float64, n)
	for i, v := range values {
		norm[i] = (v - m.min) / (m.max - m.min)
	}

	rng := rand.New(rand.NewSource(neuralSeed))
	m.w1 = make([][]float64, m.hidden)
	m.b1 = make([]float64, m.hidden)
	m.w2 = make([]float64, m.hidden)
	scale := 1 / math.Sqrt(float64(m.lags))
	for j := 0; j < m.hidden; j++ {
		m.w1[j] = make([]float64, m.lags)
		for i := range m.w1[j] {
			m.w1[j][i] = (rng.Float64()*2 - 1) * scale
		}
		m.w2[j] = (rng.Float64()*2 - 1) * scale
	}
	m.b2 = 0

	samples := n - m.lags
	hiddenOut := make([]float64, m.hidden)

	for epoch := 0; epoch < epochs; epoch++ {
		loss := 0.0
		for s := 0; s < samples; s++ {
			input := norm[s : s+m.lags]
			target := norm[s+m.lags]

			pred := m.b2
			for j := 0; j < m.hidden; j++ {
				a := m.b1[j]
				for i, v := range input {
					a += m.w1[j][i] * v
				}
				hiddenOut[j] = math.Tanh(a)
				pred += m.w2[j] * hiddenOut[j]
			}

			errOut := pred - target
			loss += errOut * errOut

			lr := neuralLearningRate / float64(samples)
			m.b2 -= lr * errOut
			for j := 0; j < m.hidden; j++ {
				gradW2 := errOut * hiddenOut[j]
				gradHidden := errOut * m.w2[j] * (1 - hiddenOut[j]*hiddenOut[j])
				m.w2[j] -= lr * gradW2
				m.b1[j] -= lr * gradHidden
				for i, v := range input {
					m.w1[j][i] -= lr * gradHidden * v
				}
			}
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return fmt.Errorf("training diverged at epoch %d", epoch)
		}
	}

	m.window = append([]float64(nil), norm[n-m.lags:]...)
	m.trained = true
	return nil
}

func (m *neuralModel) Predict(horizon int) ([]float64, error) {
	if !m.trained {
		return nil, fmt.Errorf("model not trained")
	}
	window := append([]float64(nil), m.window...)
	out := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		pred := m.b2
		for j := 0; j < m.hidden; j++ {
			a := m.b1[j]
			for i, v := range window {
				a += m.w1[j][i] * v
			}
			pred += m.w2[j] * math.Tanh(a)
		}
		out[h] = pred*(m.max-m.min) + m.min
		copy(window, window[1:])
		window[m.lags-1] = pred
	}
	return out, nil
}
