package forecast

// BackendID identifies one optional forecasting backend.
type BackendID string

const (
	BackendARIMA         BackendID = "arima"
	BackendSARIMA        BackendID = "sarima"
	BackendProphet       BackendID = "prophet"
	BackendNeuralProphet BackendID = "neural_prophet"
	BackendDarts         BackendID = "darts"
)

// AllBackends lists every backend identifier in a stable order.
var AllBackends = []BackendID{
	BackendARIMA,
	BackendSARIMA,
	BackendProphet,
	BackendNeuralProphet,
	BackendDarts,
}

// BackendConfig enables or disables individual backends. A disabled backend
// behaves exactly like an uninstalled one: its adapter yields an all-missing
// column and a "[<backend>-missing]" warning.
type BackendConfig struct {
	EnableARIMA         bool `json:"enable_arima"`
	EnableSARIMA        bool `json:"enable_sarima"`
	EnableProphet       bool `json:"enable_prophet"`
	EnableNeuralProphet bool `json:"enable_neural_prophet"`
	EnableDarts         bool `json:"enable_darts"`
}

// DefaultBackendConfig enables every backend.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		EnableARIMA:         true,
		EnableSARIMA:        true,
		EnableProphet:       true,
		EnableNeuralProphet: true,
		EnableDarts:         true,
	}
}

func (c BackendConfig) enabled(id BackendID) bool {
	switch id {
	case BackendARIMA:
		return c.EnableARIMA
	case BackendSARIMA:
		return c.EnableSARIMA
	case BackendProphet:
		return c.EnableProphet
	case BackendNeuralProphet:
		return c.EnableNeuralProphet
	case BackendDarts:
		return c.EnableDarts
	}
	return false
}

// BackendModel is the uniform training/prediction contract every backend
// adapter wraps. Train may return errConstantSeries to request the flat
// fallback for zero-variance input.
type BackendModel interface {
	Name() BackendID
	Train(values []float64, params Params) error
	Predict(horizon int) ([]float64, error)
}

// backendFactory builds a fresh model per invocation, keeping adapters free
// of shared mutable state during fan-out.
type backendFactory func() BackendModel

// Registry resolves backend availability once, at construction, and is
// read-only afterwards. A backend that fails mid-run is an adapter-level
// runtime failure, never a capability change.
type Registry struct {
	factories map[BackendID]backendFactory
	available map[BackendID]bool
	hints     map[BackendID]string
}

// NewRegistry probes every enabled backend with a no-op initialization
// against a tiny synthetic series and records one boolean capability per
// backend. Probing is never repeated mid-run.
func NewRegistry(cfg BackendConfig) *Registry {
	r := &Registry{
		factories: map[BackendID]backendFactory{
			BackendARIMA:         func() BackendModel { return newARIMAModel(false) },
			BackendSARIMA:        func() BackendModel { return newARIMAModel(true) },
			BackendProphet:       func() BackendModel { return newTrendModel() },
			BackendNeuralProphet: func() BackendModel { return newNeuralModel() },
			BackendDarts:         func() BackendModel { return newGenericModel() },
		},
		available: make(map[BackendID]bool, len(AllBackends)),
		hints: map[BackendID]string{
			BackendARIMA:         "enable the arima backend in the engine configuration",
			BackendSARIMA:        "enable the sarima backend in the engine configuration",
			BackendProphet:       "enable the prophet backend in the engine configuration",
			BackendNeuralProphet: "enable the neural_prophet backend in the engine configuration",
			BackendDarts:         "enable the darts backend in the engine configuration",
		},
	}
	for _, id := range AllBackends {
		r.available[id] = cfg.enabled(id) && r.probe(id) == nil
	}
	return r
}

// probe attempts a minimal fit/predict cycle to confirm the backend is
// usable in this process.
func (r *Registry) probe(id BackendID) error {
	model := r.factories[id]()
	probeValues := make([]float64, 36)
	for i := range probeValues {
		probeValues[i] = float64(i + 1)
	}
	if err := model.Train(probeValues, Params{}); err != nil {
		return err
	}
	_, err := model.Predict(1)
	return err
}

// Available reports whether a backend can be invoked in this run.
func (r *Registry) Available(id BackendID) bool {
	return r.available[id]
}

// InstallHint returns the remediation hint emitted with a missing-backend
// warning.
func (r *Registry) InstallHint(id BackendID) string {
	return r.hints[id]
}

// newModel builds a fresh model instance for a backend.
func (r *Registry) newModel(id BackendID) BackendModel {
	return r.factories[id]()
}
