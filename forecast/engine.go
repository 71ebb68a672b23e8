package forecast

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ParameterDefaults are the per-algorithm defaults applied when a spec
// leaves a parameter at its zero value.
type ParameterDefaults struct {
	SMAWindow           int           `json:"sma_window"`
	ESAlpha             float64       `json:"es_alpha"`
	HWAlpha             float64       `json:"hw_alpha"`
	HWBeta              float64       `json:"hw_beta"`
	HWGamma             float64       `json:"hw_gamma"`
	HWSeasonalPeriods   int           `json:"hw_seasonal_periods"`
	Theta               float64       `json:"theta"`
	ARIMAOrder          Order         `json:"arima_order"`
	SARIMAOrder         Order         `json:"sarima_order"`
	SARIMASeasonalOrder SeasonalOrder `json:"sarima_seasonal_order"`
	DartsSubAlgorithm   string        `json:"darts_sub_algorithm"`
}

// DefaultParameters returns the documented algorithm defaults.
func DefaultParameters() ParameterDefaults {
	return ParameterDefaults{
		SMAWindow:           7,
		ESAlpha:             0.5,
		HWAlpha:             0.3,
		HWBeta:              0.1,
		HWGamma:             0.1,
		HWSeasonalPeriods:   12,
		Theta:               2,
		ARIMAOrder:          Order{P: 1, D: 1, Q: 1},
		SARIMAOrder:         Order{P: 1, D: 1, Q: 1},
		SARIMASeasonalOrder: SeasonalOrder{P: 1, D: 1, Q: 1, Period: 12},
		DartsSubAlgorithm:   SubExponentialSmoothing,
	}
}

// Config configures an Engine.
type Config struct {
	// MinDataPoints is the validator's minimum history length (default 10).
	MinDataPoints int `json:"min_data_points"`
	// Workers bounds the dispatcher's fan-out; <= 1 runs sequentially.
	Workers int `json:"workers"`
	// Backends enables or disables the optional backends.
	Backends BackendConfig `json:"backends"`
	// Defaults are the parameter defaults applied to incoming specs.
	Defaults ParameterDefaults `json:"defaults"`
}

// DefaultConfig returns an engine configuration with every backend enabled
// and the documented parameter defaults.
func DefaultConfig() Config {
	return Config{
		MinDataPoints: MinDataPoints,
		Workers:       1,
		Backends:      DefaultBackendConfig(),
		Defaults:      DefaultParameters(),
	}
}

// Request asks for one forecast run.
type Request struct {
	// Horizon is the number of future periods to forecast; <= 0 selects the
	// granularity default (365 daily, 12 monthly).
	Horizon int `json:"horizon"`
	// Specs lists the requested algorithms in output-column order. A spec
	// with ID "ensemble" requests the ensemble column; the Ensemble flag on
	// the other specs selects its membership.
	Specs []AlgorithmSpec `json:"specs"`
	// MilestoneSummary requests the milestone extraction.
	MilestoneSummary bool `json:"milestone_summary"`
}

// Output is the result of a forecast run. Warnings are the tagged
// diagnostic strings emitted by backend adapters; they are data for the
// caller's diagnostic channel, never mixed into the table.
type Output struct {
	Table      *ForecastTable `json:"table"`
	Milestones *MilestoneSet  `json:"milestones,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Engine is the multi-algorithm forecasting engine. Its only shared state,
// the backend capability registry, is written once at construction and
// read-only afterwards, so a single Engine is safe for concurrent use.
type Engine struct {
	cfg        Config
	registry   *Registry
	dispatcher *Dispatcher
	log        logrus.FieldLogger
}

// NewEngine builds an engine, probing backend capabilities exactly once.
func NewEngine(cfg Config, log logrus.FieldLogger, recorder Recorder) *Engine {
	if cfg.MinDataPoints <= 0 {
		cfg.MinDataPoints = MinDataPoints
	}
	if cfg.Defaults == (ParameterDefaults{}) {
		cfg.Defaults = DefaultParameters()
	}
	if log == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		log = logger
	}
	registry := NewRegistry(cfg.Backends)
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		dispatcher: NewDispatcher(registry, cfg.Workers, log, recorder),
		log:        log,
	}
}

// Registry exposes the engine's capability registry (read-only).
func (e *Engine) Registry() *Registry { return e.registry }

// Run validates the series and every spec, dispatches the requested
// algorithms, combines the ensemble, assembles the table and, if requested,
// extracts the milestone summary. Fatal input errors abort before any
// algorithm runs; backend problems degrade to missing or fallback columns
// plus warnings, so the table is always produced once validation passes.
func (e *Engine) Run(ctx context.Context, series *TimeSeries, req Request) (*Output, error) {
	if err := ValidateSeries(series, e.cfg.MinDataPoints); err != nil {
		return nil, err
	}

	horizon := req.Horizon
	if horizon <= 0 {
		horizon = series.Granularity.DefaultHorizon()
	}
	if len(req.Specs) == 0 {
		return nil, fmt.Errorf("%w: no algorithms requested", ErrInvalidParameter)
	}

	// Split out the ensemble request and default every dispatchable spec,
	// then validate all parameters before anything executes.
	var (
		dispatchSpecs []AlgorithmSpec
		include       []bool
		wantEnsemble  bool
	)
	for _, spec := range req.Specs {
		if spec.ID == AlgorithmEnsemble {
			wantEnsemble = true
			continue
		}
		if !KnownAlgorithm(spec.ID) {
			return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParameter, spec.ID)
		}
		spec.Params = e.applyDefaults(spec.ID, spec.Params)
		if err := e.validateSpec(series, spec); err != nil {
			return nil, err
		}
		dispatchSpecs = append(dispatchSpecs, spec)
		include = append(include, spec.Ensemble)
	}
	if len(dispatchSpecs) == 0 {
		return nil, fmt.Errorf("%w: ensemble requested without member algorithms", ErrInvalidParameter)
	}

	outcomes, err := e.dispatcher.Run(ctx, series, horizon, dispatchSpecs)
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, out := range outcomes {
		warnings = append(warnings, out.Warnings...)
	}

	if wantEnsemble {
		outcomes = append(outcomes, Outcome{
			ID:     AlgorithmEnsemble,
			Column: CombineEnsemble(outcomes, include, horizon),
		})
	}

	output := &Output{
		Table:    AssembleTable(series, horizon, outcomes),
		Warnings: warnings,
	}
	if req.MilestoneSummary {
		output.Milestones = SummarizeMilestones(output.Table)
	}
	return output, nil
}

// applyDefaults fills zero-valued parameters from the configured defaults.
func (e *Engine) applyDefaults(id AlgorithmID, p Params) Params {
	d := e.cfg.Defaults
	switch id {
	case AlgorithmSMA:
		if p.Window == 0 {
			p.Window = d.SMAWindow
		}
	case AlgorithmES:
		if p.Alpha == 0 {
			p.Alpha = d.ESAlpha
		}
	case AlgorithmHW:
		if p.Alpha == 0 {
			p.Alpha = d.HWAlpha
		}
		if p.Beta == nil {
			p.Beta = Float(d.HWBeta)
		}
		if p.Gamma == nil {
			p.Gamma = Float(d.HWGamma)
		}
		if p.SeasonalPeriods == 0 {
			p.SeasonalPeriods = d.HWSeasonalPeriods
		}
	case AlgorithmTheta:
		if p.Theta == 0 {
			p.Theta = d.Theta
		}
	case AlgorithmARIMA:
		if p.Order == (Order{}) {
			p.Order = d.ARIMAOrder
		}
	case AlgorithmSARIMA:
		if p.Order == (Order{}) {
			p.Order = d.SARIMAOrder
		}
		if p.SeasonalOrder == (SeasonalOrder{}) {
			p.SeasonalOrder = d.SARIMASeasonalOrder
		}
	case AlgorithmDarts:
		if p.SubAlgorithm == "" {
			p.SubAlgorithm = d.DartsSubAlgorithm
		}
	}
	return p
}

// validateSpec rejects parameter problems up front so they surface as fatal
// input errors, keeping adapter-level failures genuinely recoverable.
func (e *Engine) validateSpec(series *TimeSeries, spec AlgorithmSpec) error {
	n := series.Len()
	p := spec.Params
	switch spec.ID {
	case AlgorithmSMA:
		if p.Window < 1 || p.Window > n {
			return fmt.Errorf("%w: sma window %d outside [1, %d]", ErrInvalidParameter, p.Window, n)
		}
	case AlgorithmES:
		if p.Alpha <= 0 || p.Alpha > 1 {
			return fmt.Errorf("%w: es alpha %g outside (0, 1]", ErrInvalidParameter, p.Alpha)
		}
	case AlgorithmHW:
		if p.Alpha <= 0 || p.Alpha > 1 {
			return fmt.Errorf("%w: hw alpha %g outside (0, 1]", ErrInvalidParameter, p.Alpha)
		}
		if b, g := floatOrZero(p.Beta), floatOrZero(p.Gamma); b < 0 || b > 1 || g < 0 || g > 1 {
			return fmt.Errorf("%w: hw beta/gamma outside [0, 1]", ErrInvalidParameter)
		}
		if p.SeasonalPeriods > 1 && n < 2*p.SeasonalPeriods {
			return fmt.Errorf("%w: need %d points for %d seasonal periods, have %d",
				ErrInsufficientSeasonalHistory, 2*p.SeasonalPeriods, p.SeasonalPeriods, n)
		}
	case AlgorithmTheta:
		if p.Theta <= 0 {
			return fmt.Errorf("%w: theta %g must be positive", ErrInvalidParameter, p.Theta)
		}
	case AlgorithmARIMA, AlgorithmSARIMA:
		if p.Order.P < 0 || p.Order.D < 0 || p.Order.Q < 0 {
			return fmt.Errorf("%w: negative arima order", ErrInvalidParameter)
		}
	case AlgorithmDarts:
		switch p.SubAlgorithm {
		case SubExponentialSmoothing, SubARIMA, SubTheta, SubLinearRegression:
		default:
			return fmt.Errorf("%w: unknown sub-algorithm %q", ErrInvalidParameter, p.SubAlgorithm)
		}
	}
	return nil
}
