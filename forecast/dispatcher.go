package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recorder receives per-invocation observations. The metrics package
// implements it with Prometheus collectors; a nil recorder disables
// recording.
type Recorder interface {
	ObserveAlgorithm(id string, status string, duration time.Duration)
}

// Dispatcher fans a request out to the chosen native functions and backend
// adapters, isolating each invocation from the others, and collects results
// in the original request order. All invoked units are pure with respect to
// engine state (the registry is read-only after construction), so the same
// dispatcher may run sequentially or over a bounded worker pool.
type Dispatcher struct {
	registry *Registry
	workers  int
	log      logrus.FieldLogger
	recorder Recorder
}

// NewDispatcher builds a dispatcher. workers <= 1 selects sequential
// execution.
func NewDispatcher(registry *Registry, workers int, log logrus.FieldLogger, recorder Recorder) *Dispatcher {
	if log == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		log = logger
	}
	return &Dispatcher{registry: registry, workers: workers, log: log, recorder: recorder}
}

// Run executes every spec against the series and returns one Outcome per
// spec, in spec order, regardless of individual backend failures. Specs must
// already be validated and defaulted; ensemble membership is resolved later
// by the combiner.
func (d *Dispatcher) Run(ctx context.Context, series *TimeSeries, horizon int, specs []AlgorithmSpec) ([]Outcome, error) {
	results := make([]Outcome, len(specs))
	errs := make([]error, len(specs))

	if d.workers <= 1 {
		for i, spec := range specs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i], errs[i] = d.runOne(series, horizon, spec)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, d.workers)
		for i, spec := range specs {
			if err := ctx.Err(); err != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, spec AlgorithmSpec) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i], errs[i] = d.runOne(series, horizon, spec)
			}(i, spec)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// runOne executes a single algorithm. Native algorithm errors are fatal
// (they are parameter problems that validation should have rejected);
// backend failures never surface as errors, only as warning-carrying
// outcomes.
func (d *Dispatcher) runOne(series *TimeSeries, horizon int, spec AlgorithmSpec) (Outcome, error) {
	start := time.Now()
	var (
		out Outcome
		err error
	)

	switch spec.ID {
	case AlgorithmSMA:
		var col ForecastColumn
		col, err = MovingAverageForecast(series, horizon, spec.Params.Window)
		out = Outcome{ID: spec.ID, Column: col}
	case AlgorithmES:
		var col ForecastColumn
		col, err = ExponentialSmoothingForecast(series, horizon, spec.Params.Alpha)
		out = Outcome{ID: spec.ID, Column: col}
	case AlgorithmHW:
		var col ForecastColumn
		col, err = HoltWintersForecast(series, horizon,
			spec.Params.Alpha, floatOrZero(spec.Params.Beta), floatOrZero(spec.Params.Gamma),
			spec.Params.SeasonalPeriods)
		out = Outcome{ID: spec.ID, Column: col}
	case AlgorithmTheta:
		var col ForecastColumn
		col, err = ThetaForecast(series, horizon, spec.Params.Theta)
		out = Outcome{ID: spec.ID, Column: col}
	case AlgorithmARIMA, AlgorithmSARIMA, AlgorithmProphet, AlgorithmNeuralProphet, AlgorithmDarts:
		out = invokeBackend(d.registry, BackendID(spec.ID), series, horizon, spec.Params)
	default:
		err = fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParameter, spec.ID)
	}

	duration := time.Since(start)
	if err != nil {
		d.log.WithFields(logrus.Fields{"algorithm": spec.ID, "duration": duration}).WithError(err).Error("algorithm failed")
		if d.recorder != nil {
			d.recorder.ObserveAlgorithm(string(spec.ID), "error", duration)
		}
		return Outcome{}, err
	}

	status := "ok"
	switch out.Status {
	case StatusUnavailable:
		status = "unavailable"
	case StatusFallback:
		status = "fallback"
	}
	d.log.WithFields(logrus.Fields{"algorithm": spec.ID, "status": status, "duration": duration}).Debug("algorithm complete")
	if d.recorder != nil {
		d.recorder.ObserveAlgorithm(string(spec.ID), status, duration)
	}
	return out, nil
}
