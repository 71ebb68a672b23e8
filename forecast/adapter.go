package forecast

import "fmt"

// Status classifies the outcome of one backend adapter invocation. The
// three states are explicit so callers can test them exhaustively instead
// of inspecting column contents.
type Status int

const (
	// StatusOK: the backend trained and produced a full column.
	StatusOK Status = iota
	// StatusUnavailable: the backend is missing or disabled; the column is
	// all-missing.
	StatusUnavailable
	// StatusFallback: the backend could not train (degenerate input or a
	// runtime failure) and a safe substitute column was produced instead.
	StatusFallback
)

// Outcome is the result of one algorithm invocation: the column plus the
// warnings it generated. Warnings are returned as data; the engine never
// writes them to a diagnostic stream itself.
type Outcome struct {
	ID       AlgorithmID
	Column   ForecastColumn
	Status   Status
	Warnings []string
}

// invokeBackend runs one backend behind the adapter boundary. Capability is
// consulted first; a missing backend short-circuits to an all-missing column
// with a tagged warning. Any error raised during fit or predict is converted
// to a graceful fallback rather than propagated, so a backend failure never
// aborts the overall forecast run.
func invokeBackend(reg *Registry, id BackendID, series *TimeSeries, horizon int, params Params) Outcome {
	algID := AlgorithmID(id)

	if !reg.Available(id) {
		return Outcome{
			ID:     algID,
			Column: MissingColumn(horizon),
			Status: StatusUnavailable,
			Warnings: []string{fmt.Sprintf("[%s-missing] %s backend is not available: %s; column %q will be missing",
				id, id, reg.InstallHint(id), id)},
		}
	}

	model := reg.newModel(id)
	values := series.Values()

	if err := model.Train(values, params); err != nil {
		if err == errConstantSeries {
			// Zero-variance input: repeat the constant value instead of
			// training, tagged distinctly from the missing case.
			return Outcome{
				ID:     algID,
				Column: ConstantColumn(horizon, values[len(values)-1]),
				Status: StatusFallback,
				Warnings: []string{fmt.Sprintf("[%s-constant] input series is constant; using constant fallback for %q",
					id, id)},
			}
		}
		return Outcome{
			ID:       algID,
			Column:   MissingColumn(horizon),
			Status:   StatusFallback,
			Warnings: []string{fmt.Sprintf("[%s-failed] %s training failed: %v; column %q will be missing", id, id, err, id)},
		}
	}

	predictions, err := model.Predict(horizon)
	if err != nil {
		return Outcome{
			ID:       algID,
			Column:   MissingColumn(horizon),
			Status:   StatusFallback,
			Warnings: []string{fmt.Sprintf("[%s-failed] %s prediction failed: %v; column %q will be missing", id, id, err, id)},
		}
	}

	return Outcome{ID: algID, Column: ForecastColumn(predictions), Status: StatusOK}
}
