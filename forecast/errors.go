package forecast

import "errors"

// Fatal input errors. These abort a request before any algorithm runs.
// Recoverable backend conditions are never modeled as errors; they become
// missing columns plus tagged warnings (see adapter.go).
var (
	// ErrInsufficientData indicates the series is shorter than the
	// configured minimum history length.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidValue indicates a non-finite value or a broken timestamp
	// ordering in the input series.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidParameter indicates an algorithm parameter outside its
	// documented range, e.g. an SMA window larger than the series.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientSeasonalHistory indicates the series is too short for
	// the requested Holt-Winters seasonal period (needs 2 full seasons).
	ErrInsufficientSeasonalHistory = errors.New("insufficient seasonal history")
)

// errConstantSeries is returned by backend models that cannot train on a
// zero-variance series. The adapter boundary converts it into a flat
// fallback forecast with a "[<backend>-constant]" warning.
var errConstantSeries = errors.New("constant series")
