package model

import "errors"

// Sentinel kinds shared by the aligner, loaders, scorer and aggregator.
var (
	ErrMisalignedSeries = errors.New("misaligned series")
	ErrInsufficientData = errors.New("insufficient data")
	ErrSourceNotFound   = errors.New("source not found")
	ErrUnreadableSource = errors.New("unreadable source")
	ErrUnknownMetric    = errors.New("unknown metric")

	// ErrNoSpec reports a run requested before any benchmark spec was set.
	ErrNoSpec = errors.New("no benchmark spec configured")
)

// FailureKind classifies why a vendor/dataset pair was skipped.
type FailureKind string

// Failure kinds reported in a benchmark result.
const (
	FailureMisaligned   FailureKind = "misaligned_series"
	FailureInsufficient FailureKind = "insufficient_data"
	FailureUnreadable   FailureKind = "unreadable_source"
)

// ClassifyFailure maps an error to its failure kind. Anything that is not a
// series or data-size problem counts as an unreadable source.
func ClassifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrMisalignedSeries):
		return FailureMisaligned
	case errors.Is(err, ErrInsufficientData):
		return FailureInsufficient
	default:
		return FailureUnreadable
	}
}
