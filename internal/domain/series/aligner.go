// Package series validates raw vendor/dataset rows and turns them into
// aligned model.Series values.
package series

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/forecastbench/internal/domain/model"
)

// defaultZeroTolerance flags actuals this close to zero.
const defaultZeroTolerance = 1e-9

// Option applies a configuration option to the Aligner.
type Option func(*Aligner)

// WithZeroTolerance sets the absolute threshold below which an actual is
// treated as zero. Negative values are ignored.
func WithZeroTolerance(tol float64) Option {
	return func(a *Aligner) {
		if tol >= 0 && !math.IsNaN(tol) {
			a.zeroTolerance = tol
		}
	}
}

// Aligner checks that timestamps, actuals and forecasts line up.
type Aligner struct {
	zeroTolerance float64
}

// NewAligner creates an Aligner.
func NewAligner(opts ...Option) *Aligner {
	a := &Aligner{zeroTolerance: defaultZeroTolerance}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align builds a Series from parallel slices. Lengths must match,
// timestamps must strictly increase and every value must be finite.
// Points are never dropped; near-zero actuals are flagged instead.
// Empty input yields an empty series.
func (a *Aligner) Align(timestamps []time.Time, actual, forecast []float64) (model.Series, error) {
	if len(timestamps) != len(actual) || len(actual) != len(forecast) {
		return model.Series{}, fmt.Errorf("%w: %d timestamps, %d actuals, %d forecasts",
			model.ErrMisalignedSeries, len(timestamps), len(actual), len(forecast))
	}

	points := make([]model.TimePoint, len(actual))
	for i := range actual {
		if i > 0 && !timestamps[i].After(timestamps[i-1]) {
			return model.Series{}, fmt.Errorf("%w: timestamp at index %d (%s) does not follow %s",
				model.ErrMisalignedSeries, i, timestamps[i].Format(time.RFC3339), timestamps[i-1].Format(time.RFC3339))
		}
		if !finite(actual[i]) {
			return model.Series{}, fmt.Errorf("%w: missing or non-finite actual at index %d", model.ErrMisalignedSeries, i)
		}
		if !finite(forecast[i]) {
			return model.Series{}, fmt.Errorf("%w: missing or non-finite forecast at index %d", model.ErrMisalignedSeries, i)
		}
		points[i] = model.TimePoint{
			Timestamp:  timestamps[i],
			Actual:     actual[i],
			Forecast:   forecast[i],
			ZeroActual: math.Abs(actual[i]) <= a.zeroTolerance,
		}
	}
	return model.NewSeries(points), nil
}

// AlignObservations aligns deserialized rows.
func (a *Aligner) AlignObservations(rows []model.Observation) (model.Series, error) {
	ts := make([]time.Time, len(rows))
	act := make([]float64, len(rows))
	fc := make([]float64, len(rows))
	for i, r := range rows {
		ts[i], act[i], fc[i] = r.Date, r.Actual, r.Forecast
	}
	return a.Align(ts, act, fc)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
