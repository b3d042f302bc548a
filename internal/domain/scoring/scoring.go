// Package scoring runs the full metric battery over one vendor/dataset series.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/forecastbench/internal/domain/accuracy"
	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/pkg/metrics"
)

// Option applies a configuration option to the DatasetScorer.
type Option func(*DatasetScorer)

// WithAnomalyThreshold sets the |z| threshold used by Anomaly%.
// Non-positive values are ignored.
func WithAnomalyThreshold(z float64) Option {
	return func(s *DatasetScorer) {
		if z > 0 && !math.IsInf(z, 0) {
			s.anomalyThreshold = z
		}
	}
}

// Scorer computes a metric record for an aligned series.
type Scorer interface {
	// Score computes every metric, honoring ctx for cancellation.
	Score(ctx context.Context, vendor, dataset string, s model.Series) (model.MetricRecord, error)
}

// DatasetScorer implements Scorer with the accuracy package.
type DatasetScorer struct {
	anomalyThreshold float64
}

// NewDatasetScorer creates a scorer with configuration options.
func NewDatasetScorer(opts ...Option) *DatasetScorer {
	s := &DatasetScorer{
		anomalyThreshold: accuracy.DefaultAnomalyThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the metric record for a series. An empty series yields
// model.ErrInsufficientData; otherwise a record is always returned, with
// metrics that do not apply left undefined.
func (s *DatasetScorer) Score(ctx context.Context, vendor, dataset string, in model.Series) (model.MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.MetricRecord{}, fmt.Errorf("score %s/%s: %w", vendor, dataset, err)
	}
	if in.Len() < 1 {
		return model.MetricRecord{}, fmt.Errorf("score %s/%s: %w: empty series", vendor, dataset, model.ErrInsufficientData)
	}

	rec := model.MetricRecord{
		MAE:            accuracy.MAE(in),
		RMSE:           accuracy.RMSE(in),
		Bias:           accuracy.Bias(in),
		MAPE:           accuracy.MAPE(in),
		WAPE:           accuracy.WAPE(in),
		SMAPE:          accuracy.SMAPE(in),
		TrackingSignal: accuracy.TrackingSignal(in),
		CRPS:           accuracy.CRPS(in),
		AnomalyPct:     accuracy.AnomalyPct(in, s.anomalyThreshold),
		Drift:          accuracy.Drift(in),
		TurningPointF1: accuracy.TurningPointF1(in),
		RecordCount:    in.Len(),
	}

	for _, name := range rec.Undefined() {
		metrics.RecordUndefinedMetric(string(name))
	}
	return rec, nil
}
