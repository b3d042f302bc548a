package ranking

import (
	"math"

	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithVendorOrder sets the configured vendor order used for tie-breaks and
// output ordering.
func WithVendorOrder(vendors []string) Option {
	return func(a *Aggregator) {
		a.vendorOrder = dedupe(vendors)
	}
}

// WithDatasetOrder sets the configured dataset order.
func WithDatasetOrder(datasets []string) Option {
	return func(a *Aggregator) {
		a.datasetOrder = dedupe(datasets)
	}
}

// WithRankingMetric selects the metric vendors are ranked by. Only
// lower-is-better metrics are accepted; others are ignored.
func WithRankingMetric(name model.MetricName) Option {
	return func(a *Aggregator) {
		if name.LowerIsBetter() {
			a.metric = name
		}
	}
}

// WithTieTolerance sets the absolute difference under which two scores tie.
func WithTieTolerance(tol float64) Option {
	return func(a *Aggregator) {
		if tol >= 0 && !math.IsNaN(tol) && !math.IsInf(tol, 0) {
			a.tieTolerance = tol
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
