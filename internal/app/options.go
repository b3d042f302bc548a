package service

import (
	"math"

	workerpool "github.com/okian/forecastbench/internal/adapters/mq/worker"
	"github.com/okian/forecastbench/internal/benchspec"
	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRankingMetric sets the metric vendors are ranked by. Metrics where a
// higher value is better are ignored.
func WithRankingMetric(name model.MetricName) Option {
	return func(s *Service) {
		if name.LowerIsBetter() {
			s.rankingMetric = name
		}
	}
}

// WithAnomalyThreshold sets the |z| threshold for Anomaly%.
func WithAnomalyThreshold(z float64) Option {
	return func(s *Service) {
		if z > 0 && !math.IsInf(z, 0) {
			s.anomalyThreshold = z
		}
	}
}

// WithTieTolerance sets the ranking tie tolerance.
func WithTieTolerance(tol float64) Option {
	return func(s *Service) {
		if tol >= 0 && !math.IsInf(tol, 0) {
			s.tieTolerance = tol
		}
	}
}

// WithZeroTolerance sets the threshold under which an actual counts as zero.
func WithZeroTolerance(tol float64) Option {
	return func(s *Service) {
		if tol >= 0 && !math.IsInf(tol, 0) {
			s.zeroTolerance = tol
		}
	}
}

// WithLoader replaces the CSV loader.
func WithLoader(l workerpool.Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithSpec sets the spec used by Rerun before any Run has happened.
func WithSpec(spec *benchspec.Spec) Option {
	return func(s *Service) {
		if spec != nil {
			s.spec = spec
		}
	}
}
