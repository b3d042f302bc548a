// Package service runs benchmarks and keeps the latest result for the HTTP
// API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forecastbench/internal/adapters/dataset"
	jobqueue "github.com/okian/forecastbench/internal/adapters/mq/queue"
	workerpool "github.com/okian/forecastbench/internal/adapters/mq/worker"
	"github.com/okian/forecastbench/internal/adapters/repository"
	"github.com/okian/forecastbench/internal/benchspec"
	"github.com/okian/forecastbench/internal/domain/accuracy"
	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/internal/domain/ranking"
	"github.com/okian/forecastbench/internal/domain/scoring"
	"github.com/okian/forecastbench/internal/domain/series"
	"github.com/okian/forecastbench/pkg/logger"
	"github.com/okian/forecastbench/pkg/metrics"
)

// Sentinel errors for service operations.
var (
	ErrNoSpec   = model.ErrNoSpec
	ErrNoResult = errors.New("no benchmark result yet")
)

// RunInfo identifies a finished run.
type RunInfo struct {
	ID         string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Jobs       int           `json:"jobs"`
}

// Service owns benchmark runs. Runs are serialized; readers always see the
// latest complete result.
type Service struct {
	mu    sync.RWMutex
	runMu sync.Mutex

	// Configuration
	workerCount      int
	queueSize        int
	rankingMetric    model.MetricName
	anomalyThreshold float64
	tieTolerance     float64
	zeroTolerance    float64
	loader           workerpool.Loader
	spec             *benchspec.Spec

	// State
	started bool
	result  *model.BenchmarkResult
	lastRun RunInfo
	runs    int

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        1024,
		rankingMetric:    model.MetricMAPE,
		anomalyThreshold: accuracy.DefaultAnomalyThreshold,
		tieTolerance:     1e-9,
		zeroTolerance:    1e-9,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		s.loader = dataset.NewCSVLoader()
	}

	return s
}

// Start marks the service ready to serve. It is safe to call twice.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.started = true
	s.logger.Info(ctx, "benchmark service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("rankingMetric", string(s.rankingMetric)),
	)
	return nil
}

// Stop marks the service stopped. A run in progress finishes first.
func (s *Service) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "benchmark service stopped")
}

// Run scores every vendor/dataset pair of spec and returns the ranked
// result. Per-pair failures are part of the result; only configuration
// problems and cancellation are returned as errors.
func (s *Service) Run(ctx context.Context, spec *benchspec.Spec) (*model.BenchmarkResult, error) {
	if spec == nil {
		return nil, ErrNoSpec
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.Named("run")

	for _, name := range spec.Duplicates() {
		log.Warn(ctx, "vendor listed more than once; the last entry wins", logger.String("vendor", name))
	}

	jobs := spec.Jobs()
	log.Info(ctx, "benchmark run starting",
		logger.String("run_id", runID),
		logger.Int("vendors", len(spec.VendorNames())),
		logger.Int("datasets", len(spec.DatasetKeys())),
		logger.Int("jobs", len(jobs)),
	)

	agg := ranking.NewAggregator(repository.NewMemoryStore(repository.WithInitialCapacity(len(jobs))),
		ranking.WithVendorOrder(spec.VendorNames()),
		ranking.WithDatasetOrder(spec.DatasetKeys()),
		ranking.WithRankingMetric(s.rankingMetric),
		ranking.WithTieTolerance(s.tieTolerance),
		ranking.WithLogger(s.logger.Named("aggregator")),
	)
	q := jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	pool := workerpool.NewPool(s.workerCount, q, s.loader,
		series.NewAligner(series.WithZeroTolerance(s.zeroTolerance)),
		scoring.NewDatasetScorer(scoring.WithAnomalyThreshold(s.anomalyThreshold)),
		agg,
	)
	pool.Start(ctx)

	for _, j := range jobs {
		if err := q.Put(ctx, j); err != nil {
			_ = pool.Shutdown(context.Background())
			return nil, s.failRun(ctx, start, fmt.Errorf("run %s: %w", runID, err))
		}
	}

	if err := pool.Shutdown(ctx); err != nil {
		return nil, s.failRun(ctx, start, fmt.Errorf("run %s: %w", runID, err))
	}

	res, err := agg.Finalize(ctx)
	if err != nil {
		return nil, s.failRun(ctx, start, fmt.Errorf("run %s: %w", runID, err))
	}

	finished := time.Now()
	info := RunInfo{ID: runID, StartedAt: start, FinishedAt: finished, Duration: finished.Sub(start), Jobs: len(jobs)}

	s.mu.Lock()
	s.result = res
	s.lastRun = info
	s.spec = spec
	s.runs++
	s.mu.Unlock()

	metrics.RecordRun("ok", float64(info.Duration.Milliseconds()), finished.Unix())
	log.Info(ctx, "benchmark run finished",
		logger.String("run_id", runID),
		logger.Duration("duration", info.Duration),
		logger.String("overall_best", res.OverallBest.Vendor),
		logger.Int("failures", len(res.Failures)),
		logger.Int("missing", len(res.Missing)),
	)
	return res, nil
}

func (s *Service) failRun(ctx context.Context, start time.Time, err error) error {
	metrics.RecordRun("error", float64(time.Since(start).Milliseconds()), time.Now().Unix())
	s.logger.Error(ctx, "benchmark run failed", logger.Error(err))
	return err
}

// Rerun repeats the last run with the same spec, or the spec given through
// WithSpec when nothing has run yet.
func (s *Service) Rerun(ctx context.Context) (*model.BenchmarkResult, error) {
	s.mu.RLock()
	spec := s.spec
	s.mu.RUnlock()
	if spec == nil {
		return nil, ErrNoSpec
	}
	return s.Run(ctx, spec)
}

// Result returns the latest benchmark result.
func (s *Service) Result(_ context.Context) (*model.BenchmarkResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrNoResult
	}
	return s.result, nil
}

// LastRun returns information on the latest successful run.
func (s *Service) LastRun() (RunInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.runs > 0
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"rankingMetric": string(s.rankingMetric),
		"runs":          s.runs,
	}

	if s.result != nil {
		scored := 0
		for _, byDataset := range s.result.Vendors {
			scored += len(byDataset)
		}
		stats["lastRunId"] = s.lastRun.ID
		stats["lastRunAt"] = s.lastRun.FinishedAt.UTC().Format(time.RFC3339)
		stats["lastRunMs"] = s.lastRun.Duration.Milliseconds()
		stats["vendors"] = len(s.result.VendorOrder)
		stats["datasets"] = len(s.result.DatasetOrder)
		stats["scoredPairs"] = scored
		stats["failedPairs"] = len(s.result.Failures)
		stats["missingPairs"] = len(s.result.Missing)
	}

	return stats
}
