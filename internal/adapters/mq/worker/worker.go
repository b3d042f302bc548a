// Package worker runs scoring jobs pulled off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/pkg/logger"
	"github.com/okian/forecastbench/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job abstracts what workers read off the queue.
type Job = model.Job

// Loader reads the observations behind a job source.
type Loader interface {
	Load(ctx context.Context, source string) ([]model.Observation, error)
}

// Aligner turns raw observations into a validated series.
type Aligner interface {
	AlignObservations(rows []model.Observation) (model.Series, error)
}

// Scorer computes the metric record for an aligned series.
type Scorer interface {
	Score(ctx context.Context, vendor, dataset string, s model.Series) (model.MetricRecord, error)
}

// Recorder receives the outcome of every job.
type Recorder interface {
	Add(ctx context.Context, key model.PairKey, rec model.MetricRecord) error
	Fail(ctx context.Context, key model.PairKey, cause error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// InMemoryWorker processes jobs until the queue is drained or ctx ends.
type InMemoryWorker struct {
	queue    Queue
	loader   Loader
	aligner  Aligner
	scorer   Scorer
	recorder Recorder
	name     string

	processed *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, loader Loader, aligner Aligner, scorer Scorer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		loader:    loader,
		aligner:   aligner,
		scorer:    scorer,
		recorder:  recorder,
		name:      "worker",
		processed: &atomic.Int64{},
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run consumes jobs until the queue closes. It returns ctx.Err() when
// cancelled, since the dequeue channel also closes on cancellation. Per-pair failures are handed to the recorder and never stop
// the worker.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return ctx.Err()
			}
			if err := w.process(ctx, job); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.RecordWorkerError()
				metrics.RecordErrorByComponent("worker", "record_error")
				w.logger.Error(ctx, "error recording job",
					logger.String("pair", job.Key().String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Processed returns the number of jobs this worker has handled.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// process runs one job through load, align and score.
func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		w.processed.Add(1)
	}()

	key := job.Key()

	rows, err := w.loader.Load(ctx, job.Source)
	if err != nil {
		return w.fail(ctx, key, fmt.Errorf("load %s: %w", key, err))
	}

	series, err := w.aligner.AlignObservations(rows)
	if err != nil {
		return w.fail(ctx, key, fmt.Errorf("align %s: %w", key, err))
	}

	scoreStart := time.Now()
	rec, err := w.scorer.Score(ctx, job.Vendor, job.Dataset, series)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
	if err != nil {
		return w.fail(ctx, key, err)
	}

	w.logger.Debug(ctx, "pair scored",
		logger.String("vendor", job.Vendor),
		logger.String("dataset", job.Dataset),
		logger.Int("records", rec.RecordCount),
	)
	return w.recorder.Add(ctx, key, rec)
}

// fail reports a job failure. Cancellation is returned to the caller instead
// of being recorded against the pair.
func (w *InMemoryWorker) fail(ctx context.Context, key model.PairKey, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	w.recorder.Fail(ctx, key, err)
	return nil
}

// Pool runs a fixed set of workers under an errgroup.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	group *errgroup.Group
	done  chan struct{}
	err   error

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, loader Loader, aligner Aligner, scorer Scorer, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		done:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, loader, aligner, scorer, recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Call Wait or Shutdown to collect them.
func (p *Pool) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	for _, w := range p.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))

	go func() {
		p.err = g.Wait()
		metrics.UpdateWorkerActiveCount(0)
		close(p.done)
	}()
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or ctx is cancelled.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processed returns the number of jobs handled across all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	if err := p.Wait(shutdownCtx); err != nil {
		p.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
