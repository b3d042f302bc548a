// Package ranking collects per-pair metric records and turns them into
// per-dataset and overall vendor rankings.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/pkg/logger"
	"github.com/okian/forecastbench/pkg/metrics"
)

const defaultTieTolerance = 1e-9

// Store keeps the scored records of a run.
type Store interface {
	Put(ctx context.Context, key model.PairKey, rec model.MetricRecord) (bool, error)
	Delete(ctx context.Context, key model.PairKey) bool
	All(ctx context.Context) map[model.PairKey]model.MetricRecord
}

// Aggregator accumulates outcomes for vendor/dataset pairs. It is safe for
// concurrent use by scoring workers; Finalize reads a consistent snapshot.
type Aggregator struct {
	mu sync.Mutex

	store        Store
	vendorOrder  []string
	datasetOrder []string
	metric       model.MetricName
	tieTolerance float64

	failures map[model.PairKey]model.Failure
	absent   map[model.PairKey]struct{}

	logger logger.Logger
}

// NewAggregator creates an aggregator writing records to store.
func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:        store,
		metric:       model.MetricMAPE,
		tieTolerance: defaultTieTolerance,
		failures:     make(map[model.PairKey]model.Failure),
		absent:       make(map[model.PairKey]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("aggregator")
	}
	return a
}

// RankingMetric returns the metric vendors are ranked by.
func (a *Aggregator) RankingMetric() model.MetricName { return a.metric }

// Add records a scored pair. A later outcome for the same pair replaces the
// earlier one with a warning.
func (a *Aggregator) Add(ctx context.Context, key model.PairKey, rec model.MetricRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	replaced, err := a.store.Put(ctx, key, rec)
	if err != nil {
		return fmt.Errorf("add %s: %w", key, err)
	}
	_, failed := a.failures[key]
	_, wasAbsent := a.absent[key]
	delete(a.failures, key)
	delete(a.absent, key)

	if replaced || failed || wasAbsent {
		metrics.RecordOverwrite()
		a.logger.Warn(ctx, "overwriting earlier outcome for pair",
			logger.String("vendor", key.Vendor),
			logger.String("dataset", key.Dataset),
		)
	}
	metrics.RecordPairScored()
	return nil
}

// Fail records a pair that could not be scored. Errors wrapping
// model.ErrSourceNotFound mark the pair as missing data; anything else
// becomes a classified failure.
func (a *Aggregator) Fail(ctx context.Context, key model.PairKey, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store.Delete(ctx, key) {
		metrics.RecordOverwrite()
		a.logger.Warn(ctx, "discarding earlier record for failed pair",
			logger.String("vendor", key.Vendor),
			logger.String("dataset", key.Dataset),
		)
	}

	if errors.Is(cause, model.ErrSourceNotFound) {
		delete(a.failures, key)
		a.absent[key] = struct{}{}
		metrics.RecordPairMissing()
		a.logger.Info(ctx, "no data for pair",
			logger.String("vendor", key.Vendor),
			logger.String("dataset", key.Dataset),
		)
		return
	}

	kind := model.ClassifyFailure(cause)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	delete(a.absent, key)
	a.failures[key] = model.Failure{Vendor: key.Vendor, Dataset: key.Dataset, Kind: kind, Message: msg}
	metrics.RecordPairSkipped(string(kind))
	a.logger.Warn(ctx, "skipping pair",
		logger.String("vendor", key.Vendor),
		logger.String("dataset", key.Dataset),
		logger.String("kind", string(kind)),
		logger.Error(cause),
	)
}

// Finalize builds the ranked result from everything recorded so far.
func (a *Aggregator) Finalize(ctx context.Context) (*model.BenchmarkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	records := a.store.All(ctx)

	seenVendors := make(map[string]struct{})
	seenDatasets := make(map[string]struct{})
	for k := range records {
		seenVendors[k.Vendor] = struct{}{}
		seenDatasets[k.Dataset] = struct{}{}
	}
	for k := range a.failures {
		seenVendors[k.Vendor] = struct{}{}
		seenDatasets[k.Dataset] = struct{}{}
	}
	for k := range a.absent {
		seenVendors[k.Vendor] = struct{}{}
		seenDatasets[k.Dataset] = struct{}{}
	}
	vendors := ordered(a.vendorOrder, seenVendors)
	datasets := ordered(a.datasetOrder, seenDatasets)

	res := &model.BenchmarkResult{
		RankingMetric: a.metric,
		VendorOrder:   vendors,
		DatasetOrder:  datasets,
		Vendors:       make(map[string]map[string]model.MetricRecord, len(vendors)),
		Summary:       make(map[string]model.DatasetSummary, len(datasets)),
		Overall:       []model.Standing{},
		Failures:      []model.Failure{},
		Missing:       []model.PairKey{},
	}

	for _, v := range vendors {
		res.Vendors[v] = make(map[string]model.MetricRecord)
	}
	for k, rec := range records {
		res.Vendors[k.Vendor][k.Dataset] = rec
	}

	sums := make(map[string]float64, len(vendors))
	counts := make(map[string]int, len(vendors))

	for _, ds := range datasets {
		var rows []model.Standing
		for _, v := range vendors {
			rec, ok := res.Vendors[v][ds]
			if !ok {
				continue
			}
			val, _ := rec.Get(a.metric)
			f, defined := val.Float()
			if !defined {
				continue
			}
			rows = append(rows, model.Standing{Vendor: v, Score: val})
			sums[v] += f
			counts[v]++
		}
		rows = a.rank(rows)

		summary := model.DatasetSummary{BestScore: model.Undefined(), Ranking: rows}
		if len(rows) > 0 {
			summary.BestVendor = rows[0].Vendor
			summary.BestScore = rows[0].Score
			best, _ := rows[0].Score.Float()
			metrics.UpdateBestScore(ds, rows[0].Vendor, best)
		}
		res.Summary[ds] = summary
	}

	var overall []model.Standing
	for _, v := range vendors {
		n := counts[v]
		if n == 0 {
			continue
		}
		avg := sums[v] / float64(n)
		overall = append(overall, model.Standing{Vendor: v, Score: model.Defined(avg), Datasets: n})
		metrics.UpdateVendorAverage(v, avg)
	}
	res.Overall = a.rank(overall)
	res.OverallBest = model.OverallBest{AvgScore: model.Undefined()}
	if len(res.Overall) > 0 {
		top := res.Overall[0]
		res.OverallBest = model.OverallBest{Vendor: top.Vendor, AvgScore: top.Score, Datasets: top.Datasets}
	}

	for _, v := range vendors {
		for _, ds := range datasets {
			key := model.PairKey{Vendor: v, Dataset: ds}
			if f, ok := a.failures[key]; ok {
				res.Failures = append(res.Failures, f)
				continue
			}
			if _, ok := records[key]; !ok {
				res.Missing = append(res.Missing, key)
			}
		}
	}

	metrics.UpdateVendorCount(len(vendors))
	metrics.UpdateDatasetCount(len(datasets))

	a.logger.Debug(ctx, "benchmark finalized",
		logger.Int("vendors", len(vendors)),
		logger.Int("datasets", len(datasets)),
		logger.Int("records", len(records)),
		logger.Int("failures", len(res.Failures)),
		logger.Int("missing", len(res.Missing)),
	)
	return res, nil
}

// rank orders rows by ascending score. Rows are expected in vendor order, so
// the stable sort keeps the earlier vendor first within a tie.
func (a *Aggregator) rank(rows []model.Standing) []model.Standing {
	if len(rows) == 0 {
		return []model.Standing{}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		si, _ := rows[i].Score.Float()
		sj, _ := rows[j].Score.Float()
		if a.tied(si, sj) {
			return false
		}
		return si < sj
	})
	a.assignRanksWithTies(rows)
	return rows
}

func (a *Aggregator) tied(x, y float64) bool {
	return math.Abs(x-y) <= a.tieTolerance
}

// assignRanksWithTies gives rows whose scores tie with the first row of
// their group the same rank. Ranks are consecutive.
func (a *Aggregator) assignRanksWithTies(rows []model.Standing) {
	currentRank := 0
	var groupScore float64
	for i := range rows {
		s, _ := rows[i].Score.Float()
		if i == 0 || !a.tied(s, groupScore) {
			currentRank++
			groupScore = s
		}
		rows[i].Rank = currentRank
	}
}

// ordered lists configured names first, then any other seen names sorted.
func ordered(configured []string, seen map[string]struct{}) []string {
	out := make([]string, 0, len(configured)+len(seen))
	known := make(map[string]struct{}, len(configured))
	for _, n := range configured {
		out = append(out, n)
		known[n] = struct{}{}
	}
	var extra []string
	for n := range seen {
		if _, ok := known[n]; !ok {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
