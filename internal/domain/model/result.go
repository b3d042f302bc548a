package model

// PairKey identifies one vendor/dataset combination.
type PairKey struct {
	Vendor  string `json:"vendor" yaml:"vendor"`
	Dataset string `json:"dataset" yaml:"dataset"`
}

// String renders the key as vendor/dataset.
func (k PairKey) String() string { return k.Vendor + "/" + k.Dataset }

// Job is a unit of scoring work: one pair plus where its data lives.
type Job struct {
	Vendor  string
	Dataset string
	Source  string
}

// Key returns the pair the job scores.
func (j Job) Key() PairKey { return PairKey{Vendor: j.Vendor, Dataset: j.Dataset} }

// Failure records a pair that was skipped.
type Failure struct {
	Vendor  string      `json:"vendor" yaml:"vendor"`
	Dataset string      `json:"dataset" yaml:"dataset"`
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// Standing is one row of a ranking table.
type Standing struct {
	Rank     int    `json:"rank" yaml:"rank"`
	Vendor   string `json:"vendor" yaml:"vendor"`
	Score    Value  `json:"score" yaml:"score"`
	Datasets int    `json:"datasets,omitempty" yaml:"datasets,omitempty"`
}

// DatasetSummary is the per-dataset outcome. BestVendor is empty when no
// vendor had a defined ranking value for the dataset.
type DatasetSummary struct {
	BestVendor string     `json:"best_vendor" yaml:"best_vendor"`
	BestScore  Value      `json:"best_score" yaml:"best_score"`
	Ranking    []Standing `json:"ranking" yaml:"ranking"`
}

// OverallBest is the vendor with the lowest average ranking value.
type OverallBest struct {
	Vendor   string `json:"vendor" yaml:"vendor"`
	AvgScore Value  `json:"avg_score" yaml:"avg_score"`
	Datasets int    `json:"datasets" yaml:"datasets"`
}

// BenchmarkResult is the finalized output of one run. It is read-only once built.
type BenchmarkResult struct {
	RankingMetric MetricName                         `json:"ranking_metric" yaml:"ranking_metric"`
	VendorOrder   []string                           `json:"vendor_order" yaml:"vendor_order"`
	DatasetOrder  []string                           `json:"dataset_order" yaml:"dataset_order"`
	Vendors       map[string]map[string]MetricRecord `json:"vendors" yaml:"vendors"`
	Summary       map[string]DatasetSummary          `json:"summary" yaml:"summary"`
	OverallBest   OverallBest                        `json:"overall_best" yaml:"overall_best"`
	Overall       []Standing                         `json:"overall_ranking" yaml:"overall_ranking"`
	Failures      []Failure                          `json:"failures" yaml:"failures"`
	Missing       []PairKey                          `json:"missing" yaml:"missing"`
}

// Record returns the metrics for a pair, if scored.
func (r *BenchmarkResult) Record(vendor, dataset string) (MetricRecord, bool) {
	if r == nil {
		return MetricRecord{}, false
	}
	rec, ok := r.Vendors[vendor][dataset]
	return rec, ok
}

// Leaderboard returns at most n rows of the overall ranking.
func (r *BenchmarkResult) Leaderboard(n int) []Standing {
	if r == nil || n <= 0 {
		return []Standing{}
	}
	if n > len(r.Overall) {
		n = len(r.Overall)
	}
	out := make([]Standing, n)
	copy(out, r.Overall[:n])
	return out
}

// BestByMetric returns the vendor with the lowest value of a metric for a
// dataset, or "" when no vendor has a defined value. Ties keep vendor order.
func (r *BenchmarkResult) BestByMetric(dataset string, metric MetricName) (string, Value) {
	if r == nil {
		return "", Undefined()
	}
	best, bestVal := "", Undefined()
	for _, vendor := range r.VendorOrder {
		rec, ok := r.Vendors[vendor][dataset]
		if !ok {
			continue
		}
		v, _ := rec.Get(metric)
		f, defined := v.Float()
		if !defined {
			continue
		}
		if cur, ok := bestVal.Float(); !ok || f < cur {
			best, bestVal = vendor, v
		}
	}
	return best, bestVal
}
