package ranking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/forecastbench/internal/adapters/repository"
	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/internal/domain/ranking"
	"github.com/okian/forecastbench/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func mape(v float64) model.MetricRecord {
	return model.MetricRecord{MAPE: model.Defined(v), MAE: model.Defined(v * 2), RecordCount: 5}
}

func key(v, d string) model.PairKey { return model.PairKey{Vendor: v, Dataset: d} }

func TestAggregator_Finalize(t *testing.T) {
	ctx := context.Background()

	Convey("Given two vendors across two datasets", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A", "B"}),
			ranking.WithDatasetOrder([]string{"retail", "energy"}),
		)
		So(agg.Add(ctx, key("A", "retail"), mape(4.06)), ShouldBeNil)
		So(agg.Add(ctx, key("B", "retail"), mape(2.5)), ShouldBeNil)
		So(agg.Add(ctx, key("A", "energy"), mape(1.0)), ShouldBeNil)
		So(agg.Add(ctx, key("B", "energy"), mape(3.0)), ShouldBeNil)

		res, err := agg.Finalize(ctx)
		So(err, ShouldBeNil)

		Convey("Then each dataset names its lowest-MAPE vendor", func() {
			So(res.RankingMetric, ShouldEqual, model.MetricMAPE)
			So(res.Summary["retail"].BestVendor, ShouldEqual, "B")
			So(res.Summary["retail"].BestScore.Rounded(), ShouldEqual, 2.5)
			So(res.Summary["energy"].BestVendor, ShouldEqual, "A")
			So(res.Summary["retail"].Ranking, ShouldHaveLength, 2)
			So(res.Summary["retail"].Ranking[1].Rank, ShouldEqual, 2)
		})

		Convey("Then the overall winner has the lowest average", func() {
			// A: (4.06+1)/2 = 2.53, B: (2.5+3)/2 = 2.75
			So(res.OverallBest.Vendor, ShouldEqual, "A")
			So(res.OverallBest.AvgScore.Rounded(), ShouldEqual, 2.53)
			So(res.OverallBest.Datasets, ShouldEqual, 2)
			So(res.Overall[0].Rank, ShouldEqual, 1)
			So(res.Overall[1].Vendor, ShouldEqual, "B")
		})

		Convey("Then nothing is missing or failed", func() {
			So(res.Missing, ShouldBeEmpty)
			So(res.Failures, ShouldBeEmpty)
			So(res.VendorOrder, ShouldResemble, []string{"A", "B"})
			So(res.DatasetOrder, ShouldResemble, []string{"retail", "energy"})
		})
	})

	Convey("Given a vendor without a file for one dataset", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A", "B"}),
			ranking.WithDatasetOrder([]string{"d1", "d2"}),
		)
		_ = agg.Add(ctx, key("A", "d1"), mape(5))
		_ = agg.Add(ctx, key("A", "d2"), mape(5))
		_ = agg.Add(ctx, key("B", "d1"), mape(1))
		agg.Fail(ctx, key("B", "d2"), fmt.Errorf("open: %w", model.ErrSourceNotFound))

		res, err := agg.Finalize(ctx)
		So(err, ShouldBeNil)

		Convey("Then the pair is missing and the average covers one dataset", func() {
			So(res.Missing, ShouldResemble, []model.PairKey{key("B", "d2")})
			So(res.Failures, ShouldBeEmpty)
			So(res.Summary["d2"].BestVendor, ShouldEqual, "A")
			So(res.OverallBest.Vendor, ShouldEqual, "B")
			So(res.OverallBest.Datasets, ShouldEqual, 1)
			_, ok := res.Record("B", "d2")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a pair that was never reported", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A", "B"}),
			ranking.WithDatasetOrder([]string{"d1"}),
		)
		_ = agg.Add(ctx, key("A", "d1"), mape(1))

		res, _ := agg.Finalize(ctx)

		Convey("Then it still shows up as missing", func() {
			So(res.Missing, ShouldResemble, []model.PairKey{key("B", "d1")})
			So(res.Vendors, ShouldContainKey, "B")
			So(res.Vendors["B"], ShouldBeEmpty)
		})
	})

	Convey("Given tied scores", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"B", "A", "C"}),
			ranking.WithDatasetOrder([]string{"d"}),
		)
		_ = agg.Add(ctx, key("A", "d"), mape(2.0))
		_ = agg.Add(ctx, key("B", "d"), mape(2.0+1e-12))
		_ = agg.Add(ctx, key("C", "d"), mape(3.0))

		res, _ := agg.Finalize(ctx)
		rows := res.Summary["d"].Ranking

		Convey("Then the earlier configured vendor wins and ranks are shared", func() {
			So(res.Summary["d"].BestVendor, ShouldEqual, "B")
			So(rows[0].Vendor, ShouldEqual, "B")
			So(rows[1].Vendor, ShouldEqual, "A")
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].Rank, ShouldEqual, 1)
			So(rows[2].Rank, ShouldEqual, 2)
		})
	})

	Convey("Given a vendor whose ranking metric is always undefined", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A", "Z"}),
			ranking.WithDatasetOrder([]string{"d"}),
		)
		_ = agg.Add(ctx, key("A", "d"), mape(7))
		_ = agg.Add(ctx, key("Z", "d"), model.MetricRecord{MAE: model.Defined(1), MAPE: model.Undefined(), RecordCount: 3})

		res, _ := agg.Finalize(ctx)

		Convey("Then it keeps its record but is left out of rankings", func() {
			So(res.Vendors["Z"], ShouldContainKey, "d")
			So(res.Summary["d"].Ranking, ShouldHaveLength, 1)
			So(res.Overall, ShouldHaveLength, 1)
			So(res.Overall[0].Vendor, ShouldEqual, "A")
		})
	})

	Convey("Given a dataset no vendor could be ranked on", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A"}),
			ranking.WithDatasetOrder([]string{"d"}),
		)
		agg.Fail(ctx, key("A", "d"), fmt.Errorf("align: %w", model.ErrMisalignedSeries))

		res, _ := agg.Finalize(ctx)

		Convey("Then the summary has no best vendor and the overall best is empty", func() {
			So(res.Summary, ShouldContainKey, "d")
			So(res.Summary["d"].BestVendor, ShouldEqual, "")
			So(res.Summary["d"].BestScore.IsDefined(), ShouldBeFalse)
			So(res.OverallBest.Vendor, ShouldEqual, "")
			So(res.OverallBest.AvgScore.IsDefined(), ShouldBeFalse)
			So(res.Failures, ShouldHaveLength, 1)
			So(res.Failures[0].Kind, ShouldEqual, model.FailureMisaligned)
			So(res.Missing, ShouldBeEmpty)
		})
	})

	Convey("Given an empty aggregator", t, func() {
		res, err := ranking.NewAggregator(repository.NewMemoryStore()).Finalize(ctx)

		Convey("Then the result is well formed and empty", func() {
			So(err, ShouldBeNil)
			So(res.Vendors, ShouldBeEmpty)
			So(res.Summary, ShouldBeEmpty)
			So(res.Overall, ShouldBeEmpty)
			So(res.OverallBest.Vendor, ShouldEqual, "")
		})
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ranking.NewAggregator(repository.NewMemoryStore()).Finalize(cctx)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestAggregator_LatestOutcomeWins(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pair reported twice", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(), ranking.WithVendorOrder([]string{"A"}))
		_ = agg.Add(ctx, key("A", "d"), mape(9))
		_ = agg.Add(ctx, key("A", "d"), mape(1))

		res, _ := agg.Finalize(ctx)
		So(res.Summary["d"].BestScore.Rounded(), ShouldEqual, 1)
	})

	Convey("Given a failure followed by a success", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore())
		agg.Fail(ctx, key("A", "d"), errors.New("boom"))
		_ = agg.Add(ctx, key("A", "d"), mape(3))

		res, _ := agg.Finalize(ctx)
		So(res.Failures, ShouldBeEmpty)
		So(res.Summary["d"].BestVendor, ShouldEqual, "A")
	})

	Convey("Given a success followed by a failure", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore())
		_ = agg.Add(ctx, key("A", "d"), mape(3))
		agg.Fail(ctx, key("A", "d"), fmt.Errorf("read: %w", model.ErrUnreadableSource))

		res, _ := agg.Finalize(ctx)
		So(res.Failures, ShouldHaveLength, 1)
		So(res.Failures[0].Kind, ShouldEqual, model.FailureUnreadable)
		_, ok := res.Record("A", "d")
		So(ok, ShouldBeFalse)
	})

	Convey("Given an invalid key", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore())
		err := agg.Add(ctx, key("", "d"), mape(1))
		So(errors.Is(err, repository.ErrInvalidKey), ShouldBeTrue)
	})
}

func TestAggregator_Determinism(t *testing.T) {
	ctx := context.Background()
	pairs := []struct {
		k model.PairKey
		v float64
	}{
		{key("A", "x"), 3}, {key("B", "x"), 3}, {key("C", "x"), 1},
		{key("A", "y"), 2}, {key("B", "y"), 5}, {key("C", "y"), 2},
	}

	build := func(order []int) *model.BenchmarkResult {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithVendorOrder([]string{"A", "B", "C"}),
			ranking.WithDatasetOrder([]string{"x", "y"}),
		)
		for _, i := range order {
			_ = agg.Add(ctx, pairs[i].k, mape(pairs[i].v))
		}
		res, err := agg.Finalize(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	Convey("Given the same records added in different orders", t, func() {
		first := build([]int{0, 1, 2, 3, 4, 5})
		second := build([]int{5, 3, 1, 4, 0, 2})

		Convey("Then the results are identical", func() {
			So(second.Summary, ShouldResemble, first.Summary)
			So(second.Overall, ShouldResemble, first.Overall)
			So(second.OverallBest, ShouldResemble, first.OverallBest)
			So(first.Summary["x"].BestVendor, ShouldEqual, "C")
			So(first.Summary["y"].BestVendor, ShouldEqual, "A")
		})
	})
}

func TestWithRankingMetric(t *testing.T) {
	ctx := context.Background()

	Convey("Given a higher-is-better metric as ranking metric", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(), ranking.WithRankingMetric(model.MetricTurningPointF1))
		So(agg.RankingMetric(), ShouldEqual, model.MetricMAPE)
	})

	Convey("Given RMSE as ranking metric", t, func() {
		agg := ranking.NewAggregator(repository.NewMemoryStore(),
			ranking.WithRankingMetric(model.MetricRMSE),
			ranking.WithVendorOrder([]string{"A", "B"}),
		)
		_ = agg.Add(ctx, key("A", "d"), model.MetricRecord{RMSE: model.Defined(5), MAPE: model.Defined(1)})
		_ = agg.Add(ctx, key("B", "d"), model.MetricRecord{RMSE: model.Defined(2), MAPE: model.Defined(9)})

		res, _ := agg.Finalize(ctx)
		So(res.RankingMetric, ShouldEqual, model.MetricRMSE)
		So(res.Summary["d"].BestVendor, ShouldEqual, "B")
	})
}
