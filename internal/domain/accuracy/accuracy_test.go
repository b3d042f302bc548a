package accuracy_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/forecastbench/internal/domain/accuracy"
	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func build(actual, forecast []float64) model.Series {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, len(actual))
	for i := range ts {
		ts[i] = t0.AddDate(0, 0, i)
	}
	s, err := series.NewAligner().Align(ts, actual, forecast)
	if err != nil {
		panic(err)
	}
	return s
}

func val(v model.Value) float64 {
	f, ok := v.Float()
	if !ok {
		return math.NaN()
	}
	return f
}

func TestMetrics_ReferenceScenario(t *testing.T) {
	Convey("Given five points of actuals and forecasts", t, func() {
		s := build(
			[]float64{100, 110, 90, 120, 80},
			[]float64{105, 108, 95, 118, 85},
		)

		Convey("Then the error magnitudes follow their formulas", func() {
			So(val(accuracy.MAE(s)), ShouldAlmostEqual, 3.8, eps)
			So(val(accuracy.RMSE(s)), ShouldAlmostEqual, math.Sqrt(16.6), eps)
			So(val(accuracy.Bias(s)), ShouldAlmostEqual, 2.2, eps)
			So(val(accuracy.WAPE(s)), ShouldAlmostEqual, 3.8, eps)
		})

		Convey("Then percentage errors use per-point denominators", func() {
			mape := (5.0/100 + 2.0/110 + 5.0/90 + 2.0/120 + 5.0/80) / 5 * 100
			So(val(accuracy.MAPE(s)), ShouldAlmostEqual, mape, eps)
			So(accuracy.MAPE(s).Rounded(), ShouldEqual, 4.06)

			smape := (10.0/205 + 4.0/218 + 10.0/185 + 4.0/238 + 10.0/165) / 5 * 100
			So(val(accuracy.SMAPE(s)), ShouldAlmostEqual, smape, eps)
		})

		Convey("Then the tracking signal is cumulative error over MAD", func() {
			So(val(accuracy.TrackingSignal(s)), ShouldAlmostEqual, 11/3.8, eps)
		})

		Convey("Then CRPS widens MAE by the residual spread", func() {
			sd := math.Sqrt(11.76)
			So(val(accuracy.CRPS(s)), ShouldAlmostEqual, 3.8*(1+sd/3.8), eps)
			So(val(accuracy.CRPS(s)), ShouldAlmostEqual, 3.8+sd, eps)
		})

		Convey("Then no residual is anomalous at |z| > 3", func() {
			So(val(accuracy.AnomalyPct(s, accuracy.DefaultAnomalyThreshold)), ShouldEqual, 0)
		})

		Convey("Then drift compares the first two actuals with the last three", func() {
			So(val(accuracy.Drift(s)), ShouldAlmostEqual, 2.0/3.0, eps)
		})

		Convey("Then both series turn at indices 1, 2 and 3", func() {
			So(accuracy.TurningPoints(s.Actuals()), ShouldResemble, []int{1, 2, 3})
			So(accuracy.TurningPoints(s.Forecasts()), ShouldResemble, []int{1, 2, 3})
			So(val(accuracy.TurningPointF1(s)), ShouldEqual, 1)
		})

		Convey("Then RMSE is never below MAE", func() {
			So(val(accuracy.RMSE(s)), ShouldBeGreaterThanOrEqualTo, val(accuracy.MAE(s)))
		})
	})
}

func TestMetrics_PerfectForecast(t *testing.T) {
	Convey("Given a forecast equal to the actuals", t, func() {
		x := []float64{10, 12, 9, 14, 11, 15}
		s := build(x, x)

		Convey("Then every error metric is zero", func() {
			So(val(accuracy.MAE(s)), ShouldEqual, 0)
			So(val(accuracy.RMSE(s)), ShouldEqual, 0)
			So(val(accuracy.Bias(s)), ShouldEqual, 0)
			So(val(accuracy.MAPE(s)), ShouldEqual, 0)
			So(val(accuracy.WAPE(s)), ShouldEqual, 0)
			So(val(accuracy.SMAPE(s)), ShouldEqual, 0)
			So(val(accuracy.CRPS(s)), ShouldEqual, 0)
			So(val(accuracy.AnomalyPct(s, 3)), ShouldEqual, 0)
		})

		Convey("Then turning points match exactly", func() {
			So(val(accuracy.TurningPointF1(s)), ShouldEqual, 1)
		})

		Convey("Then the tracking signal has no deviation to scale by", func() {
			So(accuracy.TrackingSignal(s).IsDefined(), ShouldBeFalse)
		})
	})

	Convey("Given a perfect forecast of a monotone series", t, func() {
		x := []float64{1, 2, 3, 4}
		s := build(x, x)

		Convey("Then TP-F1 is undefined rather than zero", func() {
			So(accuracy.TurningPointF1(s).IsDefined(), ShouldBeFalse)
		})
	})
}

func TestMetrics_ZeroActuals(t *testing.T) {
	Convey("Given actuals that contain zeros", t, func() {
		s := build([]float64{0, 50, 0, 100}, []float64{5, 40, 0, 110})

		Convey("Then MAPE skips the zero points", func() {
			So(val(accuracy.MAPE(s)), ShouldAlmostEqual, (10.0/50+10.0/100)/2*100, eps)
		})

		Convey("Then SMAPE skips only points where both sides are zero", func() {
			smape := (2.0 + 20.0/90 + 20.0/210) / 3 * 100
			So(val(accuracy.SMAPE(s)), ShouldAlmostEqual, smape, eps)
		})

		Convey("Then WAPE still uses the full totals", func() {
			So(val(accuracy.WAPE(s)), ShouldAlmostEqual, 25.0/150*100, eps)
		})
	})

	Convey("Given all-zero actuals", t, func() {
		s := build([]float64{0, 0, 0}, []float64{0, 0, 0})

		Convey("Then the percentage metrics are undefined", func() {
			So(accuracy.MAPE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.WAPE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.SMAPE(s).IsDefined(), ShouldBeFalse)
		})

		Convey("Then absolute metrics are still defined", func() {
			So(val(accuracy.MAE(s)), ShouldEqual, 0)
			So(val(accuracy.RMSE(s)), ShouldEqual, 0)
		})
	})
}

func TestMetrics_ShortSeries(t *testing.T) {
	Convey("Given a single point", t, func() {
		s := build([]float64{100}, []float64{90})

		Convey("Then differencing metrics are undefined", func() {
			So(accuracy.TrackingSignal(s).IsDefined(), ShouldBeFalse)
			So(accuracy.Drift(s).IsDefined(), ShouldBeFalse)
			So(accuracy.TurningPointF1(s).IsDefined(), ShouldBeFalse)
		})

		Convey("Then pointwise metrics are defined", func() {
			So(val(accuracy.MAE(s)), ShouldEqual, 10)
			So(val(accuracy.MAPE(s)), ShouldAlmostEqual, 10, eps)
		})
	})

	Convey("Given two points", t, func() {
		s := build([]float64{100, 120}, []float64{90, 130})

		Convey("Then drift is zero", func() {
			So(val(accuracy.Drift(s)), ShouldEqual, 0)
		})

		Convey("Then the tracking signal is defined", func() {
			So(val(accuracy.TrackingSignal(s)), ShouldAlmostEqual, 0, eps)
		})
	})

	Convey("Given an empty series", t, func() {
		s := model.NewSeries(nil)

		Convey("Then every metric is undefined", func() {
			So(accuracy.MAE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.RMSE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.Bias(s).IsDefined(), ShouldBeFalse)
			So(accuracy.MAPE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.WAPE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.SMAPE(s).IsDefined(), ShouldBeFalse)
			So(accuracy.CRPS(s).IsDefined(), ShouldBeFalse)
			So(accuracy.AnomalyPct(s, 3).IsDefined(), ShouldBeFalse)
		})
	})
}

func TestMetrics_Anomalies(t *testing.T) {
	Convey("Given one large residual among many small ones", t, func() {
		actual := make([]float64, 20)
		forecast := make([]float64, 20)
		for i := range actual {
			actual[i] = 100
			forecast[i] = 100 + float64(i%2)
		}
		forecast[10] = 200
		s := build(actual, forecast)

		Convey("Then it is the only anomaly", func() {
			So(val(accuracy.AnomalyPct(s, 3)), ShouldAlmostEqual, 5, eps)
		})

		Convey("Then a looser threshold finds none", func() {
			So(val(accuracy.AnomalyPct(s, 10)), ShouldEqual, 0)
		})
	})
}

func TestTurningPoints(t *testing.T) {
	Convey("Given series with plateaus", t, func() {
		So(accuracy.TurningPoints([]float64{1, 2, 2, 1}), ShouldResemble, []int{1, 2})
		So(accuracy.TurningPoints([]float64{1, 1, 2, 1}), ShouldResemble, []int{1, 2})
		So(accuracy.TurningPoints([]float64{1, 3, 2, 2, 4}), ShouldResemble, []int{1, 2, 3})
		So(accuracy.TurningPoints([]float64{4, 4, 4, 4}), ShouldBeEmpty)
		So(accuracy.TurningPoints([]float64{5}), ShouldBeEmpty)
		So(accuracy.TurningPoints(nil), ShouldBeEmpty)
	})

	Convey("Given a flat-topped actual peak the forecast only partly matches", t, func() {
		// actual turns at 1, 2 and 3; forecast at 1 and 3
		s := build([]float64{1, 3, 3, 1, 2}, []float64{1, 3, 2, 1, 2})

		Convey("Then the plateau edges count as turning points", func() {
			So(val(accuracy.TurningPointF1(s)), ShouldAlmostEqual, 0.8, eps)
		})
	})

	Convey("Given partial agreement between forecast and actual", t, func() {
		// actual turns at 1 and 2, forecast only at 1 and 3
		s := build([]float64{1, 3, 1, 2, 3}, []float64{1, 3, 2, 1, 2})

		Convey("Then F1 balances precision and recall", func() {
			So(val(accuracy.TurningPointF1(s)), ShouldAlmostEqual, 0.5, eps)
		})
	})

	Convey("Given a forecast without turns against a turning actual", t, func() {
		s := build([]float64{1, 3, 1}, []float64{1, 2, 3})
		So(val(accuracy.TurningPointF1(s)), ShouldEqual, 0)
	})

	Convey("Given random series", t, func() {
		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 50; trial++ {
			x := make([]float64, 30)
			y := make([]float64, 30)
			for i := range x {
				x[i] = rng.Float64()*100 - 50
				y[i] = x[i] + rng.NormFloat64()*5
			}

			scaled := make([]float64, len(x))
			for i, v := range x {
				scaled[i] = 2.5*v + 7
			}
			So(accuracy.TurningPoints(scaled), ShouldResemble, accuracy.TurningPoints(x))

			s := build(x, y)
			So(val(accuracy.RMSE(s)), ShouldBeGreaterThanOrEqualTo, val(accuracy.MAE(s)))
			So(val(accuracy.SMAPE(s)), ShouldBeGreaterThanOrEqualTo, 0)
			So(val(accuracy.WAPE(s)), ShouldBeGreaterThanOrEqualTo, 0)
			d := val(accuracy.Drift(s))
			So(d, ShouldBeBetweenOrEqual, 0, 1)
		}
	})
}

func TestKolmogorovSmirnov(t *testing.T) {
	Convey("Given two samples", t, func() {
		So(accuracy.KolmogorovSmirnov([]float64{1, 2, 3}, []float64{1, 2, 3}), ShouldEqual, 0)
		So(accuracy.KolmogorovSmirnov([]float64{1, 2}, []float64{3, 4}), ShouldEqual, 1)
		So(accuracy.KolmogorovSmirnov(nil, []float64{1}), ShouldEqual, 0)
	})
}

func TestStats(t *testing.T) {
	Convey("Given population statistics", t, func() {
		So(accuracy.Mean(nil), ShouldEqual, 0)
		So(accuracy.Mean([]float64{1, 2, 3}), ShouldEqual, 2)
		So(accuracy.Variance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), ShouldEqual, 4)
		So(accuracy.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), ShouldEqual, 2)
		So(accuracy.MeanAbs([]float64{-2, 2}), ShouldEqual, 2)
	})
}
