// Package accuracy implements the forecast accuracy metrics. Every function
// is pure: it reads an aligned series and returns one value, or
// model.Undefined when the metric does not apply to that series.
package accuracy

import (
	"math"

	"github.com/okian/forecastbench/internal/domain/model"
)

const (
	percent = 100.0

	// DefaultAnomalyThreshold is the |z| above which a residual is anomalous.
	DefaultAnomalyThreshold = 3.0

	// minDriftPoints is the shortest series whose halves are compared.
	minDriftPoints = 4
)

// MAE is the mean absolute error.
func MAE(s model.Series) model.Value {
	if s.Len() == 0 {
		return model.Undefined()
	}
	return model.Defined(MeanAbs(s.Residuals()))
}

// RMSE is the root mean squared error.
func RMSE(s model.Series) model.Value {
	if s.Len() == 0 {
		return model.Undefined()
	}
	sum := 0.0
	for _, r := range s.Residuals() {
		sum += r * r
	}
	return model.Defined(math.Sqrt(sum / float64(s.Len())))
}

// Bias is the mean signed error, forecast minus actual. Positive means the
// vendor over-forecasts.
func Bias(s model.Series) model.Value {
	if s.Len() == 0 {
		return model.Undefined()
	}
	return model.Defined(Mean(s.Errors()))
}

// MAPE is the mean absolute percentage error over points whose actual is
// not flagged as zero.
func MAPE(s model.Series) model.Value {
	sum, n := 0.0, 0
	for _, p := range s.Points() {
		if p.ZeroActual {
			continue
		}
		sum += math.Abs(p.Actual-p.Forecast) / math.Abs(p.Actual)
		n++
	}
	if n == 0 {
		return model.Undefined()
	}
	return model.Defined(sum / float64(n) * percent)
}

// WAPE is total absolute error over total absolute actual.
func WAPE(s model.Series) model.Value {
	num, den := 0.0, 0.0
	for _, p := range s.Points() {
		num += math.Abs(p.Actual - p.Forecast)
		den += math.Abs(p.Actual)
	}
	if den == 0 {
		return model.Undefined()
	}
	return model.Defined(num / den * percent)
}

// SMAPE is the symmetric mean absolute percentage error. Points where both
// actual and forecast are zero carry no information and are skipped.
func SMAPE(s model.Series) model.Value {
	sum, n := 0.0, 0
	for _, p := range s.Points() {
		den := math.Abs(p.Actual) + math.Abs(p.Forecast)
		if den == 0 {
			continue
		}
		sum += 2 * math.Abs(p.Actual-p.Forecast) / den
		n++
	}
	if n == 0 {
		return model.Undefined()
	}
	return model.Defined(sum / float64(n) * percent)
}

// TrackingSignal is the cumulative error divided by the mean absolute
// deviation at the final point.
func TrackingSignal(s model.Series) model.Value {
	if s.Len() < 2 {
		return model.Undefined()
	}
	errs := s.Errors()
	mad := MeanAbs(errs)
	if mad == 0 {
		return model.Undefined()
	}
	cum := 0.0
	for _, e := range errs {
		cum += e
	}
	return model.Defined(cum / mad)
}

// CRPS approximates the continuous ranked probability score of a point
// forecast as MAE scaled by one plus the coefficient of variation of the
// residuals. The coefficient is taken against the mean absolute residual so
// that it stays finite for residuals centred on zero. This differs from the
// textbook sd/mean and reduces the score to MAE + sd.
func CRPS(s model.Series) model.Value {
	if s.Len() == 0 {
		return model.Undefined()
	}
	res := s.Residuals()
	mae := MeanAbs(res)
	sd := StdDev(res)
	if sd == 0 || mae == 0 {
		return model.Defined(mae)
	}
	return model.Defined(mae * (1 + sd/mae))
}

// AnomalyPct is the share of residuals whose z-score magnitude exceeds
// threshold, as a percentage. A constant residual series has no anomalies.
func AnomalyPct(s model.Series, threshold float64) model.Value {
	if s.Len() == 0 {
		return model.Undefined()
	}
	res := s.Residuals()
	mean, sd := Mean(res), StdDev(res)
	if sd == 0 {
		return model.Defined(0)
	}
	count := 0
	for _, r := range res {
		if math.Abs((r-mean)/sd) > threshold {
			count++
		}
	}
	return model.Defined(float64(count) / float64(len(res)) * percent)
}

// Drift compares the distribution of actuals in the first half of the
// series with the second half using the two-sample KS statistic.
func Drift(s model.Series) model.Value {
	n := s.Len()
	if n < 2 {
		return model.Undefined()
	}
	if n < minDriftPoints {
		return model.Defined(0)
	}
	act := s.Actuals()
	return model.Defined(KolmogorovSmirnov(act[:n/2], act[n/2:]))
}

// TurningPointF1 scores how well forecast turning points match actual
// turning points by exact index.
func TurningPointF1(s model.Series) model.Value {
	truth := TurningPoints(s.Actuals())
	pred := TurningPoints(s.Forecasts())
	switch {
	case len(truth) == 0 && len(pred) == 0:
		return model.Undefined()
	case len(truth) == 0 || len(pred) == 0:
		return model.Defined(0)
	}

	want := make(map[int]struct{}, len(truth))
	for _, i := range truth {
		want[i] = struct{}{}
	}
	hits := 0
	for _, i := range pred {
		if _, ok := want[i]; ok {
			hits++
		}
	}
	if hits == 0 {
		return model.Defined(0)
	}
	precision := float64(hits) / float64(len(pred))
	recall := float64(hits) / float64(len(truth))
	return model.Defined(2 * precision * recall / (precision + recall))
}

// TurningPoints returns the 0-based indices i, with a neighbour on each
// side, where the sign of the step into x[i] differs from the sign of the
// step out of it. Entering or leaving a flat step counts as a turn, so a
// flat-topped peak turns at both ends of the plateau.
func TurningPoints(x []float64) []int {
	var out []int
	for i := 1; i+1 < len(x); i++ {
		before := sign(x[i] - x[i-1])
		after := sign(x[i+1] - x[i])
		if before != after {
			out = append(out, i)
		}
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
