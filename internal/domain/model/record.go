package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MetricName identifies a metric in reports. The strings are part of the
// output contract and must not change.
type MetricName string

// Metric names.
const (
	MetricMAE            MetricName = "MAE"
	MetricMAPE           MetricName = "MAPE"
	MetricWAPE           MetricName = "WAPE"
	MetricRMSE           MetricName = "RMSE"
	MetricBias           MetricName = "Bias"
	MetricSMAPE          MetricName = "SMAPE"
	MetricCRPS           MetricName = "CRPS"
	MetricAnomalyPct     MetricName = "Anomaly%"
	MetricDrift          MetricName = "Drift"
	MetricTurningPointF1 MetricName = "TP-F1"
	MetricTrackingSignal MetricName = "Tracking Signal"
)

// MetricNames lists every metric in report column order.
func MetricNames() []MetricName {
	return []MetricName{
		MetricMAE, MetricMAPE, MetricWAPE, MetricRMSE, MetricBias, MetricSMAPE,
		MetricCRPS, MetricAnomalyPct, MetricDrift, MetricTurningPointF1, MetricTrackingSignal,
	}
}

// LowerIsBetter reports whether the metric can rank vendors by its minimum.
func (n MetricName) LowerIsBetter() bool {
	switch n {
	case MetricMAE, MetricMAPE, MetricWAPE, MetricRMSE, MetricSMAPE, MetricCRPS:
		return true
	default:
		return false
	}
}

// ParseMetricName resolves a metric name case-insensitively.
func ParseMetricName(s string) (MetricName, error) {
	want := strings.TrimSpace(s)
	for _, n := range MetricNames() {
		if strings.EqualFold(string(n), want) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// MetricRecord holds every metric for one vendor/dataset pair.
type MetricRecord struct {
	MAE            Value
	RMSE           Value
	Bias           Value
	MAPE           Value
	WAPE           Value
	SMAPE          Value
	TrackingSignal Value
	CRPS           Value
	AnomalyPct     Value
	Drift          Value
	TurningPointF1 Value
	RecordCount    int
}

// Get returns the value for a metric name.
func (r MetricRecord) Get(name MetricName) (Value, bool) {
	p := r.field(name)
	if p == nil {
		return Undefined(), false
	}
	return *p, true
}

func (r *MetricRecord) field(name MetricName) *Value {
	switch name {
	case MetricMAE:
		return &r.MAE
	case MetricMAPE:
		return &r.MAPE
	case MetricWAPE:
		return &r.WAPE
	case MetricRMSE:
		return &r.RMSE
	case MetricBias:
		return &r.Bias
	case MetricSMAPE:
		return &r.SMAPE
	case MetricCRPS:
		return &r.CRPS
	case MetricAnomalyPct:
		return &r.AnomalyPct
	case MetricDrift:
		return &r.Drift
	case MetricTurningPointF1:
		return &r.TurningPointF1
	case MetricTrackingSignal:
		return &r.TrackingSignal
	default:
		return nil
	}
}

// Undefined returns the names of metrics that were not applicable.
func (r MetricRecord) Undefined() []MetricName {
	var out []MetricName
	for _, n := range MetricNames() {
		if v, _ := r.Get(n); !v.IsDefined() {
			out = append(out, n)
		}
	}
	return out
}

// recordWire is the serialized shape of a MetricRecord.
type recordWire struct {
	Metrics map[MetricName]Value `json:"metrics" yaml:"metrics"`
	Records int                  `json:"records" yaml:"records"`
}

func (r MetricRecord) wire() recordWire {
	m := make(map[MetricName]Value, len(MetricNames()))
	for _, n := range MetricNames() {
		v, _ := r.Get(n)
		m[n] = v
	}
	return recordWire{Metrics: m, Records: r.RecordCount}
}

func (r *MetricRecord) fromWire(w recordWire) error {
	*r = MetricRecord{RecordCount: w.Records}
	for name, v := range w.Metrics {
		p := r.field(name)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		*p = v
	}
	return nil
}

// MarshalJSON encodes the record as {"metrics": {...}, "records": n}.
func (r MetricRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (r *MetricRecord) UnmarshalJSON(b []byte) error {
	var w recordWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return r.fromWire(w)
}

// MarshalYAML encodes the record with the same shape as JSON.
func (r MetricRecord) MarshalYAML() (interface{}, error) {
	return r.wire(), nil
}
