// Package model contains domain models passed between layers.
package model

import "time"

// Observation is one deserialized input row for a vendor/dataset pair.
type Observation struct {
	Date     time.Time
	Actual   float64
	Forecast float64
}

// TimePoint is one aligned step of a series.
type TimePoint struct {
	Timestamp time.Time
	Actual    float64
	Forecast  float64
	// ZeroActual marks points whose actual is within the zero tolerance.
	ZeroActual bool
}

// Series is an immutable, chronologically ordered sequence of TimePoints.
type Series struct {
	points []TimePoint
}

// NewSeries copies points into a Series. Ordering is the caller's concern;
// use the series aligner to build validated series from raw input.
func NewSeries(points []TimePoint) Series {
	cp := make([]TimePoint, len(points))
	copy(cp, points)
	return Series{points: cp}
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.points) }

// At returns the i-th point.
func (s Series) At(i int) TimePoint { return s.points[i] }

// Points returns a copy of the points.
func (s Series) Points() []TimePoint {
	cp := make([]TimePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Actuals returns the actual values in order.
func (s Series) Actuals() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Actual
	}
	return out
}

// Forecasts returns the forecast values in order.
func (s Series) Forecasts() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Forecast
	}
	return out
}

// Residuals returns actual minus forecast per point.
func (s Series) Residuals() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Actual - p.Forecast
	}
	return out
}

// Errors returns forecast minus actual per point.
func (s Series) Errors() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Forecast - p.Actual
	}
	return out
}
