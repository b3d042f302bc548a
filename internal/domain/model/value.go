package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// reportPrecision is the number of decimals kept when a value leaves the engine.
const reportPrecision = 100

// Value is a metric result that is either a finite number or not applicable.
// The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps a number. NaN and infinities collapse to Undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Undefined returns the not-applicable sentinel.
func Undefined() Value { return Value{} }

// IsDefined reports whether the value carries a number.
func (x Value) IsDefined() bool { return x.ok }

// Float returns the raw number and whether it is defined.
func (x Value) Float() (float64, bool) { return x.v, x.ok }

// Rounded returns the number rounded to two decimals. Undefined yields 0.
func (x Value) Rounded() float64 {
	if !x.ok {
		return 0
	}
	r := math.Round(x.v*reportPrecision) / reportPrecision
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// String renders the value for tables.
func (x Value) String() string {
	if !x.ok {
		return "N/A"
	}
	return strconv.FormatFloat(x.Rounded(), 'f', 2, 64)
}

// MarshalJSON encodes undefined values as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(x.Rounded(), 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null.
func (x *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*x = Undefined()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("metric value %q: %w", b, err)
	}
	*x = Defined(f)
	return nil
}

// MarshalYAML encodes undefined values as null.
func (x Value) MarshalYAML() (interface{}, error) {
	if !x.ok {
		return nil, nil
	}
	return x.Rounded(), nil
}

// UnmarshalYAML accepts a number or null.
func (x *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.ShortTag() == "!!null" {
		*x = Undefined()
		return nil
	}
	var f float64
	if err := node.Decode(&f); err != nil {
		return fmt.Errorf("metric value: %w", err)
	}
	*x = Defined(f)
	return nil
}
