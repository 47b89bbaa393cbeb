package market

import (
	"encoding/json"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// VolPoint is a volatility estimate for Date. Value is NaN while the
// estimator has no usable history yet.
type VolPoint struct {
	Date  time.Time
	Value float64
}

// Defined reports whether the point carries an estimate.
func (v VolPoint) Defined() bool {
	return !math.IsNaN(v.Value)
}

// MarshalJSON writes undefined values as null.
func (v VolPoint) MarshalJSON() ([]byte, error) {
	var value *float64
	if v.Defined() {
		value = &v.Value
	}
	return json.Marshal(struct {
		Date  time.Time `json:"date"`
		Value *float64  `json:"value"`
	}{v.Date, value})
}

// UnmarshalJSON reads null values back as NaN.
func (v *VolPoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date  time.Time `json:"date"`
		Value *float64  `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.Date = raw.Date
	v.Value = nan()
	if raw.Value != nil {
		v.Value = *raw.Value
	}
	return nil
}

// VolatilitySeries is a date-aligned volatility path.
type VolatilitySeries []VolPoint

// Defined reports whether index i carries an estimate.
func (vs VolatilitySeries) Defined(i int) bool {
	return i >= 0 && i < len(vs) && vs[i].Defined()
}

// DefinedCount is the number of points with an estimate.
func (vs VolatilitySeries) DefinedCount() int {
	n := 0
	for _, v := range vs {
		if v.Defined() {
			n++
		}
	}
	return n
}

// DefinedValues returns only the defined values, in order.
func (vs VolatilitySeries) DefinedValues() []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v.Defined() {
			out = append(out, v.Value)
		}
	}
	return out
}

// Last returns the most recent defined point.
func (vs VolatilitySeries) Last() (VolPoint, bool) {
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i].Defined() {
			return vs[i], true
		}
	}
	return VolPoint{}, false
}

// Mean averages the defined values; NaN when none are defined.
func (vs VolatilitySeries) Mean() float64 {
	vals := vs.DefinedValues()
	if len(vals) == 0 {
		return nan()
	}
	return stat.Mean(vals, nil)
}

// Scale returns a copy with every defined value multiplied by k.
func (vs VolatilitySeries) Scale(k float64) VolatilitySeries {
	out := make(VolatilitySeries, len(vs))
	for i, v := range vs {
		out[i] = VolPoint{Date: v.Date, Value: v.Value * k}
	}
	return out
}

func nan() float64 { return math.NaN() }
