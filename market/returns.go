package market

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// ReturnPoint is the simple return realized on Date relative to the
// previous close.
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is aligned to the later price of each pair; the first price
// date never appears.
type ReturnSeries []ReturnPoint

// Values returns the raw returns in order.
func (rs ReturnSeries) Values() []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Return
	}
	return out
}

// Dates returns the dates in order.
func (rs ReturnSeries) Dates() []time.Time {
	out := make([]time.Time, len(rs))
	for i, r := range rs {
		out[i] = r.Date
	}
	return out
}

// Mean is the arithmetic mean of the returns, NaN when empty.
func (rs ReturnSeries) Mean() float64 {
	if len(rs) == 0 {
		return nan()
	}
	return stat.Mean(rs.Values(), nil)
}

// Last returns the most recent return.
func (rs ReturnSeries) Last() (ReturnPoint, bool) {
	if len(rs) == 0 {
		return ReturnPoint{}, false
	}
	return rs[len(rs)-1], true
}
