package market

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is one daily adjusted close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered run of daily closes, oldest first.
type PriceSeries []PricePoint

// Validate checks that dates are strictly increasing and every close is a
// finite positive number.
func (ps PriceSeries) Validate() error {
	for i, p := range ps {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return fmt.Errorf("price at %s must be positive and finite, got %v", FormatDate(p.Date), p.Close)
		}
		if i > 0 && !ps[i-1].Date.Before(p.Date) {
			return fmt.Errorf("price dates must be strictly increasing: %s then %s",
				FormatDate(ps[i-1].Date), FormatDate(p.Date))
		}
	}
	return nil
}

// Closes returns the close values in order.
func (ps PriceSeries) Closes() []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Close
	}
	return out
}

// Between returns the points whose date falls in [start, end], both days
// inclusive. A zero start or end leaves that side open.
func (ps PriceSeries) Between(start, end time.Time) PriceSeries {
	out := make(PriceSeries, 0, len(ps))
	for _, p := range ps {
		if InRange(p.Date, start, end) {
			out = append(out, p)
		}
	}
	return out
}

// Scale returns a copy with every close multiplied by k.
func (ps PriceSeries) Scale(k float64) PriceSeries {
	out := make(PriceSeries, len(ps))
	for i, p := range ps {
		out[i] = PricePoint{Date: p.Date, Close: p.Close * k}
	}
	return out
}
