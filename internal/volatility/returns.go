package volatility

import (
	"fmt"
	"math"

	"github.com/rustyeddy/volatility/market"
)

// Returns converts prices into simple returns (p[t]-p[t-1])/p[t-1], each
// aligned to the later price date. The result has len(prices)-1 entries.
func Returns(prices market.PriceSeries) (market.ReturnSeries, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices, got %d", ErrInsufficientData, len(prices))
	}

	out := make(market.ReturnSeries, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1].Close, prices[i].Close
		if !positive(prev) || !positive(cur) {
			return nil, fmt.Errorf("%w: price at %s is %v", ErrInvalidParameter,
				market.FormatDate(prices[i].Date), badPrice(prev, cur))
		}
		out = append(out, market.ReturnPoint{
			Date:   prices[i].Date,
			Return: (cur - prev) / prev,
		})
	}
	return out, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func badPrice(prev, cur float64) float64 {
	if !positive(prev) {
		return prev
	}
	return cur
}
