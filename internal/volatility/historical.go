package volatility

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rustyeddy/volatility/market"
)

const (
	// DefaultWindow is one trading month of daily returns.
	DefaultWindow = 22

	// TradingDaysPerYear annualizes daily dispersion.
	TradingDaysPerYear = 252
)

// Historical computes rolling annualized volatility. Entry i is the
// population standard deviation of returns[i-window:i], i.e. the window
// returns strictly before i, scaled by sqrt(252). Entries with fewer than
// window prior returns are NaN, so a series of length <= window is entirely
// undefined.
func Historical(returns market.ReturnSeries, window int) (market.VolatilitySeries, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidParameter, window)
	}

	out := make(market.VolatilitySeries, len(returns))
	for i, r := range returns {
		out[i] = market.VolPoint{Date: r.Date, Value: math.NaN()}
	}
	if len(returns) <= window {
		return out, nil
	}

	// std[j] covers values[j-window+1 : j+1], so the window ending just
	// before i is std[i-1]. The last return never enters any window.
	values := returns.Values()
	std := talib.StdDev(values[:len(values)-1], window, 1.0)
	annualize := math.Sqrt(TradingDaysPerYear)
	for i := window; i < len(out); i++ {
		out[i].Value = std[i-1] * annualize
	}
	return out, nil
}
