package prices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/volatility/internal/config"
	"github.com/rustyeddy/volatility/market"
)

var (
	// ErrDataUnavailable means the provider has no prices for the ticker and range.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrTimeout means the provider did not answer before the deadline.
	ErrTimeout = errors.New("price retrieval timed out")
)

// Source fetches daily adjusted closes for a ticker over [start, end],
// both days inclusive.
type Source interface {
	Name() string
	Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error)
}

// New builds the Source named by cfg.Name.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Name {
	case "yahoo", "tradier":
		openTimeout, err := cfg.OpenTimeout()
		if err != nil {
			return nil, fmt.Errorf("breaker timeout: %w", err)
		}
		guard := NewGuard(GuardOptions{
			Name:          cfg.Name,
			RatePerSecond: cfg.RateLimit,
			Burst:         cfg.Burst,
			MaxFailures:   uint32(cfg.BreakerFailures),
			OpenTimeout:   openTimeout,
			HTTP:          &http.Client{},
		})
		if cfg.Name == "yahoo" {
			return &Yahoo{BaseURL: cfg.YahooURL, Guard: guard}, nil
		}
		return &Tradier{BaseURL: cfg.TradierURL, Token: cfg.TradierKey, Guard: guard}, nil
	case "csv":
		return &CSVDir{Dir: cfg.CSVDir}, nil
	case "sqlite":
		return OpenSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.Name)
	}
}

func checkRequest(ticker string, start, end time.Time) error {
	if strings.TrimSpace(ticker) == "" {
		return fmt.Errorf("%w: empty ticker", ErrDataUnavailable)
	}
	if !start.IsZero() && !end.IsZero() && market.Day(end).Before(market.Day(start)) {
		return fmt.Errorf("%w: end %s before start %s", ErrDataUnavailable,
			market.FormatDate(end), market.FormatDate(start))
	}
	return nil
}

// finish sorts by date, keeps the last close for a repeated date, drops
// unusable closes, clips to [start, end] and validates.
func finish(ticker string, series market.PriceSeries, start, end time.Time) (market.PriceSeries, error) {
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	out := make(market.PriceSeries, 0, len(series))
	for _, p := range series {
		if !(p.Close > 0) {
			continue
		}
		p.Date = market.Day(p.Date)
		if !market.InRange(p.Date, start, end) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no prices for %s between %s and %s", ErrDataUnavailable,
			ticker, market.FormatDate(start), market.FormatDate(end))
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	return out, nil
}

// timeoutErr maps a context deadline onto ErrTimeout.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
