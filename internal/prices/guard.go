package prices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardOptions tunes the outbound protection for one provider.
type GuardOptions struct {
	Name          string
	RatePerSecond float64 // <= 0 disables limiting
	Burst         int
	MaxFailures   uint32
	OpenTimeout   time.Duration
	HTTP          *http.Client
}

// Guard rate limits and circuit-breaks calls to one HTTP provider. It is
// safe for concurrent use.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	http    *http.Client
}

// NewGuard builds a Guard. Responses classified as ErrDataUnavailable do
// not count as breaker failures.
func NewGuard(opts GuardOptions) *Guard {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	openTimeout := opts.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	client := opts.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	st := gobreaker.Settings{
		Name:     opts.Name,
		Interval: 60 * time.Second,
		Timeout:  openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDataUnavailable) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &Guard{
		name:    opts.Name,
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		http:    client,
	}
}

// State reports the breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Do waits for the limiter, sends req through the breaker and returns the
// response body. A 404 maps to ErrDataUnavailable; other non-200 statuses
// are provider failures.
func (g *Guard) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline would pass before a token frees up
		if _, ok := ctx.Deadline(); ok && !errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("%w: %s rate limit: %v", ErrTimeout, g.name, err)
		}
		return nil, fmt.Errorf("%s rate limit: %w", g.name, err)
	}

	body, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.http.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return b, nil
		case resp.StatusCode == http.StatusNotFound:
			return b, fmt.Errorf("%w: %s http %d", ErrDataUnavailable, g.name, resp.StatusCode)
		default:
			return nil, fmt.Errorf("%s http %d: %s", g.name, resp.StatusCode, snippet(b))
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s provider unavailable: %v", ErrDataUnavailable, g.name, err)
	}
	if err != nil {
		var b []byte
		if body != nil {
			b = body.([]byte)
		}
		return b, timeoutErr(ctx, err)
	}
	return body.([]byte), nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
