package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/volatility/internal/metrics"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/internal/volatility"
	"github.com/rustyeddy/volatility/market"
	"github.com/rustyeddy/volatility/pkg/id"
)

// Stage names reported in StageError.
const (
	StageRequest    = "request"
	StageRetrieval  = "retrieval"
	StageReturns    = "returns"
	StageHistorical = "historical volatility"
	StageModelFit   = "model fit"
)

// DefaultTicker is used when a request leaves the ticker blank.
const DefaultTicker = "PETR4.SA"

// DefaultFetchTimeout bounds price retrieval when Pipeline.FetchTimeout is zero.
const DefaultFetchTimeout = 30 * time.Second

// Request is one ticker and date range to analyse. Start and End are
// calendar days, both inclusive.
type Request struct {
	Ticker string
	Start  time.Time
	End    time.Time
	Window int
}

// DefaultRequest covers the year up to now.
func DefaultRequest(now time.Time) Request {
	end := market.Day(now)
	return Request{
		Ticker: DefaultTicker,
		Start:  end.AddDate(0, 0, -365),
		End:    end,
		Window: volatility.DefaultWindow,
	}
}

// Normalize fills defaults and checks the request.
func (r Request) Normalize(now time.Time) (Request, error) {
	def := DefaultRequest(now)
	r.Ticker = strings.TrimSpace(r.Ticker)
	if r.Ticker == "" {
		r.Ticker = def.Ticker
	}
	if r.End.IsZero() {
		r.End = def.End
	}
	if r.Start.IsZero() {
		r.Start = market.Day(r.End).AddDate(0, 0, -365)
	}
	if r.Window == 0 {
		r.Window = def.Window
	}
	r.Start, r.End = market.Day(r.Start), market.Day(r.End)

	if r.Window < 0 {
		return r, fmt.Errorf("%w: window must be positive, got %d", volatility.ErrInvalidParameter, r.Window)
	}
	if r.End.Before(r.Start) {
		return r, fmt.Errorf("%w: end %s is before start %s", volatility.ErrInvalidParameter,
			market.FormatDate(r.End), market.FormatDate(r.Start))
	}
	return r, nil
}

// Result is everything computed for one Request.
type Result struct {
	RunID      string
	Request    Request
	Source     string
	Prices     market.PriceSeries
	Returns    market.ReturnSeries
	MeanReturn float64
	Historical market.VolatilitySeries
	GARCH      *volatility.ModelFit
	Computed   time.Time
	Elapsed    time.Duration
}

// StageError names the stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline runs retrieval, returns and both estimators for one request.
// It holds no per-request state and is safe for concurrent use when its
// Source is.
type Pipeline struct {
	Source       prices.Source
	Fitter       volatility.Fitter
	FetchTimeout time.Duration
	Metrics      *metrics.Registry
	Log          *zerolog.Logger
	Now          func() time.Time
}

// New returns a Pipeline with a default GJR-GARCH fitter.
func New(src prices.Source) *Pipeline {
	return &Pipeline{
		Source:       src,
		Fitter:       volatility.GJRGARCH{},
		FetchTimeout: DefaultFetchTimeout,
	}
}

func (p *Pipeline) logger() *zerolog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return &log.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Compute runs the whole chain. Any failure is returned as a *StageError
// and no partial Result is produced.
func (p *Pipeline) Compute(ctx context.Context, req Request) (res *Result, err error) {
	began := p.now()
	runID := id.New()
	lg := p.logger().With().Str("run_id", runID).Logger()

	p.Metrics.RunStarted()
	defer func() {
		p.Metrics.RunFinished(err == nil)
		if err != nil {
			lg.Warn().Err(err).Msg("volatility run failed")
		}
	}()

	req, err = req.Normalize(began)
	if err != nil {
		return nil, &StageError{Stage: StageRequest, Err: err}
	}
	lg = lg.With().Str("ticker", req.Ticker).Logger()

	series, err := stage(p, lg, StageRetrieval, func() (market.PriceSeries, error) {
		return p.fetch(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	p.Metrics.ObservePrices(len(series))

	returns, err := stage(p, lg, StageReturns, func() (market.ReturnSeries, error) {
		return volatility.Returns(series)
	})
	if err != nil {
		return nil, err
	}

	hist, err := stage(p, lg, StageHistorical, func() (market.VolatilitySeries, error) {
		return volatility.Historical(returns, req.Window)
	})
	if err != nil {
		return nil, err
	}

	fitter := p.Fitter
	if fitter == nil {
		fitter = volatility.GJRGARCH{}
	}
	fit, err := stage(p, lg, StageModelFit, func() (*volatility.ModelFit, error) {
		return fitter.Fit(ctx, returns)
	})
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:      runID,
		Request:    req,
		Source:     p.Source.Name(),
		Prices:     series,
		Returns:    returns,
		MeanReturn: returns.Mean(),
		Historical: hist,
		GARCH:      fit,
		Computed:   p.now(),
	}
	res.Elapsed = res.Computed.Sub(began)

	lg.Info().
		Int("prices", len(series)).
		Float64("alpha", fit.Alpha).
		Float64("beta", fit.Beta).
		Dur("elapsed", res.Elapsed).
		Msg("volatility run complete")
	return res, nil
}

// fetch retrieves prices under the fetch timeout, reporting a deadline as
// prices.ErrTimeout.
func (p *Pipeline) fetch(ctx context.Context, req Request) (market.PriceSeries, error) {
	if p.Source == nil {
		return nil, errors.New("no price source configured")
	}
	timeout := p.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	series, err := p.Source.Prices(fctx, req.Ticker, req.Start, req.End)
	if err != nil {
		if !errors.Is(err, prices.ErrTimeout) && errors.Is(fctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s after %s: %v", prices.ErrTimeout, p.Source.Name(), timeout, err)
		}
		return nil, err
	}
	return series, nil
}

func stage[T any](p *Pipeline, lg zerolog.Logger, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	p.Metrics.ObserveStage(name, err == nil, elapsed)
	if err != nil {
		var zero T
		return zero, &StageError{Stage: name, Err: err}
	}
	lg.Debug().Str("stage", name).Dur("elapsed", elapsed).Msg("stage complete")
	return out, nil
}
