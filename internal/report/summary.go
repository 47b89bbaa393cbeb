package report

import (
	"math"
	"time"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/volatility"
)

// Summary is the headline figures of a run. Undefined values are NaN.
type Summary struct {
	RunID  string
	Ticker string
	Source string
	Start  time.Time
	End    time.Time
	Window int

	Prices       int
	Observations int
	FirstDate    time.Time
	LastDate     time.Time

	MeanReturn float64

	LastHistorical float64
	MeanHistorical float64

	Alpha           float64
	Beta            float64
	Gamma           float64
	Omega           float64
	Mu              float64
	Persistence     float64
	LogLikelihood   float64
	Iterations      int
	LastGARCH       float64 // per period
	LastGARCHAnnual float64
	MeanGARCH       float64 // per period

	Computed time.Time
	Elapsed  time.Duration
}

// Summarize extracts the headline figures from res.
func Summarize(res *pipeline.Result) Summary {
	s := Summary{
		RunID:           res.RunID,
		Ticker:          res.Request.Ticker,
		Source:          res.Source,
		Start:           res.Request.Start,
		End:             res.Request.End,
		Window:          res.Request.Window,
		Prices:          len(res.Prices),
		Observations:    len(res.Returns),
		MeanReturn:      res.MeanReturn,
		LastHistorical:  math.NaN(),
		MeanHistorical:  res.Historical.Mean(),
		Alpha:           math.NaN(),
		Beta:            math.NaN(),
		Gamma:           math.NaN(),
		Omega:           math.NaN(),
		Mu:              math.NaN(),
		Persistence:     math.NaN(),
		LogLikelihood:   math.NaN(),
		LastGARCH:       math.NaN(),
		LastGARCHAnnual: math.NaN(),
		MeanGARCH:       math.NaN(),
		Computed:        res.Computed,
		Elapsed:         res.Elapsed,
	}
	if len(res.Prices) > 0 {
		s.FirstDate = res.Prices[0].Date
		s.LastDate = res.Prices[len(res.Prices)-1].Date
	}
	if last, ok := res.Historical.Last(); ok {
		s.LastHistorical = last.Value
	}

	if fit := res.GARCH; fit != nil {
		s.Alpha, s.Beta, s.Gamma = fit.Alpha, fit.Beta, fit.Gamma
		s.Omega, s.Mu = fit.Omega, fit.Mu
		s.Persistence = fit.Persistence()
		s.LogLikelihood = fit.LogLikelihood
		s.Iterations = fit.Iterations
		s.MeanGARCH = fit.ConditionalVolatility.Mean()
		if last, ok := fit.ConditionalVolatility.Last(); ok {
			s.LastGARCH = last.Value
			s.LastGARCHAnnual = last.Value * math.Sqrt(volatility.TradingDaysPerYear)
		}
	}
	return s
}
