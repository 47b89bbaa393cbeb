package volatility

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/volatility/market"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultMinObservations is the shortest return series GJRGARCH will fit.
	DefaultMinObservations = 30
	// DefaultMaxIterations bounds Nelder-Mead major iterations per pass.
	DefaultMaxIterations = 20000
	// DefaultRestarts is the number of extra passes started from the best point.
	DefaultRestarts = 2

	backcastHorizon = 75
	backcastDecay   = 0.94
	maxPersistence  = 0.9999
	penalty         = 1e10
)

// Fitter estimates a conditional variance model over a return series.
type Fitter interface {
	Fit(ctx context.Context, returns market.ReturnSeries) (*ModelFit, error)
}

// ModelFit holds the estimated GJR-GARCH(1,1,1) parameters on the scale of
// the input returns and the in-sample conditional volatility path.
type ModelFit struct {
	Mu            float64 `json:"mu"`
	Omega         float64 `json:"omega"`
	Alpha         float64 `json:"alpha"`
	Gamma         float64 `json:"gamma"`
	Beta          float64 `json:"beta"`
	LogLikelihood float64 `json:"log_likelihood"`

	Observations int `json:"observations"`
	Iterations   int `json:"iterations"`
	Evaluations  int `json:"evaluations"`

	// ConditionalVolatility is per period, aligned to the input returns.
	ConditionalVolatility market.VolatilitySeries `json:"conditional_volatility"`
}

// Annualized returns the conditional volatility scaled by sqrt(252).
func (m *ModelFit) Annualized() market.VolatilitySeries {
	return m.ConditionalVolatility.Scale(math.Sqrt(TradingDaysPerYear))
}

// Persistence is alpha + gamma/2 + beta.
func (m *ModelFit) Persistence() float64 {
	return m.Alpha + m.Gamma/2 + m.Beta
}

// GJRGARCH fits a constant-mean GJR-GARCH(1,1,1) with normal errors by
// maximum likelihood:
//
//	e[t]  = r[t] - mu
//	s2[t] = omega + (alpha + gamma*1{e[t-1] < 0})*e[t-1]^2 + beta*s2[t-1]
//
// Zero fields take the package defaults.
type GJRGARCH struct {
	MaxIterations   int
	MinObservations int
	Restarts        int
}

type gjrParams struct {
	mu, omega, alpha, gamma, beta float64
}

// unpack maps the unconstrained optimizer vector
// [mu, log omega, a, g, b] onto omega = e^x, alpha = a^2,
// alpha+gamma = g^2 and beta = b^2.
func unpack(x []float64) gjrParams {
	alpha := x[2] * x[2]
	return gjrParams{
		mu:    x[0],
		omega: math.Exp(x[1]),
		alpha: alpha,
		gamma: x[3]*x[3] - alpha,
		beta:  x[4] * x[4],
	}
}

func (p gjrParams) persistence() float64 {
	return p.alpha + p.gamma/2 + p.beta
}

// backcast is the exponentially weighted mean of the first squared residuals.
func backcast(resid []float64) float64 {
	n := len(resid)
	if n > backcastHorizon {
		n = backcastHorizon
	}
	var sum, wsum float64
	w := 1.0
	for i := 0; i < n; i++ {
		sum += w * resid[i] * resid[i]
		wsum += w
		w *= backcastDecay
	}
	return sum / wsum
}

// recursion fills sigma2 and returns the Gaussian log-likelihood.
func (p gjrParams) recursion(y []float64, bc float64, sigma2 []float64) float64 {
	ll := 0.0
	prevE2, prevNeg, prevS2 := bc, 0.5*bc, bc
	for t, v := range y {
		s2 := p.omega + p.alpha*prevE2 + p.gamma*prevNeg + p.beta*prevS2
		if !(s2 > 0) || math.IsInf(s2, 0) {
			return math.Inf(-1)
		}
		sigma2[t] = s2
		e := v - p.mu
		ll -= 0.5 * (math.Log(2*math.Pi) + math.Log(s2) + e*e/s2)

		prevE2, prevS2 = e*e, s2
		prevNeg = 0
		if e < 0 {
			prevNeg = e * e
		}
	}
	return ll
}

// ctxRecorder aborts the optimization once ctx is done.
type ctxRecorder struct {
	ctx context.Context
}

func (r ctxRecorder) Init() error { return r.ctx.Err() }

func (r ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}

func (g GJRGARCH) withDefaults() GJRGARCH {
	if g.MaxIterations <= 0 {
		g.MaxIterations = DefaultMaxIterations
	}
	if g.MinObservations <= 0 {
		g.MinObservations = DefaultMinObservations
	}
	if g.Restarts < 0 {
		g.Restarts = 0
	}
	return g
}

// Fit estimates the model. Returns are standardized by their sample
// standard deviation before optimization and estimates are mapped back.
func (g GJRGARCH) Fit(ctx context.Context, returns market.ReturnSeries) (*ModelFit, error) {
	g = g.withDefaults()

	n := len(returns)
	if n < g.MinObservations {
		return nil, fmt.Errorf("%w: need at least %d returns, got %d", ErrModelFit, g.MinObservations, n)
	}
	raw := returns.Values()
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: return at %s is not finite", ErrModelFit, market.FormatDate(returns[i].Date))
		}
	}
	mean, scale := stat.MeanStdDev(raw, nil)
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: return series is constant", ErrModelFit)
	}

	y := make([]float64, n)
	copy(y, raw)
	floats.Scale(1/scale, y)

	resid := make([]float64, n)
	copy(resid, y)
	floats.AddConst(-mean/scale, resid)
	bc := backcast(resid)

	sigma2 := make([]float64, n)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := unpack(x)
			if p.persistence() >= maxPersistence {
				return penalty
			}
			ll := p.recursion(y, bc, sigma2)
			if math.IsNaN(ll) || math.IsInf(ll, 0) {
				return penalty
			}
			return -ll
		},
	}

	x := []float64{mean / scale, math.Log(0.05), math.Sqrt(0.05), math.Sqrt(0.15), math.Sqrt(0.85)}
	best := math.Inf(1)
	var iterations, evaluations int
	for pass := 0; pass <= g.Restarts; pass++ {
		settings := &optimize.Settings{
			MajorIterations: g.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 200,
			},
			Recorder: ctxRecorder{ctx: ctx},
		}
		res, err := optimize.Minimize(problem, x, settings, &optimize.NelderMead{SimplexSize: 0.1})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelFit, ctxErr)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelFit, err)
		}
		iterations += res.Stats.MajorIterations
		evaluations += res.Stats.FuncEvaluations
		switch res.Status {
		case optimize.IterationLimit, optimize.FunctionEvaluationLimit,
			optimize.RuntimeLimit, optimize.Failure:
			return nil, fmt.Errorf("%w: optimizer stopped with %v after %d iterations",
				ErrModelFit, res.Status, res.Stats.MajorIterations)
		}

		improved := best - res.F
		if res.F < best {
			best = res.F
			x = res.X
		}
		if improved < 1e-8*math.Max(1, math.Abs(best)) {
			break
		}
	}
	if best >= penalty {
		return nil, fmt.Errorf("%w: no admissible parameters found", ErrModelFit)
	}

	p := unpack(x)
	ll := p.recursion(y, bc, sigma2)
	for _, v := range []float64{p.mu, p.omega, p.alpha, p.gamma, p.beta, ll} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite estimate", ErrModelFit)
		}
	}

	cond := make(market.VolatilitySeries, n)
	for t, r := range returns {
		cond[t] = market.VolPoint{Date: r.Date, Value: math.Sqrt(sigma2[t]) * scale}
	}

	return &ModelFit{
		Mu:                    p.mu * scale,
		Omega:                 p.omega * scale * scale,
		Alpha:                 p.alpha,
		Gamma:                 p.gamma,
		Beta:                  p.beta,
		LogLikelihood:         ll - float64(n)*math.Log(scale),
		Observations:          n,
		Iterations:            iterations,
		Evaluations:           evaluations,
		ConditionalVolatility: cond,
	}, nil
}
