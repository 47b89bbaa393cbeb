package volatility

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulateGARCH draws n returns from a zero-mean GARCH(1,1) with normal
// innovations after a burn-in.
func simulateGARCH(n int, omega, alpha, beta float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	const burn = 500
	s2 := omega / (1 - alpha - beta)
	e := 0.0
	out := make([]float64, 0, n)
	for i := 0; i < n+burn; i++ {
		s2 = omega + alpha*e*e + beta*s2
		e = math.Sqrt(s2) * rng.NormFloat64()
		if i >= burn {
			out = append(out, e)
		}
	}
	return out
}

func TestGJRGARCHRecoversParameters(t *testing.T) {
	if testing.Short() {
		t.Skip("slow")
	}
	rs := returnsFrom(simulateGARCH(3000, 1e-5, 0.1, 0.8, 42))

	fit, err := GJRGARCH{}.Fit(context.Background(), rs)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, fit.Alpha, 0.1)
	assert.InDelta(t, 0.8, fit.Beta, 0.1)
	assert.GreaterOrEqual(t, fit.Alpha, 0.0)
	assert.GreaterOrEqual(t, fit.Alpha+fit.Gamma, 0.0)
	assert.GreaterOrEqual(t, fit.Beta, 0.0)
	assert.Greater(t, fit.Omega, 0.0)
	assert.Less(t, fit.Persistence(), 1.0)
	assert.Equal(t, len(rs), fit.Observations)
	assert.Positive(t, fit.Iterations)
	assert.True(t, !math.IsNaN(fit.LogLikelihood) && !math.IsInf(fit.LogLikelihood, 0))

	require.Len(t, fit.ConditionalVolatility, len(rs))
	for i, v := range fit.ConditionalVolatility {
		assert.Equal(t, rs[i].Date, v.Date)
		require.True(t, v.Defined())
		assert.Greater(t, v.Value, 0.0)
	}

	// unconditional daily volatility of the simulated process is 1%
	assert.InDelta(t, 0.01, fit.ConditionalVolatility.Mean(), 0.004)

	ann := fit.Annualized()
	last, _ := fit.ConditionalVolatility.Last()
	lastAnn, _ := ann.Last()
	assert.InDelta(t, last.Value*math.Sqrt(TradingDaysPerYear), lastAnn.Value, 1e-12)
}

func TestGJRGARCHScaleEquivariant(t *testing.T) {
	if testing.Short() {
		t.Skip("slow")
	}
	values := simulateGARCH(1000, 1e-5, 0.1, 0.8, 3)
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = v * 10
	}

	a, err := GJRGARCH{}.Fit(context.Background(), returnsFrom(values))
	require.NoError(t, err)
	b, err := GJRGARCH{}.Fit(context.Background(), returnsFrom(scaled))
	require.NoError(t, err)

	assert.InDelta(t, a.Alpha, b.Alpha, 1e-3)
	assert.InDelta(t, a.Beta, b.Beta, 1e-3)
	assert.InDelta(t, a.Omega*100, b.Omega, a.Omega)
}

func TestGJRGARCHErrors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{name: "too short", values: alternating(DefaultMinObservations-1, 0.01)},
		{name: "constant", values: make([]float64, 100)},
		{name: "nan", values: append(alternating(50, 0.01), math.NaN())},
		{name: "inf", values: append(alternating(50, 0.01), math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit, err := GJRGARCH{}.Fit(context.Background(), returnsFrom(tt.values))
			assert.ErrorIs(t, err, ErrModelFit)
			assert.Nil(t, fit)
		})
	}
}

func TestGJRGARCHCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GJRGARCH{}.Fit(ctx, returnsFrom(simulateGARCH(500, 1e-5, 0.1, 0.8, 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelFit)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGJRGARCHIterationLimit(t *testing.T) {
	rs := returnsFrom(simulateGARCH(500, 1e-5, 0.1, 0.8, 5))
	_, err := GJRGARCH{MaxIterations: 3}.Fit(context.Background(), rs)
	assert.ErrorIs(t, err, ErrModelFit)
}

func TestBackcast(t *testing.T) {
	resid := []float64{1, 2}
	// (1 + 0.94*4) / (1 + 0.94)
	assert.InDelta(t, (1+0.94*4)/1.94, backcast(resid), 1e-12)

	long := make([]float64, 200)
	for i := range long {
		long[i] = 1
	}
	long[150] = 100
	assert.InDelta(t, 1, backcast(long), 1e-12)
}

func TestUnpackConstraints(t *testing.T) {
	p := unpack([]float64{0.1, math.Log(0.2), 0.3, -0.2, 0.9})
	assert.InDelta(t, 0.1, p.mu, 1e-12)
	assert.InDelta(t, 0.2, p.omega, 1e-12)
	assert.InDelta(t, 0.09, p.alpha, 1e-12)
	assert.InDelta(t, 0.04-0.09, p.gamma, 1e-12)
	assert.InDelta(t, 0.81, p.beta, 1e-12)
	assert.GreaterOrEqual(t, p.alpha+p.gamma, 0.0)
}
