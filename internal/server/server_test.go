package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/volatility/internal/metrics"
	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/internal/volatility"
	"github.com/rustyeddy/volatility/market"
)

var now = time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	err error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Prices(ctx context.Context, ticker string, start, end time.Time) (market.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	ps := make(market.PriceSeries, 60)
	p := 20.0
	for i := range ps {
		if i%3 == 0 {
			p *= 0.98
		} else {
			p *= 1.012
		}
		ps[i] = market.PricePoint{Date: market.Day(end).AddDate(0, 0, i-59), Close: p}
	}
	return ps, nil
}

type stubFitter struct{}

func (stubFitter) Fit(ctx context.Context, rs market.ReturnSeries) (*volatility.ModelFit, error) {
	cond := make(market.VolatilitySeries, len(rs))
	for i, r := range rs {
		cond[i] = market.VolPoint{Date: r.Date, Value: 0.02}
	}
	return &volatility.ModelFit{Alpha: 0.0712, Beta: 0.9011, Observations: len(rs), ConditionalVolatility: cond}, nil
}

func newTestServer(t *testing.T, src prices.Source) (*Server, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := pipeline.New(src)
	p.Fitter = stubFitter{}
	p.Metrics = m
	p.Now = func() time.Time { return now }

	s, err := New(DefaultConfig(), p, reg, m)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s, reg
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestIndexShowsDefaults(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})
	rr := get(t, s, "/")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	body := rr.Body.String()
	assert.Contains(t, body, `value="PETR4.SA"`)
	assert.Contains(t, body, `value="2024-06-28"`)
	assert.Contains(t, body, `value="2023-06-29"`)
}

func TestVolatilityPage(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})
	rr := get(t, s, "/volatility?ticker=VALE3.SA&start=2024-01-01&end=2024-06-28&window=10")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "GARCH Alpha</span><strong>0.0712")
	assert.Contains(t, body, "GARCH Beta</span><strong>0.9011")
	assert.Contains(t, body, "GARCH Volatility (daily)</span><strong>2.00%")
	assert.Contains(t, body, "Historical Volatility")
	assert.Equal(t, 3, strings.Count(body, "<svg"))
	assert.Contains(t, body, `value="10"`)
}

func TestVolatilityPageErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    prices.Source
		target string
		status int
		msg    string
	}{
		{"bad date", stubSource{}, "/volatility?start=yesterday", http.StatusBadRequest, "request failed"},
		{"bad window", stubSource{}, "/volatility?window=-2", http.StatusBadRequest, "window must be a positive integer"},
		{"unknown ticker", stubSource{err: prices.ErrDataUnavailable}, "/volatility?ticker=NOPE", http.StatusNotFound, "retrieval failed"},
		{"timeout", stubSource{err: prices.ErrTimeout}, "/volatility?ticker=SLOW", http.StatusGatewayTimeout, "retrieval failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.src)
			rr := get(t, s, tt.target)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), `class="error"`)
			assert.Contains(t, rr.Body.String(), tt.msg)
		})
	}
}

func TestAPIVolatility(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})
	rr := get(t, s, "/api/volatility?ticker=PETR4.SA")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "PETR4.SA", doc["ticker"])
	assert.Equal(t, "stub", doc["source"])
	assert.Len(t, doc["returns"], 59)
	hist := doc["historical_volatility"].([]any)
	assert.Nil(t, hist[0].(map[string]any)["value"])
}

func TestAPIVolatilityError(t *testing.T) {
	s, _ := newTestServer(t, stubSource{err: prices.ErrDataUnavailable})
	rr := get(t, s, "/api/volatility?ticker=NOPE")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, pipeline.StageRetrieval, body.Stage)
	assert.NotEmpty(t, body.RequestID)
	assert.Contains(t, body.Error, "price data unavailable")
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})

	rr := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)

	get(t, s, "/api/volatility")
	rr = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "volatility_runs_total")
	assert.Contains(t, body, `volatility_http_requests_total{code="200",method="GET",route="/api/volatility"} 1`)
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})
	rr := get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not found")
}

func TestRequestIDPropagates(t *testing.T) {
	s, _ := newTestServer(t, stubSource{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc123", rr.Header().Get("X-Request-ID"))
}
