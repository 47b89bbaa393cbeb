package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the Prometheus collectors for pipeline runs and the
// dashboard. A nil *Registry records nothing.
type Registry struct {
	StageDuration *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
	ActiveRuns    prometheus.Gauge
	PricesFetched prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volatility_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage", "result"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volatility_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"result"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "volatility_active_runs",
				Help: "Number of pipeline runs in progress",
			},
		),

		PricesFetched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "volatility_prices_fetched",
				Help:    "Number of daily prices retrieved per run",
				Buckets: prometheus.ExponentialBuckets(16, 2, 10),
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volatility_http_requests_total",
				Help: "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volatility_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		r.StageDuration,
		r.Runs,
		r.ActiveRuns,
		r.PricesFetched,
		r.HTTPRequests,
		r.HTTPDuration,
	)
	return r
}

// ObserveStage records one stage duration.
func (r *Registry) ObserveStage(stage string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage, result(ok)).Observe(d.Seconds())
}

// RunStarted marks a run in progress.
func (r *Registry) RunStarted() {
	if r == nil {
		return
	}
	r.ActiveRuns.Inc()
}

// RunFinished closes a run started with RunStarted.
func (r *Registry) RunFinished(ok bool) {
	if r == nil {
		return
	}
	r.ActiveRuns.Dec()
	r.Runs.WithLabelValues(result(ok)).Inc()
}

// ObservePrices records how many prices a run retrieved.
func (r *Registry) ObservePrices(n int) {
	if r == nil {
		return
	}
	r.PricesFetched.Observe(float64(n))
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(route, method, code string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, method, code).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
