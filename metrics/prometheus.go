// Package metrics exposes engine and HTTP measurements to Prometheus.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robbie-likescodes/Tip-Calculator/tips"
)

// PrometheusCollector implements tips.Recorder backed by Prometheus.
// Metrics are registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	adjustedCents *prometheus.CounterVec
	noCoverage    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements tips.Recorder.
var _ tips.Recorder = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "tips" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "tips"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Allocation runs by mode (chunks|periods) and outcome (ok|warning|invalid|error).",
		}, []string{"mode", "outcome"})

		p.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Allocation run latency in seconds by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs .. ~1.6s
		}, []string{"mode"})

		p.adjustedCents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "reconcile_adjusted_cents_total",
			Help:      "Single-cent adjustments made by reconciliation, by payout type.",
		}, []string{"type"})

		p.noCoverage = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "no_coverage_warnings_total",
			Help:      "Payouts with time nobody was present for, by payout type.",
		}, []string{"type"})

		p.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"})

		p.reg.MustRegister(p.runs)
		p.reg.MustRegister(p.runDuration)
		p.reg.MustRegister(p.adjustedCents)
		p.reg.MustRegister(p.noCoverage)
		p.reg.MustRegister(p.httpRequests)
	})
}

// ObserveRun records one engine invocation.
func (p *PrometheusCollector) ObserveRun(mode, outcome string, elapsed time.Duration) {
	p.ensureRegistered()
	p.runs.WithLabelValues(mode, outcome).Inc()
	p.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// AddAdjustedCents counts reconciliation adjustments.
func (p *PrometheusCollector) AddAdjustedCents(t tips.PayoutType, cents int) {
	p.ensureRegistered()
	p.adjustedCents.WithLabelValues(string(t)).Add(float64(cents))
}

// AddNoCoverage counts a coverage warning.
func (p *PrometheusCollector) AddNoCoverage(t tips.PayoutType) {
	p.ensureRegistered()
	p.noCoverage.WithLabelValues(string(t)).Inc()
}

// ObserveRequest counts one HTTP response.
func (p *PrometheusCollector) ObserveRequest(method string, code int) {
	p.ensureRegistered()
	p.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
