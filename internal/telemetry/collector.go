// Package telemetry exports run activity as Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
)

const namespace = "nftester"

// Request outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector records dispatcher events. It satisfies dispatch.Observer.
type Collector struct {
	runsStarted     *prometheus.CounterVec
	runsCompleted   *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	runsActive      prometheus.Gauge
}

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		runsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Number of load-test runs started",
			},
			[]string{"kind"},
		),
		runsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Number of load-test runs completed",
			},
			[]string{"kind"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests sent to load-test targets by outcome",
			},
			[]string{"kind", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Response time of successful load-test requests",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"kind"},
		),
		runsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of load-test runs in progress",
			},
		),
	}
}

// RunStarted records the start of a run.
func (c *Collector) RunStarted(rec loadtest.RunRecord) {
	c.runsStarted.WithLabelValues(string(rec.TestType)).Inc()
	c.runsActive.Inc()
}

// RequestObserved records one request outcome.
func (c *Collector) RequestObserved(kind loadtest.Kind, obs metrics.Observation) {
	if !obs.Success {
		c.requests.WithLabelValues(string(kind), OutcomeFailure).Inc()
		return
	}
	c.requests.WithLabelValues(string(kind), OutcomeSuccess).Inc()
	c.requestDuration.WithLabelValues(string(kind)).Observe(obs.Elapsed.Seconds())
}

// RunCompleted records the end of a run.
func (c *Collector) RunCompleted(rec loadtest.RunRecord) {
	c.runsCompleted.WithLabelValues(string(rec.TestType)).Inc()
	c.runsActive.Dec()
}

var _ dispatch.Observer = (*Collector)(nil)
