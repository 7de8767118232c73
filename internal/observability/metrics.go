// Package observability bundles the Prometheus metrics the harness
// exposes: wait-operation outcomes and per-driver test results.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the harness metrics and provides a ready-to-serve
// /metrics handler. It satisfies wait.Recorder and harness.TestRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Waits         *prometheus.CounterVec
	WaitDurations *prometheus.HistogramVec
	Tests         *prometheus.CounterVec
}

// NewCollector registers harness Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	waits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitlcheck_waits_total",
		Help: "Total number of finished condition waits, labeled by operation and outcome.",
	}, []string{"op", "outcome"})
	waits, err := registerCounterVec(reg, waits, "sitlcheck_waits_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitlcheck_wait_duration_sim_seconds",
		Help:    "Condition wait duration in simulated seconds.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"op"})
	durations, err = registerHistogramVec(reg, durations, "sitlcheck_wait_duration_sim_seconds")
	if err != nil {
		return nil, err
	}

	tests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitlcheck_tests_total",
		Help: "Total number of finished acceptance tests, labeled by driver and outcome.",
	}, []string{"driver", "outcome"})
	tests, err = registerCounterVec(reg, tests, "sitlcheck_tests_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Waits:         waits,
		WaitDurations: durations,
		Tests:         tests,
	}, nil
}

// RecordWait satisfies the wait engine's Recorder interface.
func (c *Collector) RecordWait(op, outcome string, simSeconds float64) {
	if c == nil {
		return
	}
	if c.Waits != nil {
		c.Waits.WithLabelValues(op, outcome).Inc()
	}
	if c.WaitDurations != nil {
		c.WaitDurations.WithLabelValues(op).Observe(simSeconds)
	}
}

// RecordTest satisfies the harness runner's TestRecorder interface.
func (c *Collector) RecordTest(driver, outcome string) {
	if c == nil || c.Tests == nil {
		return
	}
	c.Tests.WithLabelValues(driver, outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
