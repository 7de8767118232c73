// Package wait implements the condition-wait engine: blocking operations
// that poll telemetry against the simulated clock until a condition
// holds, a failure condition triggers, or a timeout elapses.
//
// All timeouts are expressed in simulated seconds. The engine reads the
// simulated clock fresh before every comparison; wall-clock time never
// decides a timeout, so simulation slowdowns cannot produce false
// results.
package wait

import (
	"fmt"
	"log/slog"
	"math"

	"sitlcheck/pkg/telemetry"
)

// EKFHealthyFlags is the estimator flag bitmask reported when all
// systems are healthy. The readiness wait requires exact equality.
const EKFHealthyFlags uint32 = 831

// Recorder observes wait outcomes, typically for metrics export.
type Recorder interface {
	RecordWait(op, outcome string, simSeconds float64)
}

// Engine runs wait operations over a telemetry accessor and clock.
// It is single-goroutine: only one wait may be in flight at a time.
type Engine struct {
	acc      *telemetry.Accessor
	clock    *telemetry.Clock
	log      *slog.Logger
	rec      Recorder
	ekfFlags uint32
}

// NewEngine builds an engine. The logger receives per-sample progress at
// debug level and outcomes at info level.
func NewEngine(acc *telemetry.Accessor, clock *telemetry.Clock, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{acc: acc, clock: clock, log: log, ekfFlags: EKFHealthyFlags}
}

// SetRecorder attaches an outcome recorder.
func (e *Engine) SetRecorder(r Recorder) { e.rec = r }

// SetEKFRequiredFlags overrides the healthy-estimator bitmask.
func (e *Engine) SetEKFRequiredFlags(flags uint32) { e.ekfFlags = flags }

// Accessor returns the underlying telemetry accessor.
func (e *Engine) Accessor() *telemetry.Accessor { return e.acc }

// Clock returns the underlying simulated clock.
func (e *Engine) Clock() *telemetry.Clock { return e.clock }

// ReadinessTimeoutError signals that the vehicle never reached estimator
// readiness within the budget. Unlike the boolean waits this is fatal: a
// test cannot meaningfully proceed without a healthy estimator.
type ReadinessTimeoutError struct {
	Required uint32
	Last     uint32
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("estimator readiness timeout: required flags %d, last observed %d", e.Required, e.Last)
}

// condition is one pollable wait: an extractor, a tolerance predicate
// and an optional early-failure predicate. Every physical-quantity wait
// is an instance of this shape.
type condition struct {
	name string
	// poll blocks for the next relevant sample and derives the value.
	poll func() (float64, error)
	// met reports the tolerance predicate.
	met func(v float64) bool
	// failed, if non-nil, returns a non-empty reason when the wait has
	// become unsatisfiable (e.g. overshoot) and must fail immediately.
	failed func(v float64) string
}

// run is the shared skeleton: poll, evaluate, maybe fail early, time out.
func (e *Engine) run(c condition, timeout float64) (bool, error) {
	tStart, err := e.clock.Now()
	if err != nil {
		return false, err
	}
	last := math.NaN()
	for {
		tNow, err := e.clock.Now()
		if err != nil {
			return false, err
		}
		if tNow >= tStart+timeout {
			e.log.Info("wait timed out", "op", c.name, "last", last, "budget", timeout)
			e.record(c.name, "timeout", tNow-tStart)
			return false, nil
		}
		v, err := c.poll()
		if err != nil {
			return false, err
		}
		last = v
		e.log.Debug("wait poll", "op", c.name, "value", v)
		if c.met(v) {
			e.log.Info("wait satisfied", "op", c.name, "value", v, "elapsed", tNow-tStart)
			e.record(c.name, "success", tNow-tStart)
			return true, nil
		}
		if c.failed != nil {
			if reason := c.failed(v); reason != "" {
				e.log.Info("wait failed", "op", c.name, "value", v, "reason", reason)
				e.record(c.name, "failure", tNow-tStart)
				return false, nil
			}
		}
	}
}

func (e *Engine) record(op, outcome string, simSeconds float64) {
	if e.rec != nil {
		e.rec.RecordWait(op, outcome, simSeconds)
	}
}
