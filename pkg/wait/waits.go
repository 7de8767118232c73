package wait

import (
	"math"
	"strings"

	"sitlcheck/pkg/geo"
	"sitlcheck/pkg/telemetry"
)

// WaitAltitude blocks until sampled altitude enters [altMin, altMax]
// meters, or the timeout (simulated seconds) elapses. Purely
// timeout-bounded; there is no early-failure condition.
func (e *Engine) WaitAltitude(altMin, altMax, timeout float64) (bool, error) {
	e.log.Info("waiting for altitude", "min", altMin, "max", altMax)
	prevAlt := 0.0
	return e.run(condition{
		name: "altitude",
		poll: func() (float64, error) {
			m, err := e.acc.NextVFRHUD()
			if err != nil {
				return 0, err
			}
			climb := m.Alt - prevAlt
			prevAlt = m.Alt
			e.log.Debug("altitude sample", "alt", m.Alt, "climb", climb)
			return m.Alt, nil
		},
		met: func(v float64) bool { return v >= altMin && v <= altMax },
	}, timeout)
}

// WaitGroundSpeed blocks until ground speed enters [gsMin, gsMax] m/s.
func (e *Engine) WaitGroundSpeed(gsMin, gsMax, timeout float64) (bool, error) {
	e.log.Info("waiting for groundspeed", "min", gsMin, "max", gsMax)
	return e.run(condition{
		name: "groundspeed",
		poll: func() (float64, error) {
			m, err := e.acc.NextVFRHUD()
			if err != nil {
				return 0, err
			}
			return m.GroundSpeed, nil
		},
		met: func(v float64) bool { return v >= gsMin && v <= gsMax },
	}, timeout)
}

// WaitRoll blocks until roll is within accuracy degrees of the target.
func (e *Engine) WaitRoll(roll, accuracy, timeout float64) (bool, error) {
	e.log.Info("waiting for roll", "target", roll, "accuracy", accuracy)
	return e.run(condition{
		name: "roll",
		poll: func() (float64, error) {
			m, err := e.acc.NextAttitude()
			if err != nil {
				return 0, err
			}
			return m.Roll * 180.0 / math.Pi, nil
		},
		met: func(v float64) bool { return math.Abs(v-roll) <= accuracy },
	}, timeout)
}

// WaitPitch blocks until pitch is within accuracy degrees of the target.
func (e *Engine) WaitPitch(pitch, accuracy, timeout float64) (bool, error) {
	e.log.Info("waiting for pitch", "target", pitch, "accuracy", accuracy)
	return e.run(condition{
		name: "pitch",
		poll: func() (float64, error) {
			m, err := e.acc.NextAttitude()
			if err != nil {
				return 0, err
			}
			return m.Pitch * 180.0 / math.Pi, nil
		},
		met: func(v float64) bool { return math.Abs(v-pitch) <= accuracy },
	}, timeout)
}

// WaitHeading blocks until heading is within accuracy degrees of the
// target.
func (e *Engine) WaitHeading(heading, accuracy, timeout float64) (bool, error) {
	e.log.Info("waiting for heading", "target", heading, "accuracy", accuracy)
	return e.run(condition{
		name: "heading",
		poll: func() (float64, error) {
			m, err := e.acc.NextVFRHUD()
			if err != nil {
				return 0, err
			}
			return m.Heading, nil
		},
		met: func(v float64) bool { return math.Abs(v-heading) <= accuracy },
	}, timeout)
}

// WaitDistance blocks until the vehicle has traveled within accuracy
// meters of the target distance from its position at call time. Once
// the measured distance exceeds target+accuracy the vehicle has
// overshot and is assumed to keep diverging, so the wait fails
// immediately instead of burning the remaining budget.
func (e *Engine) WaitDistance(distance, accuracy, timeout float64) (bool, error) {
	start, err := e.acc.Location()
	if err != nil {
		return false, err
	}
	e.log.Info("waiting for distance", "target", distance, "accuracy", accuracy)
	return e.run(condition{
		name: "distance",
		poll: func() (float64, error) {
			pos, err := e.acc.Location()
			if err != nil {
				return 0, err
			}
			return geo.Distance(start.Point(), pos.Point()), nil
		},
		met: func(v float64) bool { return math.Abs(v-distance) <= accuracy },
		failed: func(v float64) string {
			if v > distance+accuracy {
				return "overshoot"
			}
			return ""
		},
	}, timeout)
}

// LocationOpts refines WaitLocation. HeightAccuracy <= 0 disables the
// vertical gate (the common case). TargetAltitude nil means the
// target's own altitude.
type LocationOpts struct {
	TargetAltitude *float64
	HeightAccuracy float64
}

// WaitLocation blocks until the vehicle is within accuracy meters of
// the target horizontally and, if a height accuracy is given, within
// that many meters of the target altitude. A height miss keeps the
// loop polling; it is a refinement gate, not a failure trigger.
func (e *Engine) WaitLocation(target telemetry.Location, accuracy, timeout float64, opts LocationOpts) (bool, error) {
	targetAlt := target.Alt
	if opts.TargetAltitude != nil {
		targetAlt = *opts.TargetAltitude
	}
	e.log.Info("waiting for location",
		"lat", target.Lat, "lon", target.Lon,
		"alt", targetAlt, "height_accuracy", opts.HeightAccuracy)
	var lastAlt float64
	return e.run(condition{
		name: "location",
		poll: func() (float64, error) {
			pos, err := e.acc.Location()
			if err != nil {
				return 0, err
			}
			lastAlt = pos.Alt
			return geo.Distance(target.Point(), pos.Point()), nil
		},
		met: func(v float64) bool {
			if v > accuracy {
				return false
			}
			if opts.HeightAccuracy > 0 && math.Abs(lastAlt-targetAlt) > opts.HeightAccuracy {
				return false
			}
			return true
		},
	}, timeout)
}

// WaitMode blocks until the reported flight mode equals the target,
// case-insensitively. timeout <= 0 means no time bound: the loop blocks
// on heartbeats indefinitely instead of busy-polling the clock.
func (e *Engine) WaitMode(mode string, timeout float64) (bool, error) {
	e.log.Info("waiting for mode", "mode", mode)
	current, err := e.acc.FlightMode()
	if err != nil {
		return false, err
	}
	var tStart float64
	if timeout > 0 {
		if tStart, err = e.clock.Now(); err != nil {
			return false, err
		}
	}
	for !strings.EqualFold(current, mode) {
		if timeout > 0 {
			tNow, err := e.clock.Now()
			if err != nil {
				return false, err
			}
			if tNow >= tStart+timeout {
				e.log.Info("wait timed out", "op", "mode", "last", current, "budget", timeout)
				e.record("mode", "timeout", tNow-tStart)
				return false, nil
			}
		}
		hb, err := e.acc.NextHeartbeat()
		if err != nil {
			return false, err
		}
		current = hb.Mode
	}
	e.log.Info("wait satisfied", "op", "mode", "mode", current)
	e.record("mode", "success", 0)
	return true, nil
}

// WaitEKFHealthy blocks until the estimator flag bitmask exactly equals
// the required healthy value. On timeout it returns a
// *ReadinessTimeoutError rather than a boolean: a test run cannot
// proceed without a healthy estimator. timeout <= 0 means no bound.
func (e *Engine) WaitEKFHealthy(timeout float64) error {
	e.log.Info("waiting for estimator health", "required", e.ekfFlags)
	tStart, err := e.clock.Now()
	if err != nil {
		return err
	}
	var last uint32
	for {
		if timeout > 0 {
			tNow, err := e.clock.Now()
			if err != nil {
				return err
			}
			if tNow >= tStart+timeout {
				break
			}
		}
		m, err := e.acc.NextEKFStatus()
		if err != nil {
			return err
		}
		last = m.Flags
		e.log.Debug("estimator flags", "required", e.ekfFlags, "current", last)
		if last == e.ekfFlags {
			e.log.Info("estimator healthy", "flags", last)
			e.record("ekf", "success", 0)
			return nil
		}
	}
	e.log.Info("wait timed out", "op", "ekf", "required", e.ekfFlags, "last", last)
	e.record("ekf", "timeout", timeout)
	return &ReadinessTimeoutError{Required: e.ekfFlags, Last: last}
}

// WaitReadyToArm blocks until preflight estimator checks pass.
func (e *Engine) WaitReadyToArm(timeout float64) error {
	return e.WaitEKFHealthy(timeout)
}

// WaitSeconds blocks for n simulated seconds.
func (e *Engine) WaitSeconds(n float64) error {
	return e.clock.WaitSeconds(n)
}
