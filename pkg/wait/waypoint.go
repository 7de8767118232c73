package wait

import (
	"sitlcheck/pkg/mission"
)

// WaypointOpts bounds a mission traversal wait.
type WaypointOpts struct {
	// AllowSkip permits the autopilot to jump past waypoints.
	AllowSkip bool
	// MaxDist is the arrival radius in meters for the final waypoint.
	MaxDist float64
	// Timeout bounds each leg in simulated seconds; it resets on every
	// waypoint advancement.
	Timeout float64
}

// DefaultWaypointOpts matches the historical traversal bounds.
func DefaultWaypointOpts() WaypointOpts {
	return WaypointOpts{AllowSkip: true, MaxDist: 2, Timeout: 400}
}

// WaitWaypoint blocks until the mission traversal reaches wpEnd, the
// mission-complete sentinel is reported, or the traversal fails (mode
// exit, illegal skip, leg timeout). A mode change away from the mode
// active at entry fails immediately regardless of waypoint progress.
func (e *Engine) WaitWaypoint(wpStart, wpEnd int, opts WaypointOpts) (bool, error) {
	tStart, err := e.clock.Now()
	if err != nil {
		return false, err
	}
	// this arrives after the current WP is set
	startWp, err := e.acc.CurrentWaypointSeq()
	if err != nil {
		return false, err
	}
	mode, err := e.acc.FlightMode()
	if err != nil {
		return false, err
	}
	e.log.Info("waiting for waypoint range",
		"start", wpStart, "end", wpEnd, "current", startWp, "mode", mode)

	tr := mission.NewTracker(startWp, mode, tStart, mission.Config{
		End:        wpEnd,
		AllowSkip:  opts.AllowSkip,
		MaxDist:    opts.MaxDist,
		LegTimeout: opts.Timeout,
	})
	for {
		tNow, err := e.clock.Now()
		if err != nil {
			return false, err
		}
		seq, err := e.acc.CurrentWaypointSeq()
		if err != nil {
			return false, err
		}
		nav, err := e.acc.NextNavController()
		if err != nil {
			return false, err
		}
		hud, err := e.acc.NextVFRHUD()
		if err != nil {
			return false, err
		}
		curMode, err := e.acc.FlightMode()
		if err != nil {
			return false, err
		}

		prev := tr.CurrentWaypoint()
		state := tr.Update(mission.Observation{
			Seq:        seq,
			WPDistance: nav.WPDistance,
			Mode:       curMode,
			Now:        tNow,
		})
		if tr.CurrentWaypoint() != prev {
			e.log.Info("starting new waypoint", "seq", tr.CurrentWaypoint())
		}
		e.log.Debug("waypoint progress",
			"seq", seq, "wp_dist", nav.WPDistance, "alt", hud.Alt,
			"current", tr.CurrentWaypoint(), "end", wpEnd)

		switch state {
		case mission.StateReached:
			e.log.Info("reached final waypoint", "seq", seq)
			e.record("waypoint", "success", tNow-tStart)
			return true, nil
		case mission.StateFailedModeExit:
			e.log.Info("wait failed", "op", "waypoint", "reason", "exited mode", "mode", mode)
			e.record("waypoint", "failure", tNow-tStart)
			return false, nil
		case mission.StateFailedSkip:
			e.log.Info("wait failed", "op", "waypoint", "reason", "skipped waypoint",
				"got", seq, "expected", prev+1)
			e.record("waypoint", "failure", tNow-tStart)
			return false, nil
		case mission.StateFailedTimeout:
			e.log.Info("wait timed out", "op", "waypoint", "end", wpEnd)
			e.record("waypoint", "timeout", tNow-tStart)
			return false, nil
		}
	}
}
