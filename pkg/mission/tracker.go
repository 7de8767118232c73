// Package mission tracks waypoint-sequence advancement across one
// mission traversal.
package mission

import "fmt"

// CompleteSeq is the sentinel sequence number the autopilot reports
// once the mission is complete.
const CompleteSeq = 255

// State is the tracker state. StateWaiting is the only non-terminal
// state; all others end the wait.
type State int

const (
	// StateWaiting means the tracker is still approaching a waypoint.
	StateWaiting State = iota
	// StateReached means the final waypoint was reached.
	StateReached
	// StateFailedModeExit means the flight mode changed away from the
	// mode active when tracking began.
	StateFailedModeExit
	// StateFailedSkip means a waypoint was skipped while skipping is
	// not permitted.
	StateFailedSkip
	// StateFailedTimeout means the per-waypoint window elapsed with no
	// advancement.
	StateFailedTimeout
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateReached:
		return "reached"
	case StateFailedModeExit:
		return "failed_mode_exit"
	case StateFailedSkip:
		return "failed_skip"
	case StateFailedTimeout:
		return "failed_timeout"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends the wait.
func (s State) Terminal() bool { return s != StateWaiting }

// Config bounds one traversal.
type Config struct {
	// End is the waypoint sequence that completes the traversal.
	End int
	// AllowSkip permits the sequence to jump past currentWp+1.
	AllowSkip bool
	// MaxDist is the arrival radius in meters for the final waypoint.
	MaxDist float64
	// LegTimeout bounds the simulated seconds each leg may take. The
	// window resets on every advancement: a mission may legitimately
	// take longer than any single leg, so the tracker bounds
	// time-per-leg, not total mission time.
	LegTimeout float64
}

// Observation is one poll of the telemetry caches.
type Observation struct {
	Seq        int     // reported current waypoint sequence
	WPDistance float64 // meters to the active waypoint
	Mode       string  // active flight mode
	Now        float64 // simulated seconds
}

// Tracker is the mission traversal state machine. It is mutated only
// for the duration of one wait call and discarded after. The tracked
// sequence number only increases.
type Tracker struct {
	cfg      Config
	current  int
	mode     string
	legStart float64
	state    State
}

// NewTracker begins tracking from the given waypoint, in the given
// flight mode, at the given simulated time.
func NewTracker(startWp int, mode string, now float64, cfg Config) *Tracker {
	return &Tracker{cfg: cfg, current: startWp, mode: mode, legStart: now}
}

// CurrentWaypoint returns the waypoint sequence being approached.
func (t *Tracker) CurrentWaypoint() int { return t.current }

// State returns the tracker state.
func (t *Tracker) State() State { return t.state }

// Update advances the state machine by one observation. Once a terminal
// state is reached further observations are ignored.
func (t *Tracker) Update(o Observation) State {
	if t.state.Terminal() {
		return t.state
	}
	if o.Now >= t.legStart+t.cfg.LegTimeout {
		t.state = StateFailedTimeout
		return t.state
	}
	if o.Mode != t.mode {
		t.state = StateFailedModeExit
		return t.state
	}
	if o.Seq == t.current+1 || (o.Seq > t.current+1 && t.cfg.AllowSkip) {
		t.current = o.Seq
		t.legStart = o.Now
	}
	if t.current == t.cfg.End && o.WPDistance < t.cfg.MaxDist {
		t.state = StateReached
		return t.state
	}
	if o.Seq >= CompleteSeq {
		t.state = StateReached
		return t.state
	}
	if o.Seq > t.current+1 {
		t.state = StateFailedSkip
		return t.state
	}
	return StateWaiting
}
