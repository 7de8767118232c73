package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// IdleFunc is a background drainer serviced on every blocking read, so
// that ancillary output (console pipes, log streams) never backlogs
// while a wait operation is polling.
type IdleFunc func()

// Accessor provides latest-value and blocking-next-match reads over a
// telemetry link. It is single-goroutine by design: progress is driven
// entirely by the caller's blocking reads, and only one wait operation
// may be in flight at a time.
//
// The accessor returns the most recently received sample of a type; it
// does not guarantee every sample is seen. Real-time telemetry may be
// denser than the poll rate, and intermediate samples of other types
// are cached, not queued. This is an accepted approximation.
type Accessor struct {
	link Link
	log  *slog.Logger
	idle []IdleFunc

	latest map[Type]Message

	// caches updated from any message passing through
	loc        Location
	hasLoc     bool
	mode       string
	armed      bool
	hasMode    bool
	wpSeq      int
	hasWpSeq   bool
	simTime    float64
	hasSimTime bool
}

// NewAccessor wraps a link. Idle listeners are registered at
// construction and serviced on every received message.
func NewAccessor(link Link, log *slog.Logger, idle ...IdleFunc) *Accessor {
	if log == nil {
		log = slog.Default()
	}
	return &Accessor{
		link:   link,
		log:    log,
		idle:   idle,
		latest: make(map[Type]Message),
	}
}

// recv pulls one message, services idle listeners, and refreshes caches.
func (a *Accessor) recv() (Message, error) {
	m, err := a.link.Recv()
	if err != nil {
		return nil, fmt.Errorf("telemetry recv: %w", err)
	}
	for _, fn := range a.idle {
		fn()
	}
	a.latest[m.Type()] = m

	switch s := m.(type) {
	case SystemTime:
		a.simTime = s.Seconds()
		a.hasSimTime = true
	case GlobalPosition:
		a.loc = Location{Lat: s.Lat, Lon: s.Lon, Alt: s.Alt, Heading: s.Heading}
		a.hasLoc = true
	case Heartbeat:
		a.mode = s.Mode
		a.armed = s.Armed
		a.hasMode = true
	case MissionCurrent:
		a.wpSeq = s.Seq
		a.hasWpSeq = true
	}
	return m, nil
}

// Next blocks until the next message of type t arrives.
func (a *Accessor) Next(t Type) (Message, error) {
	return a.NextMatch(t, nil)
}

// NextMatch blocks until the next message of type t satisfying cond
// arrives. A nil cond matches any message of the type.
func (a *Accessor) NextMatch(t Type, cond func(Message) bool) (Message, error) {
	for {
		m, err := a.recv()
		if err != nil {
			return nil, err
		}
		if m.Type() != t {
			continue
		}
		if cond == nil || cond(m) {
			return m, nil
		}
	}
}

// NextWithin blocks like NextMatch but gives up once the telemetry-borne
// sim time advances past the budget (in simulated seconds). It returns
// (nil, false, nil) on budget exhaustion. The budget is measured from
// the first time sample observed after the call.
func (a *Accessor) NextWithin(t Type, cond func(Message) bool, budget float64) (Message, bool, error) {
	tStart := math.NaN()
	for {
		m, err := a.recv()
		if err != nil {
			return nil, false, err
		}
		if a.hasSimTime {
			if math.IsNaN(tStart) {
				tStart = a.simTime
			} else if a.simTime >= tStart+budget {
				return nil, false, nil
			}
		}
		if m.Type() != t {
			continue
		}
		if cond == nil || cond(m) {
			return m, true, nil
		}
	}
}

// NextSystemTime blocks for the next time sample.
func (a *Accessor) NextSystemTime() (SystemTime, error) {
	m, err := a.Next(TypeSystemTime)
	if err != nil {
		return SystemTime{}, err
	}
	return m.(SystemTime), nil
}

// NextVFRHUD blocks for the next HUD sample.
func (a *Accessor) NextVFRHUD() (VFRHUD, error) {
	m, err := a.Next(TypeVFRHUD)
	if err != nil {
		return VFRHUD{}, err
	}
	return m.(VFRHUD), nil
}

// NextAttitude blocks for the next attitude sample.
func (a *Accessor) NextAttitude() (Attitude, error) {
	m, err := a.Next(TypeAttitude)
	if err != nil {
		return Attitude{}, err
	}
	return m.(Attitude), nil
}

// NextNavController blocks for the next navigation controller sample.
func (a *Accessor) NextNavController() (NavControllerOutput, error) {
	m, err := a.Next(TypeNavController)
	if err != nil {
		return NavControllerOutput{}, err
	}
	return m.(NavControllerOutput), nil
}

// NextEKFStatus blocks for the next estimator status report.
func (a *Accessor) NextEKFStatus() (EKFStatusReport, error) {
	m, err := a.Next(TypeEKFStatusReport)
	if err != nil {
		return EKFStatusReport{}, err
	}
	return m.(EKFStatusReport), nil
}

// NextRCChannels blocks for the next RC channel echo.
func (a *Accessor) NextRCChannels() (RCChannels, error) {
	m, err := a.Next(TypeRCChannels)
	if err != nil {
		return RCChannels{}, err
	}
	return m.(RCChannels), nil
}

// NextHeartbeat blocks for the next heartbeat.
func (a *Accessor) NextHeartbeat() (Heartbeat, error) {
	m, err := a.Next(TypeHeartbeat)
	if err != nil {
		return Heartbeat{}, err
	}
	return m.(Heartbeat), nil
}

// Location returns the latest known position, blocking for a position
// sample if none has been seen yet.
func (a *Accessor) Location() (Location, error) {
	if a.hasLoc {
		return a.loc, nil
	}
	if _, err := a.Next(TypeGlobalPosition); err != nil {
		return Location{}, err
	}
	return a.loc, nil
}

// SimLocation returns the simulator's truth position, blocking for the
// next SIMSTATE sample.
func (a *Accessor) SimLocation() (Location, error) {
	m, err := a.Next(TypeSimState)
	if err != nil {
		return Location{}, err
	}
	s := m.(SimState)
	return Location{Lat: s.Lat, Lon: s.Lon, Heading: s.Yaw * 180.0 / math.Pi}, nil
}

// FlightMode returns the latest reported flight mode, blocking for a
// heartbeat if none has been seen yet.
func (a *Accessor) FlightMode() (string, error) {
	if a.hasMode {
		return a.mode, nil
	}
	if _, err := a.Next(TypeHeartbeat); err != nil {
		return "", err
	}
	return a.mode, nil
}

// Armed reports the latest arming state, blocking for a heartbeat if
// none has been seen yet.
func (a *Accessor) Armed() (bool, error) {
	if a.hasMode {
		return a.armed, nil
	}
	if _, err := a.Next(TypeHeartbeat); err != nil {
		return false, err
	}
	return a.armed, nil
}

// CurrentWaypointSeq returns the latest waypoint sequence, blocking for
// a mission-current sample if none has been seen yet.
func (a *Accessor) CurrentWaypointSeq() (int, error) {
	if a.hasWpSeq {
		return a.wpSeq, nil
	}
	if _, err := a.Next(TypeMissionCurrent); err != nil {
		return 0, err
	}
	return a.wpSeq, nil
}
