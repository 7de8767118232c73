// Package telemetry defines the decoded telemetry stream consumed by the
// wait engine, and the blocking accessors over it.
package telemetry

import (
	"github.com/paulmach/orb"
)

// Type identifies a telemetry stream.
type Type string

const (
	TypeSystemTime       Type = "SYSTEM_TIME"
	TypeVFRHUD           Type = "VFR_HUD"
	TypeAttitude         Type = "ATTITUDE"
	TypeGlobalPosition   Type = "GLOBAL_POSITION_INT"
	TypeNavController    Type = "NAV_CONTROLLER_OUTPUT"
	TypeEKFStatusReport  Type = "EKF_STATUS_REPORT"
	TypeRCChannels       Type = "RC_CHANNELS"
	TypeHeartbeat        Type = "HEARTBEAT"
	TypeMissionCurrent   Type = "MISSION_CURRENT"
	TypeAutopilotVersion Type = "AUTOPILOT_VERSION"
	TypeSimState         Type = "SIMSTATE"
)

// Message is a single decoded telemetry sample.
type Message interface {
	Type() Type
}

// SystemTime carries the simulator's boot-time millisecond counter, the
// source of all simulated-time arithmetic.
type SystemTime struct {
	TimeUnixUsec uint64
	TimeBootMs   uint32
}

func (SystemTime) Type() Type { return TypeSystemTime }

// Seconds returns the boot time as floating-point seconds.
func (m SystemTime) Seconds() float64 { return float64(m.TimeBootMs) * 1e-3 }

// VFRHUD is the heads-up display sample: altitude, speeds and heading.
type VFRHUD struct {
	Airspeed    float64 // m/s
	GroundSpeed float64 // m/s
	Heading     float64 // degrees [0,360)
	Throttle    int
	Alt         float64 // meters AMSL
	Climb       float64 // m/s
}

func (VFRHUD) Type() Type { return TypeVFRHUD }

// Attitude is the vehicle attitude in radians.
type Attitude struct {
	TimeBootMs uint32
	Roll       float64
	Pitch      float64
	Yaw        float64
}

func (Attitude) Type() Type { return TypeAttitude }

// GlobalPosition is the filtered global position sample.
type GlobalPosition struct {
	TimeBootMs  uint32
	Lat         float64 // degrees
	Lon         float64 // degrees
	Alt         float64 // meters AMSL
	RelativeAlt float64 // meters above home
	Heading     float64 // degrees
}

func (GlobalPosition) Type() Type { return TypeGlobalPosition }

// NavControllerOutput reports navigation controller state, in particular
// the distance to the active waypoint.
type NavControllerOutput struct {
	NavBearing    float64 // degrees
	TargetBearing float64 // degrees
	WPDistance    float64 // meters
	AltError      float64 // meters
}

func (NavControllerOutput) Type() Type { return TypeNavController }

// EKFStatusReport carries the estimator health flag bitmask.
type EKFStatusReport struct {
	Flags            uint32
	VelocityVariance float64
	PosHorizVariance float64
	PosVertVariance  float64
	CompassVariance  float64
}

func (EKFStatusReport) Type() Type { return TypeEKFStatusReport }

// RCChannels echoes the simulated radio-control input channels (PWM).
type RCChannels struct {
	TimeBootMs uint32
	Channels   [18]int
	Count      int
}

func (RCChannels) Type() Type { return TypeRCChannels }

// Channel returns the raw PWM value of the 1-based channel number, or 0
// if the channel is out of range.
func (m RCChannels) Channel(n int) int {
	if n < 1 || n > len(m.Channels) {
		return 0
	}
	return m.Channels[n-1]
}

// Heartbeat reports the active flight mode and arming state. Flight-mode
// name resolution is transport-specific, so the link decodes it.
type Heartbeat struct {
	Mode  string
	Armed bool
}

func (Heartbeat) Type() Type { return TypeHeartbeat }

// MissionCurrent reports the waypoint sequence the vehicle is navigating
// toward.
type MissionCurrent struct {
	Seq int
}

func (MissionCurrent) Type() Type { return TypeMissionCurrent }

// AutopilotVersion is the capabilities answer to a capability request.
type AutopilotVersion struct {
	Capabilities    uint64
	FlightSWVersion uint32
}

func (AutopilotVersion) Type() Type { return TypeAutopilotVersion }

// SimState is the simulator's own truth state, used to locate the
// vehicle independent of the estimator.
type SimState struct {
	Lat float64 // degrees
	Lon float64 // degrees
	Yaw float64 // radians
}

func (SimState) Type() Type { return TypeSimState }

// Location is an immutable position snapshot.
type Location struct {
	Lat     float64 // degrees
	Lon     float64 // degrees
	Alt     float64 // meters AMSL
	Heading float64 // degrees
}

// Point returns the horizontal coordinate as an orb point (lon, lat).
func (l Location) Point() orb.Point { return orb.Point{l.Lon, l.Lat} }
