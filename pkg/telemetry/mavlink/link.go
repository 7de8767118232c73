// Package mavlink reads vehicle telemetry off a MAVLink endpoint and
// decodes it into the message types the wait engine consumes.
package mavlink

import (
	"fmt"
	"log/slog"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"sitlcheck/pkg/config"
	"sitlcheck/pkg/telemetry"
)

// gcsSystemID identifies the harness on the MAVLink bus.
const gcsSystemID = 255

// Link adapts a gomavlib node to the telemetry.Link interface.
type Link struct {
	node  *gomavlib.Node
	modes map[uint32]string
	log   *slog.Logger
}

// New opens a MAVLink endpoint per the link configuration.
func New(cfg config.LinkConfig, log *slog.Logger) (*Link, error) {
	modes, err := ModesFor(cfg.Vehicle)
	if err != nil {
		return nil, err
	}

	var ep gomavlib.EndpointConf
	switch cfg.Transport {
	case "udp-client":
		ep = gomavlib.EndpointUDPClient{Address: cfg.Address}
	case "udp-server":
		ep = gomavlib.EndpointUDPServer{Address: cfg.Address}
	case "tcp":
		ep = gomavlib.EndpointTCPClient{Address: cfg.Address}
	case "serial":
		ep = gomavlib.EndpointSerial{Device: cfg.SerialDevice, Baud: cfg.SerialBaud}
	default:
		return nil, fmt.Errorf("unsupported mavlink transport %q", cfg.Transport)
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{ep},
		Dialect:     ardupilotmega.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: gcsSystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("mavlink node: %w", err)
	}

	log.Info("mavlink link up", "transport", cfg.Transport, "address", cfg.Address)
	return &Link{node: node, modes: modes, log: log}, nil
}

// Recv blocks for the next decodable telemetry message, skipping frames
// the engine has no use for.
func (l *Link) Recv() (telemetry.Message, error) {
	for evt := range l.node.Events() {
		frm, ok := evt.(*gomavlib.EventFrame)
		if !ok {
			continue
		}
		if m := l.decode(frm.Message()); m != nil {
			return m, nil
		}
	}
	return nil, telemetry.ErrLinkClosed
}

// Close shuts the node down; a blocked Recv returns ErrLinkClosed.
func (l *Link) Close() error {
	l.node.Close()
	return nil
}

func (l *Link) decode(msg any) telemetry.Message {
	switch m := msg.(type) {
	case *common.MessageSystemTime:
		return telemetry.SystemTime{
			TimeUnixUsec: m.TimeUnixUsec,
			TimeBootMs:   m.TimeBootMs,
		}
	case *common.MessageVfrHud:
		return telemetry.VFRHUD{
			Airspeed:    float64(m.Airspeed),
			GroundSpeed: float64(m.Groundspeed),
			Heading:     float64(m.Heading),
			Throttle:    int(m.Throttle),
			Alt:         float64(m.Alt),
			Climb:       float64(m.Climb),
		}
	case *common.MessageAttitude:
		return telemetry.Attitude{
			Roll:  float64(m.Roll),
			Pitch: float64(m.Pitch),
			Yaw:   float64(m.Yaw),
		}
	case *common.MessageGlobalPositionInt:
		return telemetry.GlobalPosition{
			Lat:         float64(m.Lat) * 1e-7,
			Lon:         float64(m.Lon) * 1e-7,
			Alt:         float64(m.Alt) * 1e-3,
			RelativeAlt: float64(m.RelativeAlt) * 1e-3,
			Heading:     float64(m.Hdg) * 1e-2,
		}
	case *common.MessageNavControllerOutput:
		return telemetry.NavControllerOutput{
			NavBearing:    float64(m.NavBearing),
			TargetBearing: float64(m.TargetBearing),
			WPDistance:    float64(m.WpDist),
			AltError:      float64(m.AltError),
		}
	case *ardupilotmega.MessageEkfStatusReport:
		return telemetry.EKFStatusReport{
			Flags:            uint32(m.Flags),
			VelocityVariance: float64(m.VelocityVariance),
			PosHorizVariance: float64(m.PosHorizVariance),
			PosVertVariance:  float64(m.PosVertVariance),
			CompassVariance:  float64(m.CompassVariance),
		}
	case *common.MessageRcChannels:
		out := telemetry.RCChannels{
			TimeBootMs: m.TimeBootMs,
			Count:      int(m.Chancount),
		}
		raw := []uint16{
			m.Chan1Raw, m.Chan2Raw, m.Chan3Raw, m.Chan4Raw,
			m.Chan5Raw, m.Chan6Raw, m.Chan7Raw, m.Chan8Raw,
			m.Chan9Raw, m.Chan10Raw, m.Chan11Raw, m.Chan12Raw,
			m.Chan13Raw, m.Chan14Raw, m.Chan15Raw, m.Chan16Raw,
			m.Chan17Raw, m.Chan18Raw,
		}
		for i, v := range raw {
			out.Channels[i] = int(v)
		}
		return out
	case *common.MessageHeartbeat:
		// other ground stations share the bus
		if m.Type == common.MAV_TYPE_GCS {
			return nil
		}
		name, ok := l.modes[m.CustomMode]
		if !ok {
			name = fmt.Sprintf("MODE(%d)", m.CustomMode)
		}
		return telemetry.Heartbeat{
			Mode:  name,
			Armed: m.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0,
		}
	case *common.MessageMissionCurrent:
		return telemetry.MissionCurrent{Seq: int(m.Seq)}
	case *common.MessageAutopilotVersion:
		return telemetry.AutopilotVersion{
			Capabilities:    uint64(m.Capabilities),
			FlightSWVersion: m.FlightSwVersion,
		}
	case *ardupilotmega.MessageSimstate:
		return telemetry.SimState{
			Lat: float64(m.Lat) * 1e-7,
			Lon: float64(m.Lng) * 1e-7,
			Yaw: float64(m.Yaw),
		}
	}
	return nil
}
