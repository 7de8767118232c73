// Package wslink reads telemetry from a websocket bridge. SITL rigs
// behind a firewall expose their MAVLink stream as JSON envelopes over
// a websocket; this link decodes them into telemetry messages.
package wslink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"sitlcheck/pkg/telemetry"
)

// envelope is the bridge's wire format: the telemetry type name plus a
// type-specific payload.
type envelope struct {
	Type telemetry.Type  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Link adapts a websocket telemetry bridge to the telemetry.Link
// interface.
type Link struct {
	conn *websocket.Conn
	log  *slog.Logger
}

// Dial connects to the bridge at url, retrying the handshake a few
// times since SITL bridges come up slowly.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Link, error) {
	var conn *websocket.Conn
	var dialErr error
	for i := 0; i < 3; i++ {
		conn, _, dialErr = websocket.DefaultDialer.DialContext(ctx, url, nil)
		if dialErr == nil {
			log.Info("websocket link up", "url", url)
			return &Link{conn: conn, log: log}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after retries: %w", dialErr)
}

// Recv blocks for the next decodable telemetry message. Envelope types
// the engine has no use for are skipped; a broken connection surfaces
// as ErrLinkClosed.
func (l *Link) Recv() (telemetry.Message, error) {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", telemetry.ErrLinkClosed, err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			l.log.Debug("skipping malformed envelope", "err", err)
			continue
		}
		m, err := decode(env)
		if err != nil {
			l.log.Debug("skipping undecodable envelope", "type", env.Type, "err", err)
			continue
		}
		if m != nil {
			return m, nil
		}
	}
}

// Close closes the connection; a blocked Recv returns ErrLinkClosed.
func (l *Link) Close() error {
	return l.conn.Close()
}

func decode(env envelope) (telemetry.Message, error) {
	var m telemetry.Message
	switch env.Type {
	case telemetry.TypeSystemTime:
		m = &telemetry.SystemTime{}
	case telemetry.TypeVFRHUD:
		m = &telemetry.VFRHUD{}
	case telemetry.TypeAttitude:
		m = &telemetry.Attitude{}
	case telemetry.TypeGlobalPosition:
		m = &telemetry.GlobalPosition{}
	case telemetry.TypeNavController:
		m = &telemetry.NavControllerOutput{}
	case telemetry.TypeEKFStatusReport:
		m = &telemetry.EKFStatusReport{}
	case telemetry.TypeRCChannels:
		m = &telemetry.RCChannels{}
	case telemetry.TypeHeartbeat:
		m = &telemetry.Heartbeat{}
	case telemetry.TypeMissionCurrent:
		m = &telemetry.MissionCurrent{}
	case telemetry.TypeAutopilotVersion:
		m = &telemetry.AutopilotVersion{}
	case telemetry.TypeSimState:
		m = &telemetry.SimState{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(env.Data, m); err != nil {
		return nil, err
	}
	return deref(m), nil
}

// deref returns the value the pointer decodes into, since the engine
// works with value messages.
func deref(m telemetry.Message) telemetry.Message {
	switch v := m.(type) {
	case *telemetry.SystemTime:
		return *v
	case *telemetry.VFRHUD:
		return *v
	case *telemetry.Attitude:
		return *v
	case *telemetry.GlobalPosition:
		return *v
	case *telemetry.NavControllerOutput:
		return *v
	case *telemetry.EKFStatusReport:
		return *v
	case *telemetry.RCChannels:
		return *v
	case *telemetry.Heartbeat:
		return *v
	case *telemetry.MissionCurrent:
		return *v
	case *telemetry.AutopilotVersion:
		return *v
	case *telemetry.SimState:
		return *v
	}
	return m
}
