package telemetry_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"sitlcheck/pkg/telemetry"
	"sitlcheck/pkg/telemetry/scripted"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextSkipsOtherTypes(t *testing.T) {
	link := scripted.NewLink(
		telemetry.Heartbeat{Mode: "AUTO"},
		telemetry.SystemTime{TimeBootMs: 1000},
		telemetry.VFRHUD{Alt: 42},
	)
	acc := telemetry.NewAccessor(link, discard())

	hud, err := acc.NextVFRHUD()
	if err != nil {
		t.Fatalf("NextVFRHUD: %v", err)
	}
	if hud.Alt != 42 {
		t.Errorf("Alt = %f, want 42", hud.Alt)
	}

	// the skipped heartbeat still updated the mode cache
	mode, err := acc.FlightMode()
	if err != nil {
		t.Fatalf("FlightMode: %v", err)
	}
	if mode != "AUTO" {
		t.Errorf("FlightMode = %q, want AUTO", mode)
	}
}

func TestIdleListenersServicedPerMessage(t *testing.T) {
	link := scripted.NewLink(
		telemetry.SystemTime{TimeBootMs: 0},
		telemetry.SystemTime{TimeBootMs: 100},
		telemetry.VFRHUD{},
	)
	calls := 0
	acc := telemetry.NewAccessor(link, discard(), func() { calls++ })

	if _, err := acc.NextVFRHUD(); err != nil {
		t.Fatalf("NextVFRHUD: %v", err)
	}
	if calls != 3 {
		t.Errorf("idle listener serviced %d times, want 3 (once per message)", calls)
	}
}

func TestClosedLinkPropagates(t *testing.T) {
	link := scripted.NewLink()
	acc := telemetry.NewAccessor(link, discard())

	_, err := acc.NextVFRHUD()
	if !errors.Is(err, telemetry.ErrLinkClosed) {
		t.Errorf("err = %v, want ErrLinkClosed", err)
	}

	clk := telemetry.NewClock(acc)
	_, err = clk.Now()
	if !errors.Is(err, telemetry.ErrLinkClosed) {
		t.Errorf("Clock.Now err = %v, want ErrLinkClosed", err)
	}
}

func TestLatestWinsCaches(t *testing.T) {
	link := scripted.NewLink(
		telemetry.GlobalPosition{Lat: 1, Lon: 2, Alt: 10},
		telemetry.GlobalPosition{Lat: 3, Lon: 4, Alt: 20},
		telemetry.MissionCurrent{Seq: 7},
		telemetry.SystemTime{TimeBootMs: 500},
	)
	acc := telemetry.NewAccessor(link, discard())

	// one blocking clock read drains everything before the time sample
	clk := telemetry.NewClock(acc)
	now, err := clk.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if now != 0.5 {
		t.Errorf("Now = %f, want 0.5", now)
	}

	loc, err := acc.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Lat != 3 || loc.Lon != 4 || loc.Alt != 20 {
		t.Errorf("Location = %+v, want latest sample", loc)
	}

	seq, err := acc.CurrentWaypointSeq()
	if err != nil {
		t.Fatalf("CurrentWaypointSeq: %v", err)
	}
	if seq != 7 {
		t.Errorf("seq = %d, want 7", seq)
	}
}

func TestSimLocationConvertsYaw(t *testing.T) {
	link := scripted.NewLink(
		telemetry.GlobalPosition{Lat: 1, Lon: 2, Alt: 10},
		telemetry.SimState{Lat: 1.5, Lon: 2.5, Yaw: 3.14159265358979},
	)
	acc := telemetry.NewAccessor(link, discard())

	sim, err := acc.SimLocation()
	if err != nil {
		t.Fatalf("SimLocation: %v", err)
	}
	if sim.Lat != 1.5 || sim.Lon != 2.5 {
		t.Errorf("SimLocation = %+v, want lat 1.5 lon 2.5", sim)
	}
	if sim.Heading < 179.9 || sim.Heading > 180.1 {
		t.Errorf("Heading = %f, want ~180 from pi radians", sim.Heading)
	}

	// the estimate skipped on the way is still cached
	loc, err := acc.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Lat != 1 {
		t.Errorf("Location.Lat = %f, want 1", loc.Lat)
	}
}

func TestNextMatchCondition(t *testing.T) {
	link := scripted.NewLink(
		telemetry.RCChannels{Channels: chans(3, 1500)},
		telemetry.RCChannels{Channels: chans(3, 1700)},
	)
	acc := telemetry.NewAccessor(link, discard())

	m, err := acc.NextMatch(telemetry.TypeRCChannels, func(m telemetry.Message) bool {
		return m.(telemetry.RCChannels).Channel(3) == 1700
	})
	if err != nil {
		t.Fatalf("NextMatch: %v", err)
	}
	if got := m.(telemetry.RCChannels).Channel(3); got != 1700 {
		t.Errorf("Channel(3) = %d, want 1700", got)
	}
}

func TestNextWithinBudgetExhaustion(t *testing.T) {
	tk := scripted.NewTicker(0, 1.0)
	var msgs []telemetry.Message
	for i := 0; i < 15; i++ {
		msgs = append(msgs, tk.With(telemetry.VFRHUD{})...)
	}
	link := scripted.NewLink(msgs...)
	acc := telemetry.NewAccessor(link, discard())

	_, ok, err := acc.NextWithin(telemetry.TypeAutopilotVersion, nil, 10)
	if err != nil {
		t.Fatalf("NextWithin: %v", err)
	}
	if ok {
		t.Error("NextWithin found a message that was never sent")
	}
}

func TestNextWithinFindsMatch(t *testing.T) {
	tk := scripted.NewTicker(0, 1.0)
	msgs := tk.With(telemetry.VFRHUD{})
	msgs = append(msgs, tk.With(telemetry.AutopilotVersion{FlightSWVersion: 4})...)
	link := scripted.NewLink(msgs...)
	acc := telemetry.NewAccessor(link, discard())

	m, ok, err := acc.NextWithin(telemetry.TypeAutopilotVersion, nil, 10)
	if err != nil {
		t.Fatalf("NextWithin: %v", err)
	}
	if !ok {
		t.Fatal("NextWithin missed the message")
	}
	if m.(telemetry.AutopilotVersion).FlightSWVersion != 4 {
		t.Error("wrong message returned")
	}
}

func TestWaitSeconds(t *testing.T) {
	tk := scripted.NewTicker(100, 0.5)
	var msgs []telemetry.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, tk.Time())
	}
	link := scripted.NewLink(msgs...)
	acc := telemetry.NewAccessor(link, discard())
	clk := telemetry.NewClock(acc)

	if err := clk.WaitSeconds(2.0); err != nil {
		t.Fatalf("WaitSeconds: %v", err)
	}
	// 2.0s at 0.5s per sample: start read + 4 polls, 5 left unread
	if got := link.Remaining(); got != 5 {
		t.Errorf("remaining = %d, want 5", got)
	}
}

func chans(n, pwm int) [18]int {
	var c [18]int
	c[n-1] = pwm
	return c
}
