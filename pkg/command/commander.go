package command

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"sitlcheck/pkg/geo"
	"sitlcheck/pkg/telemetry"
)

const (
	// paramRetries bounds the set/fetch/verify cycle for parameter
	// writes; the console occasionally drops a set under load.
	paramRetries = 9
	// paramEpsilon is the float tolerance for verifying a written
	// parameter, params travel as float32 on the wire.
	paramEpsilon = 1e-5

	rcNeutral = 1500
	rcMax     = 15
)

// Commander issues console commands and confirms their effect through
// telemetry. All sim-side confirmation loops are bounded in simulated
// seconds; only Expect deadlines use wall-clock time.
type Commander struct {
	con   Console
	acc   *telemetry.Accessor
	clock *telemetry.Clock
	log   *slog.Logger

	// ExpectTimeout bounds console pattern matches.
	ExpectTimeout time.Duration
}

// NewCommander wires a console to a telemetry accessor.
func NewCommander(con Console, acc *telemetry.Accessor, log *slog.Logger) *Commander {
	return &Commander{
		con:           con,
		acc:           acc,
		clock:         telemetry.NewClock(acc),
		log:           log,
		ExpectTimeout: 60 * time.Second,
	}
}

// Arm requests arming and waits for the heartbeat to confirm it, bounded
// by timeout simulated seconds.
func (c *Commander) Arm(timeout float64) (bool, error) {
	return c.setArmed(true, timeout)
}

// Disarm requests disarming and waits for confirmation.
func (c *Commander) Disarm(timeout float64) (bool, error) {
	return c.setArmed(false, timeout)
}

func (c *Commander) setArmed(armed bool, timeout float64) (bool, error) {
	cmd := "arm throttle"
	if !armed {
		cmd = "disarm"
	}
	c.log.Info("setting arm state", "armed", armed)
	if err := c.con.Send(cmd); err != nil {
		return false, err
	}
	tStart, err := c.clock.Now()
	if err != nil {
		return false, err
	}
	for {
		tNow, err := c.clock.Now()
		if err != nil {
			return false, err
		}
		if tNow >= tStart+timeout {
			c.log.Info("arm state change timed out", "armed", armed)
			return false, nil
		}
		hb, err := c.acc.NextHeartbeat()
		if err != nil {
			return false, err
		}
		if hb.Armed == armed {
			return true, nil
		}
	}
}

// SetMode requests a flight-mode change. Confirmation comes from the
// heartbeat stream; pair this with a mode wait.
func (c *Commander) SetMode(mode string) error {
	c.log.Info("requesting mode change", "mode", mode)
	return c.con.Send("mode " + strings.ToLower(mode))
}

// SetRC drives an RC channel to pwm and waits for the channel echo to
// confirm it, re-sending every iteration. ArduPilot drops RC overrides
// that race a failsafe, so a single send is not enough.
func (c *Commander) SetRC(ch, pwm int, timeout float64) error {
	tStart, err := c.clock.Now()
	if err != nil {
		return err
	}
	for {
		tNow, err := c.clock.Now()
		if err != nil {
			return err
		}
		if tNow >= tStart+timeout {
			return fmt.Errorf("rc channel %d did not echo %d within %.fs", ch, pwm, timeout)
		}
		if err := c.con.Send(fmt.Sprintf("rc %d %d", ch, pwm)); err != nil {
			return err
		}
		rc, err := c.acc.NextRCChannels()
		if err != nil {
			return err
		}
		if rc.Channel(ch) == pwm {
			return nil
		}
	}
}

// SetRCDefaults returns channels 1 through 15 to neutral. No echo wait;
// the next SetRC confirms the channel that matters.
func (c *Commander) SetRCDefaults() error {
	for ch := 1; ch <= rcMax; ch++ {
		if err := c.con.Send(fmt.Sprintf("rc %d %d", ch, rcNeutral)); err != nil {
			return err
		}
	}
	return nil
}

// SetParameter writes a parameter and reads it back until the value
// sticks, retrying the whole cycle a bounded number of times.
func (c *Commander) SetParameter(name string, value float64) error {
	for i := 0; i < paramRetries; i++ {
		if err := c.con.Send(fmt.Sprintf("param set %s %f", name, value)); err != nil {
			return err
		}
		got, err := c.GetParameter(name)
		if err != nil {
			c.log.Debug("parameter readback failed", "name", name, "attempt", i, "err", err)
			continue
		}
		if math.Abs(got-value) < paramEpsilon {
			return nil
		}
		c.log.Debug("parameter not yet set", "name", name, "want", value, "got", got)
	}
	return fmt.Errorf("parameter %s did not settle at %f after %d attempts", name, value, paramRetries)
}

// GetParameter fetches a parameter value through the console.
func (c *Commander) GetParameter(name string) (float64, error) {
	if err := c.con.Send("param fetch " + name); err != nil {
		return 0, err
	}
	m, err := c.con.Expect(name+` = ([-0-9.]+)`, c.ExpectTimeout)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", name, err)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: bad value %q: %w", name, m[1], err)
	}
	return v, nil
}

// SaveWaypoint records the current position as a mission waypoint by
// pulsing RC channel 7, the save-waypoint switch in the test rig's
// transmitter setup.
func (c *Commander) SaveWaypoint(timeout float64) error {
	c.log.Info("saving waypoint")
	if err := c.SetRC(7, 1000, timeout); err != nil {
		return err
	}
	if err := c.clock.WaitSeconds(1); err != nil {
		return err
	}
	if err := c.SetRC(7, 2000, timeout); err != nil {
		return err
	}
	if err := c.clock.WaitSeconds(1); err != nil {
		return err
	}
	return c.SetRC(7, 1000, timeout)
}

// LogDownload pulls the latest onboard log to dest. The download runs
// over the console link at wall-clock speed, so its deadline is
// wall-clock too.
func (c *Commander) LogDownload(dest string, timeout time.Duration) error {
	c.log.Info("downloading flight log", "dest", dest)
	if err := c.con.Send("log list"); err != nil {
		return err
	}
	if _, err := c.con.Expect(`numLogs`, c.ExpectTimeout); err != nil {
		return err
	}
	// let the log index settle before requesting
	for i := 0; i < 3; i++ {
		if _, err := c.acc.NextHeartbeat(); err != nil {
			return err
		}
	}
	if err := c.con.Send("set shownoise 0"); err != nil {
		return err
	}
	if err := c.con.Send("log download latest " + dest); err != nil {
		return err
	}
	if _, err := c.con.Expect(`Finished downloading`, timeout); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if _, err := c.acc.NextHeartbeat(); err != nil {
			return err
		}
	}
	return nil
}

// Capabilities requests the autopilot's capability bitmask. The request
// goes out through the console and the answer comes back on telemetry;
// ok is false if no answer arrives within budget simulated seconds.
func (c *Commander) Capabilities(budget float64) (uint64, bool, error) {
	if err := c.con.Send("version"); err != nil {
		return 0, false, err
	}
	m, ok, err := c.acc.NextWithin(telemetry.TypeAutopilotVersion, nil, budget)
	if err != nil || !ok {
		return 0, ok, err
	}
	av := m.(telemetry.AutopilotVersion)
	c.log.Info("autopilot capabilities", "capabilities", fmt.Sprintf("%#x", av.Capabilities),
		"fw", av.FlightSWVersion)
	return av.Capabilities, true, nil
}

// PositionEstimateError measures how far the estimated position has
// drifted from the simulator's truth, in meters. It blocks for the next
// SIMSTATE sample, so it only makes sense against a live simulator.
func (c *Commander) PositionEstimateError() (float64, error) {
	sim, err := c.acc.SimLocation()
	if err != nil {
		return 0, err
	}
	est, err := c.acc.Location()
	if err != nil {
		return 0, err
	}
	d := geo.Distance(est.Point(), sim.Point())
	c.log.Info("position estimate error", "meters", d)
	return d, nil
}

// ShowGPSAndSimPositions toggles the map overlays comparing estimated
// and simulator-truth positions, handy when eyeballing a failed run.
func (c *Commander) ShowGPSAndSimPositions(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := c.con.Send("map set showgpspos " + v); err != nil {
		return err
	}
	return c.con.Send("map set showsimpos " + v)
}
