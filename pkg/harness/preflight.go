package harness

import (
	"fmt"
	"log/slog"

	"sitlcheck/pkg/command"
	"sitlcheck/pkg/wait"
)

// PreflightDriver verifies the simulator link end to end: capability
// handshake, estimator convergence, and an arm/disarm cycle. It runs
// first so later drivers can assume a healthy vehicle.
type PreflightDriver struct {
	Eng *wait.Engine
	Cmd *command.Commander
	Log *slog.Logger

	// ReadyTimeout bounds estimator convergence in simulated seconds.
	// Zero means the default.
	ReadyTimeout float64
}

const defaultReadyTimeout = 120

func (d *PreflightDriver) Name() string { return "preflight" }

// Init confirms the autopilot answers a capability request.
func (d *PreflightDriver) Init() error {
	caps, ok, err := d.Cmd.Capabilities(30)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no capability answer from autopilot")
	}
	d.Log.Info("autopilot answered", "capabilities", fmt.Sprintf("%#x", caps))
	return nil
}

// Autotest waits for the estimator, then arms and disarms.
func (d *PreflightDriver) Autotest() error {
	timeout := d.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	if err := d.Eng.WaitReadyToArm(timeout); err != nil {
		return err
	}
	// the preflight log records how far the converged estimate sits from
	// the simulator's truth position
	if _, err := d.Cmd.PositionEstimateError(); err != nil {
		return err
	}
	if ok, err := d.Cmd.Arm(30); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("vehicle refused to arm")
	}
	if ok, err := d.Cmd.Disarm(30); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("vehicle refused to disarm")
	}
	return nil
}
