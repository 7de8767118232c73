package harness

import (
	"fmt"
	"log/slog"

	"sitlcheck/pkg/command"
	"sitlcheck/pkg/wait"
)

// MissionDriver flies the mission already loaded on the vehicle and
// verifies the traversal from StartWP to EndWP.
type MissionDriver struct {
	Eng *wait.Engine
	Cmd *command.Commander
	Log *slog.Logger

	StartWP int
	EndWP   int
	Opts    wait.WaypointOpts
}

func (d *MissionDriver) Name() string { return "mission" }

// Init neutralizes the RC inputs and waits for the estimator.
func (d *MissionDriver) Init() error {
	if err := d.Cmd.SetRCDefaults(); err != nil {
		return err
	}
	return d.Eng.WaitReadyToArm(defaultReadyTimeout)
}

// Autotest arms, switches to AUTO and tracks the traversal, then waits
// for the vehicle to disarm itself at mission end.
func (d *MissionDriver) Autotest() error {
	if ok, err := d.Cmd.Arm(30); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("vehicle refused to arm")
	}
	if err := d.Cmd.SetMode("AUTO"); err != nil {
		return err
	}
	if ok, err := d.Eng.WaitMode("AUTO", 30); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("vehicle did not enter AUTO")
	}

	ok, err := d.Eng.WaitWaypoint(d.StartWP, d.EndWP, d.Opts)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mission traversal %d..%d failed", d.StartWP, d.EndWP)
	}

	if ok, err := d.Cmd.Disarm(60); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("vehicle refused to disarm after mission")
	}
	return nil
}
