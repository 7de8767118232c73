// Package harness sequences acceptance-test drivers against a running
// simulator and records their outcomes.
package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sitlcheck/pkg/store"
)

// Driver is one vehicle acceptance-test suite.
type Driver interface {
	// Name identifies the driver in logs and stored results.
	Name() string
	// Init prepares the vehicle (parameters, RC defaults, readiness).
	Init() error
	// Autotest runs the test sequence. A returned error is a test
	// failure; infrastructure errors should wrap the cause.
	Autotest() error
}

// TestRecorder observes per-driver outcomes, usually a metrics sink.
type TestRecorder interface {
	RecordTest(driver, outcome string)
}

// Runner executes drivers in order under a shared run ID.
type Runner struct {
	drivers []Driver
	db      *store.Store
	rec     TestRecorder
	log     *slog.Logger
}

// NewRunner builds a runner; db may be nil to skip result persistence.
func NewRunner(db *store.Store, log *slog.Logger, drivers ...Driver) *Runner {
	return &Runner{drivers: drivers, db: db, log: log}
}

// SetRecorder attaches an outcome observer.
func (r *Runner) SetRecorder(rec TestRecorder) { r.rec = rec }

// ErrTestsFailed is returned when at least one driver failed; per-driver
// errors are in the log and the result store.
var ErrTestsFailed = errors.New("one or more tests failed")

// Run executes every driver and returns ErrTestsFailed if any failed.
// A driver failure does not stop the remaining drivers.
func (r *Runner) Run() error {
	runID := uuid.NewString()
	r.log.Info("starting test run", "run_id", runID, "drivers", len(r.drivers))

	failed := 0
	for _, d := range r.drivers {
		if err := r.runOne(runID, d); err != nil {
			failed++
		}
	}
	r.log.Info("test run finished", "run_id", runID, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTestsFailed, failed, len(r.drivers))
	}
	return nil
}

func (r *Runner) runOne(runID string, d Driver) error {
	log := r.log.With("driver", d.Name())
	started := time.Now()

	err := d.Init()
	if err == nil {
		log.Info("driver initialized, running autotest")
		err = d.Autotest()
	}
	dur := time.Since(started)

	outcome := "pass"
	errText := ""
	if err != nil {
		outcome = "fail"
		errText = err.Error()
		log.Error("test failed", "err", err, "duration", dur)
	} else {
		log.Info("test passed", "duration", dur)
	}
	if r.rec != nil {
		r.rec.RecordTest(d.Name(), outcome)
	}
	if r.db != nil {
		res := store.Result{
			RunID:    runID,
			Driver:   d.Name(),
			Passed:   err == nil,
			Err:      errText,
			Started:  started,
			Duration: dur,
		}
		if dbErr := r.db.SaveResult(res); dbErr != nil {
			log.Error("failed to store result", "err", dbErr)
		}
	}
	return err
}
