// Package command drives the vehicle through the ground-station console
// and verifies the effect on the telemetry stream. The console is
// line-oriented text; matching its asynchronous output against expected
// patterns is the only place wall-clock timeouts are appropriate,
// because console I/O does not ride the simulated clock.
package command

import (
	"errors"
	"time"
)

// ErrConsoleClosed is returned once the console connection is gone.
var ErrConsoleClosed = errors.New("console closed")

// Console is a line-oriented command channel to the ground station.
type Console interface {
	// Send writes one command line.
	Send(line string) error
	// Expect blocks until a received line matches the regular
	// expression and returns its submatches, or fails after the
	// wall-clock timeout.
	Expect(pattern string, timeout time.Duration) ([]string, error)
}
