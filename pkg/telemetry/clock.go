package telemetry

// Clock reads simulated time off the telemetry stream. Simulated time is
// monotonically non-decreasing and stalls when the simulator stalls;
// timeout arithmetic must use it, never wall-clock time, or simulation
// slowdowns cause false timeouts.
type Clock struct {
	acc *Accessor
}

// NewClock wraps an accessor.
func NewClock(acc *Accessor) *Clock {
	return &Clock{acc: acc}
}

// Now blocks for the next time sample and returns simulated seconds.
// The caller bounds it; the clock itself never times out. A closed
// stream propagates as a fatal error.
func (c *Clock) Now() (float64, error) {
	m, err := c.acc.NextSystemTime()
	if err != nil {
		return 0, err
	}
	return m.Seconds(), nil
}

// WaitSeconds spins on the clock until n simulated seconds have passed.
func (c *Clock) WaitSeconds(n float64) error {
	tStart, err := c.Now()
	if err != nil {
		return err
	}
	tNow := tStart
	for tStart+n > tNow {
		tNow, err = c.Now()
		if err != nil {
			return err
		}
	}
	return nil
}
