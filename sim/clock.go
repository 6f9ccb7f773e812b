// Package sim is a deterministic software model of the feeder hardware:
// a virtual clock, the three axes with their hard limits and stall
// detection, per-slot filament, the filament sensor, scripted buttons and
// a recording indicator. Tests and the mmu-sim binary run the real motion
// code against it.
package sim

import "time"

// Clock is a virtual microsecond clock. Sleeping advances it instantly,
// or in wall time as well when RealTime is set.
type Clock struct {
	now uint64

	RealTime bool
}

// Micros returns the virtual time
func (c *Clock) Micros() uint64 {
	return c.now
}

// SleepMicros advances the clock by us
func (c *Clock) SleepMicros(us uint32) {
	c.now += uint64(us)
	if c.RealTime {
		time.Sleep(time.Duration(us) * time.Microsecond)
	}
}

// Advance moves the clock forward by us without a caller sleeping
func (c *Clock) Advance(us uint64) {
	c.now += us
}
