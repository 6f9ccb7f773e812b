package core

import "time"

// Clock is the time base used for step timing.
// Motion code never reads wall time directly so tests can run it on a
// virtual clock.
type Clock interface {
	// Micros returns a monotonic microsecond counter
	Micros() uint64

	// SleepMicros blocks for at least us microseconds
	SleepMicros(us uint32)
}

// SystemClock is the hardware clock: monotonic time since construction
// and platform specific sleeping (see timer_go.go / timer_tinygo.go).
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock counting from now
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Micros returns microseconds since the clock was created
func (c *SystemClock) Micros() uint64 {
	return uint64(time.Since(c.start) / time.Microsecond)
}

// SleepMicros delays for us microseconds
func (c *SystemClock) SleepMicros(us uint32) {
	if us == 0 {
		return
	}
	sleepMicros(c, us)
}

// SleepMillis is a convenience wrapper for the longer UI delays
func SleepMillis(c Clock, ms uint32) {
	c.SleepMicros(ms * 1000)
}
