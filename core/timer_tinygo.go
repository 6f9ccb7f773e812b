//go:build tinygo

package core

import "time"

// busyWaitLimit is the longest delay spun on the CPU.
// Every step period stays below it.
const busyWaitLimit = 10000

// sleepMicros busy-waits short step delays and yields for long ones
func sleepMicros(c *SystemClock, us uint32) {
	if us > busyWaitLimit {
		time.Sleep(time.Duration(us) * time.Microsecond)
		return
	}
	deadline := c.Micros() + uint64(us)
	for c.Micros() < deadline {
	}
}
