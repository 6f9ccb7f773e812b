//go:build !tinygo

package core

import "time"

// sleepMicros hands the delay to the Go scheduler (regular Go implementation)
func sleepMicros(_ *SystemClock, us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
