package motion

import (
	"context"

	"mmuctl/core"
)

// ProbeAlignment checks that filament moves freely through the sensor:
// it pulls the filament out of the sensor if needed, pushes it back until
// the sensor confirms it, then retracts it clear again. Either phase
// running out of steps reports false.
func (c *Controller) ProbeAlignment(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return false, ErrFatal
	}
	var ok bool
	err := c.guard(ctx, c.expectStall(func() error {
		engaged := c.idlerEngaged
		c.engageIdler()
		ok = c.probe()
		if !engaged {
			c.parkIdler()
		}
		return c.checkDrivers()
	}))
	return ok, err
}

// probe expects the idler engaged
func (c *Controller) probe() bool {
	p := c.cfg.Probe
	speed := constant(p.Period)
	if c.hw.Sensor.Present() {
		c.pulleyUntil(core.Reverse, p.Steps, speed, false, p.Hits)
		if c.hw.Sensor.Present() {
			return false
		}
	}
	if _, ok := c.pulleyUntil(core.Forward, p.Steps, speed, true, p.Hits); !ok {
		return false
	}
	c.pulley(core.Reverse, p.Retract, speed, nil)
	return true
}
