package motion

import (
	"context"

	"mmuctl/core"
)

// LoadIntoPrinter pushes loaded filament the last stretch into the
// extruder gears. The pulley current drops after ReduceAfter steps so
// the gears are not ground, and the door sensor byte ends the push. The
// idler stays engaged since the filament is still loaded.
func (c *Controller) LoadIntoPrinter(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	if !c.loaded {
		return nil
	}
	pl := c.cfg.PrinterLoad
	slot := c.slot
	return c.guard(ctx, c.expectStall(func() error {
		if !c.loaded {
			// a fault pulled the filament back before re-homing
			c.alignSlot(slot)
			if err := c.load(ctx); err != nil {
				return err
			}
		}
		c.engageIdler()
		c.pulley(core.Forward, pl.Steps, constant(pl.Period), func(done int) bool {
			if done == pl.ReduceAfter {
				c.hw.Driver.SetCurrent(core.AxisPulley, pl.ReducedCurrent[0], pl.ReducedCurrent[1])
			}
			return c.sentinelStop(done)
		})
		if err := c.hw.Driver.SetMode(c.mode); err != nil {
			return err
		}
		return c.checkDrivers()
	}))
}

// FeedToFinda feeds filament of the active slot until the sensor sees it,
// then backs it off again. The user can stop the feed with any button
// once it has run AbortAfter steps. It reports whether the sensor
// triggered.
func (c *Controller) FeedToFinda(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return false, ErrFatal
	}
	if !c.homed {
		return false, ErrNotHomed
	}
	if int(c.slot) >= c.cfg.Slots {
		return false, ErrInvalidSlot
	}
	ff := c.cfg.FeedToFinda
	var found bool
	err := c.guard(ctx, c.expectStall(func() error {
		c.engageIdler()
		c.hw.Driver.SetCurrent(core.AxisPulley, ff.Current[0], ff.Current[1])
		found = false
		c.pulley(core.Forward, ff.Steps, constant(ff.Period), func(done int) bool {
			if c.hw.Sensor.Present() {
				found = true
				return true
			}
			return done > ff.AbortAfter && c.hw.Buttons.Clicked() != core.ButtonNone
		})
		if found {
			c.pulley(core.Reverse, ff.Retract, constant(ff.Period), nil)
		}
		c.parkIdler()
		if err := c.hw.Driver.SetMode(c.mode); err != nil {
			return err
		}
		return c.checkDrivers()
	}))
	return found, err
}

// InitPulley exercises the pulley at power up while sweeping the slot
// LEDs, so the user sees the feeder is alive.
func (c *Controller) InitPulley() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return
	}
	ip := c.cfg.InitPulley
	for _, dir := range []core.Direction{core.Forward, core.Reverse} {
		for s := 0; s < c.cfg.Slots; s++ {
			slot := s
			if dir == core.Reverse {
				slot = c.cfg.Slots - 1 - s
			}
			c.hw.Indicator.Signal(core.PatternActiveSlot, slot)
			c.pulley(dir, ip.Steps/c.cfg.Slots, constant(ip.Period), nil)
		}
	}
	c.hw.Indicator.Signal(core.PatternOff, 0)
}

// JogPulley moves the pulley by steps, used by bowden calibration
func (c *Controller) JogPulley(ctx context.Context, steps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guard(ctx, func() error {
		c.move(MotionRequest{Pulley: steps})
		return c.checkDrivers()
	})
}
