package motion

import (
	"context"
	"errors"
	"fmt"

	"mmuctl/core"
)

// Home references the idler and then the selector against their forward
// limits, then moves to slot 0 with the idler parked. Homing that fails
// at every stall level halts the controller.
func (c *Controller) Home(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	return c.home(ctx)
}

func (c *Controller) home(ctx context.Context) error {
	c.homed = false
	c.homing = true
	restored := false
	defer func() {
		c.homing = false
		if !restored {
			if err := c.hw.Driver.SetMode(c.mode); err != nil {
				core.DebugPrintln("[MOTION] driver mode not restored: " + err.Error())
			}
		}
	}()

	if err := c.hw.Driver.SetMode(core.ModeHoming); err != nil {
		return err
	}
	if err := c.homeAxis(ctx, core.AxisIdler); err != nil {
		return c.homingFailed(err)
	}
	if err := c.waitSensorClear(ctx); err != nil {
		return err
	}
	if err := c.homeAxis(ctx, core.AxisSelector); err != nil {
		return c.homingFailed(err)
	}
	restored = true
	if err := c.hw.Driver.SetMode(c.mode); err != nil {
		return err
	}

	// limits to slot 0, idler engaged, then park
	c.move(MotionRequest{
		Idler:    -c.cfg.Idler.HomeOffset,
		Selector: -c.cfg.Selector.HomeOffset,
	})
	c.idlerEngaged = true
	c.loaded = false
	c.slot = 0
	c.parkIdler()

	c.homed = true
	c.hw.Indicator.Signal(core.PatternHomed, 0)
	c.sleepMillis(c.cfg.BlinkMillis)
	c.hw.Indicator.Signal(core.PatternActiveSlot, int(c.slot))
	core.DebugPrintln("[MOTION] homed")
	return nil
}

// homingFailed halts on exhausted stall levels. A cancelled context is
// passed through untouched.
func (c *Controller) homingFailed(err error) error {
	if errors.Is(err, ErrHomingFailed) {
		return c.enterFatal(err)
	}
	return err
}

// waitSensorClear blocks until no filament crosses the selector. The
// user pulls the filament out and clicks to continue.
func (c *Controller) waitSensorClear(ctx context.Context) error {
	for c.hw.Sensor.Present() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.hw.Indicator.Signal(core.PatternFilamentPresent, int(c.slot))
		c.sleepMillis(c.cfg.BlinkMillis)
		if b := c.hw.Buttons.Clicked(); b != core.ButtonNone {
			core.RecordEvent(core.EvtButton, core.AxisSelector, int32(b), 0)
		}
	}
	return nil
}

// homeAxis tries each stall level in order: retract to the reverse limit,
// then seek the forward limit. A level succeeds when the stall comes after
// at least HomingMinTravel steps and inside the step budget.
func (c *Controller) homeAxis(ctx context.Context, axis core.Axis) error {
	ac := c.cfg.axis(axis)
	for _, level := range ac.StallLevels {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.hw.Driver.SetStallThreshold(axis, level.Backoff)
		c.seekStall(axis, core.Reverse, 0)

		c.hw.Driver.SetStallThreshold(axis, level.Seek)
		travel, stalled := c.seekStall(axis, core.Forward, ac.HomingIgnoreSteps)
		if stalled && travel >= ac.HomingMinTravel {
			c.pos[axis] = ac.HomeOffset
			core.RecordEvent(core.EvtHomed, axis, int32(level.Seek), int32(travel))
			return nil
		}
		core.RecordEvent(core.EvtHomingFailed, axis, int32(level.Seek), int32(travel))
		core.DebugValue("[MOTION] "+axis.String()+" homing level failed", "travel", travel)
	}
	return fmt.Errorf("%s: %w", axis, ErrHomingFailed)
}

// seekStall steps axis in dir until a stall is confirmed or the homing
// budget runs out. Stall samples in the first ignore steps are dropped.
func (c *Controller) seekStall(axis core.Axis, dir core.Direction, ignore int) (int, bool) {
	ac := c.cfg.axis(axis)
	c.setDirection(axis, dir)
	confirm := 0
	for i := 0; i < ac.HomingMaxSteps; i++ {
		c.step(axis)
		c.hw.Clock.SleepMicros(ac.HomingPeriod)
		if i < ignore {
			continue
		}
		if !c.hw.Driver.IsStalled(axis) {
			confirm = 0
			continue
		}
		confirm++
		if confirm > ac.StallConfirm {
			return i + 1, true
		}
	}
	return ac.HomingMaxSteps, false
}
