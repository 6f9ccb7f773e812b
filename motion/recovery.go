package motion

import (
	"context"

	"mmuctl/core"
)

// recoverLoop is the interactive recovery loop shared by load and unload.
// With the idler parked the user can free the filament by hand, then:
//
//	Left    nudge the filament a little in dir
//	Middle  run the alignment probe and show its result
//	Right   run the probe and leave the loop when it passes
//
// There is no timeout; only ctx ends the loop early.
func (c *Controller) recoverLoop(ctx context.Context, procedure string, dir core.Direction) error {
	c.phase(procedure, "recovery")
	c.parkIdler()
	passed := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if passed {
			c.hw.Indicator.Signal(core.PatternOkAfterFailure, int(c.slot))
		} else {
			c.hw.Indicator.Signal(core.PatternLoadFailure, int(c.slot))
		}
		c.sleepMillis(c.cfg.BlinkMillis)

		b := c.hw.Buttons.Clicked()
		if b == core.ButtonNone {
			continue
		}
		core.RecordEvent(core.EvtButton, core.AxisPulley, int32(b), 0)
		c.engageIdler()
		switch b {
		case core.ButtonLeft:
			c.pulleyFixed(dir, c.cfg.Nudge)
		case core.ButtonMiddle:
			passed = c.probe()
		case core.ButtonRight:
			passed = c.probe()
			if passed {
				return nil
			}
		}
		c.parkIdler()
	}
}
