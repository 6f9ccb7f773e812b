package motion

import (
	"context"

	"mmuctl/core"
)

// ejectChannel is where the selector waits while slot's filament is
// pushed out: the far end of the channel row from slot.
func (cfg Config) ejectChannel(slot Slot) Slot {
	if int(slot) <= (cfg.Slots-1)/2 {
		return Slot(cfg.Slots - 1)
	}
	return 0
}

// Eject pushes the filament of slot out of the feeder so the user can
// take the spool away. Loaded filament is unloaded first. The selector
// stands aside while the pulley pushes, and the idler parks at the end.
func (c *Controller) Eject(ctx context.Context, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	if !c.homed {
		return ErrNotHomed
	}
	if slot < 0 || int(slot) >= c.cfg.Slots {
		return ErrInvalidSlot
	}
	return c.guard(ctx, func() error {
		if c.loaded {
			if err := c.unload(ctx); err != nil {
				return err
			}
		}
		c.slot = slot
		idler, _, _ := c.cfg.SlotPosition(slot)
		_, selector, _ := c.cfg.SlotPosition(c.cfg.ejectChannel(slot))
		if !c.idlerEngaged {
			idler -= c.cfg.IdlerParkSteps
		}
		c.moveProportional(idler-c.pos[core.AxisIdler], selector-c.pos[core.AxisSelector])

		c.engageIdler()
		c.pulleyFixed(core.Forward, c.cfg.Eject)
		c.parkIdler()
		return c.checkDrivers()
	})
}

// RecoverAfterEject pulls the ejected filament end back onto the pulley
// and returns the selector to the active slot.
func (c *Controller) RecoverAfterEject(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	if !c.homed {
		return ErrNotHomed
	}
	return c.guard(ctx, func() error {
		c.engageIdler()
		c.pulleyFixed(core.Reverse, c.cfg.Eject)
		c.parkIdler()
		c.selectSlot(c.slot)
		return c.checkDrivers()
	})
}
