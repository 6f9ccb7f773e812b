package motion

import (
	"context"

	"mmuctl/core"
)

func (c *Controller) engageIdler() {
	if c.idlerEngaged {
		return
	}
	c.move(MotionRequest{Idler: c.cfg.IdlerParkSteps})
	c.idlerEngaged = true
}

func (c *Controller) parkIdler() {
	if !c.idlerEngaged {
		return
	}
	c.move(MotionRequest{Idler: -c.cfg.IdlerParkSteps})
	c.idlerEngaged = false
}

// Select moves the selector to slot and the idler to the matching
// position, parked unless filament is loaded. Select needs homed axes and
// never unloads: selecting another slot while loaded is an error. Leaving
// Service first retracts the extra service travel; Park only disengages
// the idler.
func (c *Controller) Select(ctx context.Context, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	if !c.homed {
		return ErrNotHomed
	}
	if slot < 0 || slot > c.cfg.Park() {
		return ErrInvalidSlot
	}
	if c.loaded && slot != c.slot {
		return ErrFilamentLoaded
	}
	return c.guard(ctx, func() error {
		c.selectSlot(slot)
		return c.checkDrivers()
	})
}

// alignSlot selects slot unless the selector already stands on it. Homing
// and Eject both move the selector away from the active slot.
func (c *Controller) alignSlot(slot Slot) {
	_, selector, ok := c.cfg.SlotPosition(slot)
	if c.slot == slot && ok && c.pos[core.AxisSelector] == selector {
		return
	}
	c.selectSlot(slot)
}

func (c *Controller) selectSlot(slot Slot) {
	if slot == c.cfg.Park() {
		c.parkIdler()
		return
	}
	service := c.cfg.Service()
	last := Slot(c.cfg.Slots - 1)
	if c.slot == service && slot != service {
		c.moveProportional(0, -c.cfg.ServiceExtra)
		c.slot = last
	}

	target := slot
	if slot == service {
		target = last
	}
	idler, selector, _ := c.cfg.SlotPosition(target)
	if !c.idlerEngaged {
		idler -= c.cfg.IdlerParkSteps
	}
	c.moveProportional(idler-c.pos[core.AxisIdler], selector-c.pos[core.AxisSelector])
	c.slot = target

	if slot == service {
		c.parkIdler()
		c.moveProportional(0, c.cfg.ServiceExtra)
		c.slot = service
		return
	}
	if !c.loaded {
		c.parkIdler()
	}
	c.hw.Indicator.Signal(core.PatternActiveSlot, int(c.slot))
}
