package mmu

import (
	"context"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/storage"
)

// Setup menu items, stepped through with left (next) and right
// (previous) and activated with middle. The item is shown as the slot of
// PatternSetup.
const (
	MenuNone = iota
	MenuBowden
	MenuErase
	MenuUnlockErase
	MenuExit
)

// Setup runs the setup menu until an item ends it. Erasing the store
// only works after the unlock item was activated.
func (u *Unit) Setup(ctx context.Context) error {
	item := MenuNone
	locked := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.Indicator.Signal(core.PatternSetup, item)
		u.sleep(u.cfg.BlinkMillis)

		switch u.Buttons.Clicked() {
		case core.ButtonLeft:
			if item < MenuExit {
				item++
			}
		case core.ButtonRight:
			if item > MenuNone {
				item--
			}
		case core.ButtonMiddle:
			switch item {
			case MenuBowden:
				return u.calibrationMenu(ctx)
			case MenuErase:
				if !locked {
					core.DebugPrintln("[MMU] erasing store")
					return u.Store.Erase()
				}
			case MenuUnlockErase:
				locked = false
			case MenuExit:
				return nil
			}
		}
	}
}

// calibrationMenu picks the slot to calibrate with left and right;
// middle calibrates it, or leaves the menu when the slot after the last
// one is picked.
func (u *Unit) calibrationMenu(ctx context.Context) error {
	if err := u.ensureHomed(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slot := u.Controller.ActiveSlot()
		switch u.Buttons.Clicked() {
		case core.ButtonRight:
			if slot < u.cfg.Service() {
				if err := u.Controller.Select(ctx, slot+1); err != nil {
					return err
				}
			}
		case core.ButtonLeft:
			if slot > 0 {
				if err := u.Controller.Select(ctx, slot-1); err != nil {
					return err
				}
			}
		case core.ButtonMiddle:
			if int(slot) >= u.cfg.Slots {
				return u.Controller.Select(ctx, 0)
			}
			if err := u.CalibrateBowden(ctx, slot); err != nil {
				return err
			}
		default:
			u.sleep(u.PollMillis)
		}
	}
}

// CalibrateBowden loads slot and lets the user trim the bowden length
// until the filament tip sits just above the extruder gears: left feeds
// one length step more, right one less, middle stores the length and
// unloads. Nothing happens while filament is loaded.
func (u *Unit) CalibrateBowden(ctx context.Context, slot motion.Slot) error {
	c := u.Controller
	if c.Loaded() {
		return nil
	}
	session, err := u.Store.Bowden(int(slot))
	if err != nil {
		return err
	}
	if err := c.Select(ctx, slot); err != nil {
		return err
	}
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.SetPulleyCurrent(1, 30)

	step := storage.BowdenStepSize
	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch u.Buttons.Clicked() {
		case core.ButtonLeft:
			if session.Increase() {
				err = c.JogPulley(ctx, step)
			}
		case core.ButtonRight:
			if session.Decrease() {
				err = c.JogPulley(ctx, -step)
			}
		case core.ButtonMiddle:
			done = true
		}
		if err != nil {
			return err
		}
		u.Indicator.Signal(core.PatternSetup, MenuBowden)
		u.sleep(u.PollMillis)
	}
	if err := session.Close(); err != nil {
		return err
	}
	core.DebugValue("[MMU] bowden length", "slot", int(slot))
	return c.Unload(ctx)
}
