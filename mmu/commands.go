package mmu

import (
	"context"
	"errors"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/protocol"
)

// Handle parses and executes one command line. Malformed lines and
// commands with operands out of range are ignored without a reply. Once
// the controller is halted every command but a reset fails with
// motion.ErrFatal.
func (u *Unit) Handle(ctx context.Context, line string) error {
	cmd, err := protocol.ParseLine(line)
	if err != nil {
		if !errors.Is(err, protocol.ErrEmptyLine) {
			core.DebugPrintln("[MMU] ignored " + line + ": " + err.Error())
		}
		return nil
	}
	if u.state == StateFatal && cmd.Op != protocol.OpReset {
		return motion.ErrFatal
	}
	return u.check(u.Execute(ctx, cmd))
}

// Execute runs a parsed command and sends its reply
func (u *Unit) Execute(ctx context.Context, cmd protocol.Command) error {
	switch cmd.Op {
	case protocol.OpToolChange:
		return u.executeToolChange(ctx, cmd)
	case protocol.OpLoad:
		return u.executeLoad(ctx, cmd)
	case protocol.OpUnload:
		return u.executeUnload(ctx)
	case protocol.OpMode:
		return u.executeMode(cmd)
	case protocol.OpReset:
		if cmd.Value == 0 {
			return ErrReset
		}
	case protocol.OpReadSensor:
		if cmd.Value == 0 {
			present := 0
			if u.Controller.FilamentPresent() {
				present = 1
			}
			return u.Link.Send(protocol.Value(present))
		}
	case protocol.OpStatus:
		return u.executeStatus(cmd)
	case protocol.OpFilamentType:
		if u.validSlot(cmd.Value) && cmd.Has2 && cmd.Extra >= 0 && cmd.Extra <= 2 {
			u.types[cmd.Value] = uint8(cmd.Extra)
			return u.Link.Send(protocol.OK())
		}
	case protocol.OpContinue:
		if cmd.Value == 0 {
			return u.reply(u.Controller.LoadIntoPrinter(ctx))
		}
	case protocol.OpEject:
		return u.executeEject(ctx, cmd)
	case protocol.OpRecover:
		if cmd.Value == 0 {
			err := u.Controller.RecoverAfterEject(ctx)
			if err == nil {
				u.state = StateIdle
			}
			return u.reply(err)
		}
	case protocol.OpWait:
		if cmd.Value == 0 {
			u.state = StateWait
		}
	case protocol.OpCut:
		// no cutter fitted: acknowledged so the printer carries on
		if u.validSlot(cmd.Value) {
			return u.Link.Send(protocol.OK())
		}
	}
	return nil
}

func (u *Unit) validSlot(n int) bool {
	return n >= 0 && n < u.cfg.Slots
}

// reply acknowledges a successful operation
func (u *Unit) reply(err error) error {
	if err != nil {
		return err
	}
	return u.Link.Send(protocol.OK())
}

// executeToolChange unloads whatever else is loaded, then selects and
// loads the requested slot.
func (u *Unit) executeToolChange(ctx context.Context, cmd protocol.Command) error {
	if !u.validSlot(cmd.Value) {
		return nil
	}
	u.state = StatePrinting
	slot := motion.Slot(cmd.Value)
	c := u.Controller

	if c.Loaded() && c.ActiveSlot() == slot && c.Homed() {
		return u.Link.Send(protocol.OK())
	}
	if c.Loaded() {
		if err := c.Unload(ctx); err != nil {
			return err
		}
	}
	if err := u.selectSlot(ctx, slot); err != nil {
		return err
	}
	return u.reply(c.Load(ctx))
}

// executeLoad feeds the slot's filament to the sensor and back, ready
// for a later tool change. Filament already loaded is signaled instead.
func (u *Unit) executeLoad(ctx context.Context, cmd protocol.Command) error {
	if !u.validSlot(cmd.Value) {
		return nil
	}
	if u.Controller.Loaded() {
		u.state = StateSignalFilament
		return u.Link.Send(protocol.OK())
	}
	if err := u.selectSlot(ctx, motion.Slot(cmd.Value)); err != nil {
		return err
	}
	if _, err := u.Controller.FeedToFinda(ctx); err != nil {
		return err
	}
	return u.Link.Send(protocol.OK())
}

func (u *Unit) executeUnload(ctx context.Context) error {
	c := u.Controller
	if c.Loaded() {
		if err := c.Unload(ctx); err != nil {
			return err
		}
	}
	u.state = StateIdle
	if c.FilamentPresent() {
		u.state = StateSignalFilament
	}
	return u.Link.Send(protocol.OK())
}

func (u *Unit) executeMode(cmd protocol.Command) error {
	var mode core.DriverMode
	switch cmd.Value {
	case 0:
		mode = core.ModeNormal
	case 1:
		mode = core.ModeStealth
	default:
		return nil
	}
	return u.reply(u.Controller.SetMode(mode))
}

func (u *Unit) executeStatus(cmd protocol.Command) error {
	switch cmd.Value {
	case 0:
		return u.Link.Send(protocol.OK())
	case 1:
		return u.Link.Send(protocol.Value(protocol.FirmwareVersion))
	case 2:
		return u.Link.Send(protocol.Value(protocol.FirmwareBuild))
	case 3:
		return u.Link.Send(protocol.Value(int(u.Store.DriveErrors())))
	}
	return nil
}

// executeEject clears loaded filament first, since homing waits for the
// sensor to clear.
func (u *Unit) executeEject(ctx context.Context, cmd protocol.Command) error {
	if !u.validSlot(cmd.Value) {
		return nil
	}
	c := u.Controller
	if c.Loaded() {
		if err := c.Unload(ctx); err != nil {
			return err
		}
	}
	if err := u.ensureHomed(ctx); err != nil {
		return err
	}
	if err := c.Eject(ctx, motion.Slot(cmd.Value)); err != nil {
		return err
	}
	u.state = StatePrinting
	return u.Link.Send(protocol.OK())
}
