// Package mmu is the feeder's top level: it reads printer commands from
// the serial link, services the front panel buttons and sequences the
// motion procedures, all from one cooperative loop.
package mmu

import (
	"context"
	"errors"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/protocol"
	"mmuctl/storage"
)

// State is the unit's top level state
type State uint8

const (
	StateIdle State = iota
	StateSetup
	StatePrinting
	StateSignalFilament
	StateWait
	StateWaitOk
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSetup:
		return "setup"
	case StatePrinting:
		return "printing"
	case StateSignalFilament:
		return "signal-filament"
	case StateWait:
		return "wait"
	case StateWaitOk:
		return "wait-ok"
	case StateFatal:
		return "fatal"
	}
	return "state"
}

// ErrReset is returned by Run and Step when the printer asked for a reset
var ErrReset = errors.New("reset requested")

// Store is the persisted data the unit edits directly. storage.Store
// implements it.
type Store interface {
	DriveErrors() uint16
	Bowden(slot int) (*storage.BowdenSession, error)
	Erase() error
}

// Link is the printer command line. protocol.Link implements it.
type Link interface {
	ReadLine() (string, bool)
	Send(reply []byte) error
}

// Parts are the unit's collaborators
type Parts struct {
	Controller *motion.Controller
	Store      Store
	Link       Link
	Buttons    core.ButtonInput
	Indicator  core.Indicator
	Clock      core.Clock
}

// Unit is the top level state machine
type Unit struct {
	Parts
	cfg   motion.Config
	state State
	types []uint8

	// PollMillis is the idle loop period
	PollMillis uint32
}

// NewUnit returns a unit in the Idle state
func NewUnit(p Parts) *Unit {
	cfg := p.Controller.Config()
	return &Unit{
		Parts:      p,
		cfg:        cfg,
		types:      make([]uint8, cfg.Slots),
		PollMillis: 10,
	}
}

// State returns the current state
func (u *Unit) State() State {
	return u.state
}

// FilamentType returns the type tag the printer set for slot
func (u *Unit) FilamentType(slot int) uint8 {
	if slot < 0 || slot >= len(u.types) {
		return 0
	}
	return u.types[slot]
}

// Start runs the power up sequence and announces the unit on the link.
// With setup set, as when the middle button is held at power up, the
// unit enters the setup menu instead of Idle.
func (u *Unit) Start(setup bool) error {
	if err := u.Controller.Init(); err != nil {
		return err
	}
	if !u.Controller.Loaded() {
		u.Controller.InitPulley()
	}
	u.state = StateIdle
	if setup {
		u.state = StateSetup
	}
	core.DebugPrintln("[MMU] started in " + u.state.String())
	return u.Link.Send([]byte("start\n"))
}

// Run steps the unit until ctx ends or the printer requests a reset
func (u *Unit) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := u.Step(ctx); err != nil {
			return err
		}
	}
}

// Step handles at most one command line and then runs one pass of the
// current state. Only context errors and ErrReset end the loop; failed
// operations are logged and a fatal controller parks the unit in
// StateFatal.
func (u *Unit) Step(ctx context.Context) error {
	if line, ok := u.Link.ReadLine(); ok {
		if err := u.Handle(ctx, line); err != nil && u.stop(ctx, err) {
			return err
		}
	}
	if err := u.runState(ctx); err != nil && u.stop(ctx, err) {
		return err
	}
	return nil
}

// stop reports whether err ends the run loop and logs it otherwise
func (u *Unit) stop(ctx context.Context, err error) bool {
	if errors.Is(err, ErrReset) || ctx.Err() != nil {
		return true
	}
	core.DebugPrintln("[MMU] " + err.Error())
	return false
}

// check moves the unit to StateFatal when err says the controller halted
func (u *Unit) check(err error) error {
	if errors.Is(err, motion.ErrFatal) {
		u.state = StateFatal
	}
	return err
}

func (u *Unit) runState(ctx context.Context) error {
	switch u.state {
	case StateSetup:
		err := u.Setup(ctx)
		if ctx.Err() == nil {
			u.state = StateIdle
		}
		return u.check(err)
	case StateIdle:
		return u.check(u.manualSelect(ctx))
	case StateSignalFilament:
		if u.Controller.FilamentRemoved() {
			u.state = StateIdle
			return nil
		}
		u.Indicator.Signal(core.PatternFilamentPresent, int(u.Controller.ActiveSlot()))
		u.sleep(u.cfg.FaultBlinkMs)
	case StateWait, StateWaitOk:
		return u.check(u.wait(ctx))
	case StateFatal:
		u.Indicator.Signal(core.PatternFatal, int(u.Controller.ActiveSlot()))
		u.sleep(u.cfg.FaultBlinkMs)
	default:
		u.sleep(u.PollMillis)
	}
	return nil
}

// manualSelect lets the user step through the slots with left and right
// and feed the selected filament to the sensor with middle.
func (u *Unit) manualSelect(ctx context.Context) error {
	slot := u.Controller.ActiveSlot()
	switch u.Buttons.Clicked() {
	case core.ButtonRight:
		if slot < u.cfg.Service() {
			return u.selectSlot(ctx, slot+1)
		}
	case core.ButtonLeft:
		if slot > 0 {
			return u.selectSlot(ctx, slot-1)
		}
	case core.ButtonMiddle:
		if int(slot) < u.cfg.Slots {
			if err := u.selectSlot(ctx, slot); err != nil {
				return err
			}
			_, err := u.Controller.FeedToFinda(ctx)
			return err
		}
	default:
		u.sleep(u.PollMillis)
	}
	return nil
}

// wait blinks the failure pattern until the user continues with right.
// Middle checks the filament and shows the result.
func (u *Unit) wait(ctx context.Context) error {
	p := core.PatternLoadFailure
	if u.state == StateWaitOk {
		p = core.PatternOkAfterFailure
	}
	u.Indicator.Signal(p, int(u.Controller.ActiveSlot()))
	u.sleep(u.cfg.BlinkMillis)

	switch u.Buttons.Clicked() {
	case core.ButtonMiddle:
		ok, err := u.Controller.ProbeAlignment(ctx)
		if err != nil {
			return err
		}
		if ok {
			u.state = StateWaitOk
		} else {
			u.state = StateWait
		}
	case core.ButtonRight:
		u.state = StateIdle
		return u.Link.Send(protocol.OK())
	}
	return nil
}

// ensureHomed homes on first use of absolute positions
func (u *Unit) ensureHomed(ctx context.Context) error {
	if u.Controller.Homed() {
		return nil
	}
	return u.Controller.Home(ctx)
}

// selectSlot homes if needed and selects slot
func (u *Unit) selectSlot(ctx context.Context, slot motion.Slot) error {
	if err := u.ensureHomed(ctx); err != nil {
		return err
	}
	return u.Controller.Select(ctx, slot)
}

func (u *Unit) sleep(ms uint32) {
	core.SleepMillis(u.Clock, ms)
}
