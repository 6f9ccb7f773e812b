// Package motion is the feeder's motion and filament state machine:
// coordinated stepping of the pulley, selector and idler, stall based
// homing, the load and unload procedures with their interactive recovery,
// and drive fault escalation.
package motion

import (
	"sync"

	"mmuctl/core"
)

// Slot is a filament channel 0..Slots-1, or one of the virtual positions
// Config.Service and Config.Park.
type Slot int

// Persistence is the calibration and fault store the controller consumes.
// storage.Store implements it.
type Persistence interface {
	BowdenLength(slot int) int
	LastFilament() (int, bool)
	SetLastFilament(slot int) error
	IncrementDriveErrors() error
}

// Sentinel reports whether the printer's door sensor byte arrived since
// the last poll.
type Sentinel interface {
	Poll() bool
}

// Hardware bundles the collaborators of a Controller. Sentinel may be nil.
type Hardware struct {
	Driver    core.AxisDriver
	Sensor    core.FilamentSensor
	Buttons   core.ButtonInput
	Indicator core.Indicator
	Clock     core.Clock
	Store     Persistence
	Sentinel  Sentinel
}

// Trace receives notifications useful to tests and the simulator.
// Any field may be nil.
type Trace struct {
	Move  func(req MotionRequest)
	Phase func(procedure, phase string)
}

// Controller owns the axis positions and filament state. Exported methods
// serialize on an internal mutex; a call blocks for the whole motion.
type Controller struct {
	mu    sync.Mutex
	cfg   Config
	hw    Hardware
	trace Trace

	pos [core.NumAxes]int
	dir [core.NumAxes]core.Direction

	mode   core.DriverMode
	homed  bool
	homing bool
	// pulley stalls are part of load and unload pushes while set
	stallExpected bool
	slot          Slot
	idlerEngaged  bool
	loaded        bool
	doorSensor    bool
	fatal         bool
	faults        int
}

// NewController returns a controller in the unhomed state
func NewController(cfg Config, hw Hardware) *Controller {
	return &Controller{
		cfg:  cfg,
		hw:   hw,
		mode: core.ModeNormal,
	}
}

// SetTrace installs trace hooks
func (c *Controller) SetTrace(t Trace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = t
}

// Config returns the controller's configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// Init runs the power up sequence: the driver reset flags are consumed,
// the driver is programmed for the current mode, the last loaded slot is
// restored and filament already in the sensor marks the feeder loaded.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for a := core.Axis(0); a < core.NumAxes; a++ {
		if _, err := c.hw.Driver.Status(a); err != nil {
			core.DebugPrintln("[MOTION] status read failed on " + a.String() + ": " + err.Error())
		}
		c.hw.Driver.Enable(a, true)
	}
	if err := c.hw.Driver.SetMode(c.mode); err != nil {
		return err
	}
	if slot, ok := c.hw.Store.LastFilament(); ok && slot < c.cfg.Slots {
		c.slot = Slot(slot)
	}
	if c.hw.Sensor.Present() {
		c.loaded = true
		c.idlerEngaged = true
	}
	return nil
}

// SetMode switches between the normal and stealth current profiles
func (c *Controller) SetMode(mode core.DriverMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	c.mode = mode
	return c.hw.Driver.SetMode(mode)
}

// Mode returns the configured driver mode
func (c *Controller) Mode() core.DriverMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Position returns the step position of axis
func (c *Controller) Position(axis core.Axis) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos[axis]
}

// Homed reports whether positions are referenced
func (c *Controller) Homed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.homed
}

// ActiveSlot returns the slot the selector was last sent to
func (c *Controller) ActiveSlot() Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// Loaded reports whether filament is loaded through the bowden tube
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// IdlerEngaged reports whether the idler presses filament on the pulley
func (c *Controller) IdlerEngaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idlerEngaged
}

// DoorSensor reports whether the printer ever sent the door sensor byte
func (c *Controller) DoorSensor() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doorSensor
}

// Fatal reports whether the controller is halted
func (c *Controller) Fatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// FilamentPresent reads the sensor
func (c *Controller) FilamentPresent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hw.Sensor.Present()
}

// FilamentRemoved clears the loaded flag once the user has pulled the
// filament out by hand. It reports false while the sensor still sees it.
func (c *Controller) FilamentRemoved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hw.Sensor.Present() {
		return false
	}
	c.loaded = false
	return true
}

// SetPulleyCurrent overrides the pulley current until the next mode change
func (c *Controller) SetPulleyCurrent(holding, running uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hw.Driver.SetCurrent(core.AxisPulley, holding, running)
}

func (c *Controller) phase(procedure, phase string) {
	if c.trace.Phase != nil {
		c.trace.Phase(procedure, phase)
	}
}

func (c *Controller) sleepMillis(ms uint32) {
	core.SleepMillis(c.hw.Clock, ms)
}
