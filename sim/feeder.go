package sim

import (
	"errors"

	"mmuctl/core"
)

// DefaultTip is where a spool's filament end rests relative to the
// sensor: 570 pulley steps short of it.
const DefaultTip = -570

// Geometry places the slots on the selector and idler axes
type Geometry struct {
	Slots         int
	SelectorPitch int
	IdlerPitch    int
}

// Limits is the mechanical travel of an axis
type Limits struct {
	Min, Max int
}

type faultQueue struct {
	status core.DriverStatus
	left   int // negative for a persistent fault
}

// Feeder models the mechanics and implements core.AxisDriver and
// core.FilamentSensor. Physical positions match the controller's frame
// once it has homed: the forward limits sit at the configured home
// offsets, slot s has the selector at s*pitch and the idler engaged at
// -s*pitch.
type Feeder struct {
	geo    Geometry
	limits [core.NumAxes]Limits

	pos        [core.NumAxes]int
	dir        [core.NumAxes]core.Direction
	blocked    [core.NumAxes]bool
	steps      [core.NumAxes]int
	enabled    [core.NumAxes]bool
	thresholds [core.NumAxes]uint16
	current    [core.NumAxes][2]uint8
	mode       core.DriverMode

	// DetectThreshold is the lowest stall threshold at which an axis
	// pressed against its limit reports a stall
	DetectThreshold [core.NumAxes]uint16

	// ImmediateStall makes an axis report a stall on every sample
	ImmediateStall [core.NumAxes]bool

	tips  []int
	stuck []bool

	faults       [core.NumAxes]faultQueue
	resetPending [core.NumAxes]bool
	statusErr    error

	watches []tipWatch
}

type tipWatch struct {
	slot, tip int
	fn        func()
}

// NewFeeder returns a feeder with every spool's filament at DefaultTip,
// both positioning axes somewhere inside their travel, and the driver
// reset flag raised as after power up.
func NewFeeder(geo Geometry, selector, idler Limits) *Feeder {
	f := &Feeder{
		geo:   geo,
		tips:  make([]int, geo.Slots),
		stuck: make([]bool, geo.Slots),
		mode:  core.ModeNormal,
	}
	f.limits[core.AxisSelector] = selector
	f.limits[core.AxisIdler] = idler
	f.pos[core.AxisSelector] = (selector.Min + selector.Max) / 3
	f.pos[core.AxisIdler] = (idler.Min + idler.Max) / 2
	for i := range f.tips {
		f.tips[i] = DefaultTip
	}
	for a := range f.resetPending {
		f.resetPending[a] = true
	}
	return f
}

// Step implements core.AxisDriver
func (f *Feeder) Step(axis core.Axis) {
	f.steps[axis]++
	d := int(f.dir[axis])
	if axis == core.AxisPulley {
		f.stepPulley(d)
		return
	}
	next := f.pos[axis] + d
	lim := f.limits[axis]
	if next < lim.Min || next > lim.Max || (axis == core.AxisSelector && f.selectorBlocked()) {
		f.blocked[axis] = true
		return
	}
	f.blocked[axis] = false
	f.pos[axis] = next
}

// selectorBlocked reports filament crossing the selector, which keeps it
// from moving.
func (f *Feeder) selectorBlocked() bool {
	s := f.SelectorSlot()
	return s >= 0 && f.tips[s] >= 0
}

func (f *Feeder) stepPulley(d int) {
	s := f.EngagedSlot()
	if s < 0 || f.stuck[s] {
		return
	}
	f.tips[s] += d
	for _, w := range f.watches {
		if w.slot == s && w.tip == f.tips[s] {
			w.fn()
		}
	}
}

// SetDirection implements core.AxisDriver
func (f *Feeder) SetDirection(axis core.Axis, dir core.Direction) {
	f.dir[axis] = dir
}

// IsStalled implements core.AxisDriver
func (f *Feeder) IsStalled(axis core.Axis) bool {
	if f.ImmediateStall[axis] {
		return true
	}
	return f.blocked[axis] && f.thresholds[axis] >= f.DetectThreshold[axis]
}

// SetStallThreshold implements core.AxisDriver
func (f *Feeder) SetStallThreshold(axis core.Axis, threshold uint16) {
	f.thresholds[axis] = threshold
}

// SetCurrent implements core.AxisDriver
func (f *Feeder) SetCurrent(axis core.Axis, holding, running uint8) {
	f.current[axis] = [2]uint8{holding, running}
}

// SetMode implements core.AxisDriver
func (f *Feeder) SetMode(mode core.DriverMode) error {
	f.mode = mode
	return nil
}

// Status implements core.AxisDriver. The power up reset flag is reported
// once per axis, then injected faults.
func (f *Feeder) Status(axis core.Axis) (core.DriverStatus, error) {
	var st core.DriverStatus
	if f.resetPending[axis] {
		st.Reset = true
		f.resetPending[axis] = false
	}
	if q := &f.faults[axis]; q.left != 0 {
		st = q.status
		if q.left > 0 {
			q.left--
		}
	}
	return st, f.statusErr
}

// Enable implements core.AxisDriver
func (f *Feeder) Enable(axis core.Axis, on bool) {
	f.enabled[axis] = on
}

// Present implements core.FilamentSensor: the filament of the channel
// under the selector has reached the sensor.
func (f *Feeder) Present() bool {
	s := f.SelectorSlot()
	return s >= 0 && f.tips[s] >= 0
}

// SelectorSlot returns the channel the selector is aligned with, or -1
func (f *Feeder) SelectorSlot() int {
	p := f.pos[core.AxisSelector]
	half := f.geo.SelectorPitch / 2
	for s := 0; s < f.geo.Slots; s++ {
		c := s * f.geo.SelectorPitch
		if p > c-half && p < c+half {
			return s
		}
	}
	return -1
}

// EngagedSlot returns the slot whose filament the idler presses on the
// pulley, or -1 when the idler is parked or between slots.
func (f *Feeder) EngagedSlot() int {
	p := f.pos[core.AxisIdler]
	for s := 0; s < f.geo.Slots; s++ {
		if p == -s*f.geo.IdlerPitch {
			return s
		}
	}
	return -1
}

// InjectFault makes the next count Status calls on axis report st.
// A negative count keeps the fault forever.
func (f *Feeder) InjectFault(axis core.Axis, st core.DriverStatus, count int) {
	f.faults[axis] = faultQueue{status: st, left: count}
}

// ClearFaults removes injected faults
func (f *Feeder) ClearFaults() {
	f.faults = [core.NumAxes]faultQueue{}
	f.statusErr = nil
}

// FailStatusReads makes every Status call return an error
func (f *Feeder) FailStatusReads() {
	f.statusErr = errors.New("sim: status read failed")
}

// SetTip places the filament end of slot relative to the sensor
func (f *Feeder) SetTip(slot, tip int) {
	f.tips[slot] = tip
}

// Tip returns the filament end of slot relative to the sensor
func (f *Feeder) Tip(slot int) int {
	return f.tips[slot]
}

// Jam blocks or frees the filament of slot
func (f *Feeder) Jam(slot int, stuck bool) {
	f.stuck[slot] = stuck
}

// WatchTip calls fn each time the filament end of slot reaches tip
func (f *Feeder) WatchTip(slot, tip int, fn func()) {
	f.watches = append(f.watches, tipWatch{slot: slot, tip: tip, fn: fn})
}

// SetPosition moves an axis by hand
func (f *Feeder) SetPosition(axis core.Axis, pos int) {
	f.pos[axis] = pos
}

// Position returns the physical position of axis
func (f *Feeder) Position(axis core.Axis) int {
	return f.pos[axis]
}

// Steps returns the pulses emitted on axis, including blocked ones
func (f *Feeder) Steps(axis core.Axis) int {
	return f.steps[axis]
}

// Mode returns the driver mode last set
func (f *Feeder) Mode() core.DriverMode {
	return f.mode
}

// Current returns the holding and running current last set on axis
func (f *Feeder) Current(axis core.Axis) (holding, running uint8) {
	return f.current[axis][0], f.current[axis][1]
}

// Enabled reports whether axis is energized
func (f *Feeder) Enabled(axis core.Axis) bool {
	return f.enabled[axis]
}
