package core

// Axis identifies one of the feeder's stepper axes.
type Axis uint8

const (
	AxisPulley Axis = iota
	AxisSelector
	AxisIdler

	NumAxes = 3
)

func (a Axis) String() string {
	switch a {
	case AxisPulley:
		return "pulley"
	case AxisSelector:
		return "selector"
	case AxisIdler:
		return "idler"
	}
	return "axis" + itoa(int(a))
}

// Direction is the sign of travel on an axis.
// Forward pushes filament towards the printer on the pulley and moves
// the selector and idler towards their homing limit.
type Direction int8

const (
	Forward Direction = 1
	Reverse Direction = -1
)

// DirectionOf returns the direction needed to cover delta steps and the
// absolute step count.
func DirectionOf(delta int) (Direction, int) {
	if delta < 0 {
		return Reverse, -delta
	}
	return Forward, delta
}

// DriverMode selects the current and chopper profile applied to all axes.
type DriverMode uint8

const (
	ModeHoming DriverMode = iota
	ModeNormal
	ModeStealth
)

func (m DriverMode) String() string {
	switch m {
	case ModeHoming:
		return "homing"
	case ModeNormal:
		return "normal"
	case ModeStealth:
		return "stealth"
	}
	return "mode" + itoa(int(m))
}

// DriverStatus is a decoded snapshot of a driver chip's global status
// and per-axis diagnostic flags.
type DriverStatus struct {
	// Global status (GSTAT)
	Reset        bool
	DriverError  bool
	UnderVoltage bool

	// Driver status (DRV_STATUS)
	OverTemp bool
	ShortA   bool
	ShortB   bool
	OpenA    bool
	OpenB    bool
	Stall    bool
	Load     uint16 // StallGuard load measurement, lower means more load
}

// Fault reports whether the status carries an electrical fault.
// Stall and Reset are judged by the caller since both are expected in
// some contexts.
func (s DriverStatus) Fault() bool {
	return s.DriverError || s.UnderVoltage || s.OverTemp ||
		s.ShortA || s.ShortB || s.OpenA || s.OpenB
}

// AxisDriver is the step/direction/diagnostic primitive the motion code
// drives. Implementations must return from Step as soon as the pulse has
// been emitted; step timing is the caller's job.
type AxisDriver interface {
	// Step emits exactly one step pulse on axis in the last set direction
	Step(axis Axis)

	// SetDirection latches the direction used by following Step calls
	SetDirection(axis Axis, dir Direction)

	// IsStalled samples the axis load metric and compares it with the
	// configured stall threshold. The answer is advisory.
	IsStalled(axis Axis) bool

	// SetStallThreshold changes the load value under which IsStalled reports a stall
	SetStallThreshold(axis Axis, threshold uint16)

	// SetCurrent changes the holding and running current of one axis
	SetCurrent(axis Axis, holding, running uint8)

	// SetMode applies the current/chopper profile of mode to every axis
	SetMode(mode DriverMode) error

	// Status reads and clears the driver's status flags
	Status(axis Axis) (DriverStatus, error)

	// Enable energizes or releases the axis motor
	Enable(axis Axis, on bool)
}
