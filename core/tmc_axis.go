package core

// CurrentProfile holds per-axis holding and running current scales for
// one driver mode, indexed by Axis.
type CurrentProfile struct {
	Holding [NumAxes]uint8
	Running [NumAxes]uint8
	Stealth bool
}

// DefaultCurrentProfiles returns the tuned current sets for pulley,
// selector and idler in each driver mode.
func DefaultCurrentProfiles() map[DriverMode]CurrentProfile {
	return map[DriverMode]CurrentProfile{
		ModeHoming: {
			Holding: [NumAxes]uint8{1, 10, 22},
			Running: [NumAxes]uint8{1, 35, 30},
		},
		ModeNormal: {
			Holding: [NumAxes]uint8{1, 10, 22},
			Running: [NumAxes]uint8{30, 35, 47},
		},
		ModeStealth: {
			Holding: [NumAxes]uint8{1, 7, 22},
			Running: [NumAxes]uint8{35, 35, 45},
			Stealth: true,
		},
	}
}

// TMCAxisDriver implements AxisDriver on real hardware: one step backend
// and one TMC2130 per axis, direction and enable lines on the shared
// shift register.
type TMCAxisDriver struct {
	steppers [NumAxes]StepperBackend
	chips    [NumAxes]*TMC2130
	outputs  *ShiftOutputs
	profiles map[DriverMode]CurrentProfile

	thresholds [NumAxes]uint16
}

// NewTMCAxisDriver wires the per-axis parts together. Call SetMode before
// the first move to program the chips.
func NewTMCAxisDriver(steppers [NumAxes]StepperBackend, chips [NumAxes]*TMC2130, outputs *ShiftOutputs) *TMCAxisDriver {
	return &TMCAxisDriver{
		steppers: steppers,
		chips:    chips,
		outputs:  outputs,
		profiles: DefaultCurrentProfiles(),
	}
}

// Step emits one pulse on axis
func (d *TMCAxisDriver) Step(axis Axis) {
	if axis < NumAxes {
		d.steppers[axis].Step()
	}
}

// SetDirection latches the direction line
func (d *TMCAxisDriver) SetDirection(axis Axis, dir Direction) {
	d.outputs.SetDirection(axis, dir)
}

// IsStalled reads DRV_STATUS and reports the chip's StallGuard flag. The
// chip compares SG_RESULT against the SGT value set by SetStallThreshold.
func (d *TMCAxisDriver) IsStalled(axis Axis) bool {
	if axis >= NumAxes {
		return false
	}
	v, err := d.chips[axis].ReadReg(TMC2130_DRV_STATUS)
	if err != nil {
		return false
	}
	return v&TMC2130_DRV_STATUS_STALLGUARD != 0
}

// SetStallThreshold programs SGT. Thresholds are small signed values on
// this chip; larger means less sensitive.
func (d *TMCAxisDriver) SetStallThreshold(axis Axis, threshold uint16) {
	if axis >= NumAxes {
		return
	}
	d.thresholds[axis] = threshold
	sgt := int8(threshold)
	if threshold > 63 {
		sgt = 63
	}
	if err := d.chips[axis].WriteReg(TMC2130_COOLCONF, sgtBits(sgt)|TMC2130_SFILT); err != nil {
		DebugPrintln("[TMC] SGT write failed on " + axis.String())
	}
}

// SetCurrent changes one axis's current without touching the mode
func (d *TMCAxisDriver) SetCurrent(axis Axis, holding, running uint8) {
	if axis >= NumAxes {
		return
	}
	if err := d.chips[axis].SetCurrent(holding, running); err != nil {
		DebugPrintln("[TMC] current write failed on " + axis.String())
	}
}

// SetMode reprograms every chip with the profile of mode
func (d *TMCAxisDriver) SetMode(mode DriverMode) error {
	p, ok := d.profiles[mode]
	if !ok {
		p = d.profiles[ModeNormal]
	}
	var firstErr error
	for axis := Axis(0); axis < NumAxes; axis++ {
		err := d.chips[axis].Configure(DriverConfig{
			Holding:    p.Holding[axis],
			Running:    p.Running[axis],
			Stealth:    p.Stealth,
			StallGuard: int8(d.thresholds[axis]),
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Status reads and clears the chip's status registers
func (d *TMCAxisDriver) Status(axis Axis) (DriverStatus, error) {
	if axis >= NumAxes {
		return DriverStatus{}, nil
	}
	return d.chips[axis].ReadStatus()
}

// Enable energizes or releases the motor
func (d *TMCAxisDriver) Enable(axis Axis, on bool) {
	d.outputs.Enable(axis, on)
	if !on && axis < NumAxes {
		d.steppers[axis].Stop()
	}
}
