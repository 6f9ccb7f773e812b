package core

// ShiftRegister is a latched serial-in parallel-out register.
// tinygo.org/x/drivers/shiftregister satisfies it on hardware.
type ShiftRegister interface {
	WriteMask(mask uint32)
}

// Bit layout of the 16 bit output register shared by the direction lines,
// the driver enable lines and the ten slot LEDs.
const (
	shiftDirPulley   = 0x0001
	shiftEnaPulley   = 0x0002
	shiftDirSelector = 0x0004
	shiftEnaSelector = 0x0008
	shiftDirIdler    = 0x0010
	shiftEnaIdler    = 0x0020
	shiftLEDMask     = 0xffc0
)

var (
	shiftDirBits = [NumAxes]uint16{shiftDirPulley, shiftDirSelector, shiftDirIdler}
	shiftEnaBits = [NumAxes]uint16{shiftEnaPulley, shiftEnaSelector, shiftEnaIdler}
)

// ShiftOutputs keeps the shadow copy of the output register and rewrites
// the whole register on every change.
type ShiftOutputs struct {
	reg    ShiftRegister
	state  uint16
	invert [NumAxes]bool
}

// NewShiftOutputs starts with every driver disabled and every LED off.
// invert flips the direction line polarity per axis.
func NewShiftOutputs(reg ShiftRegister, invert [NumAxes]bool) *ShiftOutputs {
	s := &ShiftOutputs{reg: reg, invert: invert}
	// ENA lines are active low
	s.state = shiftEnaPulley | shiftEnaSelector | shiftEnaIdler
	s.flush()
	return s
}

func (s *ShiftOutputs) flush() {
	s.reg.WriteMask(uint32(s.state))
}

// SetDirection latches the direction line of axis
func (s *ShiftOutputs) SetDirection(axis Axis, dir Direction) {
	if axis >= NumAxes {
		return
	}
	high := dir == Forward
	if s.invert[axis] {
		high = !high
	}
	if high {
		s.state |= shiftDirBits[axis]
	} else {
		s.state &^= shiftDirBits[axis]
	}
	s.flush()
}

// Enable energizes (on) or releases the driver of axis
func (s *ShiftOutputs) Enable(axis Axis, on bool) {
	if axis >= NumAxes {
		return
	}
	if on {
		s.state &^= shiftEnaBits[axis]
	} else {
		s.state |= shiftEnaBits[axis]
	}
	s.flush()
}

// SetLEDs shows a 10 bit LED image: two bits (green, red) per slot,
// slot 0 in the top bits.
func (s *ShiftOutputs) SetLEDs(leds uint16) {
	mapped := ((leds & 0xff) << 8) | ((leds & 0x300) >> 2)
	s.state = (s.state &^ shiftLEDMask) | (mapped & shiftLEDMask)
	s.flush()
}

// State returns the last value written to the register
func (s *ShiftOutputs) State() uint16 {
	return s.state
}

// String renders the register as hex for debug output
func (s *ShiftOutputs) String() string {
	return string(appendHex(make([]byte, 0, 8), uint32(s.state), 4))
}
