package core

import "tinygo.org/x/drivers"

// ExpanderButtonsAddr is the default address of the button port expander
const ExpanderButtonsAddr = 0x21

// ExpanderButtons reads the three buttons from an I2C port expander on
// boards without the analog ladder. The buttons pull bits 5-7 low.
type ExpanderButtons struct {
	bus  drivers.I2C
	addr uint16
	buf  [1]byte
}

// NewExpanderButtons creates a reader for the expander at addr
func NewExpanderButtons(bus drivers.I2C, addr uint16) *ExpanderButtons {
	return &ExpanderButtons{bus: bus, addr: addr}
}

// Pressed reads the port. Bus errors read as released.
func (b *ExpanderButtons) Pressed() Button {
	if err := b.bus.Tx(b.addr, nil, b.buf[:]); err != nil {
		return ButtonNone
	}
	switch (b.buf[0] >> 5) & 0x7 {
	case 0b011:
		return ButtonLeft
	case 0b101:
		return ButtonMiddle
	case 0b110:
		return ButtonRight
	}
	return ButtonNone
}
