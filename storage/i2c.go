package storage

import (
	"time"

	"github.com/pkg/errors"
)

// ByteDevice is a byte addressed serial EEPROM chip.
// tinygo.org/x/drivers/at24cx.Device satisfies it.
type ByteDevice interface {
	ReadByte(addr uint16) (uint8, error)
	WriteByte(addr uint16, v uint8) error
}

// ChipEEPROM adapts an external EEPROM chip. The chip ignores the bus
// while a write cycle runs, so a write is followed by reads until it
// answers again.
type ChipEEPROM struct {
	dev  ByteDevice
	size int

	// WriteCycle is the wait between polls after a write
	WriteCycle time.Duration
	// Polls bounds the polling after a write
	Polls int
}

// NewChipEEPROM uses the first size bytes of dev
func NewChipEEPROM(dev ByteDevice, size int) *ChipEEPROM {
	return &ChipEEPROM{dev: dev, size: size, WriteCycle: time.Millisecond, Polls: 10}
}

// Size returns the capacity in bytes
func (c *ChipEEPROM) Size() int {
	return c.size
}

// ReadByte reads one cell
func (c *ChipEEPROM) ReadByte(addr int) (byte, error) {
	if err := checkAddr(c, addr); err != nil {
		return 0, err
	}
	v, err := c.dev.ReadByte(uint16(addr))
	return v, errors.Wrapf(err, "read eeprom cell %d", addr)
}

// WriteByte writes one cell and waits for the write cycle to end
func (c *ChipEEPROM) WriteByte(addr int, v byte) error {
	if err := checkAddr(c, addr); err != nil {
		return err
	}
	if err := c.dev.WriteByte(uint16(addr), v); err != nil {
		return errors.Wrapf(err, "write eeprom cell %d", addr)
	}
	var err error
	for i := 0; i < c.Polls; i++ {
		time.Sleep(c.WriteCycle)
		var got byte
		if got, err = c.dev.ReadByte(uint16(addr)); err == nil {
			if got != v {
				return ErrWriteFailed
			}
			return nil
		}
	}
	return errors.Wrapf(err, "eeprom cell %d busy", addr)
}
