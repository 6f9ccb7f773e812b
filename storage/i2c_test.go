package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNack = errors.New("i2c nack")

// fakeChip answers nothing for busyPolls reads after each write
type fakeChip struct {
	cells     [64]byte
	busyPolls int
	busy      int
	lose      bool
}

func (f *fakeChip) ReadByte(addr uint16) (uint8, error) {
	if f.busy > 0 {
		f.busy--
		return 0, errNack
	}
	return f.cells[addr], nil
}

func (f *fakeChip) WriteByte(addr uint16, v uint8) error {
	if !f.lose {
		f.cells[addr] = v
	}
	f.busy = f.busyPolls
	return nil
}

func newChip(f *fakeChip) *ChipEEPROM {
	c := NewChipEEPROM(f, len(f.cells))
	c.WriteCycle = 0
	return c
}

func TestChipEEPROMWaitsForWriteCycle(t *testing.T) {
	f := &fakeChip{busyPolls: 3}
	c := newChip(f)

	require.NoError(t, c.WriteByte(5, 0x42))
	v, err := c.ReadByte(5)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), v)
}

func TestChipEEPROMBusyTooLong(t *testing.T) {
	f := &fakeChip{busyPolls: 20}
	c := newChip(f)
	err := c.WriteByte(5, 0x42)
	assert.ErrorIs(t, err, errNack)
}

func TestChipEEPROMLostWrite(t *testing.T) {
	f := &fakeChip{lose: true}
	c := newChip(f)
	assert.ErrorIs(t, c.WriteByte(1, 7), ErrWriteFailed)
}

func TestChipEEPROMBounds(t *testing.T) {
	c := newChip(&fakeChip{})
	_, err := c.ReadByte(64)
	assert.Error(t, err)
	assert.Error(t, c.WriteByte(-1, 0))
}

func TestChipEEPROMBacksStore(t *testing.T) {
	f := &fakeChip{busyPolls: 1}
	c := NewChipEEPROM(f, 64)
	c.WriteCycle = 0
	_, err := Open(c)
	assert.Error(t, err, "too small for the layout")

	big := &bigChip{}
	s, err := Open(&ChipEEPROM{dev: big, size: DefaultSize, Polls: 2})
	require.NoError(t, err)
	require.NoError(t, s.SetBowdenLength(2, 9000))
	assert.Equal(t, 9000, s.BowdenLength(2))
}

type bigChip struct {
	cells [DefaultSize]byte
}

func (b *bigChip) ReadByte(addr uint16) (uint8, error) { return b.cells[addr], nil }
func (b *bigChip) WriteByte(addr uint16, v uint8) error {
	b.cells[addr] = v
	return nil
}
