// Package storage keeps the feeder's calibration and history in a small
// byte addressable EEPROM: per-slot bowden lengths, the last loaded
// filament (wear leveled) and the drive error counter.
package storage

import (
	"github.com/pkg/errors"
)

// Cell layout. Fields are never moved or resized; the last byte of the
// device holds the layout version, a mismatch erases everything.
const (
	addrLengthCorrection = 0
	addrBowden           = 1 // Slots little endian uint16 values
	addrFilamentStatus   = addrBowden + 2*Slots
	filamentStatusCells  = 3
	addrFilament         = addrFilamentStatus + filamentStatusCells
	FilamentCells        = 800
	addrDriveErrorsH     = addrFilament + FilamentCells
	addrDriveErrorsL     = addrDriveErrorsH + 1 // two alternating cells

	layoutEnd = addrDriveErrorsL + 2

	// LayoutVersion is stored in the last cell of the device
	LayoutVersion = 0xff

	// DefaultSize matches the feeder's on-chip EEPROM
	DefaultSize = 1024
)

// Slots is the number of filament slots with their own bowden length
const Slots = 5

// Bowden length limits in pulley steps
const (
	BowdenMin      = 6900
	BowdenMax      = 16000
	BowdenDefault  = 8900
	BowdenStepSize = 10

	// legacyCorrectionBase applies when only the old single correction
	// byte was ever written
	legacyCorrectionBase = 7900
	legacyCorrectionMax  = 200
)

var (
	// ErrOutOfRange is returned for bowden lengths outside [BowdenMin, BowdenMax]
	ErrOutOfRange = errors.New("bowden length out of range")
	// ErrInvalidSlot is returned for slot numbers outside 0..Slots-1
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrWriteFailed is returned when a value did not read back after writing
	ErrWriteFailed = errors.New("eeprom write failed")
)

// Store reads and writes the persisted records
type Store struct {
	dev EEPROM
}

// Open checks the layout version on dev and erases the device when it
// does not match.
func Open(dev EEPROM) (*Store, error) {
	if dev.Size() < layoutEnd+1 {
		return nil, errors.Errorf("eeprom too small: %d bytes, need %d", dev.Size(), layoutEnd+1)
	}
	s := &Store{dev: dev}
	v, err := dev.ReadByte(dev.Size() - 1)
	if err != nil {
		return nil, errors.Wrap(err, "read layout version")
	}
	if v != LayoutVersion {
		if err := s.Erase(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Erase resets every cell and rewrites the layout version
func (s *Store) Erase() error {
	last := s.dev.Size() - 1
	for addr := 0; addr < last; addr++ {
		if err := updateByte(s.dev, addr, 0xff); err != nil {
			return errors.Wrap(err, "erase")
		}
	}
	return errors.Wrap(updateByte(s.dev, last, LayoutVersion), "write layout version")
}

func validSlot(slot int) bool {
	return slot >= 0 && slot < Slots
}

func validBowden(length int) bool {
	return length >= BowdenMin && length <= BowdenMax
}

func (s *Store) readWord(addr int) (uint16, error) {
	lo, err := s.dev.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := s.dev.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (s *Store) writeWord(addr int, v uint16) error {
	if err := updateByte(s.dev, addr, byte(v)); err != nil {
		return err
	}
	if err := updateByte(s.dev, addr+1, byte(v>>8)); err != nil {
		return err
	}
	got, err := s.readWord(addr)
	if err != nil {
		return err
	}
	if got != v {
		return ErrWriteFailed
	}
	return nil
}

// BowdenLength returns the stored bowden length of slot. Invalid slots,
// unreadable cells and out of range values all fall back to BowdenDefault,
// so the result is always within [BowdenMin, BowdenMax].
func (s *Store) BowdenLength(slot int) int {
	if !validSlot(slot) {
		return BowdenDefault
	}
	raw, err := s.readWord(addrBowden + 2*slot)
	if err != nil {
		return BowdenDefault
	}
	length := int(raw)
	if raw == 0xffff {
		corr, err := s.dev.ReadByte(addrLengthCorrection)
		if err == nil && corr <= legacyCorrectionMax {
			length = legacyCorrectionBase + int(corr)*BowdenStepSize
		}
	}
	if !validBowden(length) {
		return BowdenDefault
	}
	return length
}

// SetBowdenLength stores length for slot
func (s *Store) SetBowdenLength(slot, length int) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	if !validBowden(length) {
		return ErrOutOfRange
	}
	return s.writeWord(addrBowden+2*slot, uint16(length))
}

// BowdenSession edits one slot's bowden length. Changes are kept in the
// session and stored by Close.
type BowdenSession struct {
	store  *Store
	slot   int
	length int
}

// Bowden opens an editing session for slot
func (s *Store) Bowden(slot int) (*BowdenSession, error) {
	if !validSlot(slot) {
		return nil, ErrInvalidSlot
	}
	return &BowdenSession{store: s, slot: slot, length: s.BowdenLength(slot)}, nil
}

// Slot returns the slot being edited
func (b *BowdenSession) Slot() int {
	return b.slot
}

// Length returns the edited, not yet stored, length
func (b *BowdenSession) Length() int {
	return b.length
}

// Increase lengthens by BowdenStepSize. It returns false and leaves the
// length unchanged when that would pass BowdenMax.
func (b *BowdenSession) Increase() bool {
	if !validBowden(b.length + BowdenStepSize) {
		return false
	}
	b.length += BowdenStepSize
	return true
}

// Decrease shortens by BowdenStepSize. It returns false and leaves the
// length unchanged when that would pass BowdenMin.
func (b *BowdenSession) Decrease() bool {
	if !validBowden(b.length - BowdenStepSize) {
		return false
	}
	b.length -= BowdenStepSize
	return true
}

// Close stores the edited length
func (b *BowdenSession) Close() error {
	return b.store.SetBowdenLength(b.slot, b.length)
}
