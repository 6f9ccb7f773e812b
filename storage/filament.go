package storage

// The last loaded filament changes on every tool change, far more often
// than an EEPROM cell survives. It is written round robin over
// FilamentCells data cells. Each data cell carries the record key in its
// top nibble and the slot in the low nibble; the current key lives in
// three status cells read by majority vote. A key scans the data cells
// forward or backward, so the newest record is the last cell whose key
// matches the status.
const (
	keyFront1 byte = iota
	keyReverse1
	keyFront2
	keyReverse2
	keyCount

	keyNone byte = 0xff
)

func (s *Store) filamentStatus() byte {
	var c [filamentStatusCells]byte
	for i := range c {
		v, err := s.dev.ReadByte(addrFilamentStatus + i)
		if err != nil {
			return keyNone
		}
		c[i] = v
	}
	switch {
	case c[0] == c[1], c[0] == c[2]:
		return c[0]
	case c[1] == c[2]:
		return c[1]
	}
	return keyNone
}

func (s *Store) setFilamentStatus(key byte) bool {
	for i := 0; i < filamentStatusCells; i++ {
		if err := updateByte(s.dev, addrFilamentStatus+i, key); err != nil {
			return false
		}
	}
	return s.filamentStatus() == key
}

func (s *Store) cellKey(i int) (byte, bool) {
	v, err := s.dev.ReadByte(addrFilament + i)
	if err != nil {
		return 0, false
	}
	return v >> 4, true
}

// filamentIndex returns the index of the newest record under the current
// key. The result may be just outside the cell range when the first cell
// in scan order does not match; nextSlot turns that into a valid index.
func (s *Store) filamentIndex() int {
	key := s.filamentStatus()
	switch key {
	case keyFront1, keyFront2:
		for i := 0; i < FilamentCells; i++ {
			if k, ok := s.cellKey(i); !ok || k != key {
				return i - 1
			}
		}
		return FilamentCells - 1
	case keyReverse1, keyReverse2:
		for i := FilamentCells - 1; i >= 0; i-- {
			if k, ok := s.cellKey(i); !ok || k != key {
				return i + 1
			}
		}
		return 0
	}
	return -1
}

func nextKey(key byte) byte {
	switch key {
	case keyFront1:
		return keyReverse1
	case keyReverse1:
		return keyFront2
	case keyFront2:
		return keyReverse2
	}
	return keyFront1
}

// nextSlot advances index in the scan direction of key. Running off the
// end switches to the next key and restarts from that key's first cell.
func nextSlot(key byte, index int) (byte, int) {
	switch key {
	case keyFront1, keyFront2:
		index++
		if index < 0 || index >= FilamentCells {
			return nextKey(key), FilamentCells - 1
		}
	case keyReverse1, keyReverse2:
		index--
		if index < 0 || index >= FilamentCells {
			return nextKey(key), 0
		}
	default:
		return keyFront1, 0
	}
	return key, index
}

// LastFilament returns the slot recorded by the last SetLastFilament
func (s *Store) LastFilament() (int, bool) {
	index := s.filamentIndex()
	if index < 0 || index >= FilamentCells {
		return 0, false
	}
	raw, err := s.dev.ReadByte(addrFilament + index)
	if err != nil {
		return 0, false
	}
	slot := int(raw & 0x0f)
	if slot >= Slots {
		return 0, false
	}
	key := s.filamentStatus()
	if key >= keyCount || raw>>4 != key {
		return 0, false
	}
	return slot, true
}

// SetLastFilament records slot. A data cell that does not take the write
// is skipped by moving to the next key, up to three times.
func (s *Store) SetLastFilament(slot int) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	for attempt := 0; attempt < int(keyCount)-1; attempt++ {
		key, index := nextSlot(s.filamentStatus(), s.filamentIndex())
		if !s.setFilamentStatus(key) {
			return ErrWriteFailed
		}
		raw := key<<4 | byte(slot)&0x0f
		if err := updateByte(s.dev, addrFilament+index, raw); err != nil {
			return err
		}
		if got, err := s.dev.ReadByte(addrFilament + index); err == nil && got == raw {
			return nil
		}
		if !s.setFilamentStatus(nextKey(key)) {
			return ErrWriteFailed
		}
	}
	return ErrWriteFailed
}
