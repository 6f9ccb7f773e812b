package storage

// The drive error counter is 16 bits split over a high cell and two low
// cells. Cells hold value-1 so an erased device (0xff) reads as zero.
// Consecutive low bytes land in alternating cells, halving their wear;
// the larger of the two is the current low byte.

func (s *Store) driveErrorsLow() uint8 {
	first, err1 := s.dev.ReadByte(addrDriveErrorsL)
	second, err2 := s.dev.ReadByte(addrDriveErrorsL + 1)
	if err1 != nil || err2 != nil {
		return 0
	}
	if first == 0xff && second == 0 {
		return 1
	}
	if first > second {
		return first + 1
	}
	return second + 1
}

func (s *Store) driveErrorsHigh() uint8 {
	v, err := s.dev.ReadByte(addrDriveErrorsH)
	if err != nil {
		return 0
	}
	return v + 1
}

// DriveErrors returns the number of drive faults recorded so far
func (s *Store) DriveErrors() uint16 {
	return uint16(s.driveErrorsHigh())<<8 + uint16(s.driveErrorsLow())
}

// IncrementDriveErrors adds one fault. The counter saturates at 0xffff
// and never goes down.
func (s *Store) IncrementDriveErrors() error {
	n := s.DriveErrors()
	if n == 0xffff {
		return nil
	}
	n++
	low := uint8(n)
	if err := updateByte(s.dev, addrDriveErrorsL+int(low%2), low-1); err != nil {
		return err
	}
	if err := updateByte(s.dev, addrDriveErrorsH, uint8(n>>8)-1); err != nil {
		return err
	}
	if s.DriveErrors() != n {
		return ErrWriteFailed
	}
	return nil
}
