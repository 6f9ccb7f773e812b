package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveErrorsStartAtZero(t *testing.T) {
	s, _ := openMem(t)
	assert.Equal(t, uint16(0), s.DriveErrors())
}

func TestDriveErrorsMonotonicAcrossPowerCycles(t *testing.T) {
	s, dev := openMem(t)

	prev := s.DriveErrors()
	for i := 0; i < 600; i++ {
		require.NoError(t, s.IncrementDriveErrors())
		n := s.DriveErrors()
		require.Equal(t, prev+1, n, "after %d increments", i+1)
		prev = n

		if i%97 == 0 {
			// power cycle: a new store on the same cells
			var err error
			s, err = Open(dev)
			require.NoError(t, err)
			require.Equal(t, prev, s.DriveErrors())
		}
	}
	assert.Equal(t, uint16(600), s.DriveErrors())
}

func TestDriveErrorsAlternateLowCells(t *testing.T) {
	s, dev := openMem(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.IncrementDriveErrors())
	}
	var lowWrites [2]int
	for _, addr := range dev.Writes() {
		if addr == addrDriveErrorsL || addr == addrDriveErrorsL+1 {
			lowWrites[addr-addrDriveErrorsL]++
		}
	}
	assert.Equal(t, [2]int{2, 2}, lowWrites)
}

func TestDriveErrorsSaturate(t *testing.T) {
	s, dev := openMem(t)

	// 0xfffe: high cell 0xfe, low byte 0xfe in cell 0
	require.NoError(t, dev.WriteByte(addrDriveErrorsH, 0xfe))
	require.NoError(t, dev.WriteByte(addrDriveErrorsL, 0xfd))
	require.NoError(t, dev.WriteByte(addrDriveErrorsL+1, 0xfc))
	require.Equal(t, uint16(0xfffe), s.DriveErrors())

	require.NoError(t, s.IncrementDriveErrors())
	assert.Equal(t, uint16(0xffff), s.DriveErrors())
	require.NoError(t, s.IncrementDriveErrors())
	assert.Equal(t, uint16(0xffff), s.DriveErrors())
}
