package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// EEPROM is byte addressable non-volatile memory. Erased cells read 0xff.
type EEPROM interface {
	Size() int
	ReadByte(addr int) (byte, error)
	WriteByte(addr int, v byte) error
}

// updateByte writes v only when the cell holds something else, sparing
// write cycles.
func updateByte(dev EEPROM, addr int, v byte) error {
	cur, err := dev.ReadByte(addr)
	if err != nil {
		return err
	}
	if cur == v {
		return nil
	}
	return dev.WriteByte(addr, v)
}

func checkAddr(dev EEPROM, addr int) error {
	if addr < 0 || addr >= dev.Size() {
		return errors.Errorf("eeprom address %d outside 0..%d", addr, dev.Size()-1)
	}
	return nil
}

// MemEEPROM keeps the cells in RAM. Cells can be marked stuck to model
// worn out memory: writes to them are silently lost.
type MemEEPROM struct {
	cells  []byte
	stuck  map[int]bool
	writes []int
}

// NewMemEEPROM returns an erased memory of size bytes
func NewMemEEPROM(size int) *MemEEPROM {
	m := &MemEEPROM{cells: make([]byte, size), stuck: make(map[int]bool)}
	for i := range m.cells {
		m.cells[i] = 0xff
	}
	return m
}

// Size returns the capacity in bytes
func (m *MemEEPROM) Size() int {
	return len(m.cells)
}

// ReadByte reads one cell
func (m *MemEEPROM) ReadByte(addr int) (byte, error) {
	if err := checkAddr(m, addr); err != nil {
		return 0, err
	}
	return m.cells[addr], nil
}

// WriteByte writes one cell unless it is stuck
func (m *MemEEPROM) WriteByte(addr int, v byte) error {
	if err := checkAddr(m, addr); err != nil {
		return err
	}
	m.writes = append(m.writes, addr)
	if m.stuck[addr] {
		return nil
	}
	m.cells[addr] = v
	return nil
}

// Stick freezes a cell at its current value
func (m *MemEEPROM) Stick(addr int) {
	m.stuck[addr] = true
}

// Writes returns the addresses written so far, in order
func (m *MemEEPROM) Writes() []int {
	return m.writes
}

// Snapshot copies the current cell contents
func (m *MemEEPROM) Snapshot() []byte {
	out := make([]byte, len(m.cells))
	copy(out, m.cells)
	return out
}

// Restore replaces the cell contents with an earlier snapshot
func (m *MemEEPROM) Restore(data []byte) {
	copy(m.cells, data)
}

// FileEEPROM persists the cells in a file so the simulator keeps its
// calibration between runs. Every write goes straight to the file.
type FileEEPROM struct {
	f     *os.File
	cells []byte
}

// OpenFileEEPROM opens or creates path with size cells. A new or short
// file is padded with erased cells.
func OpenFileEEPROM(path string, size int) (*FileEEPROM, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open eeprom file")
	}

	cells := make([]byte, size)
	n, err := io.ReadFull(f, cells)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, errors.Wrapf(err, "read eeprom file %s", path)
	}
	for i := n; i < size; i++ {
		cells[i] = 0xff
	}
	if n < size {
		if _, err := f.WriteAt(cells[n:], int64(n)); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "pad eeprom file %s", path)
		}
	}
	return &FileEEPROM{f: f, cells: cells}, nil
}

// Size returns the capacity in bytes
func (e *FileEEPROM) Size() int {
	return len(e.cells)
}

// ReadByte reads one cell from the cached image
func (e *FileEEPROM) ReadByte(addr int) (byte, error) {
	if err := checkAddr(e, addr); err != nil {
		return 0, err
	}
	return e.cells[addr], nil
}

// WriteByte writes one cell through to the file
func (e *FileEEPROM) WriteByte(addr int, v byte) error {
	if err := checkAddr(e, addr); err != nil {
		return err
	}
	if _, err := e.f.WriteAt([]byte{v}, int64(addr)); err != nil {
		return errors.Wrapf(err, "write eeprom cell %d", addr)
	}
	e.cells[addr] = v
	return nil
}

// Close syncs and closes the backing file
func (e *FileEEPROM) Close() error {
	if err := e.f.Sync(); err != nil {
		e.f.Close()
		return errors.Wrap(err, "sync eeprom file")
	}
	return errors.Wrap(e.f.Close(), "close eeprom file")
}
