// Package serial connects the host simulator to a printer: a native
// serial port or the process's standard streams, adapted to the
// non-blocking drivers.UART the command link polls.
package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Standard streams (a printer host piping into the simulator)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate, 115200 on the printer's MMU port
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the printer side settings
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 10,
	}
}

// stdio is a Port on the standard streams
type stdio struct {
	in  io.ReadCloser
	out io.Writer
}

// Stdio returns a Port reading in and writing out
func Stdio(in io.ReadCloser, out io.Writer) Port {
	return &stdio{in: in, out: out}
}

func (s *stdio) Read(b []byte) (int, error)  { return s.in.Read(b) }
func (s *stdio) Write(b []byte) (int, error) { return s.out.Write(b) }
func (s *stdio) Close() error                { return s.in.Close() }

func (s *stdio) Flush() error {
	if f, ok := s.out.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}
