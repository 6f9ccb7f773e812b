package protocol

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// Link reads request lines from a UART and writes replies. It never
// blocks on input: both ReadLine and Poll only look at bytes already
// received.
type Link struct {
	uart    drivers.UART
	rx      *Ring
	line    LineAssembler
	lines   []string
	door    bool
	scratch [16]byte
}

// NewLink wraps uart
func NewLink(uart drivers.UART) *Link {
	return &Link{
		uart:  uart,
		rx:    NewRing(RxBufferSize),
		lines: make([]string, 0, 4),
	}
}

// pump moves received bytes through the line assembler. A sentinel byte
// between lines is latched instead of starting a line.
func (l *Link) pump() {
	for l.uart.Buffered() > 0 && l.rx.Free() > 0 {
		n, err := l.uart.Read(l.scratch[:min(len(l.scratch), l.rx.Free())])
		l.rx.Write(l.scratch[:n])
		if err != nil || n == 0 {
			break
		}
	}
	for {
		b, ok := l.rx.ReadByte()
		if !ok {
			return
		}
		if b == SentinelByte && l.line.Empty() {
			l.door = true
			continue
		}
		if s, ok := l.line.Feed(b); ok {
			l.lines = append(l.lines, s)
		}
	}
}

// Poll reports whether the door sensor byte arrived since the last poll.
// It implements motion.Sentinel.
func (l *Link) Poll() bool {
	l.pump()
	door := l.door
	l.door = false
	return door
}

// ReadLine returns the next request line, if one is complete. A door
// sensor byte that arrives while nothing polls for it is stale and is
// dropped here.
func (l *Link) ReadLine() (string, bool) {
	l.pump()
	l.door = false
	if len(l.lines) == 0 {
		return "", false
	}
	s := l.lines[0]
	l.lines = append(l.lines[:0], l.lines[1:]...)
	return s, true
}

// Send writes one reply
func (l *Link) Send(reply []byte) error {
	if _, err := l.uart.Write(reply); err != nil {
		return fmt.Errorf("send %q: %w", reply, err)
	}
	return nil
}

// Overflows returns the count of request lines discarded as too long
func (l *Link) Overflows() int {
	return l.line.Overflows()
}
