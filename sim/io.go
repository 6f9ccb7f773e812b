package sim

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"

	"mmuctl/core"
)

// Click is one scripted button click. It is delivered once After
// milliseconds have passed since the previous click; Do runs just before
// delivery and models what the user did by hand.
type Click struct {
	Button core.Button
	After  uint32
	Do     func()
}

// Buttons plays a click script against the virtual clock and implements
// core.ButtonInput.
type Buttons struct {
	clock  *Clock
	script []Click
	last   uint64

	// Idle runs on every poll once the script is used up
	Idle func()
}

// NewButtons returns a button script
func NewButtons(clock *Clock, clicks ...Click) *Buttons {
	return &Buttons{clock: clock, script: clicks}
}

// Push appends clicks to the script. The wait of the first one counts
// from now.
func (b *Buttons) Push(clicks ...Click) {
	if len(b.script) == 0 {
		b.last = b.clock.Micros()
	}
	b.script = append(b.script, clicks...)
}

// Remaining returns the clicks not yet delivered
func (b *Buttons) Remaining() int {
	return len(b.script)
}

// Clicked implements core.ButtonInput
func (b *Buttons) Clicked() core.Button {
	if len(b.script) == 0 {
		if b.Idle != nil {
			b.Idle()
		}
		return core.ButtonNone
	}
	next := b.script[0]
	now := b.clock.Micros()
	if now-b.last < uint64(next.After)*1000 {
		return core.ButtonNone
	}
	b.script = b.script[1:]
	b.last = now
	if next.Do != nil {
		next.Do()
	}
	return next.Button
}

// Pressed implements core.ButtonReader. Script clicks are instantaneous,
// so no button is ever held.
func (b *Buttons) Pressed() core.Button {
	return core.ButtonNone
}

// Signal is one recorded indicator update
type Signal struct {
	Pattern core.Pattern
	Slot    int
	At      uint64
}

// Indicator records every pattern shown. It implements core.Indicator.
type Indicator struct {
	clock   *Clock
	signals []Signal
}

// NewIndicator returns an empty recorder
func NewIndicator(clock *Clock) *Indicator {
	return &Indicator{clock: clock}
}

// Signal implements core.Indicator
func (i *Indicator) Signal(p core.Pattern, slot int) {
	i.signals = append(i.signals, Signal{Pattern: p, Slot: slot, At: i.clock.Micros()})
}

// Signals returns the recorded updates in order
func (i *Indicator) Signals() []Signal {
	return i.signals
}

// Count returns how often p was shown
func (i *Indicator) Count(p core.Pattern) int {
	n := 0
	for _, s := range i.signals {
		if s.Pattern == p {
			n++
		}
	}
	return n
}

// Last returns the latest update, or a zero Signal
func (i *Indicator) Last() Signal {
	if len(i.signals) == 0 {
		return Signal{}
	}
	return i.signals[len(i.signals)-1]
}

// Reset forgets the recorded updates
func (i *Indicator) Reset() {
	i.signals = i.signals[:0]
}

// Sentinel is a latch for the printer's door sensor byte.
// It implements motion.Sentinel and may be raised from any goroutine.
type Sentinel struct {
	pending atomic.Bool
}

// Raise latches the byte
func (s *Sentinel) Raise() {
	s.pending.Store(true)
}

// Poll reports and clears the latch
func (s *Sentinel) Poll() bool {
	return s.pending.Swap(false)
}

// Serial is an in-memory serial line between the printer and the
// feeder. Read, Write and Buffered are the feeder's side and implement
// drivers.UART; Request, Door and Replies are the printer's side.
type Serial struct {
	mu      sync.Mutex
	toMMU   bytes.Buffer
	fromMMU bytes.Buffer
}

// Read implements drivers.UART
func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toMMU.Len() == 0 {
		return 0, nil
	}
	return s.toMMU.Read(p)
}

// Write implements drivers.UART
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fromMMU.Write(p)
}

// Buffered implements drivers.UART
func (s *Serial) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toMMU.Len()
}

// Request sends a command line to the feeder
func (s *Serial) Request(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toMMU.WriteString(line)
	s.toMMU.WriteByte('\n')
}

// Door sends the door sensor byte
func (s *Serial) Door() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toMMU.WriteByte('A')
}

// Replies returns and clears the lines the feeder sent, without their
// newlines.
func (s *Serial) Replies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.fromMMU.String()
	s.fromMMU.Reset()
	if out == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}
