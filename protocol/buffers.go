package protocol

// Ring is a fixed size byte FIFO. Writes that do not fit are dropped and
// counted.
type Ring struct {
	buf     []byte
	read    int
	write   int
	dropped int
}

// NewRing returns a ring holding up to capacity-1 bytes
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count written
func (r *Ring) Write(data []byte) int {
	n := 0
	for _, b := range data {
		next := (r.write + 1) % len(r.buf)
		if next == r.read {
			r.dropped += len(data) - n
			break
		}
		r.buf[r.write] = b
		r.write = next
		n++
	}
	return n
}

// Read moves up to len(data) bytes out of the ring
func (r *Ring) Read(data []byte) int {
	n := 0
	for n < len(data) && r.read != r.write {
		data[n] = r.buf[r.read]
		r.read = (r.read + 1) % len(r.buf)
		n++
	}
	return n
}

// ReadByte pops one byte; ok is false when the ring is empty
func (r *Ring) ReadByte() (b byte, ok bool) {
	if r.read == r.write {
		return 0, false
	}
	b = r.buf[r.read]
	r.read = (r.read + 1) % len(r.buf)
	return b, true
}

// Available returns the bytes waiting to be read
func (r *Ring) Available() int {
	if r.write >= r.read {
		return r.write - r.read
	}
	return len(r.buf) - r.read + r.write
}

// Free returns the bytes that can still be written
func (r *Ring) Free() int {
	return len(r.buf) - r.Available() - 1
}

// Dropped returns the bytes lost to a full ring
func (r *Ring) Dropped() int {
	return r.dropped
}

// Reset empties the ring
func (r *Ring) Reset() {
	r.read = 0
	r.write = 0
}

// LineAssembler collects request bytes into lines. CR and LF end a line.
// A line that fills the buffer without a terminator is thrown away and
// assembly starts over with the next byte.
type LineAssembler struct {
	buf       [LineMax]byte
	n         int
	overflows int
}

// Feed adds b and returns a completed, non-empty line
func (a *LineAssembler) Feed(b byte) (string, bool) {
	if b == '\r' || b == '\n' {
		line := string(a.buf[:a.n])
		a.n = 0
		return line, line != ""
	}
	a.buf[a.n] = b
	a.n++
	if a.n == len(a.buf) {
		a.n = 0
		a.overflows++
	}
	return "", false
}

// Empty reports whether no partial line is pending
func (a *LineAssembler) Empty() bool {
	return a.n == 0
}

// Overflows returns how many lines were discarded as too long
func (a *LineAssembler) Overflows() int {
	return a.overflows
}
