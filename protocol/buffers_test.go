package protocol

import "testing"

func TestRing(t *testing.T) {
	ring := NewRing(10)

	if ring.Available() != 0 {
		t.Errorf("Empty ring should have 0 available, got %d", ring.Available())
	}

	written := ring.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	readBuf := make([]byte, 3)
	read := ring.Read(readBuf)
	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	b, ok := ring.ReadByte()
	if !ok || b != 4 {
		t.Errorf("ReadByte: got %d, %v", b, ok)
	}
	if ring.Available() != 1 {
		t.Errorf("Expected 1 available, got %d", ring.Available())
	}

	// one cell stays free to tell full from empty
	ring.Reset()
	big := make([]byte, 12)
	written = ring.Write(big)
	if written != 9 {
		t.Errorf("Expected to write 9 bytes to size-10 ring, wrote %d", written)
	}
	if ring.Dropped() != 3 {
		t.Errorf("Expected 3 dropped bytes, got %d", ring.Dropped())
	}
	if ring.Free() != 0 {
		t.Errorf("Full ring should have no free space, got %d", ring.Free())
	}
}

func TestRingWrapAround(t *testing.T) {
	ring := NewRing(5)
	ring.Write([]byte{1, 2, 3, 4})
	ring.Read(make([]byte, 2))

	if written := ring.Write([]byte{5, 6}); written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}

	all := make([]byte, 4)
	if read := ring.Read(all); read != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", read)
	}
	if all[0] != 3 || all[1] != 4 || all[2] != 5 || all[3] != 6 {
		t.Errorf("Wrap-around data mismatch: got %v", all)
	}
	if _, ok := ring.ReadByte(); ok {
		t.Error("Drained ring should be empty")
	}
}

func feedString(a *LineAssembler, s string) []string {
	var lines []string
	for i := 0; i < len(s); i++ {
		if line, ok := a.Feed(s[i]); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestLineAssembler(t *testing.T) {
	var a LineAssembler

	lines := feedString(&a, "T1\nL2\r\n\nS0\r")
	want := []string{"T1", "L2", "S0"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
	if !a.Empty() {
		t.Error("Assembler should be empty after a terminator")
	}
}

func TestLineAssemblerOverflow(t *testing.T) {
	var a LineAssembler

	// the longest line that fits
	long := "F1 2"
	for len(long) < LineMax-1 {
		long += " "
	}
	lines := feedString(&a, long+"\n")
	if len(lines) != 1 || lines[0] != long {
		t.Errorf("Expected the %d byte line back, got %q", len(long), lines)
	}

	// one more byte overflows: the line is dropped, the next one survives
	lines = feedString(&a, long+" \nS1\n")
	if len(lines) != 1 || lines[0] != "S1" {
		t.Errorf("Expected only S1 after overflow, got %q", lines)
	}
	if a.Overflows() != 1 {
		t.Errorf("Expected 1 overflow, got %d", a.Overflows())
	}
}
