package core

// Pattern names a status image on the slot LEDs
type Pattern uint8

const (
	PatternOff Pattern = iota
	PatternActiveSlot
	PatternLoadFailure
	PatternOkAfterFailure
	PatternFilamentPresent
	PatternHomed
	PatternDriveError
	PatternFatal
	PatternSetup
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternActiveSlot:
		return "active-slot"
	case PatternLoadFailure:
		return "load-failure"
	case PatternOkAfterFailure:
		return "ok-after-failure"
	case PatternFilamentPresent:
		return "filament-present"
	case PatternHomed:
		return "homed"
	case PatternDriveError:
		return "drive-error"
	case PatternFatal:
		return "fatal"
	case PatternSetup:
		return "setup"
	}
	return "pattern" + itoa(int(p))
}

// Indicator shows status patterns to the user. Blinking patterns toggle
// on each call, so callers that want a blink call Signal periodically.
type Indicator interface {
	Signal(p Pattern, slot int)
}

// LEDWriter accepts a 10 bit LED image. ShiftOutputs implements it.
type LEDWriter interface {
	SetLEDs(leds uint16)
}

// LED images: two bits per slot, green in the low bit, slot 0 highest.
const (
	ledAllGreen = 0x155
	ledAllRed   = 0x2aa
	ledAll      = 0x3ff
)

func greenLED(slot int) uint16 {
	if slot < 0 || slot > 4 {
		return 0
	}
	return 1 << (2 * uint(4-slot))
}

func redLED(slot int) uint16 {
	if slot < 0 || slot > 4 {
		return 0
	}
	return 2 << (2 * uint(4-slot))
}

// LEDBank renders patterns onto the slot LEDs
type LEDBank struct {
	out   LEDWriter
	last  Pattern
	phase bool
}

// NewLEDBank creates a bank writing to out
func NewLEDBank(out LEDWriter) *LEDBank {
	return &LEDBank{out: out}
}

// Signal shows p. slot selects the LED pair for per-slot patterns.
func (b *LEDBank) Signal(p Pattern, slot int) {
	if p != b.last {
		b.phase = false
	}
	b.last = p
	b.phase = !b.phase
	b.out.SetLEDs(PatternImage(p, slot, b.phase))
}

// PatternImage returns the LED image of p. on selects the lit half of a
// blinking pattern.
func PatternImage(p Pattern, slot int, on bool) uint16 {
	switch p {
	case PatternActiveSlot, PatternSetup:
		return greenLED(slot)
	case PatternLoadFailure:
		if on {
			return redLED(slot)
		}
		return 0
	case PatternOkAfterFailure:
		if on {
			return greenLED(slot)
		}
		return redLED(slot)
	case PatternFilamentPresent:
		return ledAllRed
	case PatternHomed:
		return ledAllGreen
	case PatternDriveError, PatternFatal:
		if on {
			return ledAll
		}
		return 0
	}
	return 0
}
