package protocol

import (
	"errors"
	"strconv"

	"github.com/google/shlex"
)

// Op is a request opcode
type Op byte

const (
	OpToolChange   Op = 'T' // T<slot>: unload, select and load slot
	OpLoad         Op = 'L' // L<slot>: feed slot to the sensor
	OpUnload       Op = 'U' // U<n>: unload, n is ignored
	OpMode         Op = 'M' // M0 normal, M1 stealth
	OpReset        Op = 'X' // X0
	OpReadSensor   Op = 'P' // P0: 1ok when filament is in the sensor
	OpStatus       Op = 'S' // S0 ok, S1 version, S2 build, S3 drive errors
	OpFilamentType Op = 'F' // F<slot> <type>
	OpContinue     Op = 'C' // C0: push into the extruder gears
	OpEject        Op = 'E' // E<slot>
	OpRecover      Op = 'R' // R0: recover after eject
	OpWait         Op = 'W' // W0: wait for the user
	OpCut          Op = 'K' // K<slot>
)

var knownOps = map[Op]bool{
	OpToolChange: true, OpLoad: true, OpUnload: true, OpMode: true,
	OpReset: true, OpReadSensor: true, OpStatus: true, OpFilamentType: true,
	OpContinue: true, OpEject: true, OpRecover: true, OpWait: true, OpCut: true,
}

var (
	// ErrEmptyLine is returned for a line with no tokens
	ErrEmptyLine = errors.New("empty line")
	// ErrUnknownOp is returned for an opcode letter outside the command set
	ErrUnknownOp = errors.New("unknown opcode")
	// ErrMalformed is returned when an operand is missing or not a number
	ErrMalformed = errors.New("malformed command")
)

// Command is one parsed request
type Command struct {
	Op    Op
	Value int
	Extra int  // second operand of F
	Has2  bool // Extra was given
}

func (c Command) String() string {
	s := string(rune(c.Op)) + strconv.Itoa(c.Value)
	if c.Has2 {
		s += " " + strconv.Itoa(c.Extra)
	}
	return s
}

// ParseLine splits a request line into opcode and operands. The first
// token is the opcode letter immediately followed by a decimal operand.
// F takes a second operand; other opcodes ignore further tokens.
func ParseLine(line string) (Command, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Command{}, errors.Join(ErrMalformed, err)
	}
	if len(tokens) == 0 {
		return Command{}, ErrEmptyLine
	}
	head := tokens[0]
	op := Op(head[0])
	if !knownOps[op] {
		return Command{}, ErrUnknownOp
	}
	cmd := Command{Op: op}
	if cmd.Value, err = leadingInt(head[1:]); err != nil {
		return Command{}, err
	}
	if op == OpFilamentType && len(tokens) > 1 {
		if cmd.Extra, err = leadingInt(tokens[1]); err != nil {
			return Command{}, err
		}
		cmd.Has2 = true
	}
	return cmd, nil
}

// leadingInt parses the decimal number at the start of s and ignores any
// trailing text, the way the printer side has always been accepted.
func leadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, ErrMalformed
	}
	return strconv.Atoi(s[:end])
}

// OK is the plain acknowledgement
func OK() []byte {
	return []byte("ok\n")
}

// Value is an acknowledgement carrying a number
func Value(n int) []byte {
	return append(strconv.AppendInt(nil, int64(n), 10), "ok\n"...)
}
