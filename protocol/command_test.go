package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"T0", Command{Op: OpToolChange, Value: 0}},
		{"L4", Command{Op: OpLoad, Value: 4}},
		{"U0", Command{Op: OpUnload}},
		{"M1", Command{Op: OpMode, Value: 1}},
		{"S3", Command{Op: OpStatus, Value: 3}},
		{"F2 1", Command{Op: OpFilamentType, Value: 2, Extra: 1, Has2: true}},
		{"  E3  ", Command{Op: OpEject, Value: 3}},
		{"K-1", Command{Op: OpCut, Value: -1}},
		{"W0 junk", Command{Op: OpWait}},
		{"T2x", Command{Op: OpToolChange, Value: 2}},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestParseLineErrors(t *testing.T) {
	_, err := ParseLine("   ")
	assert.ErrorIs(t, err, ErrEmptyLine)

	_, err = ParseLine("Q1")
	assert.ErrorIs(t, err, ErrUnknownOp)

	_, err = ParseLine("T")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseLine("Tx")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseLine("F1 x")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseLine(`F1 "2`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "T3", Command{Op: OpToolChange, Value: 3}.String())
	assert.Equal(t, "F1 2", Command{Op: OpFilamentType, Value: 1, Extra: 2, Has2: true}.String())
}

func TestReplies(t *testing.T) {
	assert.Equal(t, "ok\n", string(OK()))
	assert.Equal(t, "104ok\n", string(Value(FirmwareVersion)))
	assert.Equal(t, "0ok\n", string(Value(0)))
}
