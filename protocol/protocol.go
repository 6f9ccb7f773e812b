// Package protocol implements the printer command link: a line oriented
// text protocol where each request is one opcode letter with an integer
// operand ("T2", "F1 2") and each reply is "ok\n" or "<n>ok\n". A lone
// 'A' between lines is the printer's door sensor byte.
package protocol

// Firmware identification reported by S1 and S2
const (
	FirmwareVersion = 104
	FirmwareBuild   = 1
)

// Link constants
const (
	LineMax      = 32  // request line buffer, terminator included
	RxBufferSize = 128 // bytes held between polls
	SentinelByte = 'A'
)
