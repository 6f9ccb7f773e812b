//go:build rp2040

// Package pio generates step pulses with the RP2040's PIO state machines.
package pio

import (
	"errors"

	"mmuctl/core"
)

var (
	// PIO allocation tracking
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// ErrNoStateMachine is returned once all eight state machines are in use
var ErrNoStateMachine = errors.New("pio: no free state machine")

// NewBackend claims a state machine and initializes a step backend on
// stepPin
func NewBackend(stepPin uint8, invertStep bool) (core.StepperBackend, error) {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, ErrNoStateMachine
	}
	b := NewPIOStepperBackend(pioNum, smNum)
	if err := b.Init(stepPin, invertStep); err != nil {
		return nil, err
	}
	return b, nil
}

// allocatePIO allocates a PIO state machine
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	// Round-robin allocation across PIO blocks and state machines
	for i := 0; i < 8; i++ { // 2 PIO × 4 SM = 8 total
		pioNum := nextPIONum
		smNum := nextSMNum

		// Advance to next slot
		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}

	// All PIO resources exhausted
	return 0, 0, false
}
