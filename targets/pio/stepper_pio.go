//go:build rp2040

package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program for step pulse generation. Direction lines are on the
// shift register, so the program only drives the step pin.
// Command word format:
//
//	Bits 0-15:  pulse count minus one
//	Bits 16-23: delay cycles (inter-pulse spacing)
//
// buildStepperProgram assembles the program for load offset origin. With
// inverted set, the pulse drives the pin low from a high idle level.
func buildStepperProgram(origin uint8, inverted bool) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	active, idle := uint8(1), uint8(0)
	if inverted {
		active, idle = 0, 1
	}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),        // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(), // 1: out x, 16 (pulse count - 1)
		asm.Out(rp2pio.OutDestY, 8).Encode(),  // 2: out y, 8 (delay cycles)
		// step_loop:
		asm.Set(rp2pio.SetDestPins, active).Delay(7).Encode(), // 3: set pins, active [7]
		asm.Set(rp2pio.SetDestPins, idle).Encode(),          // 4: set pins, idle
		// delay_loop:
		asm.Jmp(origin+5, rp2pio.JmpYNZeroDec).Encode(), // 5: jmp y--, 5
		asm.Jmp(origin+3, rp2pio.JmpXNZeroDec).Encode(), // 6: jmp x--, 3
		// .wrap
	}
}

const (
	stepperPIOOrigin  = 0
	stepperProgramLen = 7
)

// loaded records the program offsets per PIO block and polarity; state
// machines of a block share one copy
var loaded [2][2]struct {
	ok     bool
	offset uint8
}

// PIOStepperBackend implements core.StepperBackend on one state machine
type PIOStepperBackend struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	stepPin machine.Pin
	offset  uint8
	pioNum  uint8
	smNum   uint8
	pulses  uint32
}

// NewPIOStepperBackend creates a new PIO-based stepper backend
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewPIOStepperBackend(pioNum, smNum uint8) *PIOStepperBackend {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PIOStepperBackend{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the program if needed and starts the state machine with
// the step pin low
func (b *PIOStepperBackend) Init(stepPin uint8, invertStep bool) error {
	b.stepPin = machine.Pin(stepPin)

	// Claim the state machine first
	b.sm.TryClaim()

	polarity := 0
	if invertStep {
		polarity = 1
	}
	slot := &loaded[b.pioNum][polarity]
	program := buildStepperProgram(stepperPIOOrigin+uint8(polarity)*stepperProgramLen, invertStep)
	if !slot.ok {
		offset, err := b.pio.AddProgram(program, int8(stepperPIOOrigin)+int8(polarity)*stepperProgramLen)
		if err != nil {
			return err
		}
		slot.ok = true
		slot.offset = offset
	}
	b.offset = slot.offset

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)

	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(b.offset+uint8(len(program))-1, b.offset)

	// 125 kHz state machine clock: the [7] delay gives an 8 µs pulse
	cfg.SetClkDivIntFrac(1000, 0)

	// Initialize state machine first, then pin directions
	b.sm.Init(b.offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, invertStep)

	b.sm.SetEnabled(true)
	return nil
}

// Step queues a single pulse
func (b *PIOStepperBackend) Step() {
	// count-1 = 0, minimal delay
	cmd := uint32(0) | (1 << 16)

	for b.sm.IsTxFIFOFull() {
		// Busy wait - should be very brief
	}
	b.sm.TxPut(cmd)
	b.pulses++
}

// Stop drops queued pulses and restarts the program
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

// GetName returns the backend name
func (b *PIOStepperBackend) GetName() string {
	return "PIO"
}

// Pulses returns the pulses queued since Init
func (b *PIOStepperBackend) Pulses() uint32 {
	return b.pulses
}
