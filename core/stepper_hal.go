package core

// StepperBackend defines the hardware abstraction for generating step pulses.
// Direction lines live on the shared shift register (see ShiftOutputs), so a
// backend only owns the step line. Implementations can use GPIO, PIO, or
// other methods.
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// invertStep: invert step pin polarity
	Init(stepPin uint8, invertStep bool) error

	// Step generates a single step pulse
	// Must handle pulse width timing internally
	Step()

	// Stop immediately halts stepping and leaves the step line idle
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// GPIOStepper pulses a step line through the registered GPIODriver.
// Slowest backend, but it runs anywhere a GPIODriver exists.
type GPIOStepper struct {
	pin    OutputPin
	pulses uint32
}

// NewGPIOStepper creates a stepper backend on top of d
func NewGPIOStepper(d GPIODriver) *GPIOStepper {
	return &GPIOStepper{pin: OutputPin{Driver: d}}
}

// Init configures the step line as an idle output
func (s *GPIOStepper) Init(stepPin uint8, invertStep bool) error {
	pin, err := NewOutputPin(s.pin.Driver, GPIOPin(stepPin), invertStep)
	if err != nil {
		return err
	}
	s.pin = pin
	return nil
}

// Step generates one pulse. The driver calls themselves give the TMC2130
// its 100ns minimum high time.
func (s *GPIOStepper) Step() {
	_ = s.pin.Set(true)
	_ = s.pin.Set(false)
	s.pulses++
}

// Stop leaves the step line low
func (s *GPIOStepper) Stop() {
	_ = s.pin.Set(false)
}

// GetName returns the backend name
func (s *GPIOStepper) GetName() string {
	return "GPIO"
}

// Pulses returns the number of pulses emitted since creation
func (s *GPIOStepper) Pulses() uint32 {
	return s.pulses
}
