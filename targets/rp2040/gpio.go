//go:build rp2040

package main

import (
	"machine"

	"mmuctl/core"
)

// RPGPIODriver implements core.GPIODriver on the RP2040 pins
type RPGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) {
	if _, exists := d.configuredPins[pin]; exists {
		// Already configured, this is OK
		return
	}
	// pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	d.configure(pin, machine.PinOutput)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPullup)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPulldown)
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		// Pin isn't configured - configure it first
		d.configure(pin, machine.PinOutput)
		machinePin = d.configuredPins[pin]
	}
	machinePin.Set(value)
	return nil
}

// ReadPin reads the pin level; unconfigured pins read low
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}
