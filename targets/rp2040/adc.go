//go:build rp2040

package main

import (
	"errors"
	"machine"
	"sync"

	"mmuctl/core"
)

// RpAdcDriver implements core.ADCDriver using TinyGo's machine.ADC.
type RpAdcDriver struct {
	mu sync.Mutex

	// Per-channel TinyGo ADC handles, channels 0-3 on GPIO26-29
	channels map[core.ADCChannelID]*machine.ADC
}

// NewRPAdcDriver initializes the converter
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{
		channels: make(map[core.ADCChannelID]*machine.ADC),
	}
}

// ConfigureChannel sets up a specific ADC channel (pin mux, etc.).
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.channels[ch]; ok {
		// already configured
		return nil
	}

	var adc machine.ADC
	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	default:
		// Unknown channel
		return errors.New("unsupported ADC channel")
	}

	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}

	d.channels[ch] = &adc
	return nil
}

// ReadRaw returns a raw 12-bit ADC value (0-4095) from a channel.
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	adc, ok := d.channels[ch]
	if !ok {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
		adc = d.channels[ch]
	}

	// machine.ADC scales to 16 bits
	return core.ADCValue(adc.Get() >> 4), nil
}
