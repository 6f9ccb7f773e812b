//go:build rp2040

package main

import (
	"machine"

	"mmuctl/core"
)

// TMC2130 chip selects, indexed by core.Axis
var chipSelects = [core.NumAxes]core.GPIOPin{pinCSPulley, pinCSSelector, pinCSIdler}

// initDriverChips configures spi0 and returns one TMC2130 per axis. The
// chips latch on the rising clock edge with the clock idling high (mode 3).
func initDriverChips(gpio core.GPIODriver) ([core.NumAxes]*core.TMC2130, error) {
	var chips [core.NumAxes]*core.TMC2130

	err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: spiRate,
		SCK:       pinSPISCK,
		SDO:       pinSPIMOSI, // SDO = Serial Data Out (MOSI)
		SDI:       pinSPIMISO, // SDI = Serial Data In (MISO)
		Mode:      3,
	})
	if err != nil {
		return chips, err
	}

	for axis, pin := range chipSelects {
		// CS is active low
		cs, err := core.NewOutputPin(gpio, pin, true)
		if err != nil {
			return chips, err
		}
		chips[axis] = core.NewTMC2130(machine.SPI0, cs)
	}
	return chips, nil
}
