//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/at24cx"

	"mmuctl/core"
	"mmuctl/storage"
)

// initI2C configures i2c0 on the board pins
func initI2C() error {
	return machine.I2C0.Configure(machine.I2CConfig{
		Frequency: i2cRate,
		SDA:       pinSDA,
		SCL:       pinSCL,
	})
}

// openEEPROM returns the persistent store on the AT24C chip
func openEEPROM() (*storage.Store, error) {
	chip := at24cx.New(machine.I2C0)
	chip.Configure(at24cx.Config{EndRAMAddress: eepromSize})
	return storage.Open(storage.NewChipEEPROM(&chip, eepromSize))
}

// buttonReader picks the ladder or the expander
func buttonReader(adc core.ADCDriver) (core.ButtonReader, error) {
	if buttonsOnExpander {
		return core.NewExpanderButtons(machine.I2C0, core.ExpanderButtonsAddr), nil
	}
	return core.NewAnalogButtons(adc, buttonChannel)
}
