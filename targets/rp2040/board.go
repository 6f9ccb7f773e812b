//go:build rp2040

package main

import "machine"

// Pin map of the RP2040 feeder board
const (
	// TMC2130 bus, spi0 on GPIO2-4
	pinSPISCK  = machine.GPIO2
	pinSPIMOSI = machine.GPIO3
	pinSPIMISO = machine.GPIO4

	pinCSPulley   = 5
	pinCSSelector = 6
	pinCSIdler    = 7

	pinStepPulley   = 8
	pinStepSelector = 9
	pinStepIdler    = 10

	// 74HC595 pair: direction, enable and slot LED lines
	pinShiftLatch = machine.GPIO11
	pinShiftClock = machine.GPIO12
	pinShiftData  = machine.GPIO13

	pinFINDA = 14

	// EEPROM and the optional button expander share i2c0
	pinSDA = machine.GPIO16
	pinSCL = machine.GPIO17

	// printer link
	pinTX = machine.GPIO0
	pinRX = machine.GPIO1

	// button ladder on ADC0 (GPIO26)
	buttonChannel = 0
)

const (
	linkBaud   = 115200
	spiRate    = 2000000
	i2cRate    = 400000
	eepromSize = 4096

	// boards without the ladder carry the buttons on a port expander
	buttonsOnExpander = false
)

// direction line polarity per axis: pulley, selector, idler
var invertDir = [3]bool{false, true, false}
