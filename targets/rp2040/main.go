//go:build rp2040

package main

import (
	"context"
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/shiftregister"

	"mmuctl/core"
	"mmuctl/mmu"
	"mmuctl/motion"
	"mmuctl/protocol"
	"mmuctl/targets/pio"
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	if err := run(); err != nil {
		// nothing can move; show the failure and wait for a power cycle
		core.DebugPrintln("[MAIN] " + err.Error())
		halt()
	}
	resetMCU()
}

// run wires the board and drives the unit until the printer asks for a
// reset
func run() error {
	gpio := NewRPGPIODriver()
	adc := NewRPAdcDriver()
	clock := core.NewSystemClock()
	core.SetEventClock(clock)

	// output register first so every driver starts disabled
	reg := shiftregister.New(shiftregister.SIXTEEN_BITS, pinShiftLatch, pinShiftClock, pinShiftData)
	reg.Configure()
	outputs := core.NewShiftOutputs(reg, invertDir)
	leds := core.NewLEDBank(outputs)

	chips, err := initDriverChips(gpio)
	if err != nil {
		return err
	}
	var steppers [core.NumAxes]core.StepperBackend
	for axis, pin := range [core.NumAxes]uint8{pinStepPulley, pinStepSelector, pinStepIdler} {
		if steppers[axis], err = pio.NewBackend(pin, false); err != nil {
			return err
		}
	}
	driver := core.NewTMCAxisDriver(steppers, chips, outputs)

	finda, err := core.NewGPIOSensor(gpio, pinFINDA, false)
	if err != nil {
		return err
	}

	if err := initI2C(); err != nil {
		return err
	}
	store, err := openEEPROM()
	if err != nil {
		return err
	}
	reader, err := buttonReader(adc)
	if err != nil {
		return err
	}
	buttons := core.NewClickDetector(reader)

	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: linkBaud, TX: pinTX, RX: pinRX}); err != nil {
		return err
	}
	link := protocol.NewLink(uart)

	ctrl := motion.NewController(motion.DefaultConfig(), motion.Hardware{
		Driver:    driver,
		Sensor:    finda,
		Buttons:   buttons,
		Indicator: leds,
		Clock:     clock,
		Store:     store,
		Sentinel:  link,
	})
	unit := mmu.NewUnit(mmu.Parts{
		Controller: ctrl,
		Store:      store,
		Link:       link,
		Buttons:    buttons,
		Indicator:  leds,
		Clock:      clock,
	})

	// middle held at power-up opens the setup menu
	if err := unit.Start(buttons.Pressed() == core.ButtonMiddle); err != nil {
		return err
	}
	err = unit.Run(context.Background())
	if errors.Is(err, mmu.ErrReset) {
		return nil
	}
	return err
}

// resetMCU restarts the chip through the watchdog
func resetMCU() {
	// Use watchdog reset instead of ARM SYSRESETREQ
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	if err != nil {
		return
	}
	err = machine.Watchdog.Start()
	if err != nil {
		return
	}
	// Wait for reset (should happen in ~1ms)
	for {
		time.Sleep(1 * time.Millisecond)
	}
}

func halt() {
	for {
		time.Sleep(time.Second)
	}
}
