package motion

import (
	"context"
	"errors"
	"fmt"

	"mmuctl/core"
)

// checkDrivers reads every axis's status after a move. Electrical faults,
// a chip reset and a stall outside homing are drive faults. A pulley stall
// is tolerated while stallExpected is set.
func (c *Controller) checkDrivers() error {
	if c.homing {
		return nil
	}
	for a := core.Axis(0); a < core.NumAxes; a++ {
		st, err := c.hw.Driver.Status(a)
		if err != nil {
			return fmt.Errorf("%w: %s status: %w", errDriveFault, a, err)
		}
		stall := st.Stall && !(c.stallExpected && a == core.AxisPulley)
		if st.Fault() || st.Reset || stall {
			core.RecordEvent(core.EvtDriveFault, a, int32(c.faults+1), int32(statusBits(st)))
			return fmt.Errorf("%w on %s", errDriveFault, a)
		}
	}
	return nil
}

func statusBits(st core.DriverStatus) int {
	bits := 0
	for i, set := range []bool{st.Reset, st.DriverError, st.UnderVoltage, st.OverTemp,
		st.ShortA, st.ShortB, st.OpenA, st.OpenB, st.Stall} {
		if set {
			bits |= 1 << i
		}
	}
	return bits
}

// guard runs op and handles drive faults: each one is counted in the
// store and signaled, loaded filament is pulled back, then the axes are
// re-homed and op is retried. More than MaxFaultRetries consecutive faults
// halt the controller.
func (c *Controller) guard(ctx context.Context, op func() error) error {
	if c.fatal {
		return ErrFatal
	}
	for {
		err := op()
		if !errors.Is(err, errDriveFault) {
			if err == nil {
				c.faults = 0
			}
			return err
		}
		c.faults++
		if serr := c.hw.Store.IncrementDriveErrors(); serr != nil {
			core.DebugPrintln("[MOTION] drive error not recorded: " + serr.Error())
		}
		core.DebugValue("[MOTION] drive fault", "retry", c.faults)
		c.signalDriveError()
		if c.faults > c.cfg.MaxFaultRetries {
			return c.enterFatal(err)
		}
		if c.loaded {
			// homing waits for the sensor to clear
			unload := c.expectStall(func() error { return c.unload(ctx) })
			if uerr := unload(); uerr != nil && !errors.Is(uerr, errDriveFault) {
				return uerr
			}
		}
		if herr := c.home(ctx); herr != nil {
			return herr
		}
	}
}

// expectStall wraps op so pulley stalls are not drive faults while it runs
func (c *Controller) expectStall(op func() error) func() error {
	return func() error {
		c.stallExpected = true
		defer func() { c.stallExpected = false }()
		return op()
	}
}

func (c *Controller) signalDriveError() {
	for i := 0; i < c.cfg.FaultBlinks; i++ {
		c.hw.Indicator.Signal(core.PatternDriveError, int(c.slot))
		c.sleepMillis(c.cfg.FaultBlinkMs)
		c.hw.Indicator.Signal(core.PatternDriveError, int(c.slot))
		c.sleepMillis(c.cfg.FaultBlinkMs)
	}
}

// enterFatal halts the controller: motors are released, the event ring
// is dumped and every later operation returns ErrFatal.
func (c *Controller) enterFatal(cause error) error {
	c.fatal = true
	c.homed = false
	for a := core.Axis(0); a < core.NumAxes; a++ {
		c.hw.Driver.Enable(a, false)
	}
	core.RecordEvent(core.EvtFatal, 0, int32(c.faults), 0)
	core.DebugPrintln("[MOTION] fatal: " + cause.Error())
	core.DumpEvents()
	c.hw.Indicator.Signal(core.PatternFatal, int(c.slot))
	return fmt.Errorf("%w: %w", ErrFatal, cause)
}
