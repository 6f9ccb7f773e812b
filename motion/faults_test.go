package motion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/sim"
)

func TestDriveFaultRehomesAndRetries(t *testing.T) {
	r := homedRig(t)
	r.Indicator.Reset()
	r.Feeder.InjectFault(core.AxisSelector, core.DriverStatus{ShortA: true}, 1)

	require.NoError(t, r.Controller.Select(context.Background(), 3))
	assertAt(t, r, 3)
	assert.Equal(t, uint16(1), r.Store.DriveErrors())
	assert.Equal(t, 2*r.Config.FaultBlinks, r.Indicator.Count(core.PatternDriveError))
	assert.Equal(t, 1, r.Indicator.Count(core.PatternHomed), "re-homed once")
	assert.False(t, r.Controller.Fatal())
}

func TestDriveFaultCounterResetsOnSuccess(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller

	for i, slot := range []motion.Slot{1, 2} {
		r.Feeder.InjectFault(core.AxisSelector, core.DriverStatus{DriverError: true}, r.Config.MaxFaultRetries)
		require.NoError(t, c.Select(ctx, slot))
		assertAt(t, r, slot)
		assert.Equal(t, uint16((i+1)*r.Config.MaxFaultRetries), r.Store.DriveErrors())
	}
	assert.False(t, c.Fatal())
}

func TestPersistentDriveFaultIsFatal(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller
	r.Feeder.InjectFault(core.AxisIdler, core.DriverStatus{OpenA: true}, -1)

	err := c.Select(ctx, 1)
	require.ErrorIs(t, err, motion.ErrFatal)
	assert.True(t, c.Fatal())
	assert.False(t, c.Homed())
	assert.Equal(t, uint16(r.Config.MaxFaultRetries+1), r.Store.DriveErrors())
	assert.Equal(t, core.PatternFatal, r.Indicator.Last().Pattern)

	events := core.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, core.EvtFatal, events[len(events)-1].Kind)
	for a := core.Axis(0); a < core.NumAxes; a++ {
		assert.False(t, r.Feeder.Enabled(a))
	}

	// the count survives a power cycle
	again, err := sim.NewRigWithEEPROM(r.Config, r.EEPROM)
	require.NoError(t, err)
	assert.Equal(t, uint16(r.Config.MaxFaultRetries+1), again.Store.DriveErrors())
}

func TestLateResetIsDriveFault(t *testing.T) {
	r := homedRig(t)
	r.Feeder.InjectFault(core.AxisPulley, core.DriverStatus{Reset: true}, 1)

	require.NoError(t, r.Controller.JogPulley(context.Background(), 10))
	assert.Equal(t, uint16(1), r.Store.DriveErrors())
	assert.True(t, r.Controller.Homed())
}

func TestStatusReadFailureIsDriveFault(t *testing.T) {
	r := homedRig(t)
	r.Feeder.FailStatusReads()

	err := r.Controller.Select(context.Background(), 2)
	assert.ErrorIs(t, err, motion.ErrFatal)
	assert.Equal(t, uint16(r.Config.MaxFaultRetries+1), r.Store.DriveErrors())
}

func TestPulleyStallDuringLoadIsExpected(t *testing.T) {
	r := homedRig(t)
	c := r.Controller
	r.Feeder.InjectFault(core.AxisPulley, core.DriverStatus{Stall: true}, 1)

	require.NoError(t, c.Load(scriptContext(t, r)))
	assert.True(t, c.Loaded())
	assert.Equal(t, uint16(0), r.Store.DriveErrors())
	assert.Equal(t, 1, r.Indicator.Count(core.PatternHomed), "no re-home")
	assert.Equal(t, r.Store.BowdenLength(0), r.Feeder.Tip(0))
}

func TestPulleyStallOutsideLoadIsDriveFault(t *testing.T) {
	r := homedRig(t)
	r.Feeder.InjectFault(core.AxisPulley, core.DriverStatus{Stall: true}, 1)

	require.NoError(t, r.Controller.JogPulley(context.Background(), 10))
	assert.Equal(t, uint16(1), r.Store.DriveErrors())
}

func TestSelectorStallDuringLoadIsDriveFault(t *testing.T) {
	r := homedRig(t)
	c := r.Controller
	ctx := scriptContext(t, r)
	require.NoError(t, c.Select(ctx, 2))
	r.Feeder.InjectFault(core.AxisSelector, core.DriverStatus{Stall: true}, 1)

	require.NoError(t, c.Load(ctx))
	assert.Equal(t, uint16(1), r.Store.DriveErrors())
	assert.Equal(t, 2, r.Indicator.Count(core.PatternHomed), "re-homed once")
	assert.True(t, c.Loaded())
	assertAt(t, r, 2)
	assert.Equal(t, r.Store.BowdenLength(2), r.Feeder.Tip(2))
}

func TestDriveFaultWhileLoadedUnloadsBeforeHoming(t *testing.T) {
	r := homedRig(t)
	c := r.Controller
	ctx := scriptContext(t, r)
	require.NoError(t, c.Load(ctx))
	log := record(r)
	r.Feeder.InjectFault(core.AxisSelector, core.DriverStatus{ShortA: true}, 1)

	// homing with filament in the selector would wait for the user
	require.NoError(t, c.LoadIntoPrinter(ctx))
	assert.Equal(t, uint16(1), r.Store.DriveErrors())
	assert.True(t, c.Homed())
	assert.True(t, c.Loaded())
	assert.Equal(t, r.Store.BowdenLength(0)+r.Config.PrinterLoad.Steps, r.Feeder.Tip(0))
	assert.Zero(t, r.Indicator.Count(core.PatternFilamentPresent))

	require.NotEmpty(t, log.phases)
	assert.Equal(t, "unload:retracting", log.phases[0], "pulled back before re-homing")
	assert.Contains(t, log.phases, "load:seeking")
}
