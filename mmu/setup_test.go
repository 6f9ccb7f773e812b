package mmu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmuctl/core"
	"mmuctl/mmu"
	"mmuctl/motion"
	"mmuctl/sim"
	"mmuctl/storage"
)

func clicks(buttons ...core.Button) []sim.Click {
	out := make([]sim.Click, len(buttons))
	for i, b := range buttons {
		out[i] = sim.Click{Button: b}
	}
	return out
}

const (
	left   = core.ButtonLeft
	middle = core.ButtonMiddle
	right  = core.ButtonRight
)

func TestSetupExit(t *testing.T) {
	b := newBench(t, true)
	ctx := scriptContext(t, b)
	b.Buttons.Push(clicks(left, left, left, left, left, middle)...)

	require.NoError(t, b.unit.Step(ctx))
	assert.Equal(t, mmu.StateIdle, b.unit.State())
	assert.Zero(t, b.Buttons.Remaining())
	assert.Equal(t, core.PatternSetup, b.Indicator.Last().Pattern)
	assert.Equal(t, mmu.MenuExit, b.Indicator.Last().Slot, "left stops at the last item")
}

func TestSetupEraseNeedsUnlock(t *testing.T) {
	b := newBench(t, true)
	ctx := scriptContext(t, b)
	require.NoError(t, b.Store.SetBowdenLength(0, 9500))

	// erase while locked does nothing; then unlock, back to erase
	b.Buttons.Push(clicks(left, left, middle, left, middle, right, middle)...)
	require.NoError(t, b.unit.Step(ctx))
	assert.Equal(t, mmu.StateIdle, b.unit.State())
	assert.Zero(t, b.Buttons.Remaining())
	assert.Equal(t, storage.BowdenDefault, b.Store.BowdenLength(0))
}

func TestSetupEraseLocked(t *testing.T) {
	b := newBench(t, true)
	ctx := scriptContext(t, b)
	require.NoError(t, b.Store.SetBowdenLength(0, 9500))

	b.Buttons.Push(clicks(left, left, middle, left, left, middle)...)
	require.NoError(t, b.unit.Step(ctx))
	assert.Equal(t, 9500, b.Store.BowdenLength(0))
}

func TestSetupCalibratesBowden(t *testing.T) {
	b := newBench(t, true)
	ctx := scriptContext(t, b)
	step := storage.BowdenStepSize

	b.Buttons.Push(clicks(
		left, middle, // calibration menu
		right, middle, // slot 1
		left, left, left, right, middle, // +2 steps, store
		right, right, right, right, middle, // service position leaves
	)...)
	require.NoError(t, b.unit.Step(ctx))

	assert.Zero(t, b.Buttons.Remaining())
	assert.Equal(t, mmu.StateIdle, b.unit.State())
	assert.Equal(t, storage.BowdenDefault+2*step, b.Store.BowdenLength(1))
	assert.Equal(t, storage.BowdenDefault, b.Store.BowdenLength(0))
	assert.False(t, b.Controller.Loaded())
	assert.Less(t, b.Feeder.Tip(1), 0)
	assert.Equal(t, motion.Slot(0), b.Controller.ActiveSlot())

	// a reload uses the stored length
	assert.Equal(t, []string{"ok"}, b.request(t, "T1"))
	assert.Equal(t, storage.BowdenDefault+2*step, b.Feeder.Tip(1))
}

func TestCalibrateBowdenLimits(t *testing.T) {
	b := newBench(t, false)
	ctx := scriptContext(t, b)
	require.NoError(t, b.Store.SetBowdenLength(2, storage.BowdenMin))
	require.NoError(t, b.Controller.Home(ctx))

	// shorter than the minimum is refused without moving
	b.Buttons.Push(clicks(right, right, middle)...)
	require.NoError(t, b.unit.CalibrateBowden(ctx, 2))
	assert.Equal(t, storage.BowdenMin, b.Store.BowdenLength(2))
	assert.Less(t, b.Feeder.Tip(2), 0)

	// loaded filament is left alone
	require.NoError(t, b.Controller.Load(ctx))
	require.NoError(t, b.unit.CalibrateBowden(ctx, 2))
	assert.True(t, b.Controller.Loaded())
}
