package motion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmuctl/core"
	"mmuctl/motion"
	"mmuctl/sim"
	"mmuctl/storage"
)

func newRig(t *testing.T) *sim.Rig {
	t.Helper()
	core.ClearEvents()
	r, err := sim.NewRig(motion.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, r.Controller.Init())
	return r
}

func homedRig(t *testing.T) *sim.Rig {
	t.Helper()
	r := newRig(t)
	require.NoError(t, r.Controller.Home(context.Background()))
	return r
}

// scriptContext is cancelled when a procedure polls for a click the
// script does not have, so a wrong expectation fails instead of hanging.
func scriptContext(t *testing.T, r *sim.Rig) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.Buttons.Idle = cancel
	return ctx
}

type traceLog struct {
	moves  []motion.MotionRequest
	phases []string
}

func record(r *sim.Rig) *traceLog {
	l := &traceLog{}
	r.Controller.SetTrace(motion.Trace{
		Move: func(req motion.MotionRequest) {
			l.moves = append(l.moves, req)
		},
		Phase: func(procedure, phase string) {
			l.phases = append(l.phases, procedure+":"+phase)
		},
	})
	return l
}

func (l *traceLog) reset() {
	l.moves = nil
	l.phases = nil
}

func (l *traceLog) selectorMoves() []int {
	var out []int
	for _, m := range l.moves {
		if m.Selector != 0 {
			out = append(out, m.Selector)
		}
	}
	return out
}

func countEvents(kind core.EventKind, axis core.Axis) int {
	n := 0
	for _, e := range core.Events() {
		if e.Kind == kind && e.Axis == axis {
			n++
		}
	}
	return n
}

func assertAt(t *testing.T, r *sim.Rig, slot motion.Slot) {
	t.Helper()
	idler, selector, ok := r.Config.SlotPosition(slot)
	require.True(t, ok)
	if int(slot) < r.Config.Slots && !r.Controller.IdlerEngaged() {
		idler -= r.Config.IdlerParkSteps
	}
	c := r.Controller
	assert.Equal(t, slot, c.ActiveSlot())
	assert.Equal(t, selector, c.Position(core.AxisSelector), "selector")
	assert.Equal(t, idler, c.Position(core.AxisIdler), "idler")
	assert.Equal(t, selector, r.Feeder.Position(core.AxisSelector), "physical selector")
	assert.Equal(t, idler, r.Feeder.Position(core.AxisIdler), "physical idler")
}

func TestInitConsumesPowerUpReset(t *testing.T) {
	r := homedRig(t)
	require.NoError(t, r.Controller.Select(context.Background(), 1))
	assert.Equal(t, uint16(0), r.Store.DriveErrors())
	for a := core.Axis(0); a < core.NumAxes; a++ {
		assert.True(t, r.Feeder.Enabled(a), a.String())
	}
}

func TestInitRestoresLastFilament(t *testing.T) {
	dev := storage.NewMemEEPROM(storage.DefaultSize)
	s, err := storage.Open(dev)
	require.NoError(t, err)
	require.NoError(t, s.SetLastFilament(3))

	r, err := sim.NewRigWithEEPROM(motion.DefaultConfig(), dev)
	require.NoError(t, err)
	require.NoError(t, r.Controller.Init())
	assert.Equal(t, motion.Slot(3), r.Controller.ActiveSlot())
	assert.False(t, r.Controller.Loaded())
	assert.False(t, r.Controller.Homed())
}

func TestHomeReferencesAxes(t *testing.T) {
	r := homedRig(t)
	c := r.Controller

	assert.True(t, c.Homed())
	assertAt(t, r, 0)
	assert.False(t, c.IdlerEngaged())
	assert.Equal(t, core.ModeNormal, r.Feeder.Mode(), "normal mode restored")
	assert.Equal(t, 1, r.Indicator.Count(core.PatternHomed))
	assert.Equal(t, 1, countEvents(core.EvtHomed, core.AxisIdler))
	assert.Equal(t, 1, countEvents(core.EvtHomed, core.AxisSelector))
}

func TestHomeFromAnyStart(t *testing.T) {
	for _, start := range [][2]int{{-150, -1650}, {3650, 100}, {2000, -300}} {
		r := newRig(t)
		r.Feeder.SetPosition(core.AxisSelector, start[0])
		r.Feeder.SetPosition(core.AxisIdler, start[1])
		require.NoError(t, r.Controller.Home(context.Background()), "start %v", start)
		assertAt(t, r, 0)
	}
}

func TestHomeRelaxesStallThreshold(t *testing.T) {
	r := newRig(t)
	r.Feeder.DetectThreshold[core.AxisIdler] = 9

	require.NoError(t, r.Controller.Home(context.Background()))
	assert.Equal(t, 2, countEvents(core.EvtHomingFailed, core.AxisIdler))
	for _, e := range core.Events() {
		if e.Kind == core.EvtHomed && e.Axis == core.AxisIdler {
			assert.Equal(t, int32(9), e.Value1, "homed at the third level")
		}
	}
	assertAt(t, r, 0)
}

func TestHomeImmediateStallIsFatal(t *testing.T) {
	r := newRig(t)
	r.Feeder.ImmediateStall[core.AxisIdler] = true
	ctx := context.Background()
	c := r.Controller

	err := c.Home(ctx)
	require.ErrorIs(t, err, motion.ErrFatal)
	assert.ErrorIs(t, err, motion.ErrHomingFailed)
	assert.Equal(t, len(r.Config.Idler.StallLevels), countEvents(core.EvtHomingFailed, core.AxisIdler))

	assert.True(t, c.Fatal())
	assert.False(t, c.Homed())
	assert.Equal(t, core.PatternFatal, r.Indicator.Last().Pattern)
	for a := core.Axis(0); a < core.NumAxes; a++ {
		assert.False(t, r.Feeder.Enabled(a), "%s released", a)
	}

	// absorbing: nothing else runs
	assert.ErrorIs(t, c.Home(ctx), motion.ErrFatal)
	assert.ErrorIs(t, c.Select(ctx, 1), motion.ErrFatal)
	assert.ErrorIs(t, c.Load(ctx), motion.ErrFatal)
	assert.ErrorIs(t, c.Unload(ctx), motion.ErrFatal)
	assert.ErrorIs(t, c.SetMode(core.ModeStealth), motion.ErrFatal)
	_, err = c.ProbeAlignment(ctx)
	assert.ErrorIs(t, err, motion.ErrFatal)
}

func TestHomeWithoutStallDetectionIsFatal(t *testing.T) {
	r := newRig(t)
	r.Feeder.DetectThreshold[core.AxisSelector] = 100

	err := r.Controller.Home(context.Background())
	assert.ErrorIs(t, err, motion.ErrFatal)
	assert.Equal(t, 1, countEvents(core.EvtHomed, core.AxisIdler))
	assert.Equal(t, len(r.Config.Selector.StallLevels), countEvents(core.EvtHomingFailed, core.AxisSelector))
}

func TestHomeWaitsForFilamentToClear(t *testing.T) {
	r := newRig(t)
	slot := r.Feeder.SelectorSlot()
	require.GreaterOrEqual(t, slot, 0)
	r.Feeder.SetTip(slot, 40)
	require.True(t, r.Feeder.Present())

	ctx := scriptContext(t, r)
	r.Buttons.Push(sim.Click{
		Button: core.ButtonRight,
		After:  5000,
		Do:     func() { r.Feeder.SetTip(slot, -300) },
	})
	require.NoError(t, r.Controller.Home(ctx))
	assert.Greater(t, r.Indicator.Count(core.PatternFilamentPresent), 5)
	assertAt(t, r, 0)
}

func TestHomeCancelledWhileWaiting(t *testing.T) {
	r := newRig(t)
	r.Feeder.SetTip(r.Feeder.SelectorSlot(), 0)

	ctx := scriptContext(t, r)
	assert.ErrorIs(t, r.Controller.Home(ctx), context.Canceled)
	assert.False(t, r.Controller.Fatal())
	assert.False(t, r.Controller.Homed())
}

func TestHomeAbortRestoresDriverMode(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.Controller.SetMode(core.ModeStealth))
	r.Feeder.SetTip(r.Feeder.SelectorSlot(), 0)

	ctx := scriptContext(t, r)
	require.ErrorIs(t, r.Controller.Home(ctx), context.Canceled)
	assert.Equal(t, core.ModeStealth, r.Feeder.Mode(), "homing currents released")

	r.Feeder.SetTip(r.Feeder.SelectorSlot(), sim.DefaultTip)
	require.NoError(t, r.Controller.Home(context.Background()))
	assert.Equal(t, core.ModeStealth, r.Feeder.Mode())
}

func TestMoveProportional(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller

	require.NoError(t, c.MoveProportional(ctx, -355, 697))
	assert.Equal(t, 697, c.Position(core.AxisSelector))
	assert.Equal(t, -217-355, c.Position(core.AxisIdler))

	// idler alone
	require.NoError(t, c.MoveProportional(ctx, 200, 0))
	assert.Equal(t, 697, c.Position(core.AxisSelector))
	assert.Equal(t, -217-155, c.Position(core.AxisIdler))

	// idler longer than selector
	require.NoError(t, c.MoveProportional(ctx, -400, -100))
	assert.Equal(t, 597, c.Position(core.AxisSelector))
	assert.Equal(t, -217-555, c.Position(core.AxisIdler))
	assert.Equal(t, c.Position(core.AxisIdler), r.Feeder.Position(core.AxisIdler))
}

func TestMoveRunsAxesIndependently(t *testing.T) {
	r := homedRig(t)
	c := r.Controller
	before := r.Clock.Micros()

	require.NoError(t, c.Move(context.Background(), motion.MotionRequest{Selector: 697, Idler: 100, Pulley: 300}))
	assert.Equal(t, 697, c.Position(core.AxisSelector))
	assert.Equal(t, -117, c.Position(core.AxisIdler))
	assert.Equal(t, 300, c.Position(core.AxisPulley))

	// axes run concurrently: the move takes about as long as the longest axis alone
	elapsed := r.Clock.Micros() - before
	cfg := r.Config.Selector.Ramp
	assert.Less(t, elapsed, uint64(697)*uint64(cfg.Start))
	assert.Greater(t, elapsed, uint64(697)*uint64(cfg.Min))
}
