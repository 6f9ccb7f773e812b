package motion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmuctl/core"
	"mmuctl/motion"
)

func TestSelectRequiresHoming(t *testing.T) {
	r := newRig(t)
	assert.ErrorIs(t, r.Controller.Select(context.Background(), 1), motion.ErrNotHomed)
	assert.ErrorIs(t, r.Controller.Load(context.Background()), motion.ErrNotHomed)
}

func TestSelectRejectsInvalidSlot(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	assert.ErrorIs(t, r.Controller.Select(ctx, -1), motion.ErrInvalidSlot)
	assert.ErrorIs(t, r.Controller.Select(ctx, r.Config.Park()+1), motion.ErrInvalidSlot)
	assertAt(t, r, 0)
}

func TestSelectPathIndependent(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller
	log := record(r)
	service := r.Config.Service()

	routes := [][]motion.Slot{nil, {4}, {service}, {2, service}, {3, 1}}
	for a := motion.Slot(0); int(a) < r.Config.Slots; a++ {
		for b := motion.Slot(0); int(b) < r.Config.Slots; b++ {
			for _, route := range routes {
				for _, s := range append(route, a) {
					require.NoError(t, c.Select(ctx, s))
				}
				assertAt(t, r, a)

				log.reset()
				require.NoError(t, c.Select(ctx, b))
				want := r.Config.StepsBetween(a, b)
				if a == b {
					assert.Empty(t, log.selectorMoves(), "%d->%d via %v", a, b, route)
				} else {
					assert.Equal(t, []int{int(b-a) * r.Config.SelectorPitch}, log.selectorMoves(), "%d->%d via %v", a, b, route)
				}
				assert.Equal(t, want, log.selectorMoves())
				assertAt(t, r, b)
			}
		}
	}
}

func TestServiceNeedsExtraTravel(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller
	log := record(r)
	service := r.Config.Service()

	require.NoError(t, c.Select(ctx, service))
	assert.Equal(t, r.Config.StepsBetween(0, service), log.selectorMoves())
	assertAt(t, r, service)
	assert.False(t, c.IdlerEngaged())

	log.reset()
	require.NoError(t, c.Select(ctx, 2))
	moves := log.selectorMoves()
	assert.Equal(t, []int{-r.Config.ServiceExtra, -2 * r.Config.SelectorPitch}, moves)
	assert.NotContains(t, moves, -3*r.Config.SelectorPitch, "no plain pitch move out of service")
	assertAt(t, r, 2)
}

func TestSelectWhileLoaded(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller
	require.NoError(t, c.Load(ctx))

	assert.ErrorIs(t, c.Select(ctx, 2), motion.ErrFilamentLoaded)
	assert.ErrorIs(t, c.Select(ctx, r.Config.Park()), motion.ErrFilamentLoaded)
	require.NoError(t, c.Select(ctx, 0))
	assert.True(t, c.IdlerEngaged(), "idler stays on loaded filament")
	assertAt(t, r, 0)
}

func TestSelectParkKeepsSlot(t *testing.T) {
	r := homedRig(t)
	ctx := context.Background()
	c := r.Controller

	require.NoError(t, c.Select(ctx, 3))
	require.NoError(t, c.Select(ctx, r.Config.Park()))
	assertAt(t, r, 3)
	assert.False(t, c.IdlerEngaged())
}

func TestSelectSignalsActiveSlot(t *testing.T) {
	r := homedRig(t)
	require.NoError(t, r.Controller.Select(context.Background(), 4))
	last := r.Indicator.Last()
	assert.Equal(t, core.PatternActiveSlot, last.Pattern)
	assert.Equal(t, 4, last.Slot)
}
