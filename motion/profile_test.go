package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// periods returns the period used for each of total steps
func periods(p speedProfile, total int) []uint32 {
	out := make([]uint32, 0, total)
	period := p.start()
	for i := 0; i < total; i++ {
		out = append(out, period)
		period = p.next(period, i+1, total-i-1)
	}
	return append(out, period)
}

// assertValley checks that the periods fall, then only rise
func assertValley(t *testing.T, seq []uint32) {
	t.Helper()
	rising := false
	for i := 1; i < len(seq); i++ {
		switch {
		case seq[i] > seq[i-1]:
			rising = true
		case seq[i] < seq[i-1] && rising:
			t.Fatalf("period drops again at step %d: %d -> %d", i, seq[i-1], seq[i])
		}
	}
}

func minMax(seq []uint32) (uint32, uint32) {
	lo, hi := seq[0], seq[0]
	for _, v := range seq {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func TestToward(t *testing.T) {
	assert.Equal(t, uint32(90), toward(100, 50, 10))
	assert.Equal(t, uint32(50), toward(55, 50, 10))
	assert.Equal(t, uint32(110), toward(100, 200, 10))
	assert.Equal(t, uint32(200), toward(195, 200, 10))
	assert.Equal(t, uint32(7), toward(7, 7, 3))
}

func TestRampTrapezoid(t *testing.T) {
	r := DefaultConfig().Pulley.Ramp
	for _, total := range []int{1, 2, 20, 49, 50, 51, 101, 1000} {
		seq := periods(r, total)
		lo, hi := minMax(seq)
		assert.GreaterOrEqual(t, lo, r.Min, "total %d", total)
		assert.Equal(t, r.Start, hi, "total %d", total)
		assert.Equal(t, r.Start, seq[len(seq)-1], "total %d ends at rest", total)
		assertValley(t, seq)
	}

	seq := periods(r, 1000)
	lo, _ := minMax(seq)
	assert.Equal(t, r.Min, lo, "long moves reach the plateau")
}

func TestRampWindow(t *testing.T) {
	r := DefaultConfig().Proportional
	seq := periods(r, 2000)
	assertValley(t, seq)
	assert.Equal(t, r.Start, seq[0])
	assert.Equal(t, r.Min, seq[1000])
	assert.Equal(t, r.Start, seq[len(seq)-1])

	// shorter than the window: never leaves the start period
	for _, p := range periods(r, 100) {
		require.Equal(t, r.Start, p)
	}
}

func TestFeedProfile(t *testing.T) {
	f := DefaultConfig().Load.Feed
	seq := periods(f, 8900)
	assertValley(t, seq)

	lo, hi := minMax(seq)
	assert.Equal(t, f.Fast, lo)
	assert.Equal(t, f.Start, hi)
	for i := 0; i <= f.AccelAfter; i++ {
		assert.Equal(t, f.Start, seq[i], "step %d", i)
	}
	assert.Equal(t, f.Slow, seq[len(seq)-1], "slow approach into the gears")
}

func TestUnloadProfile(t *testing.T) {
	cfg := DefaultConfig().Unload
	u := cfg.Profile.withExtra(cfg.ExtraSteps)
	seq := periods(u, 8900+cfg.ExtraSteps)
	assertValley(t, seq)

	lo, hi := minMax(seq)
	assert.Equal(t, u.Fast, lo)
	assert.Equal(t, u.VerySlow, hi)
	for i := 0; i <= u.AccelAfter; i++ {
		require.Equal(t, u.Start, seq[i], "step %d", i)
	}
	assert.Equal(t, u.VerySlow, seq[len(seq)-1])
}

func TestSlotPosition(t *testing.T) {
	cfg := DefaultConfig()

	idler, selector, ok := cfg.SlotPosition(0)
	require.True(t, ok)
	assert.Equal(t, 0, idler)
	assert.Equal(t, 0, selector)

	idler, selector, ok = cfg.SlotPosition(3)
	require.True(t, ok)
	assert.Equal(t, -3*355, idler)
	assert.Equal(t, 3*697, selector)

	idler, selector, ok = cfg.SlotPosition(cfg.Service())
	require.True(t, ok)
	assert.Equal(t, -4*355-217, idler, "idler parked in service")
	assert.Equal(t, 4*697+700, selector)

	_, _, ok = cfg.SlotPosition(cfg.Park())
	assert.False(t, ok)
	_, _, ok = cfg.SlotPosition(-1)
	assert.False(t, ok)
}

func TestStepsBetween(t *testing.T) {
	cfg := DefaultConfig()
	service := cfg.Service()

	assert.Empty(t, cfg.StepsBetween(2, 2))
	assert.Empty(t, cfg.StepsBetween(2, cfg.Park()))
	assert.Equal(t, []int{697 * 3}, cfg.StepsBetween(1, 4))
	assert.Equal(t, []int{-697 * 2}, cfg.StepsBetween(2, 0))
	assert.Equal(t, []int{697 * 4, 700}, cfg.StepsBetween(0, service))
	assert.Equal(t, []int{700}, cfg.StepsBetween(4, service))
	assert.Equal(t, []int{-700, -697 * 2}, cfg.StepsBetween(service, 2))
	assert.Equal(t, []int{-700}, cfg.StepsBetween(service, 4))
}

func TestEjectChannel(t *testing.T) {
	cfg := DefaultConfig()
	for slot, want := range []Slot{4, 4, 4, 0, 0} {
		assert.Equal(t, want, cfg.ejectChannel(Slot(slot)), "slot %d", slot)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Pulley.Ramp.Start = 100
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Idler.StallLevels = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Selector.HomingMinTravel = cfg.Selector.HomingMaxSteps
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Load.Feed.Fast = cfg.Load.Feed.Start + 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Slots = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Probe.Hits = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Slots = 6
	cfg.Unload.Profile.VerySlow = cfg.Unload.Profile.Slow - 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slots 6 out of range 1..5")
	assert.Contains(t, err.Error(), "very slow")
}
