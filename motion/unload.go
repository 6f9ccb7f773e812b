package motion

import (
	"context"

	"mmuctl/core"
)

// UnloadPhase is a step of the unload procedure
type UnloadPhase uint8

const (
	UnloadRetracting UnloadPhase = iota
	UnloadCorrecting
	UnloadAwaitingUser
	UnloadFinishing
	UnloadDone
)

func (p UnloadPhase) String() string {
	switch p {
	case UnloadRetracting:
		return "retracting"
	case UnloadCorrecting:
		return "correcting"
	case UnloadAwaitingUser:
		return "awaiting-user"
	case UnloadFinishing:
		return "finishing"
	case UnloadDone:
		return "done"
	}
	return "unload-phase"
}

type unloadState struct {
	phase    UnloadPhase
	hits     int
	attempts int
}

// Unload pulls the filament of the active slot out of the bowden tube
// and past the sensor. Positions are only used relative to the current
// ones, so Unload also runs before homing to clear filament found at
// power up.
func (c *Controller) Unload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	slot := c.slot
	return c.guard(ctx, c.expectStall(func() error {
		if c.homed {
			c.alignSlot(slot)
		}
		return c.unload(ctx)
	}))
}

func (c *Controller) unload(ctx context.Context) error {
	c.engageIdler()
	st := unloadState{phase: UnloadRetracting}
	for st.phase != UnloadDone {
		c.phase("unload", st.phase.String())
		core.RecordEvent(core.EvtPhase, core.AxisPulley, procUnload, int32(st.phase))
		if err := c.unloadStep(ctx, &st); err != nil {
			return err
		}
	}
	c.loaded = false
	c.parkIdler()
	return c.checkDrivers()
}

func (c *Controller) unloadStep(ctx context.Context, st *unloadState) error {
	uc := c.cfg.Unload
	switch st.phase {
	case UnloadRetracting:
		budget := c.hw.Store.BowdenLength(int(c.slot)) + uc.ExtraSteps
		profile := uc.Profile.withExtra(uc.ExtraSteps)
		c.pulleyUntil(core.Reverse, budget, profile, false, uc.ClearHits)
		c.pulleyFixed(core.Reverse, uc.Overshoot)
		if c.hw.Sensor.Present() {
			st.phase = UnloadCorrecting
		} else {
			st.phase = UnloadFinishing
		}

	case UnloadCorrecting:
		if st.attempts >= uc.Corrections {
			st.phase = UnloadAwaitingUser
			return nil
		}
		st.attempts++
		c.pulleyFixed(core.Forward, uc.CorrectionPush)
		st.hits = 0
		c.pulley(core.Reverse, uc.CorrectionPull.Steps, constant(uc.CorrectionPull.Period), func(int) bool {
			if c.hw.Sensor.Present() {
				st.hits = 0
				return false
			}
			st.hits++
			return st.hits >= uc.ClearHits
		})
		c.sleepMillis(uc.CorrectionWait)
		if !c.hw.Sensor.Present() {
			st.phase = UnloadFinishing
		}

	case UnloadAwaitingUser:
		// a passing probe leaves the filament retracted past the sensor
		if err := c.recoverLoop(ctx, "unload", core.Reverse); err != nil {
			return err
		}
		st.phase = UnloadDone

	case UnloadFinishing:
		c.pulleyFixed(core.Reverse, uc.Retract)
		st.phase = UnloadDone
	}
	return nil
}
