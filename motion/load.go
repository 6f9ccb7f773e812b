package motion

import (
	"context"

	"mmuctl/core"
)

// LoadPhase is a step of the load procedure
type LoadPhase uint8

const (
	LoadSeeking LoadPhase = iota
	LoadCorrecting
	LoadAwaitingUser
	LoadReseeking
	LoadFeeding
	LoadDone
)

func (p LoadPhase) String() string {
	switch p {
	case LoadSeeking:
		return "seeking"
	case LoadCorrecting:
		return "correcting"
	case LoadAwaitingUser:
		return "awaiting-user"
	case LoadReseeking:
		return "reseeking"
	case LoadFeeding:
		return "feeding"
	case LoadDone:
		return "done"
	}
	return "load-phase"
}

const (
	procLoad   = 1
	procUnload = 2
)

// loadState lives for one Load call
type loadState struct {
	phase    LoadPhase
	hits     int // consecutive sensor samples showing filament
	attempts int // correction attempts used
}

// Load pushes filament of the active slot to the sensor and on through
// the bowden tube. The pulley position is zero at the sensor trigger, so
// a completed load ends at the slot's bowden length unless the door
// sensor byte stopped the feed.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal {
		return ErrFatal
	}
	if !c.homed {
		return ErrNotHomed
	}
	if int(c.slot) >= c.cfg.Slots {
		return ErrInvalidSlot
	}
	if c.loaded {
		return nil
	}
	slot := c.slot
	return c.guard(ctx, c.expectStall(func() error {
		c.alignSlot(slot)
		return c.load(ctx)
	}))
}

func (c *Controller) load(ctx context.Context) error {
	if err := c.hw.Store.SetLastFilament(int(c.slot)); err != nil {
		core.DebugPrintln("[MOTION] last filament not recorded: " + err.Error())
	}
	st := loadState{phase: LoadSeeking}
	for st.phase != LoadDone {
		c.phase("load", st.phase.String())
		core.RecordEvent(core.EvtPhase, core.AxisPulley, procLoad, int32(st.phase))
		if err := c.loadStep(ctx, &st); err != nil {
			return err
		}
	}
	c.loaded = true
	c.hw.Indicator.Signal(core.PatternActiveSlot, int(c.slot))
	return c.checkDrivers()
}

// loadStep runs the action of the current phase and picks the next one
func (c *Controller) loadStep(ctx context.Context, st *loadState) error {
	lc := c.cfg.Load
	switch st.phase {
	case LoadSeeking, LoadReseeking:
		c.engageIdler()
		steps, found := c.pulleyUntil(core.Forward, lc.Seek.Steps, constant(lc.Seek.Period), true, 1)
		switch {
		case found:
			c.sensorTriggered(steps)
			st.phase = LoadFeeding
		case st.phase == LoadSeeking:
			st.phase = LoadCorrecting
		default:
			st.phase = LoadAwaitingUser
		}

	case LoadCorrecting:
		if st.attempts >= lc.Corrections {
			st.phase = LoadAwaitingUser
			return nil
		}
		st.attempts++
		c.pulleyFixed(core.Reverse, lc.CorrectionPull)
		st.hits = 0
		_, ok := c.pulley(core.Forward, lc.CorrectionPush.Steps, constant(lc.CorrectionPush.Period), func(done int) bool {
			if !c.hw.Sensor.Present() {
				st.hits = 0
				return false
			}
			st.hits++
			if st.hits == 1 {
				c.sensorTriggered(done)
			}
			return st.hits >= lc.CorrectionHits
		})
		if ok {
			st.phase = LoadFeeding
		}

	case LoadAwaitingUser:
		if err := c.recoverLoop(ctx, "load", core.Forward); err != nil {
			return err
		}
		st.phase = LoadReseeking

	case LoadFeeding:
		c.feedBowden()
		st.phase = LoadDone
	}
	return nil
}

// sensorTriggered makes the sensor trigger point the pulley reference
func (c *Controller) sensorTriggered(steps int) {
	c.pos[core.AxisPulley] = 0
	core.RecordEvent(core.EvtSensor, core.AxisPulley, 1, int32(steps))
}

// feedBowden feeds the rest of the bowden tube. The door sensor byte
// ends the feed early; once it has been seen, loads continue slowly past
// the tube end until the printer reports the filament.
func (c *Controller) feedBowden() {
	lc := c.cfg.Load
	length := c.hw.Store.BowdenLength(int(c.slot)) - c.pos[core.AxisPulley]
	if _, stopped := c.pulley(core.Forward, length, lc.Feed, c.sentinelStop); !stopped && c.doorSensor {
		c.pulley(core.Forward, lc.DoorSensorExtra, constant(lc.DoorSensorPeriod), c.sentinelStop)
	}
}

func (c *Controller) sentinelStop(int) bool {
	if c.hw.Sentinel == nil || !c.hw.Sentinel.Poll() {
		return false
	}
	if !c.doorSensor {
		core.DebugPrintln("[MOTION] door sensor detected")
	}
	c.doorSensor = true
	core.RecordEvent(core.EvtDoorSensor, core.AxisPulley, int32(c.pos[core.AxisPulley]), 0)
	return true
}
