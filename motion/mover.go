package motion

import (
	"context"

	"mmuctl/core"
)

// MotionRequest is a relative move of up to three axes. A nil Profile
// uses each axis's own ramp.
type MotionRequest struct {
	Idler    int
	Selector int
	Pulley   int
	Profile  *Ramp
}

func (r MotionRequest) delta(axis core.Axis) int {
	switch axis {
	case core.AxisPulley:
		return r.Pulley
	case core.AxisSelector:
		return r.Selector
	}
	return r.Idler
}

func (c *Controller) setDirection(axis core.Axis, dir core.Direction) {
	c.dir[axis] = dir
	if c.cfg.axis(axis).Invert {
		dir = -dir
	}
	c.hw.Driver.SetDirection(axis, dir)
}

func (c *Controller) step(axis core.Axis) {
	c.hw.Driver.Step(axis)
	c.pos[axis] += int(c.dir[axis])
}

func (c *Controller) traceMove(req MotionRequest) {
	if c.trace.Move != nil {
		c.trace.Move(req)
	}
	if req.Selector != 0 {
		core.RecordEvent(core.EvtMove, core.AxisSelector, int32(req.Selector), int32(c.pos[core.AxisSelector]))
	}
	if req.Idler != 0 {
		core.RecordEvent(core.EvtMove, core.AxisIdler, int32(req.Idler), int32(c.pos[core.AxisIdler]))
	}
}

// axisRun is the per-axis state of a Move
type axisRun struct {
	axis    core.Axis
	left    int
	done    int
	period  uint32
	due     uint64
	profile speedProfile
}

// move runs every axis of req on its own ramp. Steps are scheduled by
// due time so the axes interleave at their individual rates.
func (c *Controller) move(req MotionRequest) {
	if req.Idler == 0 && req.Selector == 0 && req.Pulley == 0 {
		return
	}
	var runs [core.NumAxes]axisRun
	n := 0
	now := c.hw.Clock.Micros()
	for a := core.Axis(0); a < core.NumAxes; a++ {
		dir, steps := core.DirectionOf(req.delta(a))
		if steps == 0 {
			continue
		}
		c.setDirection(a, dir)
		var p speedProfile = c.cfg.axis(a).Ramp
		if req.Profile != nil {
			p = *req.Profile
		}
		runs[n] = axisRun{axis: a, left: steps, period: p.start(), due: now, profile: p}
		n++
	}
	for {
		next := -1
		for i := 0; i < n; i++ {
			if runs[i].left > 0 && (next < 0 || runs[i].due < runs[next].due) {
				next = i
			}
		}
		if next < 0 {
			break
		}
		r := &runs[next]
		if now := c.hw.Clock.Micros(); r.due > now {
			c.hw.Clock.SleepMicros(uint32(r.due - now))
		}
		c.step(r.axis)
		r.left--
		r.done++
		r.period = r.profile.next(r.period, r.done, r.left)
		r.due += uint64(r.period)
	}
	c.traceMove(req)
}

// moveProportional steps the selector and interpolates the idler against
// it with a fractional accumulator. With no selector travel the idler
// runs alone at ratio one.
func (c *Controller) moveProportional(idler, selector int) {
	if idler == 0 && selector == 0 {
		return
	}
	idlerDir, idlerSteps := core.DirectionOf(idler)
	selDir, selSteps := core.DirectionOf(selector)
	c.setDirection(core.AxisIdler, idlerDir)
	c.setDirection(core.AxisSelector, selDir)

	ratio := 1.0
	if selSteps != 0 {
		ratio = float64(idlerSteps) / float64(selSteps)
	}
	total := selSteps
	if idlerSteps > total {
		total = idlerSteps
	}

	ramp := c.cfg.Proportional
	period := ramp.Start
	acc := 0.0
	for i := 0; selSteps > 0 || idlerSteps > 0; i++ {
		if selSteps > 0 {
			c.step(core.AxisSelector)
			selSteps--
		}
		acc += ratio
		if acc >= 1 && idlerSteps > 0 {
			c.step(core.AxisIdler)
			idlerSteps--
			acc--
		}
		c.hw.Clock.SleepMicros(period)
		period = ramp.next(period, i+1, total-i-1)
	}
	c.traceMove(MotionRequest{Idler: idler, Selector: selector})
}

// pulley runs the pulley up to steps in dir with profile p. stop is
// called after every step and ends the move early when it returns true.
// It returns the steps taken and whether stop fired.
func (c *Controller) pulley(dir core.Direction, steps int, p speedProfile, stop func(done int) bool) (int, bool) {
	c.setDirection(core.AxisPulley, dir)
	period := p.start()
	for i := 0; i < steps; i++ {
		c.step(core.AxisPulley)
		c.hw.Clock.SleepMicros(period)
		if stop != nil && stop(i+1) {
			return i + 1, true
		}
		period = p.next(period, i+1, steps-i-1)
	}
	return steps, false
}

// pulleyUntil moves the pulley until the sensor reads want for hits
// consecutive samples or the budget runs out.
func (c *Controller) pulleyUntil(dir core.Direction, steps int, p speedProfile, want bool, hits int) (int, bool) {
	n := 0
	return c.pulley(dir, steps, p, func(int) bool {
		if c.hw.Sensor.Present() == want {
			n++
		} else {
			n = 0
		}
		return n >= hits
	})
}

// pulleyFixed moves the pulley a fixed distance at a constant period
func (c *Controller) pulleyFixed(dir core.Direction, m PulleyMove) {
	c.pulley(dir, m.Steps, constant(m.Period), nil)
}

// MoveProportional moves idler and selector together by the given deltas
// and checks the drivers afterwards.
func (c *Controller) MoveProportional(ctx context.Context, idler, selector int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guard(ctx, func() error {
		c.moveProportional(idler, selector)
		return c.checkDrivers()
	})
}

// Move runs req with independent per-axis ramps
func (c *Controller) Move(ctx context.Context, req MotionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guard(ctx, func() error {
		c.move(req)
		return c.checkDrivers()
	})
}
