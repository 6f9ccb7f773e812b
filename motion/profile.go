package motion

// speedProfile computes the period after a step, given the period used
// for it, the steps done so far and the steps remaining in the budget.
type speedProfile interface {
	next(period uint32, done, remaining int) uint32
	start() uint32
}

// toward moves period by at most step in the direction of target
func toward(period, target, step uint32) uint32 {
	switch {
	case period > target:
		if period-target <= step {
			return target
		}
		return period - step
	case period < target:
		if target-period <= step {
			return target
		}
		return period + step
	}
	return period
}

func (r Ramp) start() uint32 { return r.Start }

func (r Ramp) next(period uint32, done, remaining int) uint32 {
	if r.Window > 0 {
		switch {
		case remaining < r.Window:
			return toward(period, r.Start, r.Step)
		case done < r.Window:
			return toward(period, r.Min, r.Step)
		}
		return period
	}
	if r.Step == 0 {
		return period
	}
	// steps needed to get back to Start from here
	stop := 0
	if period < r.Start {
		stop = int((r.Start - period) / r.Step)
	}
	switch {
	case remaining <= stop:
		return toward(period, r.Start, r.Step)
	case remaining > stop+1:
		return toward(period, r.Min, r.Step)
	}
	return period
}

// constant is a fixed period
type constant uint32

func (c constant) start() uint32 { return uint32(c) }
func (c constant) next(uint32, int, int) uint32 { return uint32(c) }

func (f FeedProfile) start() uint32 { return f.Start }

func (f FeedProfile) next(period uint32, done, remaining int) uint32 {
	switch {
	case remaining < f.DecelZone:
		if period < f.Slow {
			return toward(period, f.Slow, f.Decel)
		}
	case done > f.AccelAfter:
		return toward(period, f.Fast, f.Accel)
	}
	return period
}

func (u UnloadProfile) start() uint32 { return u.Start }

func (u UnloadProfile) next(period uint32, done, remaining int) uint32 {
	switch {
	case remaining < u.LastZone:
		if period < u.VerySlow {
			return toward(period, u.VerySlow, u.BigDecel)
		}
	case remaining < u.DecelZone:
		if period < u.Slow {
			return toward(period, u.Slow, u.Decel)
		}
	case done > u.AccelAfter:
		return toward(period, u.Fast, u.Accel)
	}
	return period
}

// withExtra shifts the deceleration zones by the unload's extra steps
func (u UnloadProfile) withExtra(extra int) UnloadProfile {
	u.DecelZone += extra
	u.LastZone += extra
	return u
}
