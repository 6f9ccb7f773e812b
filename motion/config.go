package motion

import (
	"fmt"

	"go.uber.org/multierr"

	"mmuctl/core"
	"mmuctl/storage"
)

// Ramp is a trapezoidal step period profile. Periods are in microseconds
// between pulses, so speeding up means a shorter period.
type Ramp struct {
	Start uint32 `json:"start_us"` // period at standstill
	Min   uint32 `json:"min_us"`   // plateau period
	Step  uint32 `json:"step_us"`  // period change per step

	// Window fixes the length of the acceleration and deceleration
	// segments in steps. Zero derives the deceleration point from the
	// current period so the move always ends at Start.
	Window int `json:"window,omitempty"`
}

// StallLevel is one pair of StallGuard thresholds tried during homing:
// Backoff while retracting from the limit, Seek while searching it.
type StallLevel struct {
	Backoff uint16 `json:"backoff"`
	Seek    uint16 `json:"seek"`
}

// AxisConfig describes one axis: polarity, plain move ramp and homing.
type AxisConfig struct {
	Invert bool `json:"invert"`
	Ramp   Ramp `json:"ramp"`

	HomingPeriod      uint32       `json:"homing_period_us"`
	HomeOffset        int          `json:"home_offset"`         // position of the forward limit
	HomingMaxSteps    int          `json:"homing_max_steps"`    // step budget per homing pass
	HomingMinTravel   int          `json:"homing_min_travel"`   // shorter travel means an early stall
	HomingIgnoreSteps int          `json:"homing_ignore_steps"` // stall samples ignored at pass start
	StallConfirm      int          `json:"stall_confirm"`       // consecutive samples above this confirm a stall
	StallLevels       []StallLevel `json:"stall_levels"`
}

// PulleyMove is a constant speed pulley segment
type PulleyMove struct {
	Steps  int    `json:"steps"`
	Period uint32 `json:"period_us"`
}

// FeedProfile shapes the bowden feed of a load: Start, then Accel per
// step down to Fast once AccelAfter steps are done, then Decel per step
// up to Slow inside the last DecelZone steps.
type FeedProfile struct {
	Start      uint32 `json:"start_us"`
	Fast       uint32 `json:"fast_us"`
	Slow       uint32 `json:"slow_us"`
	Accel      uint32 `json:"accel_us"`
	Decel      uint32 `json:"decel_us"`
	AccelAfter int    `json:"accel_after"`
	DecelZone  int    `json:"decel_zone"`
}

// UnloadProfile is the retract profile of an unload. The zones are
// measured from the end of the bowden tube; the unload extra steps are
// added to both at run time.
type UnloadProfile struct {
	Start      uint32 `json:"start_us"`
	Fast       uint32 `json:"fast_us"`
	Slow       uint32 `json:"slow_us"`
	VerySlow   uint32 `json:"very_slow_us"`
	Accel      uint32 `json:"accel_us"`
	Decel      uint32 `json:"decel_us"`
	BigDecel   uint32 `json:"big_decel_us"`
	AccelAfter int    `json:"accel_after"`
	DecelZone  int    `json:"decel_zone"`
	LastZone   int    `json:"last_zone"`
}

// LoadConfig tunes Load
type LoadConfig struct {
	Seek             PulleyMove  `json:"seek"`
	Corrections      int         `json:"corrections"`
	CorrectionPull   PulleyMove  `json:"correction_pull"`
	CorrectionPush   PulleyMove  `json:"correction_push"`
	CorrectionHits   int         `json:"correction_hits"`
	Feed             FeedProfile `json:"feed"`
	DoorSensorExtra  int         `json:"door_sensor_extra"`
	DoorSensorPeriod uint32      `json:"door_sensor_period_us"`
}

// UnloadConfig tunes Unload
type UnloadConfig struct {
	ExtraSteps     int           `json:"extra_steps"`
	Profile        UnloadProfile `json:"profile"`
	ClearHits      int           `json:"clear_hits"`
	Overshoot      PulleyMove    `json:"overshoot"`
	Corrections    int           `json:"corrections"`
	CorrectionPush PulleyMove    `json:"correction_push"`
	CorrectionPull PulleyMove    `json:"correction_pull"`
	CorrectionWait uint32        `json:"correction_wait_ms"`
	Retract        PulleyMove    `json:"retract"`
}

// ProbeConfig tunes ProbeAlignment
type ProbeConfig struct {
	Steps   int    `json:"steps"`
	Period  uint32 `json:"period_us"`
	Hits    int    `json:"hits"`
	Retract int    `json:"retract"`
}

// PrinterLoadConfig tunes LoadIntoPrinter
type PrinterLoadConfig struct {
	PulleyMove
	ReduceAfter    int      `json:"reduce_after"`
	ReducedCurrent [2]uint8 `json:"reduced_current"`
}

// FeedToFindaConfig tunes FeedToFinda
type FeedToFindaConfig struct {
	PulleyMove
	Current    [2]uint8 `json:"current"`
	Retract    int      `json:"retract"`
	AbortAfter int      `json:"abort_after"` // clicks before this many steps are ignored
}

// Config holds the geometry and every tuned constant of the feeder
type Config struct {
	Slots          int `json:"slots"`
	SelectorPitch  int `json:"selector_pitch"`
	IdlerPitch     int `json:"idler_pitch"`
	IdlerParkSteps int `json:"idler_park_steps"`
	ServiceExtra   int `json:"service_extra"`

	Pulley   AxisConfig `json:"pulley"`
	Selector AxisConfig `json:"selector"`
	Idler    AxisConfig `json:"idler"`

	Proportional Ramp              `json:"proportional"`
	Load         LoadConfig        `json:"load"`
	Unload       UnloadConfig      `json:"unload"`
	Probe        ProbeConfig       `json:"probe"`
	Nudge        PulleyMove        `json:"nudge"`
	Eject        PulleyMove        `json:"eject"`
	PrinterLoad  PrinterLoadConfig `json:"printer_load"`
	FeedToFinda  FeedToFindaConfig `json:"feed_to_finda"`
	InitPulley   PulleyMove        `json:"init_pulley"`

	MaxFaultRetries int    `json:"max_fault_retries"`
	BlinkMillis     uint32 `json:"blink_ms"`
	FaultBlinks     int    `json:"fault_blinks"`
	FaultBlinkMs    uint32 `json:"fault_blink_ms"`
}

// DefaultConfig returns the values tuned on the MMU2 hardware
func DefaultConfig() Config {
	return Config{
		Slots:          5,
		SelectorPitch:  697,
		IdlerPitch:     355,
		IdlerParkSteps: 217,
		ServiceExtra:   700,

		Pulley: AxisConfig{
			Ramp: Ramp{Start: 1200, Min: 700, Step: 10},
		},
		Selector: AxisConfig{
			Ramp:            Ramp{Start: 1300, Min: 800, Step: 10},
			HomingPeriod:    1000,
			HomeOffset:      3700,
			HomingMaxSteps:  4800,
			HomingMinTravel: 3800,
			StallConfirm:    20,
			StallLevels:     []StallLevel{{Backoff: 6, Seek: 6}},
		},
		Idler: AxisConfig{
			Ramp:              Ramp{Start: 1500, Min: 1000, Step: 10},
			HomingPeriod:      1000,
			HomeOffset:        130,
			HomingMaxSteps:    2700,
			HomingMinTravel:   1700,
			HomingIgnoreSteps: 200,
			StallConfirm:      16,
			StallLevels: []StallLevel{
				{Backoff: 8, Seek: 7},
				{Backoff: 9, Seek: 8},
				{Backoff: 10, Seek: 9},
				{Backoff: 11, Seek: 10},
			},
		},

		Proportional: Ramp{Start: 2500, Min: 900, Step: 10, Window: 250},

		Load: LoadConfig{
			Seek:           PulleyMove{Steps: 1500, Period: 5500},
			Corrections:    6,
			CorrectionPull: PulleyMove{Steps: 200, Period: 1500},
			CorrectionPush: PulleyMove{Steps: 500, Period: 4000},
			CorrectionHits: 100,
			Feed: FeedProfile{
				Start: 4500, Fast: 650, Slow: 3000,
				Accel: 5, Decel: 4,
				AccelAfter: 10, DecelZone: 2000,
			},
			DoorSensorExtra:  600,
			DoorSensorPeriod: 3000,
		},
		Unload: UnloadConfig{
			ExtraSteps: 1500,
			Profile: UnloadProfile{
				Start: 2000, Fast: 550, Slow: 2500, VerySlow: 6000,
				Accel: 3, Decel: 2, BigDecel: 5,
				AccelAfter: 1500, DecelZone: 1500, LastZone: 1100,
			},
			ClearHits:      100,
			Overshoot:      PulleyMove{Steps: 100, Period: 5000},
			Corrections:    6,
			CorrectionPush: PulleyMove{Steps: 150, Period: 4000},
			CorrectionPull: PulleyMove{Steps: 4000, Period: 3000},
			CorrectionWait: 100,
			Retract:        PulleyMove{Steps: 450, Period: 5000},
		},
		Probe: ProbeConfig{Steps: 3000, Period: 3000, Hits: 50, Retract: 600},
		Nudge: PulleyMove{Steps: 200, Period: 5500},
		Eject: PulleyMove{Steps: 2500, Period: 1500},
		PrinterLoad: PrinterLoadConfig{
			PulleyMove:     PulleyMove{Steps: 770, Period: 2600},
			ReduceAfter:    150,
			ReducedCurrent: [2]uint8{1, 22},
		},
		FeedToFinda: FeedToFindaConfig{
			PulleyMove: PulleyMove{Steps: 20000, Period: 4000},
			Current:    [2]uint8{1, 15},
			Retract:    600,
			AbortAfter: 1000,
		},
		InitPulley: PulleyMove{Steps: 50, Period: 2000},

		MaxFaultRetries: 2,
		BlinkMillis:     100,
		FaultBlinks:     3,
		FaultBlinkMs:    300,
	}
}

// Service is the virtual slot past the last channel used for maintenance
func (cfg Config) Service() Slot {
	return Slot(cfg.Slots)
}

// Park is the virtual slot that only disengages the idler
func (cfg Config) Park() Slot {
	return Slot(cfg.Slots + 1)
}

// SlotPosition returns the engaged idler position and the selector
// position of slot. Service reports the parked idler of the last channel.
// Park has no fixed position.
func (cfg Config) SlotPosition(s Slot) (idler, selector int, ok bool) {
	switch {
	case s >= 0 && int(s) < cfg.Slots:
		return -cfg.IdlerPitch * int(s), cfg.SelectorPitch * int(s), true
	case s == cfg.Service():
		last := cfg.Slots - 1
		return -cfg.IdlerPitch*last - cfg.IdlerParkSteps, cfg.SelectorPitch*last + cfg.ServiceExtra, true
	}
	return 0, 0, false
}

// StepsBetween returns the selector moves Select(b) issues when slot a is
// active, in order. Leaving Service first retracts ServiceExtra; entering
// it ends with the ServiceExtra travel past the last channel.
func (cfg Config) StepsBetween(a, b Slot) []int {
	var moves []int
	service := cfg.Service()
	last := Slot(cfg.Slots - 1)
	if a == b || b == cfg.Park() {
		return moves
	}
	if a == service {
		moves = append(moves, -cfg.ServiceExtra)
		a = last
	}
	target := b
	if b == service {
		target = last
	}
	if d := cfg.SelectorPitch * int(target-a); d != 0 {
		moves = append(moves, d)
	}
	if b == service {
		moves = append(moves, cfg.ServiceExtra)
	}
	return moves
}

func (cfg *Config) axis(a core.Axis) *AxisConfig {
	switch a {
	case core.AxisPulley:
		return &cfg.Pulley
	case core.AxisSelector:
		return &cfg.Selector
	}
	return &cfg.Idler
}

func validRamp(name string, r Ramp) error {
	if r.Min == 0 || r.Start < r.Min {
		return fmt.Errorf("%s ramp: start %d must not be below min %d", name, r.Start, r.Min)
	}
	if r.Start > r.Min && r.Step == 0 {
		return fmt.Errorf("%s ramp: zero step", name)
	}
	return nil
}

// Validate checks geometry, ramps and budgets for values that would make
// a procedure misbehave. Every problem found is reported.
func (cfg Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Slots >= 1 && cfg.Slots <= storage.Slots, "slots %d out of range 1..%d", cfg.Slots, storage.Slots)
	check(cfg.SelectorPitch > 0 && cfg.IdlerPitch > 0 && cfg.IdlerParkSteps > 0,
		"pitches and idler park steps must be positive")
	for a := core.Axis(0); a < core.NumAxes; a++ {
		err = multierr.Append(err, validRamp(a.String(), cfg.axis(a).Ramp))
	}
	err = multierr.Append(err, validRamp("proportional", cfg.Proportional))
	for _, axis := range []core.Axis{core.AxisSelector, core.AxisIdler} {
		a := cfg.axis(axis)
		check(len(a.StallLevels) > 0, "%s: no stall levels", axis)
		check(a.HomingPeriod > 0, "%s: zero homing period", axis)
		check(a.HomingMinTravel < a.HomingMaxSteps, "%s: homing min travel %d must be below the budget %d",
			axis, a.HomingMinTravel, a.HomingMaxSteps)
	}
	f := cfg.Load.Feed
	check(f.Fast > 0 && f.Fast <= f.Start && f.Slow >= f.Fast,
		"load feed profile must satisfy fast <= start and fast <= slow")
	u := cfg.Unload.Profile
	check(u.Fast > 0 && u.Fast <= u.Start && u.Slow >= u.Fast && u.VerySlow >= u.Slow,
		"unload profile must satisfy fast <= start and fast <= slow <= very slow")
	check(cfg.Load.CorrectionHits > 0 && cfg.Unload.ClearHits > 0 && cfg.Probe.Hits > 0,
		"sensor hit counts must be positive")
	check(cfg.MaxFaultRetries >= 0, "negative fault retries")
	return err
}
