package sim

import (
	"mmuctl/motion"
	"mmuctl/storage"
)

// Rig is a complete simulated feeder: hardware model, controls, an
// in-memory EEPROM and a controller wired to all of them.
type Rig struct {
	Config     motion.Config
	Clock      *Clock
	Feeder     *Feeder
	Buttons    *Buttons
	Indicator  *Indicator
	Sentinel   *Sentinel
	EEPROM     storage.EEPROM
	Store      *storage.Store
	Controller *motion.Controller
}

// GeometryOf derives the slot geometry of cfg
func GeometryOf(cfg motion.Config) Geometry {
	return Geometry{
		Slots:         cfg.Slots,
		SelectorPitch: cfg.SelectorPitch,
		IdlerPitch:    cfg.IdlerPitch,
	}
}

// LimitsOf places the forward limits at the home offsets and the reverse
// limits just inside the homing budgets.
func LimitsOf(cfg motion.Config) (selector, idler Limits) {
	selector = Limits{
		Min: -200,
		Max: cfg.Selector.HomeOffset,
	}
	idler = Limits{
		Min: cfg.Idler.HomeOffset - cfg.Idler.HomingMinTravel - 130,
		Max: cfg.Idler.HomeOffset,
	}
	return selector, idler
}

// NewRig builds a rig on a fresh EEPROM
func NewRig(cfg motion.Config) (*Rig, error) {
	return NewRigWithEEPROM(cfg, storage.NewMemEEPROM(storage.DefaultSize))
}

// NewRigWithEEPROM builds a rig on dev, as after a power cycle
func NewRigWithEEPROM(cfg motion.Config, dev storage.EEPROM) (*Rig, error) {
	store, err := storage.Open(dev)
	if err != nil {
		return nil, err
	}
	clock := &Clock{}
	sel, idl := LimitsOf(cfg)
	r := &Rig{
		Config:    cfg,
		Clock:     clock,
		Feeder:    NewFeeder(GeometryOf(cfg), sel, idl),
		Buttons:   NewButtons(clock),
		Indicator: NewIndicator(clock),
		Sentinel:  &Sentinel{},
		EEPROM:    dev,
		Store:     store,
	}
	r.Controller = motion.NewController(cfg, r.Hardware())
	return r, nil
}

// Hardware returns the rig's parts as controller collaborators
func (r *Rig) Hardware() motion.Hardware {
	return motion.Hardware{
		Driver:    r.Feeder,
		Sensor:    r.Feeder,
		Buttons:   r.Buttons,
		Indicator: r.Indicator,
		Clock:     r.Clock,
		Store:     r.Store,
		Sentinel:  r.Sentinel,
	}
}
