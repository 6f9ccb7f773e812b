package core

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// TMC2130 talks to one TMC2130 stepper driver over SPI.
//
// Every access is a 40 bit datagram: one address byte followed by a big
// endian 32 bit payload, framed by chip select. The reply to a read
// request arrives in the datagram that follows it, so ReadReg issues the
// request twice.
type TMC2130 struct {
	bus drivers.SPI
	cs  OutputPin

	tx [5]byte
	rx [5]byte

	// lastStatus is the SPI status byte returned with the last datagram
	lastStatus uint8
}

// chopconfVSense selects the high sensitivity sense resistor voltage range
const chopconfVSense = 1 << 17

// maxCurrentScale is the largest IHOLD/IRUN field value
const maxCurrentScale = 31

// NewTMC2130 creates a driver on bus using cs as its active-low chip select.
func NewTMC2130(bus drivers.SPI, cs OutputPin) *TMC2130 {
	return &TMC2130{bus: bus, cs: cs}
}

func (t *TMC2130) datagram(addr uint8, value uint32) (uint32, error) {
	t.tx[0] = addr
	t.tx[1] = byte(value >> 24)
	t.tx[2] = byte(value >> 16)
	t.tx[3] = byte(value >> 8)
	t.tx[4] = byte(value)

	if err := t.cs.Set(true); err != nil {
		return 0, err
	}
	err := t.bus.Tx(t.tx[:], t.rx[:])
	if csErr := t.cs.Set(false); err == nil {
		err = csErr
	}
	if err != nil {
		return 0, err
	}

	t.lastStatus = t.rx[0]
	return uint32(t.rx[1])<<24 | uint32(t.rx[2])<<16 | uint32(t.rx[3])<<8 | uint32(t.rx[4]), nil
}

// WriteReg writes a 32 bit register
func (t *TMC2130) WriteReg(addr uint8, value uint32) error {
	_, err := t.datagram(addr|TMC2130_WRITE_BIT, value)
	return errors.Wrapf(err, "tmc2130 write 0x%02x", addr)
}

// ReadReg reads a 32 bit register
func (t *TMC2130) ReadReg(addr uint8) (uint32, error) {
	addr &^= TMC2130_WRITE_BIT
	if _, err := t.datagram(addr, 0); err != nil {
		return 0, errors.Wrapf(err, "tmc2130 read 0x%02x", addr)
	}
	v, err := t.datagram(addr, 0)
	return v, errors.Wrapf(err, "tmc2130 read 0x%02x", addr)
}

// LastSPIStatus returns the status byte that came back with the last datagram
func (t *TMC2130) LastSPIStatus() uint8 {
	return t.lastStatus
}

// DriverConfig holds the register level settings applied by Configure
type DriverConfig struct {
	Holding    uint8 // standstill current, 0-63
	Running    uint8 // run current, 0-63
	Stealth    bool  // StealthChop instead of SpreadCycle
	StallGuard int8  // SGT, -64..63
}

// currentBits packs IHOLD_IRUN and reports whether VSENSE must be set.
// Values above 31 need the low sensitivity range, where one step is
// roughly twice the current.
func currentBits(holding, running uint8) (uint32, bool) {
	vsense := running <= maxCurrentScale
	if !vsense {
		holding >>= 1
		running >>= 1
	}
	if holding > maxCurrentScale {
		holding = maxCurrentScale
	}
	if running > maxCurrentScale {
		running = maxCurrentScale
	}
	return uint32(holding)<<TMC2130_IHOLD_SHIFT |
		uint32(running)<<TMC2130_IRUN_SHIFT |
		uint32(TMC2130_IHOLDDELAY_DEFAULT)<<TMC2130_IHOLDDELAY_SHIFT, vsense
}

func sgtBits(sgt int8) uint32 {
	if sgt > 63 {
		sgt = 63
	}
	if sgt < -64 {
		sgt = -64
	}
	return (uint32(uint8(sgt)) & 0x7F) << TMC2130_SGT_SHIFT
}

// Configure writes the full register set. All writes are attempted even
// after one fails; the errors are combined.
func (t *TMC2130) Configure(cfg DriverConfig) error {
	ihr, vsense := currentBits(cfg.Holding, cfg.Running)
	chop := uint32(TMC2130_CHOPCONF_DEFAULT)
	if vsense {
		chop |= chopconfVSense
	}

	gconf := uint32(TMC2130_GCONF_DIAG0_STALL | TMC2130_GCONF_DIAG0_PUSHPULL)
	if cfg.Stealth {
		gconf |= TMC2130_GCONF_EN_PWM_MODE
	}

	return multierr.Combine(
		t.WriteReg(TMC2130_CHOPCONF, chop),
		t.WriteReg(TMC2130_IHOLD_IRUN, ihr),
		t.WriteReg(TMC2130_TPOWERDOWN, TMC2130_TPOWERDOWN_DEFAULT),
		t.WriteReg(TMC2130_TCOOLTHRS, TMC2130_TCOOLTHRS_DEFAULT),
		t.WriteReg(TMC2130_COOLCONF, sgtBits(cfg.StallGuard)|TMC2130_SFILT),
		t.WriteReg(TMC2130_PWMCONF, TMC2130_PWMCONF_DEFAULT),
		t.WriteReg(TMC2130_GCONF, gconf),
	)
}

// SetCurrent rewrites IHOLD_IRUN and the matching VSENSE range
func (t *TMC2130) SetCurrent(holding, running uint8) error {
	ihr, vsense := currentBits(holding, running)
	chop := uint32(TMC2130_CHOPCONF_DEFAULT)
	if vsense {
		chop |= chopconfVSense
	}
	return multierr.Combine(
		t.WriteReg(TMC2130_CHOPCONF, chop),
		t.WriteReg(TMC2130_IHOLD_IRUN, ihr),
	)
}

// ReadStatus reads GSTAT (clearing it) and DRV_STATUS
func (t *TMC2130) ReadStatus() (DriverStatus, error) {
	gstat, err := t.ReadReg(TMC2130_GSTAT)
	if err != nil {
		return DriverStatus{}, err
	}
	// GSTAT flags are write-one-to-clear
	if err := t.WriteReg(TMC2130_GSTAT, gstat&0x7); err != nil {
		return DriverStatus{}, err
	}
	drv, err := t.ReadReg(TMC2130_DRV_STATUS)
	if err != nil {
		return DriverStatus{}, err
	}
	return decodeStatus(gstat, drv), nil
}

func decodeStatus(gstat, drv uint32) DriverStatus {
	return DriverStatus{
		Reset:        gstat&TMC2130_GSTAT_RESET != 0,
		DriverError:  gstat&TMC2130_GSTAT_DRV_ERR != 0,
		UnderVoltage: gstat&TMC2130_GSTAT_UV_CP != 0,
		OverTemp:     drv&TMC2130_DRV_STATUS_OT != 0,
		ShortA:       drv&TMC2130_DRV_STATUS_S2GA != 0,
		ShortB:       drv&TMC2130_DRV_STATUS_S2GB != 0,
		// Open load is only meaningful while the motor turns
		OpenA: drv&TMC2130_DRV_STATUS_OLA != 0 && drv&TMC2130_DRV_STATUS_STST == 0,
		OpenB: drv&TMC2130_DRV_STATUS_OLB != 0 && drv&TMC2130_DRV_STATUS_STST == 0,
		Stall: drv&TMC2130_DRV_STATUS_STALLGUARD != 0,
		Load:  uint16(drv & TMC2130_DRV_STATUS_SG_RESULT),
	}
}
