package core

// TMC2130 Register Definitions
// Based on TMC2130 datasheet Rev. 1.15
// Trinamic Motion Control GmbH & Co. KG

// TMC2130 Register Addresses
const (
	// General Configuration Registers (0x00-0x0F)
	TMC2130_GCONF = 0x00 // Global configuration flags
	TMC2130_GSTAT = 0x01 // Global status flags (read clears)
	TMC2130_IOIN  = 0x04 // Reads the state of all input pins

	// Velocity Dependent Driver Feature Control (0x10-0x1F)
	TMC2130_IHOLD_IRUN = 0x10 // Driver current control
	TMC2130_TPOWERDOWN = 0x11 // Delay after standstill
	TMC2130_TSTEP      = 0x12 // Measured time between two steps (read only)
	TMC2130_TPWMTHRS   = 0x13 // Upper velocity for StealthChop
	TMC2130_TCOOLTHRS  = 0x14 // Lower threshold velocity for CoolStep and StallGuard
	TMC2130_THIGH      = 0x15 // High velocity threshold

	// Motor Driver Registers (0x6C-0x7F)
	TMC2130_CHOPCONF   = 0x6C // Chopper configuration
	TMC2130_COOLCONF   = 0x6D // CoolStep and StallGuard2 configuration
	TMC2130_DCCTRL     = 0x6E // dcStep automatic commutation
	TMC2130_DRV_STATUS = 0x6F // Driver status flags and StallGuard result
	TMC2130_PWMCONF    = 0x70 // StealthChop PWM configuration
)

// TMC2130 GCONF Register Bit Definitions
const (
	TMC2130_GCONF_I_SCALE_ANALOG  = 1 << 0  // Use AIN as current reference
	TMC2130_GCONF_INTERNAL_RSENSE = 1 << 1  // Internal sense resistors
	TMC2130_GCONF_EN_PWM_MODE     = 1 << 2  // Enable StealthChop PWM mode
	TMC2130_GCONF_SHAFT           = 1 << 4  // Inverse motor direction
	TMC2130_GCONF_DIAG0_ERROR     = 1 << 5  // DIAG0 active on driver errors
	TMC2130_GCONF_DIAG0_STALL     = 1 << 7  // DIAG0 active on stall
	TMC2130_GCONF_DIAG1_STALL     = 1 << 8  // DIAG1 active on stall
	TMC2130_GCONF_DIAG0_PUSHPULL  = 1 << 12 // DIAG0 push-pull output
)

// TMC2130 GSTAT Register Bit Definitions
const (
	TMC2130_GSTAT_RESET   = 1 << 0 // IC has been reset since last read
	TMC2130_GSTAT_DRV_ERR = 1 << 1 // Driver shut down on overtemperature or short
	TMC2130_GSTAT_UV_CP   = 1 << 2 // Charge pump undervoltage
)

// TMC2130 DRV_STATUS Register Bit Definitions
const (
	TMC2130_DRV_STATUS_SG_RESULT  = 0x3FF      // StallGuard result mask (bits 0-9)
	TMC2130_DRV_STATUS_FSACTIVE   = 1 << 15    // Full step active indicator
	TMC2130_DRV_STATUS_CS_ACTUAL  = 0x1F << 16 // Actual current control scaling
	TMC2130_DRV_STATUS_STALLGUARD = 1 << 24    // StallGuard status
	TMC2130_DRV_STATUS_OT         = 1 << 25    // Overtemperature flag
	TMC2130_DRV_STATUS_OTPW       = 1 << 26    // Overtemperature pre-warning
	TMC2130_DRV_STATUS_S2GA       = 1 << 27    // Short to ground indicator phase A
	TMC2130_DRV_STATUS_S2GB       = 1 << 28    // Short to ground indicator phase B
	TMC2130_DRV_STATUS_OLA        = 1 << 29    // Open load indicator phase A
	TMC2130_DRV_STATUS_OLB        = 1 << 30    // Open load indicator phase B
	TMC2130_DRV_STATUS_STST       = 1 << 31    // Standstill indicator
)

// TMC2130 SPI Access
const (
	TMC2130_WRITE_BIT = 0x80 // Write access bit (set bit 7)
	TMC2130_READ_BIT  = 0x00 // Read access (bit 7 = 0)
)

// Field positions and default values
const (
	TMC2130_IHOLD_SHIFT      = 0
	TMC2130_IRUN_SHIFT       = 8
	TMC2130_IHOLDDELAY_SHIFT = 16
	TMC2130_SGT_SHIFT        = 16 // COOLCONF StallGuard threshold, signed 7 bit
	TMC2130_SFILT            = 1 << 24

	TMC2130_IHOLDDELAY_DEFAULT = 2
	TMC2130_TPOWERDOWN_DEFAULT = 0
	TMC2130_TCOOLTHRS_DEFAULT  = 450

	// TOFF=3, HSTRT=5, HEND=1, TBL=2, 16 microsteps with interpolation
	TMC2130_CHOPCONF_DEFAULT = 0x140101D3

	// PWM_AMPL=200, PWM_GRAD=4, PWM_FREQ=2, autoscale
	TMC2130_PWMCONF_DEFAULT = 0x000504C8
)
