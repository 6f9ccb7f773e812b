package motion

import "errors"

var (
	ErrNotHomed       = errors.New("axes not homed")
	ErrFatal          = errors.New("feeder halted after an unrecoverable fault")
	ErrFilamentLoaded = errors.New("filament loaded in another slot")
	ErrInvalidSlot    = errors.New("invalid slot")
	ErrHomingFailed   = errors.New("no stall detected at any sensitivity level")

	// errDriveFault is returned by moves whose status check found a
	// driver fault; the operation guard turns it into a re-home or Fatal.
	errDriveFault = errors.New("drive fault")
)
