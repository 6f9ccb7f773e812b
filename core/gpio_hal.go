package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives an output pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin level
	ReadPin(pin GPIOPin) bool
}


// OutputPin binds a pin number to a driver so it can be passed around as a
// single value (chip selects, step lines).
type OutputPin struct {
	Driver GPIODriver
	Pin    GPIOPin
	Invert bool
}

// NewOutputPin configures pin as output on d and drives it to its inactive level
func NewOutputPin(d GPIODriver, pin GPIOPin, invert bool) (OutputPin, error) {
	p := OutputPin{Driver: d, Pin: pin, Invert: invert}
	if err := d.ConfigureOutput(pin); err != nil {
		return p, err
	}
	return p, p.Set(false)
}

// Set drives the pin to its active (true) or inactive level
func (p OutputPin) Set(active bool) error {
	return p.Driver.SetPin(p.Pin, active != p.Invert)
}

// InputPin is a configured digital input
type InputPin struct {
	Driver    GPIODriver
	Pin       GPIOPin
	ActiveLow bool
}

// NewInputPin configures pin as input with the pull matching its active level
func NewInputPin(d GPIODriver, pin GPIOPin, activeLow bool) (InputPin, error) {
	var err error
	if activeLow {
		err = d.ConfigureInputPullUp(pin)
	} else {
		err = d.ConfigureInputPullDown(pin)
	}
	return InputPin{Driver: d, Pin: pin, ActiveLow: activeLow}, err
}

// Active reports whether the input is at its active level
func (p InputPin) Active() bool {
	return p.Driver.ReadPin(p.Pin) != p.ActiveLow
}
