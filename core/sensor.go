package core

// FilamentSensor is the binary filament presence sensor (FINDA)
type FilamentSensor interface {
	Present() bool
}

// GPIOSensor reads filament presence from a digital input
type GPIOSensor struct {
	pin InputPin
}

// NewGPIOSensor configures pin as the sensor input
func NewGPIOSensor(d GPIODriver, pin GPIOPin, activeLow bool) (*GPIOSensor, error) {
	in, err := NewInputPin(d, pin, activeLow)
	if err != nil {
		return nil, err
	}
	return &GPIOSensor{pin: in}, nil
}

// Present reports whether filament is in the sensor
func (s *GPIOSensor) Present() bool {
	return s.pin.Active()
}
