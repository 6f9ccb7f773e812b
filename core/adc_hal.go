package core

// ADCChannelID identifies a logical ADC channel.
type ADCChannelID uint8

// ADCValue is the raw ADC reading as seen by the rest of the firmware.
// Convention here: 12-bit value (0-4095), whatever the hardware resolution.
type ADCValue uint16

// ADCMax is the full scale reading
const ADCMax ADCValue = 4095

// ADCDriver is the abstract ADC interface that core code uses.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	// For pin-muxed channels, this should set pin to analog mode.
	ConfigureChannel(ch ADCChannelID) error

	// ReadRaw performs a one-shot sample from the given channel.
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}
