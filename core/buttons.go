package core

// Button is one of the three front panel buttons
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonNone:
		return "none"
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	}
	return "button" + itoa(int(b))
}

// ButtonReader reports the button currently held down
type ButtonReader interface {
	Pressed() Button
}

// ButtonInput reports discrete click events (press followed by release).
// It never blocks; ButtonNone means nothing was clicked since the last call.
type ButtonInput interface {
	Clicked() Button
}

// ClickDetector turns a level reader into click events
type ClickDetector struct {
	reader ButtonReader
	held   Button
}

// NewClickDetector wraps r
func NewClickDetector(r ButtonReader) *ClickDetector {
	return &ClickDetector{reader: r}
}

// Clicked returns a button once it has been pressed and released
func (d *ClickDetector) Clicked() Button {
	now := d.reader.Pressed()
	if now != ButtonNone {
		d.held = now
		return ButtonNone
	}
	clicked := d.held
	d.held = ButtonNone
	return clicked
}

// Pressed passes the level reading through
func (d *ClickDetector) Pressed() Button {
	return d.reader.Pressed()
}

// Resistor ladder windows in 12-bit ADC counts. The three buttons pull a
// single analog input to different levels; everything above the left
// window reads as released.
const (
	ladderRightMax  ADCValue = 200
	ladderMiddleMin ADCValue = 320
	ladderMiddleMax ADCValue = 400
	ladderLeftMin   ADCValue = 640
	ladderLeftMax   ADCValue = 720
)

// AnalogButtons decodes a resistor ladder on one ADC channel
type AnalogButtons struct {
	adc     ADCDriver
	channel ADCChannelID
}

// NewAnalogButtons configures ch on adc for button sampling
func NewAnalogButtons(adc ADCDriver, ch ADCChannelID) (*AnalogButtons, error) {
	if err := adc.ConfigureChannel(ch); err != nil {
		return nil, err
	}
	return &AnalogButtons{adc: adc, channel: ch}, nil
}

// Pressed samples the ladder. A failed conversion reads as released.
func (b *AnalogButtons) Pressed() Button {
	raw, err := b.adc.ReadRaw(b.channel)
	if err != nil {
		return ButtonNone
	}
	return decodeLadder(raw)
}

func decodeLadder(raw ADCValue) Button {
	switch {
	case raw < ladderRightMax:
		return ButtonRight
	case raw > ladderMiddleMin && raw < ladderMiddleMax:
		return ButtonMiddle
	case raw > ladderLeftMin && raw < ladderLeftMax:
		return ButtonLeft
	}
	return ButtonNone
}
