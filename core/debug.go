package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// MotionEvent captures a motion or fault event for post-mortem analysis
type MotionEvent struct {
	Kind   EventKind // Event kind code
	Axis   Axis      // Axis involved, if any
	Clock  uint32    // Clock (µs) at event
	Value1 int32     // Context-dependent value
	Value2 int32     // Context-dependent value
}

// EventKind identifies a ring entry
type EventKind uint8

// Event kind codes
const (
	EvtMove         EventKind = iota + 1 // Move finished: Value1 = delta, Value2 = end position
	EvtHomed                             // Axis homed: Value1 = threshold, Value2 = travel
	EvtHomingFailed                      // Homing level failed: Value1 = threshold, Value2 = travel
	EvtSensor                            // Filament sensor transition: Value1 = state, Value2 = pulley steps
	EvtPhase                             // Procedure phase change: Value1 = procedure, Value2 = phase
	EvtDriveFault                        // Drive fault: Value1 = retry, Value2 = persisted count
	EvtFatal                             // Fatal state entered
	EvtButton                            // Button click consumed: Value1 = button
	EvtDoorSensor                        // Sentinel byte observed
	EvtCalibration
)

const (
	EventRingSize    = 32 // Keep last 32 events for post-mortem
	debugLineInitCap = 64
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// eventClock stamps ring entries, set by SetEventClock
	eventClock Clock

	eventRing     [EventRingSize]MotionEvent
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, a logger, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetEventClock sets the clock used to timestamp recorded events
func SetEventClock(c Clock) {
	eventClock = c
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugValue writes "msg key=value" without allocating through fmt
func DebugValue(msg, key string, value int) {
	if !debugEnabled || debugPrintln == nil {
		return
	}
	buf := make([]byte, 0, debugLineInitCap)
	buf = append(buf, msg...)
	buf = append(buf, ' ')
	buf = append(buf, key...)
	buf = append(buf, '=')
	buf = appendInt(buf, value)
	debugPrintln(string(buf))
}

// RecordEvent captures an event in the ring buffer.
// Never blocks, safe to call from step loops.
func RecordEvent(kind EventKind, axis Axis, value1, value2 int32) {
	var now uint32
	if eventClock != nil {
		now = uint32(eventClock.Micros())
	}
	idx := eventRingHead
	eventRing[idx] = MotionEvent{
		Kind:   kind,
		Axis:   axis,
		Clock:  now,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []MotionEvent {
	out := make([]MotionEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func eventName(kind EventKind) string {
	switch kind {
	case EvtMove:
		return "MOVE"
	case EvtHomed:
		return "HOMED"
	case EvtHomingFailed:
		return "HOMING_FAILED"
	case EvtSensor:
		return "SENSOR"
	case EvtPhase:
		return "PHASE"
	case EvtDriveFault:
		return "DRIVE_FAULT!"
	case EvtFatal:
		return "FATAL!"
	case EvtButton:
		return "BUTTON"
	case EvtDoorSensor:
		return "DOOR_SENSOR"
	case EvtCalibration:
		return "CALIBRATION"
	}
	return "UNKNOWN"
}

// DumpEvents outputs the event ring (call on fatal errors).
// Goes to the debug writer even when debug output is disabled.
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		buf := make([]byte, 0, debugLineInitCap)
		buf = append(buf, "[EVENTS] "...)
		buf = append(buf, eventName(evt.Kind)...)
		buf = append(buf, " axis="...)
		buf = append(buf, evt.Axis.String()...)
		buf = append(buf, " clock="...)
		buf = appendInt(buf, int(evt.Clock))
		buf = append(buf, " v1="...)
		buf = appendInt(buf, int(evt.Value1))
		buf = append(buf, " v2="...)
		buf = appendInt(buf, int(evt.Value2))
		debugPrintln(string(buf))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = MotionEvent{}
	}
	eventRingHead = 0
}
