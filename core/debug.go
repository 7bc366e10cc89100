package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event records one interrupt or command event for post-mortem analysis
type Event struct {
	Type  uint8  // Event type code
	Kind  uint8  // Command kind, when relevant
	Clock uint32 // Millisecond counter at event
	Value uint32 // Context-dependent value
}

// Event type codes
const (
	EvtRxMatch      = 1 // delimiter seen, buffer swapped
	EvtRxFull       = 2 // receive buffer filled without delimiter
	EvtRxDropped    = 3 // no buffer to swap in, frame dropped
	EvtRxOverflow   = 4 // line longer than the accumulator
	EvtTxDone       = 5 // reply transmitted
	EvtCommand      = 6 // command executed
	EvtCommandError = 7 // command rejected
	EvtParseError   = 8 // line did not parse
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring buffer, written inside critical sections
	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, semihosting, etc.
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

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from an ISR.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the ring buffer. It must be called
// inside a critical section or from an ISR.
func RecordEvent(eventType, kind uint8, clock, value uint32) {
	recordEvent(Event{Type: eventType, Kind: kind, Clock: clock, Value: value})
}

func recordEvent(e Event) {
	eventRing[eventRingHead] = e
	eventRingHead = (eventRingHead + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []Event {
	var out []Event
	Free(func(cs *CriticalSection) {
		start := eventRingHead
		for i := uint8(0); i < EventRingSize; i++ {
			e := eventRing[(start+i)%EventRingSize]
			if e.Type != 0 {
				out = append(out, e)
			}
		}
	})
	return out
}

// DumpEvents outputs the event ring (call on shutdown/error, never from
// an ISR)
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, e := range Events() {
		debugPrintln("[EVENTS] " + eventName(e.Type) +
			" kind=" + utoa(uint32(e.Kind)) +
			" clock=" + utoa(e.Clock) +
			" value=" + utoa(e.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

func eventName(t uint8) string {
	switch t {
	case EvtRxMatch:
		return "RX_MATCH"
	case EvtRxFull:
		return "RX_FULL"
	case EvtRxDropped:
		return "RX_DROPPED!"
	case EvtRxOverflow:
		return "RX_OVERFLOW!"
	case EvtTxDone:
		return "TX_DONE"
	case EvtCommand:
		return "COMMAND"
	case EvtCommandError:
		return "COMMAND_ERR"
	case EvtParseError:
		return "PARSE_ERR"
	}
	return "UNKNOWN"
}

// ClearEvents clears the event ring
func ClearEvents() {
	Free(func(cs *CriticalSection) {
		eventRing = [EventRingSize]Event{}
		eventRingHead = 0
	})
}
