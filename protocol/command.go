package protocol

// Kind identifies a host -> device command
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSetGPIO
	KindClearGPIO
	KindPWMOn
	KindPWMOff
	KindPWMDuty
	KindPWMFrequency
	KindGetTime
	KindGetStatus

	kindCount
)

// KindCount is the number of valid command kinds plus the invalid kind
const KindCount = int(kindCount)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindSetGPIO:      "set_gpio",
	KindClearGPIO:    "clear_gpio",
	KindPWMOn:        "pwm_on",
	KindPWMOff:       "pwm_off",
	KindPWMDuty:      "pwm_duty",
	KindPWMFrequency: "pwm_frequency",
	KindGetTime:      "get_time",
	KindGetStatus:    "get_status",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Tag returns the wire tag of the command kind, 0 for the invalid kind
func (k Kind) Tag() byte {
	switch k {
	case KindSetGPIO:
		return TagSetGPIO
	case KindClearGPIO:
		return TagClearGPIO
	case KindPWMOn:
		return TagPWMOn
	case KindPWMOff:
		return TagPWMOff
	case KindPWMDuty:
		return TagPWMDuty
	case KindPWMFrequency:
		return TagPWMFrequency
	case KindGetTime:
		return TagGetTime
	case KindGetStatus:
		return TagGetStatus
	}
	return 0
}

// Command is a single host -> device request.
// Value carries the duty percent for KindPWMDuty and the frequency in
// hertz for KindPWMFrequency; it is zero for every other kind.
type Command struct {
	Kind  Kind
	Value uint32
}

func SetGPIO() Command   { return Command{Kind: KindSetGPIO} }
func ClearGPIO() Command { return Command{Kind: KindClearGPIO} }
func PWMOn() Command     { return Command{Kind: KindPWMOn} }
func PWMOff() Command    { return Command{Kind: KindPWMOff} }
func GetTime() Command   { return Command{Kind: KindGetTime} }
func GetStatus() Command { return Command{Kind: KindGetStatus} }

// PWMDuty builds a duty-cycle command; percent is sent as-is and
// range-checked by the device
func PWMDuty(percent uint8) Command {
	return Command{Kind: KindPWMDuty, Value: uint32(percent)}
}

// PWMFrequency builds a frequency command in hertz
func PWMFrequency(hz uint32) Command {
	return Command{Kind: KindPWMFrequency, Value: hz}
}

// HasValue reports whether the command carries a numeric argument
func (c Command) HasValue() bool {
	return c.Kind == KindPWMDuty || c.Kind == KindPWMFrequency
}

func (c Command) String() string {
	if !c.HasValue() {
		return c.Kind.String()
	}
	return string(AppendDecimal([]byte(c.Kind.String()+"("), uint64(c.Value))) + ")"
}

// AppendCommand appends the wire encoding of c, delimiter included.
// The invalid kind encodes to nothing.
func AppendCommand(dst []byte, c Command) []byte {
	tag := c.Kind.Tag()
	if tag == 0 {
		return dst
	}
	dst = append(dst, tag)
	if c.HasValue() {
		dst = AppendDecimal(dst, uint64(c.Value))
	}
	return append(dst, Delimiter)
}

// EncodeCommand returns the wire encoding of c
func EncodeCommand(c Command) []byte {
	return AppendCommand(make([]byte, 0, 12), c)
}

// ParseCommand decodes one frame, delimiter included.
// The first byte selects the command; D and F need a decimal argument
// between the tag and the delimiter. Anything else is reported as not
// recognized. It never allocates and never panics.
func ParseCommand(frame []byte) (Command, bool) {
	if len(frame) == 0 {
		return Command{}, false
	}
	switch frame[0] {
	case TagPWMOn:
		return PWMOn(), true
	case TagPWMOff:
		return PWMOff(), true
	case TagSetGPIO:
		return SetGPIO(), true
	case TagClearGPIO:
		return ClearGPIO(), true
	case TagGetTime:
		return GetTime(), true
	case TagGetStatus:
		return GetStatus(), true
	case TagPWMDuty:
		v, ok := parseArgument(frame, 16)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: KindPWMDuty, Value: uint32(v)}, true
	case TagPWMFrequency:
		v, ok := parseArgument(frame, 32)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: KindPWMFrequency, Value: uint32(v)}, true
	}
	return Command{}, false
}

// parseArgument decodes the decimal between the tag and the delimiter
func parseArgument(frame []byte, bits uint) (uint64, bool) {
	if len(frame) < 3 || frame[len(frame)-1] != Delimiter {
		return 0, false
	}
	v, err := DecodeDecimal(frame[1:len(frame)-1], bits)
	if err != nil {
		return 0, false
	}
	return v, true
}
