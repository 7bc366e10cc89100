package protocol

import (
	"errors"
	"strings"
)

var ErrInvalidStatus = errors.New("invalid status payload")

// ResponseKind classifies a device reply
type ResponseKind uint8

const (
	ResponseSuccess ResponseKind = iota
	ResponseError
	ResponseTime
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseSuccess:
		return "success"
	case ResponseError:
		return "error"
	case ResponseTime:
		return "time"
	}
	return "unknown"
}

// Response is a decoded device reply
type Response struct {
	Kind ResponseKind
	// Time is the device millisecond counter for ResponseTime
	Time uint32
	// Payload holds the bytes after the tag of a success line
	Payload string
}

func (r Response) String() string {
	if r.Kind == ResponseTime {
		return string(AppendDecimal([]byte("time("), uint64(r.Time))) + ")"
	}
	return r.Kind.String()
}

// OK reports whether the device accepted the command
func (r Response) OK() bool {
	return r.Kind != ResponseError
}

// ParseResponse classifies one line received from the device.
// A trailing "\n" or "\r\n" is ignored. An empty line, an 'X' line and a
// 'T' line without a valid 32-bit decimal are errors; a 'T' line with one
// is a time reading; anything else is success.
func ParseResponse(line []byte) Response {
	line = trimDelimiter(line)
	if len(line) == 0 {
		return Response{Kind: ResponseError}
	}
	switch line[0] {
	case TagError:
		return Response{Kind: ResponseError}
	case TagTime:
		v, err := DecodeDecimal(line[1:], 32)
		if err != nil {
			return Response{Kind: ResponseError}
		}
		return Response{Kind: ResponseTime, Time: uint32(v)}
	}
	return Response{Kind: ResponseSuccess, Payload: string(line[1:])}
}

func trimDelimiter(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == Delimiter {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

// AppendSuccess appends the generic success reply
func AppendSuccess(dst []byte) []byte {
	return append(dst, TagSuccess, Delimiter)
}

// AppendError appends the error reply
func AppendError(dst []byte) []byte {
	return append(dst, TagError, Delimiter)
}

// AppendTime appends a time reply carrying the millisecond counter
func AppendTime(dst []byte, millis uint32) []byte {
	dst = append(dst, TagTime)
	dst = AppendDecimal(dst, uint64(millis))
	return append(dst, Delimiter)
}

// Status is the device state reported in reply to GetStatus
type Status struct {
	LEDEnabled   bool
	PWMEnabled   bool
	PWMDutyCycle uint8
	PWMPeriod    uint32
}

// AppendStatus appends a status reply: S{led},{pwm},{duty},{period}
func AppendStatus(dst []byte, s Status) []byte {
	dst = append(dst, TagSuccess)
	dst = appendBool(dst, s.LEDEnabled)
	dst = append(dst, ',')
	dst = appendBool(dst, s.PWMEnabled)
	dst = append(dst, ',')
	dst = AppendDecimal(dst, uint64(s.PWMDutyCycle))
	dst = append(dst, ',')
	dst = AppendDecimal(dst, uint64(s.PWMPeriod))
	return append(dst, Delimiter)
}

func appendBool(dst []byte, b bool) []byte {
	if b {
		return append(dst, '1')
	}
	return append(dst, '0')
}

// ParseStatus decodes the payload of a success reply to GetStatus
func ParseStatus(r Response) (Status, error) {
	if r.Kind != ResponseSuccess {
		return Status{}, ErrInvalidStatus
	}
	fields := strings.Split(r.Payload, ",")
	if len(fields) != 4 {
		return Status{}, ErrInvalidStatus
	}

	led, err := DecodeDecimal([]byte(fields[0]), 1)
	if err != nil {
		return Status{}, ErrInvalidStatus
	}
	pwm, err := DecodeDecimal([]byte(fields[1]), 1)
	if err != nil {
		return Status{}, ErrInvalidStatus
	}
	duty, err := DecodeDecimal([]byte(fields[2]), 8)
	if err != nil || duty > 100 {
		return Status{}, ErrInvalidStatus
	}
	period, err := DecodeDecimal([]byte(fields[3]), 32)
	if err != nil {
		return Status{}, ErrInvalidStatus
	}
	return Status{
		LEDEnabled:   led == 1,
		PWMEnabled:   pwm == 1,
		PWMDutyCycle: uint8(duty),
		PWMPeriod:    uint32(period),
	}, nil
}
