package serial

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrTimeout is returned by Read when no byte arrived within the
// configured read timeout. The port stays usable.
var ErrTimeout = errors.New("serial read timeout")

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - TCP (for the firmware simulator)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards any unread input and unsent output
	Flush() error
}

// Parity selects the parity bit mode
type Parity string

const (
	ParityNone  Parity = "none"
	ParityOdd   Parity = "odd"
	ParityEven  Parity = "even"
	ParityMark  Parity = "mark"
	ParitySpace Parity = "space"
)

// ParseParity accepts a parity name or its one-letter form (N, O, E, M, S)
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return "", fmt.Errorf("unknown parity %q", s)
}

// StandardBaudRates lists the baud rates offered for selection
var StandardBaudRates = []int{
	110, 300, 600, 1200, 2400, 4800, 9600, 14400, 19200,
	38400, 57600, 115200, 128000, 256000,
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3") or "tcp://host:port"
	// for the firmware simulator
	Device string

	// Baud rate
	Baud int

	// DataBits per character (5 to 8)
	DataBits int

	Parity Parity

	// StopBits is 1 or 2
	StopBits int

	// ReadTimeout bounds a single Read (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultConfig returns 115200 8N1 with a one second read timeout
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		ReadTimeout: time.Second,
	}
}

// Validate checks the line settings
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("serial device not set")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("invalid data bits %d", c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("invalid stop bits %d", c.StopBits)
	}
	if _, err := ParseParity(string(c.Parity)); err != nil {
		return err
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %v", c.ReadTimeout)
	}
	return nil
}

// IsNetwork reports whether the device names a TCP endpoint
func (c *Config) IsNetwork() bool {
	return strings.HasPrefix(c.Device, tcpScheme)
}

// Open opens the port named by cfg.Device
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.IsNetwork() {
		return openNet(cfg)
	}
	return openNative(cfg)
}
