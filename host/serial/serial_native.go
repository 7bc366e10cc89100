package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// NativePort is an OS serial device opened through tarm/serial. Write,
// Close and Flush come straight from the embedded port.
type NativePort struct {
	*serial.Port
	timeout time.Duration
}

var tarmParities = map[Parity]serial.Parity{
	ParityNone:  serial.ParityNone,
	ParityOdd:   serial.ParityOdd,
	ParityEven:  serial.ParityEven,
	ParityMark:  serial.ParityMark,
	ParitySpace: serial.ParitySpace,
}

func openNative(cfg *Config) (Port, error) {
	stop := serial.Stop1
	if cfg.StopBits == 2 {
		stop = serial.Stop2
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		Size:        byte(cfg.DataBits),
		Parity:      tarmParities[cfg.Parity],
		StopBits:    stop,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &NativePort{Port: p, timeout: cfg.ReadTimeout}, nil
}

// Read reports an expired read timeout, which the OS signals as an
// empty read, as ErrTimeout
func (p *NativePort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && p.timeout > 0 && (err == nil || err == io.EOF) {
		return 0, ErrTimeout
	}
	return n, err
}
