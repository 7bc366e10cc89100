package serial

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

const tcpScheme = "tcp://"

// dialTimeout bounds connection setup to the simulator
const dialTimeout = 5 * time.Second

// NetPort carries the serial byte stream over a TCP connection
type NetPort struct {
	conn net.Conn
	cfg  *Config
}

func openNet(cfg *Config) (Port, error) {
	addr := strings.TrimPrefix(cfg.Device, tcpScheme)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewNetPort(conn, cfg), nil
}

// NewNetPort wraps an established connection. cfg supplies the read
// timeout and may be nil.
func NewNetPort(conn net.Conn, cfg *Config) *NetPort {
	if cfg == nil {
		cfg = &Config{}
	}
	return &NetPort{conn: conn, cfg: cfg}
}

// Read reads from the connection, honouring the read timeout
func (p *NetPort) Read(b []byte) (int, error) {
	if p.cfg.ReadTimeout > 0 {
		// a closed stream fails here too; Read reports the cause
		_ = p.conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout))
	}
	n, err := p.conn.Read(b)
	if err != nil && n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, ErrTimeout
	}
	return n, err
}

// Write writes to the connection
func (p *NetPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close closes the connection
func (p *NetPort) Close() error {
	return p.conn.Close()
}

// Flush is a no-op; TCP has no device-side buffers to discard
func (p *NetPort) Flush() error {
	return nil
}
