package serial

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, ParityNone, cfg.Parity)
	assert.Equal(t, 1, cfg.StopBits)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.IsNetwork())
	assert.Contains(t, StandardBaudRates, cfg.Baud)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no device", func(c *Config) { c.Device = "" }},
		{"zero baud", func(c *Config) { c.Baud = 0 }},
		{"data bits", func(c *Config) { c.DataBits = 9 }},
		{"stop bits", func(c *Config) { c.StopBits = 3 }},
		{"parity", func(c *Config) { c.Parity = "sideways" }},
		{"timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig("/dev/null")
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
			_, err := Open(cfg)
			assert.Error(t, err)
		})
	}
}

func TestParseParity(t *testing.T) {
	for in, expected := range map[string]Parity{
		"":      ParityNone,
		"N":     ParityNone,
		"odd":   ParityOdd,
		"E":     ParityEven,
		"Mark":  ParityMark,
		" s ":   ParitySpace,
		"space": ParitySpace,
	} {
		got, err := ParseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}

	_, err := ParseParity("x")
	assert.Error(t, err)
}

func TestNetPortReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	port := NewNetPort(client, &Config{ReadTimeout: 20 * time.Millisecond})
	defer port.Close()

	buf := make([]byte, 8)
	_, err := port.Read(buf)
	assert.ErrorIs(t, err, ErrTimeout)

	go server.Write([]byte("S\n"))
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "S\n", string(buf[:n]))

	server.Close()
	_, err = port.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	_, err = port.Read(buf)
	assert.ErrorIs(t, err, io.EOF, "a closed stream keeps reporting EOF, not a deadline error")

	port.Close()
	_, err = port.Read(buf)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	cfg := DefaultConfig("tcp://" + ln.Addr().String())
	require.True(t, cfg.IsNetwork())

	port, err := Open(cfg)
	require.NoError(t, err)
	defer port.Close()

	conn := <-accepted
	defer conn.Close()

	_, err = port.Write([]byte("T\n"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf[:2])
	require.NoError(t, err)
	assert.Equal(t, "T\n", string(buf[:2]))
	assert.NoError(t, port.Flush())
}

func TestOpenTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Open(DefaultConfig("tcp://" + addr))
	assert.Error(t, err)
}
