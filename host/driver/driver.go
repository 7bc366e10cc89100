// Package driver is the host side of the pwmlink protocol: it writes
// commands to a byte stream and matches each one with the device's reply.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pwmlink/host/metrics"
	"pwmlink/host/serial"
	"pwmlink/protocol"
)

var (
	// ErrClosed is returned after Close
	ErrClosed = errors.New("driver closed")

	// ErrNoResponse is returned when the stream ended before a reply
	ErrNoResponse = errors.New("no response from device")

	// ErrRejected is returned by the convenience methods when the device
	// answered with an error reply
	ErrRejected = errors.New("device rejected command")

	// ErrUnexpectedResponse is returned when a reply does not fit the
	// command, e.g. a success line to GetTime
	ErrUnexpectedResponse = errors.New("unexpected response")

	ErrInvalidCommand = errors.New("invalid command")
)

const (
	// DefaultTimeout bounds one request when the caller's context has no
	// deadline
	DefaultTimeout = 2 * time.Second

	readBufferSize = 256
	fifoSize       = 512
	lineQueueSize  = 16
)

// Observer receives one call per completed request
type Observer interface {
	ObserveCommand(cmd protocol.Command, resp protocol.Response, result string, elapsed time.Duration)
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTimeout sets the per-request timeout; 0 disables it
func WithTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

// WithObserver reports every request to o
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

type line struct {
	data []byte
	err  error
}

// Driver talks to one device. Requests are serialized: Send holds a lock
// from the write until the reply arrives, so at most one command is in
// flight per link.
type Driver struct {
	port     io.ReadWriteCloser
	log      logrus.FieldLogger
	timeout  time.Duration
	observer Observer

	mu sync.Mutex

	lines chan line

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New starts a driver on port. The driver owns port and closes it on
// Close.
func New(port io.ReadWriteCloser, opts ...Option) *Driver {
	discard := logrus.New()
	discard.Out = io.Discard

	d := &Driver{
		port:    port,
		log:     discard,
		timeout: DefaultTimeout,
		lines:   make(chan line, lineQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.readLoop()
	return d
}

// Open opens the serial port described by cfg and starts a driver on it
func Open(cfg *serial.Config, opts ...Option) (*Driver, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port, opts...), nil
}

// Close stops the read loop and closes the port
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.stop)
		err = d.port.Close()
		<-d.done
	})
	return err
}

func (d *Driver) closed() bool {
	select {
	case <-d.stop:
		return true
	default:
		return false
	}
}

// Send writes cmd and waits for the device's reply. The wait ends at the
// driver timeout or when ctx is done, whichever comes first.
func (d *Driver) Send(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	if d.closed() {
		return protocol.Response{}, ErrClosed
	}
	frame := protocol.EncodeCommand(cmd)
	if len(frame) == 0 {
		return protocol.Response{}, ErrInvalidCommand
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	log := d.log.WithField("cmd", cmd.String())
	start := time.Now()
	d.drainStale()

	resp, err := d.roundTrip(ctx, frame)
	elapsed := time.Since(start)

	result := metrics.ResultOK
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultTimeout
	case err != nil:
		result = metrics.ResultError
	case !resp.OK():
		result = metrics.ResultRejected
	}
	if d.observer != nil {
		d.observer.ObserveCommand(cmd, resp, result, elapsed)
	}

	if err != nil {
		log.WithError(err).Warn("request failed")
		return protocol.Response{}, err
	}
	log.WithFields(logrus.Fields{
		"reply":   resp.String(),
		"elapsed": elapsed,
	}).Debug("request complete")
	return resp, nil
}

func (d *Driver) roundTrip(ctx context.Context, frame []byte) (protocol.Response, error) {
	n, err := d.port.Write(frame)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("write: %w", err)
	}
	if n != len(frame) {
		return protocol.Response{}, fmt.Errorf("write: %w", io.ErrShortWrite)
	}

	select {
	case l, ok := <-d.lines:
		if !ok {
			return protocol.Response{}, d.streamError()
		}
		if l.err != nil {
			return protocol.Response{}, l.err
		}
		return protocol.ParseResponse(l.data), nil

	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()

	case <-d.stop:
		return protocol.Response{}, ErrClosed
	}
}

// drainStale discards lines that arrived while no request was waiting,
// such as a late reply to a request that timed out
func (d *Driver) drainStale() {
	for {
		select {
		case l, ok := <-d.lines:
			if !ok {
				return
			}
			d.log.WithField("line", string(l.data)).Debug("discarding stale line")
		default:
			return
		}
	}
}

func (d *Driver) streamError() error {
	if d.closed() {
		return ErrClosed
	}
	d.errMu.Lock()
	defer d.errMu.Unlock()
	if d.readErr == nil || errors.Is(d.readErr, io.EOF) {
		return ErrNoResponse
	}
	return fmt.Errorf("read: %w", d.readErr)
}

// readLoop reads the port, splits the stream into lines and queues them
// for Send. It exits when the port fails or the driver is closed.
func (d *Driver) readLoop() {
	defer close(d.done)
	defer close(d.lines)

	fifo := protocol.NewFifoBuffer(fifoSize)
	dec := protocol.NewLineDecoder(fifo)
	buf := make([]byte, readBufferSize)

	for {
		n, err := d.port.Read(buf)
		data := buf[:n]
		for len(data) > 0 {
			written := fifo.Write(data)
			data = data[written:]
			d.decodeLines(fifo, dec)
		}

		if err != nil {
			if d.closed() {
				return
			}
			if errors.Is(err, serial.ErrTimeout) {
				continue
			}
			d.errMu.Lock()
			d.readErr = err
			d.errMu.Unlock()
			if !errors.Is(err, io.EOF) {
				d.log.WithError(err).Error("read failed")
			}
			return
		}
		if d.closed() {
			return
		}
	}
}

func (d *Driver) decodeLines(fifo *protocol.FifoBuffer, dec *protocol.LineDecoder) {
	for {
		data, err := dec.Decode()
		if errors.Is(err, protocol.ErrIncomplete) {
			if fifo.IsFull() {
				fifo.Reset()
				d.queue(line{err: protocol.ErrFrameTooLong})
			}
			return
		}
		d.queue(line{data: data, err: err})
	}
}

// queue hands a line to Send without blocking the reader. When nobody
// collects lines the oldest is dropped.
func (d *Driver) queue(l line) {
	for {
		select {
		case d.lines <- l:
			return
		default:
		}
		select {
		case old := <-d.lines:
			d.log.WithField("line", string(old.data)).Warn("reply queue full, dropping line")
		default:
		}
	}
}
