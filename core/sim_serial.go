package core

import (
	"context"
	"io"

	"pwmlink/protocol"
)

// SimUART emulates a UART whose receiver and transmitter are both
// served by DMA. Feed plays the part of the wire and the receive DMA
// engine; Flush and Serve play the transmit DMA engine. Interrupts are
// delivered to the attached SerialHandler on the caller's goroutine.
type SimUART struct {
	handler SerialHandler

	// guarded by the critical section
	rx       []byte
	rxLen    int
	tx       []byte
	overruns uint32

	kick chan struct{}
}

// NewSimUART creates a UART with no handler attached
func NewSimUART() *SimUART {
	return &SimUART{
		kick: make(chan struct{}, 1),
	}
}

// Attach sets the interrupt handler. Call before feeding input.
func (u *SimUART) Attach(h SerialHandler) {
	u.handler = h
}

// Swap installs buf as the receive target and returns how many bytes
// landed in the previous one. Called inside a critical section.
func (u *SimUART) Swap(buf []byte) int {
	n := u.rxLen
	u.rx = buf
	u.rxLen = 0
	return n
}

// Send starts transmitting p. p must stay untouched until
// OnTransmitComplete fires. Called inside a critical section.
func (u *SimUART) Send(p []byte) {
	u.tx = p
	select {
	case u.kick <- struct{}{}:
	default:
	}
}

// Feed delivers bytes as if they arrived on the wire. A delimiter raises
// the character-match interrupt; a full receive buffer raises
// receive-complete. Bytes arriving with no room are counted as overruns.
// It returns the number of bytes stored.
func (u *SimUART) Feed(p []byte) int {
	stored := 0
	for _, c := range p {
		var ok, match, full bool
		Free(func(cs *CriticalSection) {
			if u.rxLen >= len(u.rx) {
				u.overruns++
				return
			}
			u.rx[u.rxLen] = c
			u.rxLen++
			ok = true
			match = c == protocol.Delimiter
			full = u.rxLen == len(u.rx)
		})
		if !ok {
			continue
		}
		stored++
		if u.handler == nil {
			continue
		}
		switch {
		case match:
			u.handler.OnCharacterMatch()
		case full:
			u.handler.OnReceiveComplete()
		}
	}
	return stored
}

// Overruns returns the number of bytes dropped for lack of a buffer
func (u *SimUART) Overruns() uint32 {
	var n uint32
	Free(func(cs *CriticalSection) {
		n = u.overruns
	})
	return n
}

func (u *SimUART) take() []byte {
	var out []byte
	Free(func(cs *CriticalSection) {
		if u.tx != nil {
			out = append([]byte(nil), u.tx...)
			u.tx = nil
		}
	})
	return out
}

func (u *SimUART) complete() {
	if u.handler != nil {
		u.handler.OnTransmitComplete()
	}
}

// Flush finishes the transmission in progress and returns its bytes,
// or nil when the transmitter is idle
func (u *SimUART) Flush() []byte {
	out := u.take()
	if out != nil {
		u.complete()
	}
	return out
}

// Serve copies every transmission to w until ctx is done or w fails.
// A failed write still completes the transmission.
func (u *SimUART) Serve(ctx context.Context, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-u.kick:
		}
		out := u.take()
		if out == nil {
			continue
		}
		// the transfer completes whether or not anyone was listening
		_, err := w.Write(out)
		u.complete()
		if err != nil {
			return err
		}
	}
}

// Receive reads from r and feeds the bytes in until r fails
func (u *SimUART) Receive(r io.Reader) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			u.Feed(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}
