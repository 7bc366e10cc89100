package core

import "pwmlink/protocol"

const (
	// PoolSize is the number of frame buffers available for DMA
	PoolSize = 8

	// FrameSize is the capacity of one frame buffer
	FrameSize = protocol.FrameSize
)

// FrameBuffer is one fixed-size DMA buffer
type FrameBuffer struct {
	data [FrameSize]byte
	n    int
}

// Storage returns the whole backing array, for handing to a DMA engine
func (b *FrameBuffer) Storage() []byte {
	return b.data[:]
}

// Bytes returns the valid portion of the buffer
func (b *FrameBuffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the number of valid bytes
func (b *FrameBuffer) Len() int {
	return b.n
}

// SetLen records how many bytes of Storage are valid, clamped to capacity
func (b *FrameBuffer) SetLen(n int) {
	switch {
	case n < 0:
		n = 0
	case n > FrameSize:
		n = FrameSize
	}
	b.n = n
}

// Reset empties the buffer
func (b *FrameBuffer) Reset() {
	b.n = 0
}

// Frame is a handle to a pool slot. The generation makes a handle go
// stale once the slot is released, so a second release or a late access
// is rejected instead of aliasing the next owner's buffer.
type Frame struct {
	slot uint8
	gen  uint16
}

// Valid reports whether the handle was ever issued by a pool.
// It says nothing about whether it is still current.
func (f Frame) Valid() bool {
	return f.gen != 0
}

// PoolStats counts pool traffic
type PoolStats struct {
	Acquired    uint32
	Released    uint32
	Exhausted   uint32
	BadReleases uint32
}

type poolSlot struct {
	buf   FrameBuffer
	gen   uint16
	inUse bool
}

// FramePool is a fixed arena of PoolSize frame buffers. The zero value
// is ready to use. Acquire and Release need a CriticalSection because
// both ISRs and the main loop move buffers in and out.
type FramePool struct {
	slots [PoolSize]poolSlot
	stats PoolStats
}

// Acquire takes an idle buffer. ok is false when all buffers are in
// flight; callers drop or defer their work rather than wait.
func (p *FramePool) Acquire(cs *CriticalSection) (Frame, bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.inUse {
			continue
		}
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		s.inUse = true
		s.buf.Reset()
		p.stats.Acquired++
		return Frame{slot: uint8(i), gen: s.gen}, true
	}
	p.stats.Exhausted++
	return Frame{}, false
}

// Release returns the buffer behind f to the pool. It returns false for
// a stale or foreign handle and leaves the pool untouched.
func (p *FramePool) Release(cs *CriticalSection, f Frame) bool {
	s := p.lookup(f)
	if s == nil {
		p.stats.BadReleases++
		return false
	}
	s.inUse = false
	p.stats.Released++
	return true
}

// Buffer resolves f for its current owner. It returns nil when f is
// stale. Only the owner may touch the buffer, so no CriticalSection is
// required.
func (p *FramePool) Buffer(f Frame) *FrameBuffer {
	s := p.lookup(f)
	if s == nil {
		return nil
	}
	return &s.buf
}

func (p *FramePool) lookup(f Frame) *poolSlot {
	if !f.Valid() || int(f.slot) >= len(p.slots) {
		return nil
	}
	s := &p.slots[f.slot]
	if !s.inUse || s.gen != f.gen {
		return nil
	}
	return s
}

// Cap returns the number of buffers in the pool
func (p *FramePool) Cap() int {
	return len(p.slots)
}

// InFlight returns the number of acquired buffers
func (p *FramePool) InFlight(cs *CriticalSection) int {
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse {
			n++
		}
	}
	return n
}

// Idle returns the number of buffers available to Acquire
func (p *FramePool) Idle(cs *CriticalSection) int {
	return p.Cap() - p.InFlight(cs)
}

// Stats returns a copy of the counters
func (p *FramePool) Stats(cs *CriticalSection) PoolStats {
	return p.stats
}
