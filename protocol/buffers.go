package protocol

// InputBuffer is a byte queue a LineDecoder consumes from the front
type InputBuffer interface {
	// Data returns the queued bytes, oldest first. The slice is only
	// valid until the next call that changes the buffer.
	Data() []byte

	// Available returns the number of queued bytes
	Available() int

	// Pop discards n bytes from the front
	Pop(n int)
}

// SliceInput is an InputBuffer over a fixed byte slice
type SliceInput []byte

func (s *SliceInput) Data() []byte   { return *s }
func (s *SliceInput) Available() int { return len(*s) }

func (s *SliceInput) Pop(n int) {
	if n > len(*s) {
		n = len(*s)
	}
	*s = (*s)[n:]
}

// FifoBuffer is a fixed capacity byte queue. Queued bytes always sit in
// one contiguous window of the backing array; Write slides the window
// back to the start when the tail runs out of room.
type FifoBuffer struct {
	buf   []byte
	start int
	end   int
}

// NewFifoBuffer creates a FIFO holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write queues as much of data as fits and returns the count queued
func (f *FifoBuffer) Write(data []byte) int {
	if len(data) > len(f.buf)-f.end && f.start > 0 {
		f.end = copy(f.buf, f.buf[f.start:f.end])
		f.start = 0
	}
	n := copy(f.buf[f.end:], data)
	f.end += n
	return n
}

// Data returns the queued bytes without copying
func (f *FifoBuffer) Data() []byte {
	return f.buf[f.start:f.end]
}

// Pop discards up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if n >= f.end-f.start {
		f.Reset()
		return
	}
	f.start += n
}

func (f *FifoBuffer) Available() int { return f.end - f.start }
func (f *FifoBuffer) Free() int      { return len(f.buf) - f.Available() }
func (f *FifoBuffer) Cap() int       { return len(f.buf) }
func (f *FifoBuffer) IsFull() bool   { return f.Free() == 0 }
func (f *FifoBuffer) IsEmpty() bool  { return f.start == f.end }

// Reset discards everything queued
func (f *FifoBuffer) Reset() {
	f.start, f.end = 0, 0
}
