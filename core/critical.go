package core

// CriticalSection is proof that interrupts are masked. Only Free hands
// one out, and it is valid only for the duration of the callback.
type CriticalSection struct {
	_ [0]func()
}

// Free runs fn with interrupts masked and restores the previous mask
// afterwards. Sections must not nest; on regular Go a nested Free
// deadlocks.
func Free(fn func(cs *CriticalSection)) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn(&CriticalSection{})
}

// Mutex is a cell shared between interrupt handlers and the main loop.
// Its contents can only be reached while holding a CriticalSection.
type Mutex[T any] struct {
	value T
}

// NewMutex wraps v
func NewMutex[T any](v T) Mutex[T] {
	return Mutex[T]{value: v}
}

// Borrow returns the guarded value. The pointer must not escape the
// critical section it was borrowed under.
func (m *Mutex[T]) Borrow(cs *CriticalSection) *T {
	if cs == nil {
		panic("core: Mutex borrowed outside a critical section")
	}
	return &m.value
}
