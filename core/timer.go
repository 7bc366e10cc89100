package core

import "sync/atomic"

// TickRate is the frequency of the system tick interrupt in Hz
const TickRate = 1000

// MillisClock counts system ticks since boot. The tick ISR increments it
// and readers load it atomically, so neither side needs a critical
// section. It wraps after about 49.7 days.
type MillisClock struct {
	ticks atomic.Uint32
}

// Tick advances the counter by one millisecond. Called from the tick ISR.
func (c *MillisClock) Tick() {
	c.ticks.Add(1)
}

// Now returns the milliseconds elapsed since boot
func (c *MillisClock) Now() uint32 {
	return c.ticks.Load()
}

// Set overrides the counter (for testing/hardware integration)
func (c *MillisClock) Set(ms uint32) {
	c.ticks.Store(ms)
}

// Since returns the milliseconds elapsed since start, across wraparound
func (c *MillisClock) Since(start uint32) uint32 {
	return c.Now() - start
}
