// PWM frequency synthesis
// Picks prescaler/auto-reload pairs for a general purpose timer so the
// output runs as close as possible to a requested frequency.
package core

import "errors"

// Duty resolution the synthesizer guarantees: at least this many counts
// per period, so a 1% duty step is always representable.
const minPeriodCounts = 100

// Startup PWM configuration
const (
	DefaultPWMFrequency = 1000
	DefaultPWMDuty      = 25
)

var ErrFrequencyRange = errors.New("pwm frequency out of range")

// Timing is a prescaler/auto-reload register pair.
// The output frequency is clock / (Prescaler+1) / (Period+1).
type Timing struct {
	Prescaler uint16
	Period    uint32
}

// Counts returns the number of timer input clocks per PWM period
func (t Timing) Counts() uint64 {
	return (uint64(t.Prescaler) + 1) * (uint64(t.Period) + 1)
}

// Frequency returns the output frequency in Hz for the given timer clock,
// rounded to the nearest integer
func (t Timing) Frequency(clock uint32) uint32 {
	counts := t.Counts()
	return uint32((uint64(clock) + counts/2) / counts)
}

// MaxFrequency returns the highest frequency ComputeTiming accepts for a
// timer clock
func MaxFrequency(clock uint32) uint32 {
	return clock / minPeriodCounts
}

// ComputeTiming picks the smallest prescaler, and so the largest
// auto-reload value, that fits reloadBits and yields hz. The auto-reload
// value is rounded to nearest, keeping the frequency within 0.5% of the
// request. hz must be between 1 and MaxFrequency(clock).
func ComputeTiming(clock, hz uint32, reloadBits uint) (Timing, error) {
	if hz == 0 || hz > MaxFrequency(clock) {
		return Timing{}, ErrFrequencyRange
	}
	if reloadBits == 0 || reloadBits > 32 {
		reloadBits = 32
	}
	maxReload := uint64(1) << reloadBits // counts per prescaled period

	// (psc+1) = ceil(clock / (hz * 2^bits))
	div := uint64(hz) * maxReload
	scale := (uint64(clock) + div - 1) / div
	if scale == 0 {
		scale = 1
	}
	if scale > 1<<16 {
		scale = 1 << 16
	}

	// (arr+1) = round(clock / ((psc+1) * hz))
	step := scale * uint64(hz)
	counts := (uint64(clock) + step/2) / step
	if counts > maxReload {
		counts = maxReload
	}
	if counts == 0 {
		counts = 1
	}

	return Timing{
		Prescaler: uint16(scale - 1),
		Period:    uint32(counts - 1),
	}, nil
}

// dutyCompare converts a duty percentage into a compare value for a
// timer whose auto-reload is period. 100% yields period+1 so the output
// never drops low, saturating at the register width.
func dutyCompare(percent uint8, period uint32) uint32 {
	if percent > MaxDuty {
		percent = MaxDuty
	}
	v := uint64(percent) * (uint64(period) + 1) / MaxDuty
	if v > 0xFFFFFFFF {
		v = 0xFFFFFFFF
	}
	return uint32(v)
}
