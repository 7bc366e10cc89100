//go:build tinygo

package core

import "runtime/interrupt"

// State is the interrupt mask saved on entry to a critical section
type State = interrupt.State

func disableInterrupts() State { return interrupt.Disable() }

func restoreInterrupts(s State) { interrupt.Restore(s) }
