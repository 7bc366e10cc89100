//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// sectionLock stands in for the interrupt mask on regular Go. Simulated
// ISRs run on their own goroutines and take the same lock as the main
// loop, so a critical section excludes them exactly as masking would.
var sectionLock sync.Mutex

// disableInterrupts enters the process-wide section
func disableInterrupts() State {
	sectionLock.Lock()
	return 0
}

// restoreInterrupts leaves the process-wide section
func restoreInterrupts(state State) {
	sectionLock.Unlock()
}
