package core

import (
	"sync"
	"testing"
)

func TestFreeExcludesConcurrentSections(t *testing.T) {
	counter := NewMutex(0)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				Free(func(cs *CriticalSection) {
					*counter.Borrow(cs)++
				})
			}
		}()
	}
	wg.Wait()

	Free(func(cs *CriticalSection) {
		if got := *counter.Borrow(cs); got != 8000 {
			t.Errorf("Counter = %d, expected 8000", got)
		}
	})
}

func TestBorrowOutsideSectionPanics(t *testing.T) {
	m := NewMutex("value")
	defer func() {
		if recover() == nil {
			t.Error("Borrow without a critical section should panic")
		}
	}()
	m.Borrow(nil)
}

func TestFreeReleasesOnPanic(t *testing.T) {
	func() {
		defer func() { recover() }()
		Free(func(cs *CriticalSection) {
			panic("boom")
		})
	}()

	// A leaked section would deadlock here
	done := false
	Free(func(cs *CriticalSection) {
		done = true
	})
	if !done {
		t.Error("Section did not run")
	}
}

func TestMillisClock(t *testing.T) {
	var c MillisClock
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if c.Now() != 5 {
		t.Errorf("Now = %d, expected 5", c.Now())
	}

	c.Set(0xFFFFFFFE)
	start := c.Now()
	c.Tick()
	c.Tick()
	c.Tick()
	if c.Now() != 1 {
		t.Errorf("Counter should wrap, got %d", c.Now())
	}
	if c.Since(start) != 3 {
		t.Errorf("Since across wrap = %d, expected 3", c.Since(start))
	}
}
