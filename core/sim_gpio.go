package core

import (
	"errors"
	"sync"
)

var ErrPinNotConfigured = errors.New("gpio pin not configured as output")

// SimGPIO is an in-memory GPIODriver
type SimGPIO struct {
	mu   sync.Mutex
	pins map[GPIOPin]bool
	sets int
}

// NewSimGPIO creates a GPIO bank with no configured pins
func NewSimGPIO() *SimGPIO {
	return &SimGPIO{
		pins: make(map[GPIOPin]bool),
	}
}

func (g *SimGPIO) ConfigureOutput(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pins[pin] = false
	return nil
}

func (g *SimGPIO) SetPin(pin GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pins[pin]; !ok {
		return ErrPinNotConfigured
	}
	g.pins[pin] = value
	g.sets++
	return nil
}

// Pin returns the output level and whether the pin is configured
func (g *SimGPIO) Pin(pin GPIOPin) (value, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	value, ok = g.pins[pin]
	return value, ok
}

// Writes returns the number of successful SetPin calls
func (g *SimGPIO) Writes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sets
}
