package core

// GPIOPin is a board pin number
type GPIOPin uint32

// GPIODriver drives digital outputs. Targets map GPIOPin to their own
// pin numbering.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	SetPin(pin GPIOPin, high bool) error
}

// MaxDuty is the full-scale duty cycle in percent
const MaxDuty = 100

// PWMDriver is one PWM output channel. Every method touches peripheral
// registers and must be called inside a critical section.
type PWMDriver interface {
	// Enable connects the channel to its output pin
	Enable()

	// Disable disconnects the channel; the counter keeps running
	Disable()

	Enabled() bool

	// SetDuty sets the duty cycle in percent (0 to MaxDuty)
	SetDuty(percent uint8)

	// Reprogram switches the channel to a new prescaler/auto-reload pair,
	// preserving the duty cycle and the enable state
	Reprogram(t Timing)

	// Period returns the current auto-reload value
	Period() uint32
}
