// Package protocol implements the pwmlink line protocol shared by the
// firmware and the host driver
package protocol

// Version represents the pwmlink protocol version
const Version = "0.1.0"

// Protocol constants
const (
	Delimiter = '\n' // Frame delimiter, also the DMA character-match byte
	FrameSize = 100  // Largest frame the firmware buffers, delimiter included
)

// Command tags (host -> device)
const (
	TagSetGPIO      = 'P'
	TagClearGPIO    = 'C'
	TagPWMOn        = 'E'
	TagPWMOff       = 'O'
	TagPWMDuty      = 'D'
	TagPWMFrequency = 'F'
	TagGetTime      = 'T'
	TagGetStatus    = 'S'
)

// Response tags (device -> host)
const (
	TagSuccess = 'S'
	TagError   = 'X'
	TagTime    = 'T'
)
