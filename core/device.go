package core

import (
	"errors"
	"sync/atomic"

	"pwmlink/protocol"
)

// UART is the DMA-driven serial port the device talks through.
// Both methods are called inside a critical section.
type UART interface {
	// Swap points the receive DMA at buf and returns how many bytes were
	// written into the previous target. Passing the current target
	// rewinds it.
	Swap(buf []byte) int

	// Send starts a DMA transmit of p. The device does not touch p again
	// until OnTransmitComplete.
	Send(p []byte)
}

// SerialHandler receives the UART interrupts
type SerialHandler interface {
	OnCharacterMatch()
	OnReceiveComplete()
	OnTransmitComplete()
}

// AppState is the application state reported by GetStatus. It is only
// written by the main loop, inside the critical section that also
// touches the matching peripheral.
type AppState struct {
	PWMPeriod    uint32
	PWMDutyCycle uint8
	PWMEnabled   bool
	LEDEnabled   bool
}

// Stats counts device traffic
type Stats struct {
	RxLines       uint32 // lines handed to the main loop
	RxDropped     uint32 // frames dropped because the pool was empty
	RxOverflows   uint32 // lines longer than the accumulator
	ParseErrors   uint32
	CommandErrors uint32
	TxFrames      uint32
	ReplyDeferred uint32 // polls that found no reply buffer
}

// DeviceConfig wires a Device to its peripherals
type DeviceConfig struct {
	UART   UART
	GPIO   GPIODriver
	LEDPin GPIOPin
	PWM    PWMDriver

	// TimerClock is the PWM timer input clock in Hz
	TimerClock uint32

	// ReloadBits is the auto-reload register width (32 for TIM2)
	ReloadBits uint
}

var ErrDeviceConfig = errors.New("device config incomplete")

// shared holds everything ISRs and the main loop both touch
type shared struct {
	rx     Frame
	tx     Frame
	txBusy bool
	acc    accumulator
	stats  Stats
}

// Device is the firmware core: UART interrupt handlers on one side, a
// cooperative command loop on the other, and a frame pool between them.
type Device struct {
	cfg      DeviceConfig
	pool     FramePool
	shared   Mutex[shared]
	state    Mutex[AppState]
	ready    atomic.Bool
	clock    MillisClock
	commands *CommandRegistry
}

// NewDevice creates a device. Call Init before enabling interrupts.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if cfg.UART == nil || cfg.GPIO == nil || cfg.PWM == nil || cfg.TimerClock == 0 {
		return nil, ErrDeviceConfig
	}
	d := &Device{
		cfg:      cfg,
		commands: NewCommandRegistry(),
	}
	d.registerCommands()
	return d, nil
}

// Init arms the receiver and brings the outputs to their startup state:
// LED off, PWM on at DefaultPWMFrequency with DefaultPWMDuty.
func (d *Device) Init() error {
	timing, err := ComputeTiming(d.cfg.TimerClock, DefaultPWMFrequency, d.cfg.ReloadBits)
	if err != nil {
		return err
	}
	if err := d.cfg.GPIO.ConfigureOutput(d.cfg.LEDPin); err != nil {
		return err
	}

	var initErr error
	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		f, ok := d.pool.Acquire(cs)
		if !ok {
			initErr = errors.New("frame pool exhausted at init")
			return
		}
		s.rx = f
		d.cfg.UART.Swap(d.pool.Buffer(f).Storage())

		if err := d.cfg.GPIO.SetPin(d.cfg.LEDPin, false); err != nil {
			initErr = err
			return
		}
		pwm := d.cfg.PWM
		pwm.Reprogram(timing)
		pwm.SetDuty(DefaultPWMDuty)
		pwm.Enable()

		*d.state.Borrow(cs) = AppState{
			PWMPeriod:    timing.Period,
			PWMDutyCycle: DefaultPWMDuty,
			PWMEnabled:   true,
		}
	})
	if initErr == nil {
		DebugPrintln("[DEVICE] ready, pwm period=" + utoa(timing.Period))
	}
	return initErr
}

// Commands returns the command table
func (d *Device) Commands() *CommandRegistry {
	return d.commands
}

// Millis returns the millisecond counter
func (d *Device) Millis() uint32 {
	return d.clock.Now()
}

// Clock exposes the millisecond counter
func (d *Device) Clock() *MillisClock {
	return &d.clock
}

// State returns a snapshot of the application state
func (d *Device) State() AppState {
	var st AppState
	Free(func(cs *CriticalSection) {
		st = *d.state.Borrow(cs)
	})
	return st
}

// Stats returns a snapshot of the device and pool counters
func (d *Device) Stats() (Stats, PoolStats) {
	var st Stats
	var ps PoolStats
	Free(func(cs *CriticalSection) {
		st = d.shared.Borrow(cs).stats
		ps = d.pool.Stats(cs)
	})
	return st, ps
}

// DiscardPartial drops an unterminated line, both the bytes still in the
// receive buffer and those already accumulated. Complete lines stay
// queued. Returns the number of bytes dropped.
func (d *Device) DiscardPartial() int {
	var n int
	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		if cur := d.pool.Buffer(s.rx); cur != nil {
			n = d.cfg.UART.Swap(cur.Storage())
		}
		n += s.acc.discardPartial()
	})
	return n
}

// PoolUsage returns the number of idle and in-flight frame buffers
func (d *Device) PoolUsage() (idle, inFlight int) {
	Free(func(cs *CriticalSection) {
		idle = d.pool.Idle(cs)
		inFlight = d.pool.InFlight(cs)
	})
	return idle, inFlight
}

// Poll runs one main loop iteration and reports whether a line was
// handled. It never blocks: with the transmitter busy or the pool empty
// the pending line stays queued for a later call.
func (d *Device) Poll() bool {
	if !d.ready.Load() {
		return false
	}

	var line [FrameSize + 2]byte
	var n int
	var reply Frame
	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		if s.txBusy {
			return
		}
		if !s.acc.pending() {
			d.ready.Store(false)
			return
		}
		f, ok := d.pool.Acquire(cs)
		if !ok {
			s.stats.ReplyDeferred++
			return
		}
		reply = f
		n = s.acc.takeLine(line[:])
		s.stats.RxLines++
		if !s.acc.pending() {
			d.ready.Store(false)
		}
	})
	if !reply.Valid() {
		return false
	}

	buf := d.pool.Buffer(reply)
	out := d.handleLine(line[:n], buf.Storage()[:0])
	buf.SetLen(len(out))

	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		s.tx = reply
		s.txBusy = true
		d.cfg.UART.Send(buf.Bytes())
	})
	return true
}

// Run polls forever. idle is called after every poll that found nothing
// to do; pass nil on hardware for a tight loop.
func (d *Device) Run(idle func()) {
	for {
		if !d.Poll() && idle != nil {
			idle()
		}
	}
}

// handleLine parses and executes one line and appends the reply to out
func (d *Device) handleLine(line, out []byte) []byte {
	cmd, ok := protocol.ParseCommand(line)
	if !ok {
		d.record(EvtParseError, 0, uint32(len(line)), func(s *Stats) { s.ParseErrors++ })
		return protocol.AppendError(out)
	}

	reply, err := d.commands.Dispatch(cmd, out)
	if err != nil {
		d.record(EvtCommandError, uint8(cmd.Kind), cmd.Value, func(s *Stats) { s.CommandErrors++ })
		DebugPrintln("[DEVICE] " + cmd.Kind.String() + ": " + err.Error())
		return protocol.AppendError(out)
	}
	d.record(EvtCommand, uint8(cmd.Kind), cmd.Value, nil)
	return reply
}

// record bumps a counter and logs an event from the main loop
func (d *Device) record(evt, kind uint8, value uint32, fn func(s *Stats)) {
	Free(func(cs *CriticalSection) {
		if fn != nil {
			fn(&d.shared.Borrow(cs).stats)
		}
		RecordEvent(evt, kind, d.clock.Now(), value)
	})
}
