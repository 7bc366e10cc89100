package core

// TimerReg is the byte offset of a general purpose timer register
type TimerReg uint32

// General purpose timer register offsets (STM32 TIMx layout)
const (
	TimCR1   TimerReg = 0x00
	TimEGR   TimerReg = 0x14
	TimCCMR1 TimerReg = 0x18
	TimCCER  TimerReg = 0x20
	TimCNT   TimerReg = 0x24
	TimPSC   TimerReg = 0x28
	TimARR   TimerReg = 0x2C
	TimCCR2  TimerReg = 0x38
)

// Register bits used for channel 2 PWM
const (
	cr1CEN  = 1 << 0
	cr1ARPE = 1 << 7

	egrUG = 1 << 0

	ccmr1OC2PE    = 1 << 11
	ccmr1OC2MMask = 0x7<<12 | 1<<24
	ccmr1OC2MPWM1 = 0x6 << 12

	ccerCC2E = 1 << 4
)

// TimerRegisters is the register file of one timer peripheral
type TimerRegisters interface {
	Read(reg TimerReg) uint32
	Write(reg TimerReg, value uint32)

	// EnableClock gates the peripheral clock on
	EnableClock()

	// Reset pulses the peripheral reset line, returning every register
	// to its reset value
	Reset()
}

// TimerPWM drives channel 2 of a general purpose timer as a PWM output
type TimerPWM struct {
	regs   TimerRegisters
	period uint32
	duty   uint8
}

// NewTimerPWM creates a PWM driver on regs. Call Init before use.
func NewTimerPWM(regs TimerRegisters) *TimerPWM {
	return &TimerPWM{regs: regs}
}

// Init clocks the timer and programs t with the output disabled
func (p *TimerPWM) Init(t Timing) {
	p.regs.EnableClock()
	p.Reprogram(t)
}

// Enable turns the channel output on
func (p *TimerPWM) Enable() {
	p.regs.Write(TimCCER, p.regs.Read(TimCCER)|ccerCC2E)
}

// Disable turns the channel output off
func (p *TimerPWM) Disable() {
	p.regs.Write(TimCCER, p.regs.Read(TimCCER)&^ccerCC2E)
}

// Enabled reports whether the channel output is on
func (p *TimerPWM) Enabled() bool {
	return p.regs.Read(TimCCER)&ccerCC2E != 0
}

// SetDuty sets the compare value for percent of the current period
func (p *TimerPWM) SetDuty(percent uint8) {
	if percent > MaxDuty {
		percent = MaxDuty
	}
	p.duty = percent
	p.regs.Write(TimCCR2, dutyCompare(percent, p.period))
}

// Duty returns the duty cycle in percent
func (p *TimerPWM) Duty() uint8 {
	return p.duty
}

// Period returns the current auto-reload value
func (p *TimerPWM) Period() uint32 {
	return p.period
}

// Reprogram resets the timer and starts it with t. The channel is off
// while the registers change and comes back only if it was on before;
// the duty percentage carries over to the new period.
func (p *TimerPWM) Reprogram(t Timing) {
	r := p.regs
	wasEnabled := p.Enabled()

	p.Disable()
	r.Reset()

	r.Write(TimCCMR1, r.Read(TimCCMR1)&^ccmr1OC2MMask|ccmr1OC2MPWM1|ccmr1OC2PE)
	r.Write(TimPSC, uint32(t.Prescaler))
	r.Write(TimARR, t.Period)
	p.period = t.Period
	p.SetDuty(p.duty)
	r.Write(TimCNT, 0)
	// PSC and CCR2 are buffered; force an update so both apply on the
	// first period
	r.Write(TimEGR, egrUG)
	r.Write(TimCR1, cr1CEN|cr1ARPE)

	if wasEnabled {
		p.Enable()
	}
}
