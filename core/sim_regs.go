package core

// TimerOp is one access recorded by SimTimerRegisters
type TimerOp struct {
	Reg   TimerReg
	Value uint32
	Reset bool // peripheral reset pulse; Reg and Value are zero
}

// SimTimerRegisters is an in-memory timer register file. It keeps a log
// of writes and resets so callers can check programming order.
type SimTimerRegisters struct {
	regs         [TimCCR2/4 + 1]uint32
	ClockEnabled bool
	Resets       int
	Ops          []TimerOp
}

// NewSimTimerRegisters creates a register file at reset values
func NewSimTimerRegisters() *SimTimerRegisters {
	return &SimTimerRegisters{}
}

// Read returns the register value
func (s *SimTimerRegisters) Read(reg TimerReg) uint32 {
	return s.regs[reg/4]
}

// Write stores value and appends it to the log. A write to EGR with UG
// set reloads the counter, as on hardware; EGR itself reads as zero.
func (s *SimTimerRegisters) Write(reg TimerReg, value uint32) {
	s.Ops = append(s.Ops, TimerOp{Reg: reg, Value: value})
	if reg == TimEGR {
		if value&egrUG != 0 {
			s.regs[TimCNT/4] = 0
		}
		return
	}
	s.regs[reg/4] = value
}

// EnableClock marks the peripheral clock as running
func (s *SimTimerRegisters) EnableClock() {
	s.ClockEnabled = true
}

// Reset clears every register
func (s *SimTimerRegisters) Reset() {
	s.regs = [len(s.regs)]uint32{}
	s.Resets++
	s.Ops = append(s.Ops, TimerOp{Reset: true})
}

// ClearLog forgets the recorded accesses
func (s *SimTimerRegisters) ClearLog() {
	s.Ops = s.Ops[:0]
}

// Running reports whether the counter is enabled
func (s *SimTimerRegisters) Running() bool {
	return s.regs[TimCR1/4]&cr1CEN != 0
}

// OutputFrequency returns the PWM frequency the registers produce from
// a timer clock, or 0 when the counter is stopped
func (s *SimTimerRegisters) OutputFrequency(clock uint32) uint32 {
	if !s.Running() {
		return 0
	}
	t := Timing{Prescaler: uint16(s.regs[TimPSC/4]), Period: s.regs[TimARR/4]}
	return t.Frequency(clock)
}
