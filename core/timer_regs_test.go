package core

import "testing"

func TestTimerPWMReprogramSequence(t *testing.T) {
	regs := NewSimTimerRegisters()
	pwm := NewTimerPWM(regs)
	pwm.Init(Timing{Prescaler: 0, Period: 79999})
	pwm.SetDuty(25)
	pwm.Enable()
	regs.ClearLog()

	pwm.Reprogram(Timing{Prescaler: 3, Period: 999})

	expected := []TimerOp{
		{Reg: TimCCER, Value: 0},
		{Reset: true},
		{Reg: TimCCMR1, Value: ccmr1OC2MPWM1 | ccmr1OC2PE},
		{Reg: TimPSC, Value: 3},
		{Reg: TimARR, Value: 999},
		{Reg: TimCCR2, Value: 250},
		{Reg: TimCNT, Value: 0},
		{Reg: TimEGR, Value: egrUG},
		{Reg: TimCR1, Value: cr1CEN | cr1ARPE},
		{Reg: TimCCER, Value: ccerCC2E},
	}
	if len(regs.Ops) != len(expected) {
		t.Fatalf("Expected %d register operations, got %d: %+v", len(expected), len(regs.Ops), regs.Ops)
	}
	for i := range expected {
		if regs.Ops[i] != expected[i] {
			t.Errorf("Operation %d = %+v, expected %+v", i, regs.Ops[i], expected[i])
		}
	}
}

func TestTimerPWMReprogramKeepsDisabled(t *testing.T) {
	regs := NewSimTimerRegisters()
	pwm := NewTimerPWM(regs)
	pwm.Init(Timing{Prescaler: 0, Period: 79999})
	pwm.SetDuty(40)

	pwm.Reprogram(Timing{Prescaler: 0, Period: 39999})

	if pwm.Enabled() {
		t.Error("Reprogram enabled a disabled channel")
	}
	if pwm.Duty() != 40 {
		t.Errorf("Duty = %d, expected 40", pwm.Duty())
	}
	if ccr := regs.Read(TimCCR2); ccr != 16000 {
		t.Errorf("Compare = %d, expected 16000", ccr)
	}
	if !regs.Running() {
		t.Error("Counter should run after Reprogram")
	}
}

func TestTimerPWMInit(t *testing.T) {
	regs := NewSimTimerRegisters()
	pwm := NewTimerPWM(regs)
	pwm.Init(Timing{Prescaler: 0, Period: 79999})

	if !regs.ClockEnabled {
		t.Error("Init should enable the peripheral clock")
	}
	if regs.Resets != 1 {
		t.Errorf("Expected one reset pulse, got %d", regs.Resets)
	}
	if pwm.Period() != 79999 {
		t.Errorf("Period = %d", pwm.Period())
	}
	if f := regs.OutputFrequency(80000000); f != 1000 {
		t.Errorf("Output frequency = %d, expected 1000", f)
	}
	if regs.Read(TimCCMR1)&ccmr1OC2MMask != ccmr1OC2MPWM1 {
		t.Errorf("Channel 2 not in PWM mode 1: CCMR1=%#x", regs.Read(TimCCMR1))
	}
}

func TestTimerPWMEnableDisable(t *testing.T) {
	regs := NewSimTimerRegisters()
	pwm := NewTimerPWM(regs)
	pwm.Init(Timing{Period: 999})

	pwm.Enable()
	if regs.Read(TimCCER)&ccerCC2E == 0 || !pwm.Enabled() {
		t.Error("Enable should set CC2E")
	}
	pwm.Disable()
	if regs.Read(TimCCER)&ccerCC2E != 0 || pwm.Enabled() {
		t.Error("Disable should clear CC2E")
	}
	if !regs.Running() {
		t.Error("Disable must not stop the counter")
	}
}
