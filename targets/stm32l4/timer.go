//go:build stm32l4

package main

import (
	"pwmlink/core"
)

// tim2 is the TIM2 register file. TIM2 has a 32-bit auto-reload
// register; channel 2 is routed to PA1 (AF1).
type tim2 struct{}

func (tim2) Read(r core.TimerReg) uint32 {
	return reg32(tim2Base + uintptr(r)).Get()
}

func (tim2) Write(r core.TimerReg, value uint32) {
	reg32(tim2Base + uintptr(r)).Set(value)
}

func (tim2) EnableClock() {
	reg32(rccAPB1ENR1).SetBits(rccAPB1ENR1TIM2EN)
	// read back so the clock is running before the first register access
	_ = reg32(rccAPB1ENR1).Get()
}

func (tim2) Reset() {
	rst := reg32(rccAPB1RSTR1)
	rst.SetBits(rccAPB1RSTR1TIM2)
	rst.ClearBits(rccAPB1RSTR1TIM2)
}

const tim2ReloadBits = 32
