//go:build stm32l4

package main

import (
	"runtime/volatile"
	"unsafe"
)

// Peripheral base addresses (STM32L43x/L44x)
const (
	tim2Base   = 0x40000000
	usart2Base = 0x40004400
	dma1Base   = 0x40020000
	rccBase    = 0x40021000
	systBase   = 0xE000E010
)

// RCC registers
const (
	rccAHB1ENR   = rccBase + 0x48
	rccAPB1RSTR1 = rccBase + 0x38
	rccAPB1ENR1  = rccBase + 0x58

	rccAHB1ENRDMA1EN   = 1 << 0
	rccAPB1ENR1TIM2EN  = 1 << 0
	rccAPB1ENR1USART2E = 1 << 17
	rccAPB1RSTR1TIM2   = 1 << 0
)

func reg32(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}
