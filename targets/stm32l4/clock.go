//go:build stm32l4

package main

import (
	"machine"

	"pwmlink/core"
)

// SysTick registers
const (
	systCSR = systBase + 0x00
	systRVR = systBase + 0x04
	systCVR = systBase + 0x08

	systCSREnable    = 1 << 0
	systCSRTickInt   = 1 << 1
	systCSRClkSource = 1 << 2
)

var tickDevice *core.Device

// initSysTick raises SysTick_Handler every millisecond
func initSysTick(dev *core.Device) {
	tickDevice = dev
	reg32(systRVR).Set(machine.CPUFrequency()/core.TickRate - 1)
	reg32(systCVR).Set(0)
	reg32(systCSR).Set(systCSREnable | systCSRTickInt | systCSRClkSource)
}

//export SysTick_Handler
func sysTickHandler() {
	if tickDevice != nil {
		tickDevice.OnTick()
	}
}
