//go:build stm32l4

// Firmware for STM32L4 boards (NUCLEO-L432KC): USART2 command link at
// 115200 baud, LED on PB3, PWM on TIM2 channel 2 (PA1).
package main

import (
	"machine"

	"pwmlink/core"
)

const (
	baudRate = 115200
	ledPin   = core.GPIOPin(machine.PB3)
)

func configurePins() {
	machine.PA2.ConfigureAltFunc(machine.PinConfig{Mode: machine.PinModeUARTTX}, 7)
	machine.PA15.ConfigureAltFunc(machine.PinConfig{Mode: machine.PinModeUARTRX}, 3)
	machine.PA1.ConfigureAltFunc(machine.PinConfig{Mode: machine.PinModePWMOutput}, 1)
}

func main() {
	clock := machine.CPUFrequency()
	configurePins()

	regs := tim2{}
	regs.EnableClock()
	uart := newDMAUART(clock, baudRate)

	dev, err := core.NewDevice(core.DeviceConfig{
		UART:       uart,
		GPIO:       pinDriver{},
		LEDPin:     ledPin,
		PWM:        core.NewTimerPWM(regs),
		TimerClock: clock,
		ReloadBits: tim2ReloadBits,
	})
	if err != nil {
		panic(err)
	}
	if err := dev.Init(); err != nil {
		panic(err)
	}

	uart.start(dev)
	initSysTick(dev)

	dev.Run(nil)
}
