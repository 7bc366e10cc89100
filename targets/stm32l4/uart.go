//go:build stm32l4

package main

import (
	"runtime/interrupt"
	"unsafe"

	"pwmlink/core"
	"pwmlink/protocol"
)

// USART2 registers
const (
	usartCR1 = usart2Base + 0x00
	usartCR2 = usart2Base + 0x04
	usartCR3 = usart2Base + 0x08
	usartBRR = usart2Base + 0x0C
	usartISR = usart2Base + 0x1C
	usartICR = usart2Base + 0x20
	usartRDR = usart2Base + 0x24
	usartTDR = usart2Base + 0x28

	cr1UE   = 1 << 0
	cr1RE   = 1 << 2
	cr1TE   = 1 << 3
	cr1CMIE = 1 << 14

	cr2ADDShift = 24

	cr3DMAR = 1 << 6
	cr3DMAT = 1 << 7

	isrCMF  = 1 << 17
	icrCMCF = 1 << 17
)

// DMA1 channels: 6 receives from USART2, 7 transmits to it
const (
	dmaISR   = dma1Base + 0x00
	dmaIFCR  = dma1Base + 0x04
	dmaCSELR = dma1Base + 0xA8

	dmaRxChannel = 6
	dmaTxChannel = 7
	// request 2 selects USART2 on both channels
	dmaUSART2Request = 2

	ccrEN   = 1 << 0
	ccrTCIE = 1 << 1
	ccrDIR  = 1 << 4
	ccrMINC = 1 << 7
)

// IRQ numbers
const (
	irqDMA1CH6 = 16
	irqDMA1CH7 = 17
	irqUSART2  = 38
)

func dmaCCR(ch uintptr) uintptr   { return dma1Base + 0x08 + 20*(ch-1) }
func dmaCNDTR(ch uintptr) uintptr { return dma1Base + 0x0C + 20*(ch-1) }
func dmaCPAR(ch uintptr) uintptr  { return dma1Base + 0x10 + 20*(ch-1) }
func dmaCMAR(ch uintptr) uintptr  { return dma1Base + 0x14 + 20*(ch-1) }

func dmaTCIF(ch uintptr) uint32 { return 1 << (1 + 4*(ch-1)) }
func dmaCGIF(ch uintptr) uint32 { return 1 << (4 * (ch - 1)) }

// dmaUART is USART2 with both directions on DMA and character match on
// the frame delimiter
type dmaUART struct {
	rxLen int
}

var uartHandler core.SerialHandler

func newDMAUART(clock, baud uint32) *dmaUART {
	reg32(rccAHB1ENR).SetBits(rccAHB1ENRDMA1EN)
	reg32(rccAPB1ENR1).SetBits(rccAPB1ENR1USART2E)
	_ = reg32(rccAPB1ENR1).Get()

	csel := reg32(dmaCSELR)
	csel.ReplaceBits(dmaUSART2Request, 0xF, 4*(dmaRxChannel-1))
	csel.ReplaceBits(dmaUSART2Request, 0xF, 4*(dmaTxChannel-1))

	reg32(dmaCPAR(dmaRxChannel)).Set(usartRDR)
	reg32(dmaCCR(dmaRxChannel)).Set(ccrMINC | ccrTCIE)
	reg32(dmaCPAR(dmaTxChannel)).Set(usartTDR)
	reg32(dmaCCR(dmaTxChannel)).Set(ccrMINC | ccrDIR | ccrTCIE)

	reg32(usartCR1).Set(0)
	reg32(usartBRR).Set(clock / baud)
	reg32(usartCR2).Set(uint32(protocol.Delimiter) << cr2ADDShift)
	reg32(usartCR3).Set(cr3DMAR | cr3DMAT)
	reg32(usartCR1).Set(cr1UE | cr1RE | cr1TE | cr1CMIE)

	return &dmaUART{}
}

// start hooks the interrupts up to h
func (u *dmaUART) start(h core.SerialHandler) {
	uartHandler = h

	usart := interrupt.New(irqUSART2, func(interrupt.Interrupt) {
		if reg32(usartISR).Get()&isrCMF != 0 {
			reg32(usartICR).Set(icrCMCF)
			uartHandler.OnCharacterMatch()
		}
	})
	rx := interrupt.New(irqDMA1CH6, func(interrupt.Interrupt) {
		if reg32(dmaISR).Get()&dmaTCIF(dmaRxChannel) != 0 {
			reg32(dmaIFCR).Set(dmaCGIF(dmaRxChannel))
			uartHandler.OnReceiveComplete()
		}
	})
	tx := interrupt.New(irqDMA1CH7, func(interrupt.Interrupt) {
		if reg32(dmaISR).Get()&dmaTCIF(dmaTxChannel) != 0 {
			reg32(dmaIFCR).Set(dmaCGIF(dmaTxChannel))
			uartHandler.OnTransmitComplete()
		}
	})
	for _, irq := range []interrupt.Interrupt{usart, rx, tx} {
		irq.SetPriority(0xC0)
		irq.Enable()
	}
}

// Swap retargets the receive channel at buf. The count of bytes written
// to the previous target is derived from the remaining transfer count.
func (u *dmaUART) Swap(buf []byte) int {
	ccr := reg32(dmaCCR(dmaRxChannel))
	ccr.ClearBits(ccrEN)
	n := u.rxLen - int(reg32(dmaCNDTR(dmaRxChannel)).Get())

	reg32(dmaIFCR).Set(dmaCGIF(dmaRxChannel))
	reg32(dmaCMAR(dmaRxChannel)).Set(uint32(uintptr(unsafe.Pointer(&buf[0]))))
	reg32(dmaCNDTR(dmaRxChannel)).Set(uint32(len(buf)))
	u.rxLen = len(buf)
	ccr.SetBits(ccrEN)
	return n
}

// Send starts a transmit of p
func (u *dmaUART) Send(p []byte) {
	if len(p) == 0 {
		return
	}
	ccr := reg32(dmaCCR(dmaTxChannel))
	ccr.ClearBits(ccrEN)
	reg32(dmaIFCR).Set(dmaCGIF(dmaTxChannel))
	reg32(dmaCMAR(dmaTxChannel)).Set(uint32(uintptr(unsafe.Pointer(&p[0]))))
	reg32(dmaCNDTR(dmaTxChannel)).Set(uint32(len(p)))
	ccr.SetBits(ccrEN)
}
