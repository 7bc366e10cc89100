package core

// Interrupt handlers. Each runs to completion in bounded time and never
// waits on the main loop.

// OnTick is the system tick handler
func (d *Device) OnTick() {
	d.clock.Tick()
}

// OnCharacterMatch runs when the receiver sees a delimiter
func (d *Device) OnCharacterMatch() {
	d.swapReceive(EvtRxMatch)
}

// OnReceiveComplete runs when the receive DMA fills its buffer without
// seeing a delimiter; reception continues into a fresh buffer
func (d *Device) OnReceiveComplete() {
	d.swapReceive(EvtRxFull)
}

// swapReceive moves the bytes of the receive buffer into the
// accumulator and installs a fresh buffer. With the pool empty the
// current buffer is rewound and its contents dropped.
func (d *Device) swapReceive(evt uint8) {
	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		fresh, ok := d.pool.Acquire(cs)
		if !ok {
			cur := d.pool.Buffer(s.rx)
			if cur == nil {
				return
			}
			d.cfg.UART.Swap(cur.Storage())
			s.stats.RxDropped++
			RecordEvent(EvtRxDropped, 0, d.clock.Now(), 0)
			return
		}

		n := d.cfg.UART.Swap(d.pool.Buffer(fresh).Storage())
		done := s.rx
		s.rx = fresh

		if buf := d.pool.Buffer(done); buf != nil {
			buf.SetLen(n)
			if over := s.acc.write(buf.Bytes()); over > 0 {
				s.stats.RxOverflows += uint32(over)
				RecordEvent(EvtRxOverflow, 0, d.clock.Now(), uint32(over))
			}
			d.pool.Release(cs, done)
		}
		RecordEvent(evt, 0, d.clock.Now(), uint32(n))
		if s.acc.pending() {
			d.ready.Store(true)
		}
	})
}

// OnTransmitComplete runs when the transmit DMA has sent the reply
func (d *Device) OnTransmitComplete() {
	Free(func(cs *CriticalSection) {
		s := d.shared.Borrow(cs)
		if !s.txBusy {
			return
		}
		d.pool.Release(cs, s.tx)
		s.tx = Frame{}
		s.txBusy = false
		s.stats.TxFrames++
		RecordEvent(EvtTxDone, 0, d.clock.Now(), 0)
	})
}
