package core

import (
	"errors"

	"pwmlink/protocol"
)

var ErrDutyRange = errors.New("pwm duty cycle above 100%")

// registerCommands installs the device command set
func (d *Device) registerCommands() {
	d.commands.Register(protocol.KindSetGPIO, d.handleSetGPIO)
	d.commands.Register(protocol.KindClearGPIO, d.handleClearGPIO)
	d.commands.Register(protocol.KindPWMOn, d.handlePWMOn)
	d.commands.Register(protocol.KindPWMOff, d.handlePWMOff)
	d.commands.Register(protocol.KindPWMDuty, d.handlePWMDuty)
	d.commands.Register(protocol.KindPWMFrequency, d.handlePWMFrequency)
	d.commands.Register(protocol.KindGetTime, d.handleGetTime)
	d.commands.Register(protocol.KindGetStatus, d.handleGetStatus)
}

func (d *Device) handleSetGPIO(_ protocol.Command, reply []byte) ([]byte, error) {
	return d.setLED(true, reply)
}

func (d *Device) handleClearGPIO(_ protocol.Command, reply []byte) ([]byte, error) {
	return d.setLED(false, reply)
}

func (d *Device) setLED(on bool, reply []byte) ([]byte, error) {
	var err error
	Free(func(cs *CriticalSection) {
		if err = d.cfg.GPIO.SetPin(d.cfg.LEDPin, on); err != nil {
			return
		}
		d.state.Borrow(cs).LEDEnabled = on
	})
	if err != nil {
		return reply, err
	}
	return protocol.AppendSuccess(reply), nil
}

func (d *Device) handlePWMOn(_ protocol.Command, reply []byte) ([]byte, error) {
	Free(func(cs *CriticalSection) {
		d.cfg.PWM.Enable()
		d.state.Borrow(cs).PWMEnabled = true
	})
	return protocol.AppendSuccess(reply), nil
}

func (d *Device) handlePWMOff(_ protocol.Command, reply []byte) ([]byte, error) {
	Free(func(cs *CriticalSection) {
		d.cfg.PWM.Disable()
		d.state.Borrow(cs).PWMEnabled = false
	})
	return protocol.AppendSuccess(reply), nil
}

// handlePWMDuty sets the duty cycle in percent. Values above 100 are
// rejected without touching the output.
func (d *Device) handlePWMDuty(cmd protocol.Command, reply []byte) ([]byte, error) {
	if cmd.Value > MaxDuty {
		return reply, ErrDutyRange
	}
	duty := uint8(cmd.Value)
	Free(func(cs *CriticalSection) {
		d.cfg.PWM.SetDuty(duty)
		d.state.Borrow(cs).PWMDutyCycle = duty
	})
	return protocol.AppendSuccess(reply), nil
}

// handlePWMFrequency retunes the PWM timer. The output keeps its enable
// state and duty cycle.
func (d *Device) handlePWMFrequency(cmd protocol.Command, reply []byte) ([]byte, error) {
	timing, err := ComputeTiming(d.cfg.TimerClock, cmd.Value, d.cfg.ReloadBits)
	if err != nil {
		return reply, err
	}
	Free(func(cs *CriticalSection) {
		d.cfg.PWM.Reprogram(timing)
		d.state.Borrow(cs).PWMPeriod = timing.Period
	})
	return protocol.AppendSuccess(reply), nil
}

func (d *Device) handleGetTime(_ protocol.Command, reply []byte) ([]byte, error) {
	return protocol.AppendTime(reply, d.clock.Now()), nil
}

func (d *Device) handleGetStatus(_ protocol.Command, reply []byte) ([]byte, error) {
	st := d.State()
	return protocol.AppendStatus(reply, protocol.Status{
		LEDEnabled:   st.LEDEnabled,
		PWMEnabled:   st.PWMEnabled,
		PWMDutyCycle: st.PWMDutyCycle,
		PWMPeriod:    st.PWMPeriod,
	}), nil
}
