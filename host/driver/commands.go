package driver

import (
	"context"
	"fmt"
	"time"

	"pwmlink/protocol"
)

// exec sends cmd and turns an error reply into ErrRejected
func (d *Driver) exec(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	resp, err := d.Send(ctx, cmd)
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		return resp, fmt.Errorf("%s: %w", cmd, ErrRejected)
	}
	return resp, nil
}

func (d *Driver) expectSuccess(ctx context.Context, cmd protocol.Command) error {
	resp, err := d.exec(ctx, cmd)
	if err != nil {
		return err
	}
	if resp.Kind != protocol.ResponseSuccess {
		return fmt.Errorf("%s: %w: %s", cmd, ErrUnexpectedResponse, resp)
	}
	return nil
}

// SetGPIO drives the LED pin high
func (d *Driver) SetGPIO(ctx context.Context) error {
	return d.expectSuccess(ctx, protocol.SetGPIO())
}

// ClearGPIO drives the LED pin low
func (d *Driver) ClearGPIO(ctx context.Context) error {
	return d.expectSuccess(ctx, protocol.ClearGPIO())
}

// PWMOn enables the PWM output
func (d *Driver) PWMOn(ctx context.Context) error {
	return d.expectSuccess(ctx, protocol.PWMOn())
}

// PWMOff disables the PWM output
func (d *Driver) PWMOff(ctx context.Context) error {
	return d.expectSuccess(ctx, protocol.PWMOff())
}

// SetPWMDuty sets the duty cycle in percent. The device rejects values
// above 100.
func (d *Driver) SetPWMDuty(ctx context.Context, percent uint8) error {
	return d.expectSuccess(ctx, protocol.PWMDuty(percent))
}

// SetPWMFrequency retunes the PWM output to hz
func (d *Driver) SetPWMFrequency(ctx context.Context, hz uint32) error {
	return d.expectSuccess(ctx, protocol.PWMFrequency(hz))
}

// GetTime returns the device's millisecond counter
func (d *Driver) GetTime(ctx context.Context) (uint32, error) {
	resp, err := d.exec(ctx, protocol.GetTime())
	if err != nil {
		return 0, err
	}
	if resp.Kind != protocol.ResponseTime {
		return 0, fmt.Errorf("get_time: %w: %s", ErrUnexpectedResponse, resp)
	}
	return resp.Time, nil
}

// GetStatus returns the device's output state
func (d *Driver) GetStatus(ctx context.Context) (protocol.Status, error) {
	resp, err := d.exec(ctx, protocol.GetStatus())
	if err != nil {
		return protocol.Status{}, err
	}
	st, err := protocol.ParseStatus(resp)
	if err != nil {
		return protocol.Status{}, fmt.Errorf("get_status: %w", err)
	}
	return st, nil
}

// Blink toggles the LED count times, holding each level for interval.
// The LED is left off.
func (d *Driver) Blink(ctx context.Context, count int, interval time.Duration) error {
	for i := 0; i < count; i++ {
		if err := d.SetGPIO(ctx); err != nil {
			return err
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
		if err := d.ClearGPIO(ctx); err != nil {
			return err
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
