package driver

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwmlink/core"
	"pwmlink/host/serial"
	"pwmlink/protocol"
)

const testReadTimeout = 20 * time.Millisecond

// startDevice runs a simulated device behind an in-memory pipe and
// returns a driver connected to it
func startDevice(t *testing.T, opts ...Option) (*Driver, *core.Device) {
	t.Helper()

	uart := core.NewSimUART()
	regs := core.NewSimTimerRegisters()
	regs.EnableClock()
	dev, err := core.NewDevice(core.DeviceConfig{
		UART:       uart,
		GPIO:       core.NewSimGPIO(),
		LEDPin:     core.GPIOPin(5),
		PWM:        core.NewTimerPWM(regs),
		TimerClock: 80000000,
		ReloadBits: 32,
	})
	require.NoError(t, err)
	require.NoError(t, dev.Init())
	uart.Attach(dev)

	host, wire := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		uart.Receive(wire)
	}()
	go func() {
		defer wg.Done()
		uart.Serve(ctx, wire)
	}()
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			if !dev.Poll() {
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	d := New(serial.NewNetPort(host, &serial.Config{ReadTimeout: testReadTimeout}), opts...)
	t.Cleanup(func() {
		d.Close()
		cancel()
		wire.Close()
		wg.Wait()
	})
	return d, dev
}

// fakeDevice answers each received line with reply(line). An empty
// reply sends nothing.
func fakeDevice(t *testing.T, reply func(line string) string, opts ...Option) (*Driver, net.Conn) {
	t.Helper()
	host, wire := net.Pipe()
	go func() {
		r := bufio.NewReader(wire)
		for {
			l, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if out := reply(l); out != "" {
				if _, err := wire.Write([]byte(out)); err != nil {
					return
				}
			}
		}
	}()

	d := New(serial.NewNetPort(host, &serial.Config{ReadTimeout: testReadTimeout}), opts...)
	t.Cleanup(func() {
		d.Close()
		wire.Close()
	})
	return d, wire
}

func TestDriverAgainstDevice(t *testing.T) {
	d, dev := startDevice(t)
	ctx := context.Background()

	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.Status{PWMEnabled: true, PWMDutyCycle: 25, PWMPeriod: 79999}, st)

	require.NoError(t, d.SetGPIO(ctx))
	require.NoError(t, d.SetPWMDuty(ctx, 50))
	require.NoError(t, d.SetPWMFrequency(ctx, 2000))
	require.NoError(t, d.PWMOff(ctx))

	st, err = d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.Status{LEDEnabled: true, PWMDutyCycle: 50, PWMPeriod: 39999}, st)

	require.NoError(t, d.PWMOn(ctx))
	require.NoError(t, d.ClearGPIO(ctx))
	assert.Equal(t, core.AppState{PWMPeriod: 39999, PWMDutyCycle: 50, PWMEnabled: true}, dev.State())

	dev.Clock().Set(1234)
	ms, err := d.GetTime(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, uint32(1234))
}

func TestDriverRejectedCommands(t *testing.T) {
	d, dev := startDevice(t)
	ctx := context.Background()

	assert.ErrorIs(t, d.SetPWMDuty(ctx, 101), ErrRejected)
	assert.ErrorIs(t, d.SetPWMFrequency(ctx, 0), ErrRejected)
	assert.Equal(t, uint8(25), dev.State().PWMDutyCycle)

	resp, err := d.Send(ctx, protocol.PWMDuty(200))
	require.NoError(t, err)
	assert.Equal(t, protocol.ResponseError, resp.Kind)
}

func TestDriverUnknownCommandAgainstDevice(t *testing.T) {
	d, _ := startDevice(t)

	// the command set has no encoding for Z; write the frame directly
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.port.Write([]byte("Z\n"))
	require.NoError(t, err)

	select {
	case l := <-d.lines:
		require.NoError(t, l.err)
		assert.Equal(t, "X\n", string(l.data))
		assert.Equal(t, protocol.ResponseError, protocol.ParseResponse(l.data).Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply to Z")
	}
}

func TestDriverBlink(t *testing.T) {
	d, dev := startDevice(t)
	require.NoError(t, d.Blink(context.Background(), 2, time.Millisecond))
	assert.False(t, dev.State().LEDEnabled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Blink(ctx, 1, time.Hour), context.Canceled)
}

func TestDriverInvalidCommand(t *testing.T) {
	d, _ := fakeDevice(t, func(string) string { return "S\n" })
	_, err := d.Send(context.Background(), protocol.Command{})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDriverTimeout(t *testing.T) {
	d, _ := fakeDevice(t, func(string) string { return "" }, WithTimeout(30*time.Millisecond))

	start := time.Now()
	_, err := d.Send(context.Background(), protocol.GetTime())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDriverContextCancel(t *testing.T) {
	d, _ := fakeDevice(t, func(string) string { return "" })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := d.Send(ctx, protocol.GetTime())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDriverClosed(t *testing.T) {
	d, _ := fakeDevice(t, func(string) string { return "S\n" })
	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())

	_, err := d.Send(context.Background(), protocol.SetGPIO())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDriverNoResponse(t *testing.T) {
	var wire net.Conn
	d, wire := fakeDevice(t, func(string) string {
		wire.Close()
		return ""
	})

	_, err := d.Send(context.Background(), protocol.GetTime())
	assert.ErrorIs(t, err, ErrNoResponse)

	_, err = d.Send(context.Background(), protocol.GetTime())
	assert.Error(t, err)
}

func TestDriverDiscardsStaleLines(t *testing.T) {
	replies := make(chan string, 4)
	d, wire := fakeDevice(t, func(string) string { return <-replies })

	_, err := wire.Write([]byte("T99\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.lines) == 1 }, time.Second, time.Millisecond)

	replies <- "T7\n"
	ms, err := d.GetTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ms)
}

func TestDriverFramingErrors(t *testing.T) {
	replies := make(chan string, 4)
	d, _ := fakeDevice(t, func(string) string { return <-replies })
	ctx := context.Background()

	replies <- "\xff\n"
	_, err := d.Send(ctx, protocol.GetTime())
	assert.ErrorIs(t, err, protocol.ErrInvalidFrame)

	replies <- strings.Repeat("A", fifoSize+10)
	_, err = d.Send(ctx, protocol.GetTime())
	assert.ErrorIs(t, err, protocol.ErrFrameTooLong)
}

func TestDriverUnexpectedResponse(t *testing.T) {
	d, _ := fakeDevice(t, func(l string) string {
		if l == "T\n" {
			return "S\n"
		}
		return "T5\n"
	})
	ctx := context.Background()

	_, err := d.GetTime(ctx)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)

	assert.ErrorIs(t, d.PWMOn(ctx), ErrUnexpectedResponse)

	_, err = d.GetStatus(ctx)
	assert.ErrorIs(t, err, protocol.ErrInvalidStatus)
}

type observation struct {
	cmd    protocol.Command
	result string
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveCommand(cmd protocol.Command, resp protocol.Response, result string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{cmd: cmd, result: result})
}

func TestDriverObserver(t *testing.T) {
	rec := &recordingObserver{}
	d, _ := fakeDevice(t, func(l string) string {
		switch l {
		case "P\n":
			return "S\n"
		case "C\n":
			return ""
		}
		return "X\n"
	}, WithObserver(rec), WithTimeout(30*time.Millisecond))
	ctx := context.Background()

	_, err := d.Send(ctx, protocol.SetGPIO())
	require.NoError(t, err)
	_, err = d.Send(ctx, protocol.PWMDuty(200))
	require.NoError(t, err)
	_, err = d.Send(ctx, protocol.ClearGPIO())
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.obs, 3)
	assert.Equal(t, "ok", rec.obs[0].result)
	assert.Equal(t, "rejected", rec.obs[1].result)
	assert.Equal(t, "timeout", rec.obs[2].result)
}
