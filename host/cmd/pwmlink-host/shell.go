package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/sirupsen/logrus"

	"pwmlink/host/config"
	"pwmlink/host/driver"
	"pwmlink/host/metrics"
)

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	defaultBlinkCount    = 5
	defaultBlinkInterval = 500 * time.Millisecond
)

var errNotConnected = errors.New("not connected")

// Shell holds the interactive session: at most one open device
type Shell struct {
	Shell   *ishell.Shell
	Config  *config.Config
	Log     logrus.FieldLogger
	Metrics *metrics.DriverMetrics

	drv    *driver.Driver
	device string
}

// NewShell creates a shell with every command registered
func NewShell(cfg *config.Config, log logrus.FieldLogger, m *metrics.DriverMetrics) *Shell {
	s := &Shell{
		Shell:   ishell.New(),
		Config:  cfg,
		Log:     log,
		Metrics: m,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

func shellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// mustBeConnected wraps a command that needs an open device
func mustBeConnected(fn func(c *ishell.Context, d *driver.Driver)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := shellFrom(c)
		if s.drv == nil {
			c.Err(errNotConnected)
			return
		}
		fn(c, s.drv)
	}
}

// Connect opens device, or the configured device when empty
func (s *Shell) Connect(device string) error {
	sc := s.Config.Serial
	if device != "" {
		sc.Device = device
	}
	portCfg, err := sc.Port()
	if err != nil {
		return err
	}

	opts := []driver.Option{
		driver.WithLogger(s.Log.WithField("device", portCfg.Device)),
		driver.WithTimeout(s.Config.Driver.Timeout),
	}
	if s.Metrics != nil {
		opts = append(opts, driver.WithObserver(s.Metrics))
	}
	drv, err := driver.Open(portCfg, opts...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", portCfg.Device, err)
	}

	s.Disconnect()
	s.drv = drv
	s.device = portCfg.Device
	if s.Metrics != nil {
		s.Metrics.SetConnected(true)
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.device))
	s.Log.WithField("device", s.device).Info("connected")
	return nil
}

// Disconnect closes the open device, if any
func (s *Shell) Disconnect() {
	if s.drv == nil {
		return
	}
	if err := s.drv.Close(); err != nil {
		s.Log.WithError(err).Warn("close failed")
	}
	s.Log.WithField("device", s.device).Info("disconnected")
	s.drv = nil
	s.device = ""
	if s.Metrics != nil {
		s.Metrics.SetConnected(false)
	}
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Run executes args as one command, or starts the interactive shell
func (s *Shell) Run(args ...string) error {
	defer s.Disconnect()
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Run()
	return nil
}

func argUint(c *ishell.Context, i int, bits int) (uint64, error) {
	if len(c.Args) <= i {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.ParseUint(c.Args[i], 10, bits)
}

func ok(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func onOff(c *ishell.Context, on, off func(context.Context) error) {
	if len(c.Args) != 1 {
		c.Err(fmt.Errorf("expected on or off"))
		return
	}
	switch c.Args[0] {
	case "on", "1":
		ok(c, on(context.Background()))
	case "off", "0":
		ok(c, off(context.Background()))
	default:
		c.Err(fmt.Errorf("expected on or off, got %q", c.Args[0]))
	}
}

var (
	connectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE] open the device (default from config)",
		Func: func(c *ishell.Context) {
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if err := shellFrom(c).Connect(device); err != nil {
				c.Err(err)
			}
		},
	}

	disconnectCmd = ishell.Cmd{
		Name: "disconnect",
		Help: "close the device",
		Func: func(c *ishell.Context) {
			shellFrom(c).Disconnect()
		},
	}

	gpioCmd = ishell.Cmd{
		Name:    "gpio",
		Aliases: []string{"led"},
		Help:    "on|off drive the LED pin",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			onOff(c, d.SetGPIO, d.ClearGPIO)
		}),
	}

	pwmCmd = ishell.Cmd{
		Name: "pwm",
		Help: "on|off enable or disable the PWM output",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			onOff(c, d.PWMOn, d.PWMOff)
		}),
	}

	dutyCmd = ishell.Cmd{
		Name: "duty",
		Help: "PERCENT set the PWM duty cycle (0-100)",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			v, err := argUint(c, 0, 8)
			if err != nil {
				c.Err(err)
				return
			}
			ok(c, d.SetPWMDuty(context.Background(), uint8(v)))
		}),
	}

	freqCmd = ishell.Cmd{
		Name:    "freq",
		Aliases: []string{"frequency"},
		Help:    "HZ set the PWM frequency",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			v, err := argUint(c, 0, 32)
			if err != nil {
				c.Err(err)
				return
			}
			ok(c, d.SetPWMFrequency(context.Background(), uint32(v)))
		}),
	}

	timeCmd = ishell.Cmd{
		Name: "time",
		Help: "read the device millisecond counter",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			ms, err := d.GetTime(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d ms (%v)\n", ms, time.Duration(ms)*time.Millisecond)
		}),
	}

	statusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "show LED and PWM state",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			st, err := d.GetStatus(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("led=%t pwm=%t duty=%d%% period=%d\n",
				st.LEDEnabled, st.PWMEnabled, st.PWMDutyCycle, st.PWMPeriod)
		}),
	}

	blinkCmd = ishell.Cmd{
		Name: "blink",
		Help: "[COUNT] [MS] toggle the LED",
		Func: mustBeConnected(func(c *ishell.Context, d *driver.Driver) {
			count, interval := defaultBlinkCount, defaultBlinkInterval
			if len(c.Args) > 0 {
				v, err := argUint(c, 0, 16)
				if err != nil {
					c.Err(err)
					return
				}
				count = int(v)
			}
			if len(c.Args) > 1 {
				v, err := argUint(c, 1, 32)
				if err != nil {
					c.Err(err)
					return
				}
				interval = time.Duration(v) * time.Millisecond
			}
			ok(c, d.Blink(context.Background(), count, interval))
		}),
	}

	commands = []*ishell.Cmd{
		&connectCmd,
		&disconnectCmd,
		&gpioCmd,
		&pwmCmd,
		&dutyCmd,
		&freqCmd,
		&timeCmd,
		&statusCmd,
		&blinkCmd,
	}
)
