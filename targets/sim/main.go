//go:build !tinygo

// Command sim runs the device firmware core on the host with simulated
// peripherals and serves its UART over TCP. Point the host at it with
// -device tcp://127.0.0.1:7878.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pwmlink/core"
	"pwmlink/host/config"
)

const (
	ledPin     = core.GPIOPin(13)
	reloadBits = 32
	idleSleep  = 200 * time.Microsecond
)

var (
	configPath = flag.String("config", "", "Config file (default ./pwmlink.yaml)")
	addr       = flag.String("addr", "", "Listen address, overrides config")
	debug      = flag.Bool("debug", false, "Log firmware debug output")
)

// sim bundles the device with its simulated peripherals
type sim struct {
	dev  *core.Device
	uart *core.SimUART
	gpio *core.SimGPIO
	regs *core.SimTimerRegisters
	log  logrus.FieldLogger
}

func newSim(clock uint32, log logrus.FieldLogger) (*sim, error) {
	s := &sim{
		uart: core.NewSimUART(),
		gpio: core.NewSimGPIO(),
		regs: core.NewSimTimerRegisters(),
		log:  log,
	}
	s.regs.EnableClock()

	dev, err := core.NewDevice(core.DeviceConfig{
		UART:       s.uart,
		GPIO:       s.gpio,
		LEDPin:     ledPin,
		PWM:        core.NewTimerPWM(s.regs),
		TimerClock: clock,
		ReloadBits: reloadBits,
	})
	if err != nil {
		return nil, err
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	s.uart.Attach(dev)
	s.dev = dev
	return s, nil
}

// run drives the tick interrupt and the main loop until ctx is done
func (s *sim) run(ctx context.Context) {
	go func() {
		t := time.NewTicker(time.Second / core.TickRate)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.dev.OnTick()
			}
		}
	}()

	for ctx.Err() == nil {
		if !s.dev.Poll() {
			time.Sleep(idleSleep)
		}
	}
}

// serve attaches one client to the UART until it disconnects
func (s *sim) serve(ctx context.Context, conn net.Conn) {
	log := s.log.WithField("remote", conn.RemoteAddr().String())
	log.Info("client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := s.uart.Serve(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Debug("transmit stopped")
		}
		cancel()
	}()

	err := s.uart.Receive(conn)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Warn("receive failed")
	}
	cancel()
	<-served
	// the next client starts clean: no reply in flight, no half line
	s.uart.Flush()
	if n := s.dev.DiscardPartial(); n > 0 {
		log.WithField("bytes", n).Debug("discarded partial line")
	}

	st, ps := s.dev.Stats()
	log.WithFields(logrus.Fields{
		"rx_lines":      st.RxLines,
		"rx_dropped":    st.RxDropped,
		"parse_errors":  st.ParseErrors,
		"command_error": st.CommandErrors,
		"tx_frames":     st.TxFrames,
		"pool_acquired": ps.Acquired,
		"pool_released": ps.Released,
		"uart_overruns": s.uart.Overruns(),
	}).Info("client disconnected")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Simulator.Addr = *addr
	}
	if *debug {
		cfg.Simulator.Debug = true
		cfg.Logging.Level = "debug"
	}

	log, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	if cfg.Simulator.Debug {
		fw := log.WithField("src", "firmware")
		core.SetDebugWriter(func(msg string) { fw.Debug(msg) })
		core.SetDebugEnabled(true)
	}

	s, err := newSim(cfg.Simulator.TimerClock, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Simulator.Addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go s.run(ctx)

	log.WithFields(logrus.Fields{
		"addr":  ln.Addr().String(),
		"clock": cfg.Simulator.TimerClock,
	}).Info("simulator listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		s.serve(ctx, conn)
	}

	if cfg.Simulator.Debug {
		core.DumpEvents()
	}
	return nil
}
