// Command pwmlink-host drives a pwmlink device from an interactive shell
// or runs a single command given on the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"pwmlink/host/config"
	"pwmlink/host/metrics"
)

var (
	configPath = flag.String("config", "", "Config file (default ./pwmlink.yaml)")
	device     = flag.String("device", "", "Serial device or tcp://host:port, overrides config")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	var m *metrics.DriverMetrics
	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		m = metrics.NewDriverMetrics(reg)
		go serveMetrics(log, cfg.Metrics, reg)
	}

	s := NewShell(cfg, log, m)
	if cfg.Serial.Device != "" {
		if err := s.Connect(""); err != nil {
			return err
		}
	}
	return s.Run(args...)
}

func serveMetrics(log logrus.FieldLogger, cfg config.MetricsConfig, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))

	log.WithField("addr", cfg.Addr).Info("serving metrics")
	err := http.ListenAndServe(cfg.Addr, mux)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server stopped")
	}
}
