// Package config loads host settings from a file, PWMLINK_* environment
// variables and defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"pwmlink/host/serial"
)

// EnvPrefix prefixes every environment override, e.g.
// PWMLINK_SERIAL_DEVICE
const EnvPrefix = "PWMLINK"

// SerialConfig holds the port settings
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	DataBits    int           `mapstructure:"dataBits"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stopBits"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// DriverConfig holds request settings
type DriverConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig selects the log level and the text or json formatter
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// SimulatorConfig configures the firmware simulator
type SimulatorConfig struct {
	Addr       string `mapstructure:"addr"`
	TimerClock uint32 `mapstructure:"timerClock"`
	Debug      bool   `mapstructure:"debug"`
}

// Config is the top-level configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Driver    DriverConfig    `mapstructure:"driver"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// Load reads path (YAML, TOML or JSON) and applies environment overrides.
// With an empty path it looks for pwmlink.yaml in the working directory
// and falls back to defaults when there is none.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pwmlink")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := serial.DefaultConfig("")

	v.SetDefault("serial.device", "")
	v.SetDefault("serial.baud", def.Baud)
	v.SetDefault("serial.dataBits", def.DataBits)
	v.SetDefault("serial.parity", string(def.Parity))
	v.SetDefault("serial.stopBits", def.StopBits)
	v.SetDefault("serial.readTimeout", def.ReadTimeout.String())

	v.SetDefault("driver.timeout", "2s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("simulator.addr", "127.0.0.1:7878")
	v.SetDefault("simulator.timerClock", 80000000)
	v.SetDefault("simulator.debug", false)
}

// Port converts the serial section into a port config
func (c SerialConfig) Port() (*serial.Config, error) {
	parity, err := serial.ParseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	cfg := &serial.Config{
		Device:      c.Device,
		Baud:        c.Baud,
		DataBits:    c.DataBits,
		Parity:      parity,
		StopBits:    c.StopBits,
		ReadTimeout: c.ReadTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds a logger writing to out
func (c LoggingConfig) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.Out = out
	log.SetLevel(level)
	switch strings.ToLower(c.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return log, nil
}
