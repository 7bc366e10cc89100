// Package metrics exposes host driver counters to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pwmlink/protocol"
)

// Command results used as the result label
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultTimeout  = "timeout"
)

// NewRegistry creates a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// DriverMetrics counts commands sent through the host driver
type DriverMetrics struct {
	CommandsTotal   *prometheus.CounterVec   // labels: cmd, result
	CommandDuration *prometheus.HistogramVec // labels: cmd
	DeviceMillis    prometheus.Gauge         // last GetTime reading
	Connected       prometheus.Gauge
}

// NewDriverMetrics registers and returns the driver metrics
func NewDriverMetrics(reg prometheus.Registerer) *DriverMetrics {
	m := &DriverMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pwmlink_commands_total",
			Help: "Commands sent to the device by result.",
		}, []string{"cmd", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pwmlink_command_duration_seconds",
			Help:    "Round trip time from command write to reply.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"cmd"}),
		DeviceMillis: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pwmlink_device_millis",
			Help: "Device millisecond counter at the last time query.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pwmlink_connected",
			Help: "1 while a device connection is open.",
		}),
	}
	reg.MustRegister(m.CommandsTotal, m.CommandDuration, m.DeviceMillis, m.Connected)
	return m
}

// ObserveCommand records one request/response round trip
func (m *DriverMetrics) ObserveCommand(cmd protocol.Command, resp protocol.Response, result string, elapsed time.Duration) {
	name := cmd.Kind.String()
	m.CommandsTotal.WithLabelValues(name, result).Inc()
	if result == ResultOK || result == ResultRejected {
		m.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	if resp.Kind == protocol.ResponseTime {
		m.DeviceMillis.Set(float64(resp.Time))
	}
}

// SetConnected flips the connection gauge
func (m *DriverMetrics) SetConnected(on bool) {
	if on {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}
