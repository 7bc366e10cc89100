package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwmlink/protocol"
)

func TestObserveCommand(t *testing.T) {
	reg := NewRegistry()
	m := NewDriverMetrics(reg)

	m.ObserveCommand(protocol.PWMDuty(50), protocol.Response{Kind: protocol.ResponseSuccess}, ResultOK, 3*time.Millisecond)
	m.ObserveCommand(protocol.PWMDuty(150), protocol.Response{Kind: protocol.ResponseError}, ResultRejected, 2*time.Millisecond)
	m.ObserveCommand(protocol.GetTime(), protocol.Response{Kind: protocol.ResponseTime, Time: 4321}, ResultOK, time.Millisecond)
	m.ObserveCommand(protocol.GetTime(), protocol.Response{}, ResultTimeout, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pwm_duty", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pwm_duty", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("get_time", ResultTimeout)))
	assert.Equal(t, 4321.0, testutil.ToFloat64(m.DeviceMillis))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CommandDuration))

	m.SetConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connected))
	m.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Connected))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewDriverMetrics(reg)
	m.ObserveCommand(protocol.PWMOn(), protocol.Response{}, ResultOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `pwmlink_commands_total{cmd="pwm_on",result="ok"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
