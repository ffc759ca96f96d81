package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCommand(t *testing.T) {
	m := New()

	m.ObserveCommand("device", "ok")
	m.ObserveCommand("device", "ok")
	m.ObserveCommand("default", "unknown")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("device", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("default", "unknown")))
}

func TestSetLEDModeIsExclusive(t *testing.T) {
	m := New()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledMode.WithLabelValues("off")))

	m.SetLEDMode("rgb")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ledMode.WithLabelValues("off")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ledMode.WithLabelValues("single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledMode.WithLabelValues("rgb")))
}

func TestProvisioningCounters(t *testing.T) {
	m := New()

	m.ObserveCredentialFailure("auth_error")
	m.IncProvisioningReset()
	m.IncConnectAttempt()
	m.IncConnectAttempt()
	m.SetConnected(true)
	m.IncFrames()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.credFailures.WithLabelValues("auth_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.provResets))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCommand("device", "ok")
		m.SetLEDMode("rgb")
		m.IncFrames()
		m.ObserveCredentialFailure("ap_not_found")
		m.IncProvisioningReset()
		m.IncConnectAttempt()
		m.SetConnected(false)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCommand("device", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `beacon_router_commands_total{result="ok",topic="device"} 1`)
	assert.Contains(t, string(body), `beacon_led_mode{mode="off"} 1`)
}
