// Package metrics exposes Prometheus counters and gauges for command
// routing, the LED subsystem and the provisioning lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "beacon"

// LED modes reported by the mode gauge
var ledModes = []string{"off", "single", "rgb"}

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	ledMode         *prometheus.GaugeVec
	frames          prometheus.Counter
	credFailures    *prometheus.CounterVec
	provResets      prometheus.Counter
	connectAttempts prometheus.Counter
	connected       prometheus.Gauge
}

// New creates the metric set and registers it with a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "commands_total",
			Help:      "Commands routed, by topic kind and result",
		}, []string{"topic", "result"}),
		ledMode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "led",
			Name:      "mode",
			Help:      "1 for the active LED mode, 0 otherwise",
		}, []string{"mode"}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "led",
			Name:      "frames_total",
			Help:      "Animation frames written to the strip",
		}),
		credFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "credential_failures_total",
			Help:      "Failed attempts to join with received credentials",
		}, []string{"reason"}),
		provResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "resets_total",
			Help:      "Provisioner resets after reaching the retry limit",
		}),
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "station",
			Name:      "connect_attempts_total",
			Help:      "Station connect requests",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "station",
			Name:      "connected",
			Help:      "1 while the station holds an IP address",
		}),
	}

	m.SetLEDMode("off")
	return m
}

// ObserveCommand counts one routed command
func (m *Metrics) ObserveCommand(topic, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(topic, result).Inc()
}

// SetLEDMode marks mode as the active LED mode
func (m *Metrics) SetLEDMode(mode string) {
	if m == nil {
		return
	}
	for _, name := range ledModes {
		v := 0.0
		if name == mode {
			v = 1
		}
		m.ledMode.WithLabelValues(name).Set(v)
	}
}

// IncFrames counts one animation frame
func (m *Metrics) IncFrames() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

// ObserveCredentialFailure counts a failed join
func (m *Metrics) ObserveCredentialFailure(reason string) {
	if m == nil {
		return
	}
	m.credFailures.WithLabelValues(reason).Inc()
}

// IncProvisioningReset counts a provisioner reset
func (m *Metrics) IncProvisioningReset() {
	if m == nil {
		return
	}
	m.provResets.Inc()
}

// IncConnectAttempt counts a station connect request
func (m *Metrics) IncConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// SetConnected records whether the station holds an address
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
