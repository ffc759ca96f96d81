// Package command maps command strings received on MQTT topics to LED and
// credential actions.
package command

import (
	"bytes"
	"fmt"
	"log"

	"beacon/internal/events"
	"beacon/internal/metrics"
)

const (
	// DefaultTopic carries voice-assistant style commands
	DefaultTopic = "/speech/command"

	// MaxCommandLength is the command buffer size; one byte is reserved
	// for the terminator so at most MaxCommandLength-1 bytes are kept.
	MaxCommandLength = 32
)

// Result is the outcome of routing one message
type Result string

const (
	ResultOK      Result = "ok"
	ResultError   Result = "error"
	ResultUnknown Result = "unknown"
	ResultIgnored Result = "ignored"
)

// LED is the part of the LED subsystem the router drives
type LED interface {
	TurnOnSingle() error
	TurnOffSingle() error
	TurnOnRGB() error
	TurnOffRGB() error
}

// NetworkForgetter erases the stored Wi-Fi credentials
type NetworkForgetter interface {
	Erase() error
}

type entry struct {
	keyword string
	run     func(r *Router) error
}

var defaultTable = []entry{
	{keyword: "turn on", run: func(r *Router) error { return r.led.TurnOnSingle() }},
	{keyword: "turn off", run: func(r *Router) error { return r.led.TurnOffSingle() }},
}

var deviceTable = []entry{
	{keyword: "on", run: func(r *Router) error { return r.led.TurnOnSingle() }},
	{keyword: "off", run: func(r *Router) error { return r.led.TurnOffSingle() }},
	{keyword: "onRGB", run: func(r *Router) error { return r.led.TurnOnRGB() }},
	{keyword: "offRGB", run: func(r *Router) error { return r.led.TurnOffRGB() }},
	{keyword: "deleteNVS", run: (*Router).forgetNetwork},
	{keyword: "changeWifi", run: (*Router).forgetNetwork},
}

// DeviceCommands lists the keywords accepted on the device topic
func DeviceCommands() []string {
	keywords := make([]string, len(deviceTable))
	for i, e := range deviceTable {
		keywords[i] = e.keyword
	}
	return keywords
}

// Options holds optional recorders
type Options struct {
	Activity *events.Store
	Metrics  *metrics.Metrics
}

// Router dispatches commands by topic. It holds no mutable state and is
// safe for concurrent use.
type Router struct {
	deviceTopic string
	led         LED
	creds       NetworkForgetter
	activity    *events.Store
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewRouter creates a router for the given device command topic
func NewRouter(deviceTopic string, led LED, creds NetworkForgetter, opts Options, logger *log.Logger) *Router {
	return &Router{
		deviceTopic: deviceTopic,
		led:         led,
		creds:       creds,
		activity:    opts.Activity,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// DeviceTopic returns the device-specific command topic
func (r *Router) DeviceTopic() string {
	return r.deviceTopic
}

// Truncate applies the command buffer bound: at most MaxCommandLength-1
// bytes, cut at the first NUL
func Truncate(payload []byte) string {
	if len(payload) > MaxCommandLength-1 {
		payload = payload[:MaxCommandLength-1]
	}
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return string(payload)
}

// Route handles one message. Action failures are logged and reported in
// the result, never returned.
func (r *Router) Route(topic string, payload []byte) Result {
	var table []entry
	var kind string

	switch topic {
	case DefaultTopic:
		table, kind = defaultTable, "default"
	case r.deviceTopic:
		table, kind = deviceTable, "device"
	default:
		r.logf("Ignoring message on unhandled topic %s", topic)
		r.metrics.ObserveCommand("other", string(ResultIgnored))
		return ResultIgnored
	}

	cmd := Truncate(payload)
	r.logf("Received command %q on %s", cmd, topic)

	result := r.dispatch(table, cmd)

	r.metrics.ObserveCommand(kind, string(result))
	if r.activity != nil {
		r.activity.Add(events.ActivityCommand, topic, result == ResultOK, fmt.Sprintf("%s: %s", cmd, result))
	}
	return result
}

func (r *Router) dispatch(table []entry, cmd string) Result {
	for _, e := range table {
		if e.keyword != cmd {
			continue
		}
		if err := e.run(r); err != nil {
			r.logf("Command %q failed: %v", cmd, err)
			return ResultError
		}
		return ResultOK
	}

	r.logf("WARNING: unknown command %q", cmd)
	return ResultUnknown
}

func (r *Router) forgetNetwork() error {
	if err := r.creds.Erase(); err != nil {
		return fmt.Errorf("failed to erase wifi credentials: %w", err)
	}
	r.logf("Wi-Fi credentials erased")
	return nil
}

func (r *Router) logf(format string, v ...interface{}) {
	if r.logger != nil {
		r.logger.Printf("[Router] "+format, v...)
	}
}
