package command

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/events"
	"beacon/internal/metrics"
)

const testDeviceTopic = "/devices/esp_device_A10BFE/command"

type fakeLED struct {
	calls []string
	err   error
}

func (f *fakeLED) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeLED) TurnOnSingle() error { return f.record("onSingle") }
func (f *fakeLED) TurnOffSingle() error { return f.record("offSingle") }
func (f *fakeLED) TurnOnRGB() error { return f.record("onRGB") }
func (f *fakeLED) TurnOffRGB() error { return f.record("offRGB") }

type fakeCreds struct {
	erased int
	err    error
}

func (f *fakeCreds) Erase() error {
	f.erased++
	return f.err
}

func newTestRouter(opts Options) (*Router, *fakeLED, *fakeCreds) {
	led := &fakeLED{}
	creds := &fakeCreds{}
	return NewRouter(testDeviceTopic, led, creds, opts, nil), led, creds
}

func TestRouteTopics(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    Result
		calls   []string
	}{
		{name: "default turn on", topic: DefaultTopic, payload: "turn on", want: ResultOK, calls: []string{"onSingle"}},
		{name: "default turn off", topic: DefaultTopic, payload: "turn off", want: ResultOK, calls: []string{"offSingle"}},
		{name: "device on", topic: testDeviceTopic, payload: "on", want: ResultOK, calls: []string{"onSingle"}},
		{name: "device off", topic: testDeviceTopic, payload: "off", want: ResultOK, calls: []string{"offSingle"}},
		{name: "device onRGB", topic: testDeviceTopic, payload: "onRGB", want: ResultOK, calls: []string{"onRGB"}},
		{name: "device offRGB", topic: testDeviceTopic, payload: "offRGB", want: ResultOK, calls: []string{"offRGB"}},
		{name: "device keyword on default topic", topic: DefaultTopic, payload: "onRGB", want: ResultUnknown},
		{name: "default keyword on device topic", topic: testDeviceTopic, payload: "turn on", want: ResultUnknown},
		{name: "case sensitive", topic: testDeviceTopic, payload: "ON", want: ResultUnknown},
		{name: "no trimming", topic: testDeviceTopic, payload: "on\n", want: ResultUnknown},
		{name: "empty payload", topic: testDeviceTopic, payload: "", want: ResultUnknown},
		{name: "other topic", topic: "/devices/other/command", payload: "on", want: ResultIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, led, _ := newTestRouter(Options{})

			got := r.Route(tt.topic, []byte(tt.payload))

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.calls, led.calls)
		})
	}
}

func TestRouteForgetNetwork(t *testing.T) {
	for _, keyword := range []string{"deleteNVS", "changeWifi"} {
		t.Run(keyword, func(t *testing.T) {
			r, led, creds := newTestRouter(Options{})

			assert.Equal(t, ResultOK, r.Route(testDeviceTopic, []byte(keyword)))
			assert.Equal(t, 1, creds.erased)
			assert.Empty(t, led.calls)
		})
	}
}

func TestRouteActionFailureIsNotPropagated(t *testing.T) {
	r, led, creds := newTestRouter(Options{})
	led.err = errors.New("strip unavailable")
	creds.err = errors.New("flash busy")

	assert.Equal(t, ResultError, r.Route(testDeviceTopic, []byte("onRGB")))
	assert.Equal(t, ResultError, r.Route(testDeviceTopic, []byte("deleteNVS")))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 31), Truncate([]byte(long)))

	assert.Equal(t, "on", Truncate([]byte("on\x00garbage")))
	assert.Equal(t, "", Truncate([]byte("\x00on")))
	assert.Equal(t, "", Truncate(nil))

	exact := strings.Repeat("y", 31)
	assert.Equal(t, exact, Truncate([]byte(exact)))
}

func TestRouteTruncatesBeforeMatching(t *testing.T) {
	r, led, _ := newTestRouter(Options{})

	// A known keyword followed by padding past the buffer still cannot match
	payload := append([]byte("onRGB"), bytes.Repeat([]byte(" "), 40)...)
	assert.Equal(t, ResultUnknown, r.Route(testDeviceTopic, payload))

	// NUL-terminated keyword matches
	assert.Equal(t, ResultOK, r.Route(testDeviceTopic, []byte("onRGB\x00\x00\x00")))
	assert.Equal(t, []string{"onRGB"}, led.calls)
}

func TestRouteRecordsActivity(t *testing.T) {
	store := events.NewStore(10)
	r, _, _ := newTestRouter(Options{Activity: store, Metrics: metrics.New()})

	r.Route(testDeviceTopic, []byte("on"))
	r.Route(DefaultTopic, []byte("dance"))
	r.Route("/elsewhere", []byte("on"))

	entries := store.GetLast(10)
	require.Len(t, entries, 2)
	assert.Equal(t, events.ActivityCommand, entries[0].Type)
	assert.Equal(t, DefaultTopic, entries[0].Source)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "dance: unknown", entries[0].Details)
	assert.True(t, entries[1].Success)
}

func TestRouteLogsIgnoredTopic(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter(testDeviceTopic, &fakeLED{}, &fakeCreds{}, Options{}, log.New(&buf, "", 0))

	r.Route("/elsewhere", []byte("on"))
	assert.Contains(t, buf.String(), "[Router] Ignoring message on unhandled topic /elsewhere")
}

func TestDeviceCommands(t *testing.T) {
	assert.Equal(t, []string{"on", "off", "onRGB", "offRGB", "deleteNVS", "changeWifi"}, DeviceCommands())
}
