package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakeBroker struct {
	mu         sync.Mutex
	subs       map[string]MessageHandler
	subCalls   []string
	pubs       []published
	publishErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string]MessageHandler)}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = handler
	b.subCalls = append(b.subCalls, topic)
	return nil
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pubs = append(b.pubs, published{topic: topic, qos: qos, retained: retained, payload: payload})
	return b.publishErr
}

func (b *fakeBroker) deliver(topic string, payload []byte) {
	b.mu.Lock()
	h := b.subs[topic]
	b.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

func (b *fakeBroker) publishes() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.pubs...)
}

const testCommandTopic = "/devices/esp_device_A10BFE/command"

func TestSessionSubscribesOnEveryConnect(t *testing.T) {
	broker := newFakeBroker()
	s := NewSession(broker, SessionConfig{
		Topics:       []string{"/speech/command", testCommandTopic},
		Announcement: testCommandTopic,
	}, func(string, []byte) {}, nil)

	s.HandleConnect()
	s.HandleConnect()

	assert.Equal(t, []string{"/speech/command", testCommandTopic, "/speech/command", testCommandTopic}, broker.subCalls)
}

func TestSessionAnnouncesOnce(t *testing.T) {
	broker := newFakeBroker()
	s := NewSession(broker, SessionConfig{
		Topics:       []string{testCommandTopic},
		Announcement: testCommandTopic,
	}, func(string, []byte) {}, nil)

	s.HandleConnect()
	s.HandleConnect()
	s.HandleConnect()

	pubs := broker.publishes()
	require.Len(t, pubs, 1)
	assert.Equal(t, AnnounceTopic, pubs[0].topic)
	assert.Equal(t, byte(0), pubs[0].qos)
	assert.False(t, pubs[0].retained)
	assert.Equal(t, testCommandTopic, pubs[0].payload)
}

func TestSessionAnnounceFailureIsNotRetried(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = errors.New("not connected")
	s := NewSession(broker, SessionConfig{Announcement: testCommandTopic}, func(string, []byte) {}, nil)

	s.HandleConnect()
	broker.publishErr = nil
	s.HandleConnect()

	assert.Len(t, broker.publishes(), 1)
}

func TestSessionForwardsMessages(t *testing.T) {
	broker := newFakeBroker()

	var gotTopic string
	var gotPayload []byte
	s := NewSession(broker, SessionConfig{Topics: []string{testCommandTopic}}, func(topic string, payload []byte) {
		gotTopic = topic
		gotPayload = payload
	}, nil)

	s.HandleConnect()
	broker.deliver(testCommandTopic, []byte("onRGB"))

	assert.Equal(t, testCommandTopic, gotTopic)
	assert.Equal(t, []byte("onRGB"), gotPayload)
}

func TestSessionOnReady(t *testing.T) {
	s := NewSession(newFakeBroker(), SessionConfig{}, func(string, []byte) {}, nil)

	ready := 0
	s.OnReady(func() { ready++ })
	s.HandleConnect()
	s.HandleConnect()

	assert.Equal(t, 2, ready)
}

func TestDiscoveryPublish(t *testing.T) {
	broker := newFakeBroker()
	d := NewDiscovery(broker, "esp_device_A10BFE", testCommandTopic, "/devices/esp_device_A10BFE/state", DefaultSwitches, nil)

	require.NoError(t, d.Publish())

	pubs := broker.publishes()
	require.Len(t, pubs, 2)
	assert.Equal(t, "homeassistant/switch/esp_device_A10BFE/led/config", pubs[0].topic)
	assert.True(t, pubs[0].retained)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(pubs[1].payload.([]byte), &cfg))
	assert.Equal(t, "esp_device_A10BFE_rgb", cfg["unique_id"])
	assert.Equal(t, testCommandTopic, cfg["command_topic"])
	assert.Equal(t, "onRGB", cfg["payload_on"])
	assert.Equal(t, "offRGB", cfg["payload_off"])
	assert.Equal(t, "{{ 'ON' if value_json.mode == 'rgb' else 'OFF' }}", cfg["value_template"])
}

func TestDiscoveryPublishReportsFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = ErrNotConnected
	d := NewDiscovery(broker, "esp_device_A10BFE", testCommandTopic, "state", DefaultSwitches, nil)

	assert.ErrorIs(t, d.Publish(), ErrNotConnected)
	assert.Len(t, broker.publishes(), 2, "remaining switches still attempted")
}

func TestStatePublisherCoalesces(t *testing.T) {
	broker := newFakeBroker()

	var mu sync.Mutex
	mode := "off"
	p := NewStatePublisher(broker, "/devices/x/state", func() interface{} {
		mu.Lock()
		defer mu.Unlock()
		return map[string]string{"mode": mode}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mu.Lock()
	mode = "rgb"
	mu.Unlock()
	p.Notify()
	p.Notify()
	p.Notify()

	go p.Run(ctx)

	require.Eventually(t, func() bool { return len(broker.publishes()) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	pubs := broker.publishes()
	require.Len(t, pubs, 1)
	assert.Equal(t, "/devices/x/state", pubs[0].topic)
	assert.True(t, pubs[0].retained)
	assert.JSONEq(t, `{"mode":"rgb"}`, string(pubs[0].payload.([]byte)))
}

func TestNewClientValidation(t *testing.T) {
	_, err := New(Config{ClientID: "esp_device_A10BFE"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Broker: "tcp://localhost:1883"}, nil)
	assert.Error(t, err)

	c, err := New(Config{Broker: "tcp://localhost:1883", ClientID: "esp_device_A10BFE"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultKeepAlive, c.GetConfig().KeepAlive)
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish("t", 0, false, "x"), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("t", 0, func(string, []byte) {}), ErrNotConnected)
}

func TestClientUnreachableBrokerIsNotConnected(t *testing.T) {
	c, err := New(Config{
		Broker:    "tcp://127.0.0.1:1",
		ClientID:  "esp_device_A10BFE",
		KeepAlive: 3 * time.Second,
	}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Connect()
	}()
	defer func() {
		c.Disconnect()
		<-done
	}()

	// Let Connect enter its wait
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	connected := c.IsConnected()
	elapsed := time.Since(start)

	assert.False(t, connected)
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.ErrorIs(t, c.Publish("/devices/notification", 0, false, "x"), ErrNotConnected)
}
