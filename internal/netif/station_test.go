package netif

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/credentials"
	"beacon/internal/events"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

type switchableAddrs struct {
	mu   sync.Mutex
	addr string
}

func (a *switchableAddrs) set(addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addr = addr
}

func (a *switchableAddrs) source(string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addr == "" {
		return nil
	}
	return []string{a.addr}
}

func newTestStation(t *testing.T) (*HostStation, *recordingBus, *switchableAddrs) {
	t.Helper()

	bus := &recordingBus{}
	addrs := &switchableAddrs{}
	s := NewHostStation(bus, Options{PollInterval: 5 * time.Millisecond, Addrs: addrs.source}, nil)
	return s, bus, addrs
}

func contains(evs []events.Event, want events.Event) bool {
	for _, ev := range evs {
		if ev == want {
			return true
		}
	}
	return false
}

func TestConnectBeforeStart(t *testing.T) {
	s, _, _ := newTestStation(t)
	assert.ErrorIs(t, s.Connect(), ErrNotStarted)
}

func TestStartTwice(t *testing.T) {
	s, bus, _ := newTestStation(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)
	assert.Equal(t, events.StationStarted{}, bus.published()[0])
}

func TestConnectWithAddress(t *testing.T) {
	s, bus, addrs := newTestStation(t)
	addrs.set("192.168.1.20")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Connect())

	require.Eventually(t, func() bool {
		return contains(bus.published(), events.IPAcquired{Addr: "192.168.1.20"})
	}, time.Second, time.Millisecond)
	assert.Equal(t, "192.168.1.20", s.Addr())
}

func TestConnectWhileConnectedReportsAgain(t *testing.T) {
	s, bus, addrs := newTestStation(t)
	addrs.set("192.168.1.20")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Connect())

	count := func() int {
		n := 0
		for _, ev := range bus.published() {
			if ev == (events.IPAcquired{Addr: "192.168.1.20"}) {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool { return count() >= 1 }, time.Second, time.Millisecond)
	seen := count()

	require.NoError(t, s.Connect())
	require.Eventually(t, func() bool { return count() > seen }, time.Second, time.Millisecond)
}

func TestConnectWithoutAddressReportsDisconnect(t *testing.T) {
	s, bus, _ := newTestStation(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Connect())

	require.Eventually(t, func() bool {
		return contains(bus.published(), events.StationDisconnected{})
	}, time.Second, time.Millisecond)
}

func TestAddressLossAndRecovery(t *testing.T) {
	s, bus, addrs := newTestStation(t)
	addrs.set("10.0.0.2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	require.Eventually(t, func() bool {
		return contains(bus.published(), events.IPAcquired{Addr: "10.0.0.2"})
	}, time.Second, time.Millisecond)

	addrs.set("")
	require.Eventually(t, func() bool {
		return contains(bus.published(), events.StationDisconnected{})
	}, time.Second, time.Millisecond)
	assert.Empty(t, s.Addr())

	addrs.set("10.0.0.3")
	require.Eventually(t, func() bool {
		return contains(bus.published(), events.IPAcquired{Addr: "10.0.0.3"})
	}, time.Second, time.Millisecond)
}

func TestConfigureValidates(t *testing.T) {
	s, _, _ := newTestStation(t)

	assert.ErrorIs(t, s.Configure(credentials.Credentials{}), credentials.ErrInvalidCredentials)
	assert.NoError(t, s.Configure(credentials.Credentials{SSID: "home", Password: "pw"}))
}

func TestLocalIPv4SkipsUnknownInterface(t *testing.T) {
	assert.Empty(t, LocalIPv4("definitely-not-an-interface0"))
}
