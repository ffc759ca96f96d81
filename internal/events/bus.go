// Package events carries device lifecycle events between the provisioner,
// the Wi-Fi station and the connectivity supervisor, and keeps a bounded
// activity log for the status API.
package events

import (
	"sync"

	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Each subscriber gets its own
// delivery goroutine and sees events in publish order; subscribers of
// different types are not ordered against each other, use SubscribeOrdered
// for that.
type Bus struct {
	dispatcher *event.Dispatcher

	mu     sync.Mutex
	unsubs []func()
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to all subscribers of its concrete type and to the
// ordered subscribers
func (b *Bus) Publish(ev Event) {
	if l, ok := ev.(Lifecycle); ok {
		ev = l.Event
	}
	if ev == nil {
		return
	}
	b.publishTyped(ev)
	event.Publish(b.dispatcher, Lifecycle{Event: ev})
}

func (b *Bus) publishTyped(ev Event) {
	switch e := ev.(type) {
	case ProvisioningStarted:
		event.Publish(b.dispatcher, e)
	case CredentialsReceived:
		event.Publish(b.dispatcher, e)
	case CredentialFailure:
		event.Publish(b.dispatcher, e)
	case CredentialSuccess:
		event.Publish(b.dispatcher, e)
	case ProvisioningEnded:
		event.Publish(b.dispatcher, e)
	case StationStarted:
		event.Publish(b.dispatcher, e)
	case StationDisconnected:
		event.Publish(b.dispatcher, e)
	case IPAcquired:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler; its parameter type selects the events it
// receives. Returns an unsubscribe function. Unknown handler types get a
// no-op unsubscribe.
func (b *Bus) Subscribe(handler any) func() {
	unsub := b.subscribe(handler)

	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsub)
	b.mu.Unlock()

	return unsub
}

// SubscribeOrdered registers handler for every lifecycle event. All events
// reach it on one goroutine in publish order.
func (b *Bus) SubscribeOrdered(handler func(Event)) func() {
	return b.Subscribe(func(l Lifecycle) { handler(l.Event) })
}

func (b *Bus) subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ProvisioningStarted):
		return event.Subscribe(b.dispatcher, h)
	case func(CredentialsReceived):
		return event.Subscribe(b.dispatcher, h)
	case func(CredentialFailure):
		return event.Subscribe(b.dispatcher, h)
	case func(CredentialSuccess):
		return event.Subscribe(b.dispatcher, h)
	case func(ProvisioningEnded):
		return event.Subscribe(b.dispatcher, h)
	case func(StationStarted):
		return event.Subscribe(b.dispatcher, h)
	case func(StationDisconnected):
		return event.Subscribe(b.dispatcher, h)
	case func(IPAcquired):
		return event.Subscribe(b.dispatcher, h)
	case func(Lifecycle):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Close unsubscribes every handler registered through this bus
func (b *Bus) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
