package mqtt

import (
	"context"
	"encoding/json"
	"log"
)

// StatePublisher publishes a JSON state document whenever it is notified.
// Notifications coalesce: a burst of changes produces one publish of the
// latest state.
type StatePublisher struct {
	broker Broker
	topic  string
	source func() interface{}
	notify chan struct{}
	logger *log.Logger
}

// NewStatePublisher creates a publisher of source() to topic
func NewStatePublisher(broker Broker, topic string, source func() interface{}, logger *log.Logger) *StatePublisher {
	return &StatePublisher{
		broker: broker,
		topic:  topic,
		source: source,
		notify: make(chan struct{}, 1),
		logger: logger,
	}
}

// Notify schedules a publish. It never blocks.
func (p *StatePublisher) Notify() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run publishes on every notification until ctx is done
func (p *StatePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
			if err := p.PublishNow(); err != nil && p.logger != nil {
				p.logger.Printf("[MQTT Publisher] Failed to publish state: %v", err)
			}
		}
	}
}

// PublishNow publishes the current state as a retained message
func (p *StatePublisher) PublishNow() error {
	payload, err := json.Marshal(p.source())
	if err != nil {
		return err
	}
	return p.broker.Publish(p.topic, 0, true, payload)
}
