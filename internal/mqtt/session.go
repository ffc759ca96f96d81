package mqtt

import (
	"log"
	"sync"
)

// AnnounceTopic receives the device command topic once per process
const AnnounceTopic = "/devices/notification"

// Broker is the subset of Client used by a Session
type Broker interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Publish(topic string, qos byte, retained bool, payload interface{}) error
}

// SessionConfig holds the topics a session works with
type SessionConfig struct {
	// Topics are subscribed at QoS 0 on every connect
	Topics []string
	// Announcement is published to AnnounceTopic after the first connect
	Announcement string
}

// Session subscribes the command topics on every (re)connect, forwards
// messages to the handler and announces the device exactly once.
type Session struct {
	broker   Broker
	cfg      SessionConfig
	handle   MessageHandler
	announce sync.Once
	onReady  []func()
	logger   *log.Logger
}

// NewSession creates a session; wire HandleConnect to the client's OnConnect
func NewSession(broker Broker, cfg SessionConfig, handle MessageHandler, logger *log.Logger) *Session {
	return &Session{
		broker: broker,
		cfg:    cfg,
		handle: handle,
		logger: logger,
	}
}

// OnReady registers fn to run after the subscriptions of every connect
func (s *Session) OnReady(fn func()) {
	s.onReady = append(s.onReady, fn)
}

// HandleConnect runs after every successful connect
func (s *Session) HandleConnect() {
	for _, topic := range s.cfg.Topics {
		if err := s.broker.Subscribe(topic, 0, s.onMessage); err != nil {
			s.logf("Failed to subscribe to %s: %v", topic, err)
		}
	}

	s.announce.Do(func() {
		if err := s.broker.Publish(AnnounceTopic, 0, false, s.cfg.Announcement); err != nil {
			s.logf("Failed to announce device: %v", err)
			return
		}
		s.logf("Published command topic to %s: %s", AnnounceTopic, s.cfg.Announcement)
	})

	for _, fn := range s.onReady {
		fn()
	}
}

func (s *Session) onMessage(topic string, payload []byte) {
	s.logf("Message on %s (%d bytes)", topic, len(payload))
	s.handle(topic, payload)
}

func (s *Session) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[MQTT] "+format, v...)
	}
}
