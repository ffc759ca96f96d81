// Package mqtt connects the device to its MQTT broker, subscribes to the
// command topics and publishes the device announcement and LED state.
package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultKeepAlive is the MQTT session keepalive
const DefaultKeepAlive = 60 * time.Second

// ErrNotConnected is returned for operations on a client that is not connected
var ErrNotConnected = errors.New("MQTT client is not connected")

// MessageHandler receives a message's topic and payload
type MessageHandler func(topic string, payload []byte)

// Config holds MQTT client configuration
type Config struct {
	Broker    string // MQTT broker address (e.g., "tcp://localhost:1883")
	ClientID  string
	Username  string
	Password  string
	UseTLS    bool
	KeepAlive time.Duration
}

// Client wraps the paho client
type Client struct {
	client    paho.Client
	config    Config
	mu        sync.RWMutex
	logger    *log.Logger
	isActive  bool
	onConnect []func()
}

// New creates a new MQTT client. Messages are delivered in order on a
// single goroutine and the client reconnects automatically.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("MQTT client ID is required")
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}

	c := &Client{
		config: cfg,
		logger: logger,
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.logf("Connection lost: %v", err)
	})

	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.logf("Connected to broker: %s", cfg.Broker)

		c.mu.RLock()
		handlers := append([]func(){}, c.onConnect...)
		c.mu.RUnlock()

		for _, fn := range handlers {
			fn()
		}
	})

	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		c.logf("Attempting to reconnect...")
	})

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(10 * time.Second)

	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	c.client = paho.NewClient(opts)
	return c, nil
}

// OnConnect registers fn to run after every successful (re)connect.
// Register before calling Connect.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// Connect starts the connection and waits up to the keepalive for the first
// attempt. With connect retry enabled the broker may come up later. The
// mutex is not held while waiting.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.isActive {
		c.mu.Unlock()
		return nil
	}
	c.isActive = true
	c.mu.Unlock()

	c.logf("Connecting to broker: %s as %s", c.config.Broker, c.config.ClientID)

	token := c.client.Connect()
	if token.WaitTimeout(c.config.KeepAlive) && token.Error() != nil {
		c.mu.Lock()
		c.isActive = false
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// Disconnect closes the connection to the broker
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActive {
		return
	}

	c.client.Disconnect(250)
	c.isActive = false
	c.logf("Disconnected from broker")
}

// Subscribe registers handler for topic
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive || !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	c.logf("Subscribed to %s", topic)
	return nil
}

// Publish sends payload to topic
func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive || !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	c.logf("Published to %s (QoS %d, retained %v)", topic, qos, retained)
	return nil
}

// IsConnected returns true while a broker connection is open. A client
// waiting to reconnect reports false.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isActive && c.client.IsConnectionOpen()
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *Client) logf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Printf("[MQTT] "+format, v...)
	}
}
