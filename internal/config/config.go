// Package config loads the device settings from a .env file, creating the
// file with defaults on first start.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variable names
const (
	EnvAddr          = "BEACON_ADDR"
	EnvJWTSecret     = "BEACON_JWT_SECRET"
	EnvJWTExpiration = "BEACON_JWT_EXPIRATION"
	EnvNoAuth        = "BEACON_NO_AUTH"
	EnvDBPath        = "BEACON_DB_PATH"
	// MQTT settings
	EnvMQTTBroker   = "BEACON_MQTT_BROKER"
	EnvMQTTUsername = "BEACON_MQTT_USERNAME"
	EnvMQTTPassword = "BEACON_MQTT_PASSWORD"
	EnvMQTTUseTLS   = "BEACON_MQTT_USE_TLS"
	// Device settings
	EnvMAC      = "BEACON_MAC"
	EnvIface    = "BEACON_IFACE"
	EnvGPIOChip = "BEACON_GPIO_CHIP"
	EnvGPIOLine = "BEACON_GPIO_LINE"
	EnvStrip    = "BEACON_STRIP"
	// Provisioning settings
	EnvProvMaxRetry    = "BEACON_PROV_MAX_RETRY"
	EnvProvUsername    = "BEACON_PROV_USERNAME"
	EnvProvPop         = "BEACON_PROV_POP"
	EnvNetPollInterval = "BEACON_NET_POLL_INTERVAL"
)

// Strip backends
const (
	StripWeb  = "web"
	StripNone = "none"
)

// Default values
const (
	DefaultAddr          = ":8080"
	DefaultJWTExpiration = 24 * time.Hour
	DefaultNoAuth        = false
	DefaultDBPath        = "beacon.db"
	DefaultMQTTBroker    = "tcp://mqtt.eclipseprojects.io:1883"
	DefaultGPIOChip      = ""
	DefaultGPIOLine      = 2
	DefaultStrip         = StripWeb
	DefaultProvMaxRetry  = 5
	DefaultProvUsername  = "wifiprov"
	DefaultProvPop       = "abcd1234"
	DefaultPollInterval  = 2 * time.Second
)

// Config holds all application configuration.
// All access should be through getter methods for thread safety.
type Config struct {
	mu       sync.RWMutex
	filePath string
	dirty    bool // tracks if config was modified

	// Server settings
	addr   string
	dbPath string

	// Security settings
	jwtSecret     string
	jwtExpiration time.Duration
	noAuth        bool

	// MQTT settings
	mqttBroker   string
	mqttUsername string
	mqttPassword string
	mqttUseTLS   bool

	// Device settings
	mac      string
	iface    string
	gpioChip string
	gpioLine int
	strip    string

	// Provisioning settings
	provMaxRetry    int
	provUsername    string
	provPop         string
	netPollInterval time.Duration
}

// Load loads configuration from .env file or creates it with defaults.
func Load(filePath string) (*Config, error) {
	cfg := &Config{
		filePath: filePath,
	}

	cfg.setDefaults()

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// File doesn't exist - will be created with defaults
		cfg.dirty = true
	}

	if cfg.jwtSecret == "" {
		secret, err := generateSecureSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.jwtSecret = secret
		cfg.dirty = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.dirty {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	c.addr = DefaultAddr
	c.dbPath = DefaultDBPath
	c.jwtSecret = ""
	c.jwtExpiration = DefaultJWTExpiration
	c.noAuth = DefaultNoAuth
	c.mqttBroker = DefaultMQTTBroker
	c.mqttUsername = ""
	c.mqttPassword = ""
	c.mqttUseTLS = false
	c.mac = ""
	c.iface = ""
	c.gpioChip = DefaultGPIOChip
	c.gpioLine = DefaultGPIOLine
	c.strip = DefaultStrip
	c.provMaxRetry = DefaultProvMaxRetry
	c.provUsername = DefaultProvUsername
	c.provPop = DefaultProvPop
	c.netPollInterval = DefaultPollInterval
}

func (c *Config) loadFromFile() error {
	values, err := ReadEnvFile(c.filePath)
	if err != nil {
		return err
	}

	c.applyValues(values)
	return nil
}

// applyValues applies parsed key-value pairs to config.
// Unparseable numbers keep their defaults.
func (c *Config) applyValues(values map[string]string) {
	if v, ok := values[EnvAddr]; ok && v != "" {
		c.addr = v
	}
	if v, ok := values[EnvDBPath]; ok && v != "" {
		c.dbPath = v
	}

	if v, ok := values[EnvJWTSecret]; ok && v != "" {
		c.jwtSecret = v
	}
	if v, ok := values[EnvJWTExpiration]; ok && v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.jwtExpiration = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvNoAuth]; ok {
		c.noAuth = parseBool(v)
	}

	if v, ok := values[EnvMQTTBroker]; ok && v != "" {
		c.mqttBroker = v
	}
	if v, ok := values[EnvMQTTUsername]; ok {
		c.mqttUsername = v
	}
	if v, ok := values[EnvMQTTPassword]; ok {
		c.mqttPassword = v
	}
	if v, ok := values[EnvMQTTUseTLS]; ok {
		c.mqttUseTLS = parseBool(v)
	}

	if v, ok := values[EnvMAC]; ok {
		c.mac = v
	}
	if v, ok := values[EnvIface]; ok {
		c.iface = v
	}
	if v, ok := values[EnvGPIOChip]; ok {
		c.gpioChip = v
	}
	if v, ok := values[EnvGPIOLine]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.gpioLine = n
		}
	}
	if v, ok := values[EnvStrip]; ok && v != "" {
		c.strip = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := values[EnvProvMaxRetry]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.provMaxRetry = n
		}
	}
	if v, ok := values[EnvProvUsername]; ok {
		c.provUsername = v
	}
	if v, ok := values[EnvProvPop]; ok {
		c.provPop = v
	}
	if v, ok := values[EnvNetPollInterval]; ok && v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.netPollInterval = time.Duration(seconds) * time.Second
		}
	}
}

// validate checks if configuration is valid.
func (c *Config) validate() error {
	if c.addr == "" {
		return errors.New("server address cannot be empty")
	}

	_, port, err := net.SplitHostPort(c.addr)
	if err != nil {
		if _, err := strconv.Atoi(strings.TrimPrefix(c.addr, ":")); err != nil {
			return fmt.Errorf("invalid server address format: %s", c.addr)
		}
	} else {
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port number: %s", port)
		}
	}

	if c.jwtExpiration < time.Minute {
		return errors.New("JWT expiration must be at least 1 minute")
	}
	if c.jwtExpiration > 365*24*time.Hour {
		return errors.New("JWT expiration cannot exceed 1 year")
	}

	if c.dbPath == "" {
		return errors.New("database path cannot be empty")
	}

	if c.mac != "" {
		mac, err := net.ParseMAC(c.mac)
		if err != nil || len(mac) != 6 {
			return fmt.Errorf("invalid MAC address: %s", c.mac)
		}
	}

	if c.gpioLine < 0 {
		return fmt.Errorf("invalid GPIO line: %d", c.gpioLine)
	}

	switch c.strip {
	case StripWeb, StripNone:
	default:
		return fmt.Errorf("invalid strip backend %q (want %s or %s)", c.strip, StripWeb, StripNone)
	}

	if c.provMaxRetry < 1 {
		return fmt.Errorf("provisioning max retry must be at least 1, got %d", c.provMaxRetry)
	}

	return nil
}

// Save writes current configuration to .env file.
func (c *Config) Save() error {
	c.mu.RLock()
	values := c.toMap()
	filePath := c.filePath
	c.mu.RUnlock()

	if err := WriteEnvFile(filePath, values); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	return nil
}

func (c *Config) toMap() map[string]string {
	return map[string]string{
		EnvAddr:            c.addr,
		EnvDBPath:          c.dbPath,
		EnvJWTSecret:       c.jwtSecret,
		EnvJWTExpiration:   strconv.Itoa(int(c.jwtExpiration.Seconds())),
		EnvNoAuth:          strconv.FormatBool(c.noAuth),
		EnvMQTTBroker:      c.mqttBroker,
		EnvMQTTUsername:    c.mqttUsername,
		EnvMQTTPassword:    c.mqttPassword,
		EnvMQTTUseTLS:      strconv.FormatBool(c.mqttUseTLS),
		EnvMAC:             c.mac,
		EnvIface:           c.iface,
		EnvGPIOChip:        c.gpioChip,
		EnvGPIOLine:        strconv.Itoa(c.gpioLine),
		EnvStrip:           c.strip,
		EnvProvMaxRetry:    strconv.Itoa(c.provMaxRetry),
		EnvProvUsername:    c.provUsername,
		EnvProvPop:         c.provPop,
		EnvNetPollInterval: strconv.Itoa(int(c.netPollInterval.Seconds())),
	}
}

// Getters (thread-safe)

// Addr returns the server address.
func (c *Config) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr
}

// DBPath returns the bbolt database path.
func (c *Config) DBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbPath
}

// JWTSecret returns the JWT secret key.
func (c *Config) JWTSecret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtSecret
}

// JWTExpiration returns the JWT token expiration duration.
func (c *Config) JWTExpiration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtExpiration
}

// NoAuth returns whether authentication is disabled.
func (c *Config) NoAuth() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.noAuth
}

// FilePath returns the path to the .env file.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// MQTT Getters

// MQTTBroker returns the MQTT broker URI.
func (c *Config) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttBroker
}

// MQTTUsername returns the MQTT username.
func (c *Config) MQTTUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUsername
}

// MQTTPassword returns the MQTT password.
func (c *Config) MQTTPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttPassword
}

// MQTTUseTLS returns whether TLS is enabled for MQTT.
func (c *Config) MQTTUseTLS() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUseTLS
}

// Device Getters

// MAC returns the configured station MAC, empty for auto-detection.
func (c *Config) MAC() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mac
}

// Iface returns the network interface name, empty for auto-detection.
func (c *Config) Iface() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iface
}

// GPIOChip returns the GPIO chip name, empty when no single LED is wired.
func (c *Config) GPIOChip() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gpioChip
}

// GPIOLine returns the GPIO line offset of the single LED.
func (c *Config) GPIOLine() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gpioLine
}

// Strip returns the strip backend.
func (c *Config) Strip() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strip
}

// Provisioning Getters

// ProvMaxRetry returns the connection attempts allowed per credential set.
func (c *Config) ProvMaxRetry() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provMaxRetry
}

// ProvUsername returns the provisioning username.
func (c *Config) ProvUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provUsername
}

// ProvPop returns the provisioning proof of possession.
func (c *Config) ProvPop() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provPop
}

// NetPollInterval returns how often the station polls for an address.
func (c *Config) NetPollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.netPollInterval
}

// Setters (thread-safe, auto-save)

// SetJWTSecret sets the JWT secret and saves to file.
func (c *Config) SetJWTSecret(secret string) error {
	if secret == "" {
		return errors.New("JWT secret cannot be empty")
	}

	c.mu.Lock()
	c.jwtSecret = secret
	c.dirty = true
	c.mu.Unlock()

	return c.Save()
}

// SetMAC sets the station MAC override and saves to file.
func (c *Config) SetMAC(mac string) error {
	c.mu.Lock()
	prev := c.mac
	c.mac = mac
	c.dirty = true
	c.mu.Unlock()

	if err := c.validate(); err != nil {
		c.mu.Lock()
		c.mac = prev
		c.mu.Unlock()
		return err
	}
	return c.Save()
}

// generateSecureSecret generates a cryptographically secure random hex string.
func generateSecureSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// parseBool accepts true, 1, yes, on (case-insensitive)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// String returns a string representation of the config (without secrets).
func (c *Config) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	secretDisplay := "[not set]"
	if c.jwtSecret != "" {
		secretDisplay = "[set]"
	}

	return fmt.Sprintf(
		"Config{Addr: %q, DBPath: %q, JWTSecret: %s, JWTExpiration: %v, NoAuth: %v, MQTTBroker: %q, Strip: %q, GPIO: %q/%d, MaxRetry: %d}",
		c.addr, c.dbPath, secretDisplay, c.jwtExpiration, c.noAuth, c.mqttBroker, c.strip, c.gpioChip, c.gpioLine, c.provMaxRetry,
	)
}
