package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
)

// DiscoveryPrefix is the Home Assistant discovery topic root
const DiscoveryPrefix = "homeassistant"

// SwitchConfig describes one Home Assistant switch backed by device commands
type SwitchConfig struct {
	ID         string // suffix of the unique ID
	Name       string
	PayloadOn  string
	PayloadOff string
	ActiveMode string // LED mode name that reports the switch as on
}

// DeviceInfo groups entities under one device in Home Assistant
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// DefaultSwitches expose the single LED and the RGB strip
var DefaultSwitches = []SwitchConfig{
	{ID: "led", Name: "LED", PayloadOn: "on", PayloadOff: "off", ActiveMode: "single"},
	{ID: "rgb", Name: "RGB", PayloadOn: "onRGB", PayloadOff: "offRGB", ActiveMode: "rgb"},
}

// Discovery publishes Home Assistant MQTT discovery configs so the device
// shows up as switches that send its own command keywords
type Discovery struct {
	broker       Broker
	clientID     string
	commandTopic string
	stateTopic   string
	switches     []SwitchConfig
	logger       *log.Logger
}

// NewDiscovery creates a discovery publisher for one device
func NewDiscovery(broker Broker, clientID, commandTopic, stateTopic string, switches []SwitchConfig, logger *log.Logger) *Discovery {
	return &Discovery{
		broker:       broker,
		clientID:     clientID,
		commandTopic: commandTopic,
		stateTopic:   stateTopic,
		switches:     switches,
		logger:       logger,
	}
}

// Topic returns the discovery topic of a switch
func (d *Discovery) Topic(sw SwitchConfig) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", DiscoveryPrefix, d.clientID, sw.ID)
}

// Config builds the discovery payload of a switch
func (d *Discovery) Config(sw SwitchConfig) ([]byte, error) {
	cfg := map[string]interface{}{
		"name":           sw.Name,
		"unique_id":      d.clientID + "_" + sw.ID,
		"command_topic":  d.commandTopic,
		"payload_on":     sw.PayloadOn,
		"payload_off":    sw.PayloadOff,
		"state_topic":    d.stateTopic,
		"value_template": fmt.Sprintf("{{ 'ON' if value_json.mode == '%s' else 'OFF' }}", sw.ActiveMode),
		"state_on":       "ON",
		"state_off":      "OFF",
		"device": DeviceInfo{
			Identifiers:  []string{d.clientID},
			Name:         d.clientID,
			Model:        "Indicator",
			Manufacturer: "beacon",
		},
	}
	return json.Marshal(cfg)
}

// Publish sends all switch configs as retained messages. Failures are
// logged and the remaining switches are still published.
func (d *Discovery) Publish() error {
	var firstErr error

	for _, sw := range d.switches {
		payload, err := d.Config(sw)
		if err == nil {
			err = d.broker.Publish(d.Topic(sw), 1, true, payload)
		}
		if err != nil {
			d.logf("Failed to publish discovery for %s: %v", sw.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr == nil {
		d.logf("Published discovery config for %d switches", len(d.switches))
	}
	return firstErr
}

func (d *Discovery) logf(format string, v ...interface{}) {
	if d.logger != nil {
		d.logger.Printf("[MQTT Discovery] "+format, v...)
	}
}
