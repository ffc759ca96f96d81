// Package identity derives the device identifier from the station MAC address
package identity

import (
	"errors"
	"fmt"
	"net"
)

const (
	// ClientIDPrefix is prepended to the identifier for the MQTT client ID
	ClientIDPrefix = "esp_device_"

	// ServiceNamePrefix is prepended to the identifier for the provisioning service name
	ServiceNamePrefix = "PROV_"
)

// ErrNoHardwareAddr is returned when no usable interface MAC is found
var ErrNoHardwareAddr = errors.New("no interface with a 6-byte hardware address")

// Identity is the immutable device identity
type Identity struct {
	mac net.HardwareAddr
	id  string
}

// FromMAC builds the identity from the last three MAC octets
func FromMAC(mac net.HardwareAddr) (Identity, error) {
	if len(mac) != 6 {
		return Identity{}, fmt.Errorf("invalid station MAC %q: need 6 bytes, got %d", mac.String(), len(mac))
	}

	// Own copy, the caller may reuse its slice
	owned := make(net.HardwareAddr, len(mac))
	copy(owned, mac)

	return Identity{
		mac: owned,
		id:  fmt.Sprintf("%02X%02X%02X", mac[3], mac[4], mac[5]),
	}, nil
}

// Parse builds the identity from a textual MAC (aa:bb:cc:dd:ee:ff)
func Parse(s string) (Identity, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse MAC: %w", err)
	}
	return FromMAC(mac)
}

// Detect reads the MAC of the named interface, or of the first
// non-loopback interface with a 6-byte address when name is empty
func Detect(name string) (Identity, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return Identity{}, fmt.Errorf("failed to find interface %s: %w", name, err)
		}
		return FromMAC(iface.HardwareAddr)
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, iface := range interfaces {
		// Skip loopback and interfaces without an EUI-48 address
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		return FromMAC(iface.HardwareAddr)
	}

	return Identity{}, ErrNoHardwareAddr
}

// ID returns the 3-byte MAC suffix as uppercase hex
func (i Identity) ID() string {
	return i.id
}

// MAC returns the full station MAC
func (i Identity) MAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, len(i.mac))
	copy(mac, i.mac)
	return mac
}

// ClientID returns the MQTT client identifier (esp_device_<ID>)
func (i Identity) ClientID() string {
	return ClientIDPrefix + i.id
}

// CommandTopic returns the device-specific command topic
func (i Identity) CommandTopic() string {
	return "/devices/" + i.ClientID() + "/command"
}

// StateTopic is where the LED state is published
func (i Identity) StateTopic() string {
	return "/devices/" + i.ClientID() + "/state"
}

// ServiceName returns the provisioning service name (PROV_<ID>)
func (i Identity) ServiceName() string {
	return ServiceNamePrefix + i.id
}

// IsZero reports whether the identity was never initialized
func (i Identity) IsZero() bool {
	return i.id == ""
}

func (i Identity) String() string {
	return i.ClientID()
}
