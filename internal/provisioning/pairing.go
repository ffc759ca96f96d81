// Package provisioning builds the pairing payload advertised to the
// provisioning app and provides a host provisioner that accepts Wi-Fi
// credentials over the HTTP API.
package provisioning

import (
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	// QRBaseURL renders a pairing payload as a scannable QR code
	QRBaseURL = "https://espressif.github.io/esp-jumpstart/qrcode.html"

	PayloadVersion   = "v1"
	DefaultTransport = "ble"
	DefaultUsername  = "wifiprov"
	DefaultPop       = "abcd1234"
)

// Pairing identifies the device to the provisioning app
type Pairing struct {
	ServiceName string
	Username    string
	Pop         string
	Transport   string
}

type payload struct {
	Ver       string `json:"ver"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	Pop       string `json:"pop,omitempty"`
	Transport string `json:"transport"`
}

// Payload returns the pairing JSON. Username and proof of possession are
// omitted when no proof of possession is configured.
func (p Pairing) Payload() (string, error) {
	if p.ServiceName == "" {
		return "", fmt.Errorf("pairing payload requires a service name")
	}

	transport := p.Transport
	if transport == "" {
		transport = DefaultTransport
	}

	body := payload{
		Ver:       PayloadVersion,
		Name:      p.ServiceName,
		Transport: transport,
	}
	if p.Pop != "" {
		body.Username = p.Username
		body.Pop = p.Pop
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode pairing payload: %w", err)
	}
	return string(data), nil
}

// QRURL returns the link that renders the pairing payload as a QR code
func (p Pairing) QRURL() (string, error) {
	data, err := p.Payload()
	if err != nil {
		return "", err
	}
	return QRBaseURL + "?data=" + url.QueryEscape(data), nil
}
