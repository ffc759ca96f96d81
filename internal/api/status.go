package api

import (
	"net/http"

	"beacon/internal/connectivity"
	"beacon/internal/led"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Device        DeviceInfo          `json:"device"`
	LED           led.State           `json:"led"`
	Connectivity  connectivity.Status `json:"connectivity"`
	MQTTConnected bool                `json:"mqttConnected"`
}

// DeviceInfo describes the device identity
type DeviceInfo struct {
	ID           string `json:"id"`
	MAC          string `json:"mac"`
	ClientID     string `json:"clientId"`
	CommandTopic string `json:"commandTopic"`
	ServiceName  string `json:"serviceName"`
}

// StatusHandler serves device status
type StatusHandler struct {
	deps Deps
}

// NewStatusHandler creates a status handler
func NewStatusHandler(deps Deps) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// Health handles GET /api/health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := h.deps.Identity

	resp := StatusResponse{
		Device: DeviceInfo{
			ID:           id.ID(),
			MAC:          id.MAC().String(),
			ClientID:     id.ClientID(),
			CommandTopic: id.CommandTopic(),
			ServiceName:  id.ServiceName(),
		},
	}
	if h.deps.LED != nil {
		resp.LED = h.deps.LED.Snapshot()
	}
	if h.deps.Connectivity != nil {
		resp.Connectivity = h.deps.Connectivity.Status()
	}
	if h.deps.MQTT != nil {
		resp.MQTTConnected = h.deps.MQTT.IsConnected()
	}

	writeJSON(w, http.StatusOK, resp)
}
