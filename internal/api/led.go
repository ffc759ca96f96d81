package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beacon/internal/command"
	"beacon/internal/led"
)

// CommandResponse is the body of POST /api/led/{command}
type CommandResponse struct {
	Command string         `json:"command"`
	Result  command.Result `json:"result"`
	State   *led.State     `json:"state,omitempty"`
}

// LEDHandler sends device commands over HTTP
type LEDHandler struct {
	router CommandRouter
	led    LEDState
}

// NewLEDHandler creates an LED handler
func NewLEDHandler(router CommandRouter, ledState LEDState) *LEDHandler {
	return &LEDHandler{router: router, led: ledState}
}

// State handles GET /api/led
func (h *LEDHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.led.Snapshot())
}

// Command handles POST /api/led/{command}. The keyword goes through the
// device topic exactly as if it had arrived over MQTT.
func (h *LEDHandler) Command(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "command")

	result := h.router.Route(h.router.DeviceTopic(), []byte(keyword))

	resp := CommandResponse{Command: command.Truncate([]byte(keyword)), Result: result}
	status := http.StatusOK
	switch result {
	case command.ResultUnknown:
		status = http.StatusBadRequest
	case command.ResultError:
		status = http.StatusInternalServerError
	}

	if h.led != nil {
		state := h.led.Snapshot()
		resp.State = &state
	}
	writeJSON(w, status, resp)
}
