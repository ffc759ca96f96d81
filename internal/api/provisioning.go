package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"beacon/internal/credentials"
	"beacon/internal/events"
	"beacon/internal/provisioning"
)

// PairingResponse is the body of GET /api/provisioning/pairing
type PairingResponse struct {
	Active      bool   `json:"active"`
	ServiceName string `json:"serviceName,omitempty"`
	Payload     string `json:"payload,omitempty"`
	QRURL       string `json:"qrUrl,omitempty"`
}

// CredentialsRequest is the body of POST /api/provisioning/credentials
type CredentialsRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// ProvisioningHandler exposes the host provisioner
type ProvisioningHandler struct {
	prov     Provisioner
	activity *events.Store
}

// NewProvisioningHandler creates a provisioning handler
func NewProvisioningHandler(prov Provisioner, activity *events.Store) *ProvisioningHandler {
	return &ProvisioningHandler{prov: prov, activity: activity}
}

// Pairing handles GET /api/provisioning/pairing
func (h *ProvisioningHandler) Pairing(w http.ResponseWriter, r *http.Request) {
	if h.prov == nil {
		writeJSON(w, http.StatusOK, PairingResponse{})
		return
	}

	p, active := h.prov.Pairing()
	if !active {
		writeJSON(w, http.StatusOK, PairingResponse{})
		return
	}

	payload, err := p.Payload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	link, err := p.QRURL()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PairingResponse{
		Active:      true,
		ServiceName: p.ServiceName,
		Payload:     payload,
		QRURL:       link,
	})
}

// Credentials handles POST /api/provisioning/credentials
func (h *ProvisioningHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	if h.prov == nil {
		writeError(w, http.StatusConflict, provisioning.ErrNotActive.Error())
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.prov.Submit(credentials.Credentials{SSID: req.SSID, Password: req.Password})
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, provisioning.ErrNotActive):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.activity != nil {
		h.activity.Add(events.ActivityProvisioning, getClientIP(r), true, "credentials submitted for "+req.SSID)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "ssid": req.SSID})
}
