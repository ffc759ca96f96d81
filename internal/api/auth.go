package api

import (
	"net/http"

	"beacon/internal/auth"
)

// AuthHandler serves token related endpoints
type AuthHandler struct {
	wsTokenStore *auth.WSTokenStore
}

// NewAuthHandler creates new auth handler
func NewAuthHandler(wsTokenStore *auth.WSTokenStore) *AuthHandler {
	return &AuthHandler{wsTokenStore: wsTokenStore}
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// WSToken handles GET /api/auth/ws-token and returns a one-time token
// for the strip websocket
func (h *AuthHandler) WSToken(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	token, err := h.wsTokenStore.Generate(*p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
