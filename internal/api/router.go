// Package api serves the device's HTTP API: status, activity log, LED
// commands, Wi-Fi provisioning and a websocket feed of strip frames.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"beacon/internal/auth"
	"beacon/internal/command"
	"beacon/internal/connectivity"
	"beacon/internal/credentials"
	"beacon/internal/events"
	"beacon/internal/identity"
	"beacon/internal/led"
	"beacon/internal/metrics"
	"beacon/internal/provisioning"
)

// LEDState reads the LED subsystem state
type LEDState interface {
	Snapshot() led.State
}

// CommandRouter routes command keywords
type CommandRouter interface {
	Route(topic string, payload []byte) command.Result
	DeviceTopic() string
}

// ConnectivityStatus reports the supervisor state
type ConnectivityStatus interface {
	Status() connectivity.Status
}

// Provisioner accepts credentials from the pairing client
type Provisioner interface {
	Submit(creds credentials.Credentials) error
	Pairing() (provisioning.Pairing, bool)
}

// MQTTStatus reports the broker connection
type MQTTStatus interface {
	IsConnected() bool
}

// Deps are the components the API exposes
type Deps struct {
	Identity     identity.Identity
	LED          LEDState
	Router       CommandRouter
	Connectivity ConnectivityStatus
	Provisioner  Provisioner
	MQTT         MQTTStatus
	Activity     *events.Store
	Metrics      *metrics.Metrics
	Hub          *StripHub
	Auth         *auth.Middleware
}

// Server represents the API server
type Server struct {
	router *chi.Mux
	deps   Deps
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	statusHandler := NewStatusHandler(s.deps)
	eventsHandler := NewEventsHandler(s.deps.Activity)
	ledHandler := NewLEDHandler(s.deps.Router, s.deps.LED)
	provHandler := NewProvisioningHandler(s.deps.Provisioner, s.deps.Activity)
	authHandler := NewAuthHandler(s.deps.Auth.WSTokens())

	// Public routes
	r.Get("/api/health", statusHandler.Health)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	// Strip viewer authenticates with a one-time token
	if s.deps.Hub != nil {
		r.With(s.deps.Auth.RequireWSToken).Get("/api/strip/ws", s.deps.Hub.ServeWS)
	}

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(s.deps.Auth.RequireAuth)

		r.Get("/api/auth/me", authHandler.Me)
		r.Get("/api/auth/ws-token", authHandler.WSToken)

		r.Get("/api/status", statusHandler.Status)
		r.Get("/api/events", eventsHandler.List)
		r.Get("/api/led", ledHandler.State)
		r.Get("/api/provisioning/pairing", provHandler.Pairing)

		r.Group(func(r chi.Router) {
			r.Use(s.deps.Auth.RequireOperator)

			r.Post("/api/led/{command}", ledHandler.Command)
			r.Post("/api/provisioning/credentials", provHandler.Credentials)
		})
	})
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON writes JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
