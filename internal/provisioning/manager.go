package provisioning

import (
	"context"
	"errors"
	"log"
	"sync"

	"beacon/internal/credentials"
	"beacon/internal/events"
)

var (
	ErrNotActive     = errors.New("provisioning is not active")
	ErrDeinitialized = errors.New("provisioner has been deinitialized")
)

// Publisher accepts lifecycle events
type Publisher interface {
	Publish(ev events.Event)
}

// Manager is a provisioner for hosts without a BLE pairing transport.
// Credentials arrive through Submit; the outcome is derived from the
// station's IP and disconnect events while a submission is pending.
type Manager struct {
	mu       sync.Mutex
	bus      Publisher
	pairing  Pairing
	active   bool
	awaiting bool
	deinit   bool
	logger   *log.Logger
}

// NewManager creates an idle provisioner
func NewManager(bus Publisher, logger *log.Logger) *Manager {
	return &Manager{
		bus:    bus,
		logger: logger,
	}
}

// Subscribe wires the station events that decide a pending submission.
// They arrive on one goroutine in publish order.
func (m *Manager) Subscribe(bus *events.Bus) {
	bus.SubscribeOrdered(m.handle)
}

func (m *Manager) handle(ev events.Event) {
	switch e := ev.(type) {
	case events.IPAcquired:
		m.onIPAcquired(e)
	case events.StationDisconnected:
		m.onStationDisconnected(e)
	}
}

// Start begins accepting credentials. Starting an active provisioner is a no-op.
func (m *Manager) Start(_ context.Context, p Pairing) error {
	m.mu.Lock()
	if m.deinit {
		m.mu.Unlock()
		return ErrDeinitialized
	}
	if m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = true
	m.pairing = p
	m.mu.Unlock()

	m.logf("Provisioning started as %s", p.ServiceName)
	m.bus.Publish(events.ProvisioningStarted{})
	return nil
}

// Submit hands credentials from the pairing client to the device
func (m *Manager) Submit(creds credentials.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return ErrNotActive
	}
	m.awaiting = true
	m.mu.Unlock()

	m.logf("Received credentials for SSID %q", creds.SSID)
	m.bus.Publish(events.CredentialsReceived{SSID: creds.SSID, Password: creds.Password})
	return nil
}

// Reset drops the pending submission so new credentials can be sent
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deinit {
		return ErrDeinitialized
	}
	m.awaiting = false
	m.logf("Provisioning state reset, waiting for new credentials")
	return nil
}

// Deinit stops the provisioner permanently
func (m *Manager) Deinit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = false
	m.awaiting = false
	m.deinit = true
	m.logf("Provisioner deinitialized")
	return nil
}

// Active reports whether credentials are currently accepted
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Pairing returns the advertised pairing info while active
func (m *Manager) Pairing() (Pairing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairing, m.active
}

func (m *Manager) onIPAcquired(_ events.IPAcquired) {
	m.mu.Lock()
	pending := m.active && m.awaiting
	m.awaiting = false
	m.mu.Unlock()

	if !pending {
		return
	}
	m.bus.Publish(events.CredentialSuccess{})
	m.bus.Publish(events.ProvisioningEnded{})
}

func (m *Manager) onStationDisconnected(_ events.StationDisconnected) {
	m.mu.Lock()
	pending := m.active && m.awaiting
	m.mu.Unlock()

	if !pending {
		return
	}
	m.bus.Publish(events.CredentialFailure{Reason: events.ReasonAPNotFound})
}

func (m *Manager) logf(format string, v ...interface{}) {
	if m.logger != nil {
		m.logger.Printf("[Provisioning] "+format, v...)
	}
}

