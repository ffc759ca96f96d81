// Package connectivity supervises Wi-Fi provisioning and the station
// connection, and signals once when the device first obtains an address.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"beacon/internal/credentials"
	"beacon/internal/events"
	"beacon/internal/metrics"
	"beacon/internal/provisioning"
)

// DefaultMaxRetry is the number of failed joins before the provisioner is reset
const DefaultMaxRetry = 5

// CredentialStore persists Wi-Fi credentials
type CredentialStore interface {
	Save(ssid, password string) error
	Load() (credentials.Credentials, error)
}

// Provisioner hands credentials to the device
type Provisioner interface {
	Start(ctx context.Context, p provisioning.Pairing) error
	Reset() error
	Deinit() error
}

// Station is the Wi-Fi station interface
type Station interface {
	Configure(creds credentials.Credentials) error
	Start(ctx context.Context) error
	Connect() error
}

// Config holds supervisor settings
type Config struct {
	MaxRetry int
	Pairing  provisioning.Pairing
}

// Options holds optional recorders
type Options struct {
	Activity *events.Store
	Metrics  *metrics.Metrics
}

// Supervisor reacts to provisioning and station events. State changes
// happen under mu; collaborator calls are made after releasing it.
type Supervisor struct {
	store       CredentialStore
	provisioner Provisioner
	station     Station
	cfg         Config
	activity    *events.Store
	metrics     *metrics.Metrics
	logger      *log.Logger

	mu       sync.Mutex
	prov     ProvisioningState
	conn     State
	retries  int
	failures int
	ssid     string
	addr     string
	deinited bool

	connected     chan struct{}
	connectedOnce sync.Once
}

// NewSupervisor creates a supervisor in the NotStarted/Disconnected state
func NewSupervisor(store CredentialStore, provisioner Provisioner, station Station, cfg Config, opts Options, logger *log.Logger) *Supervisor {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	return &Supervisor{
		store:       store,
		provisioner: provisioner,
		station:     station,
		cfg:         cfg,
		activity:    opts.Activity,
		metrics:     opts.Metrics,
		logger:      logger,
		connected:   make(chan struct{}),
	}
}

// Subscribe registers the supervisor on bus. Events of all types are
// handled one at a time in publish order.
func (s *Supervisor) Subscribe(bus *events.Bus) {
	bus.SubscribeOrdered(s.Handle)
}

// Handle applies one lifecycle event
func (s *Supervisor) Handle(ev events.Event) {
	switch e := ev.(type) {
	case events.ProvisioningStarted:
		s.onProvisioningStarted(e)
	case events.CredentialsReceived:
		s.onCredentialsReceived(e)
	case events.CredentialFailure:
		s.onCredentialFailure(e)
	case events.CredentialSuccess:
		s.onCredentialSuccess(e)
	case events.ProvisioningEnded:
		s.onProvisioningEnded(e)
	case events.StationStarted:
		s.onStationStarted(e)
	case events.StationDisconnected:
		s.onStationDisconnected(e)
	case events.IPAcquired:
		s.onIPAcquired(e)
	}
}

// Boot loads stored credentials and either configures the station with
// them or starts provisioning, then starts the station.
func (s *Supervisor) Boot(ctx context.Context) error {
	creds, err := s.store.Load()
	switch {
	case err == nil:
		s.logf("Device already provisioned with SSID %q", creds.SSID)

		s.mu.Lock()
		s.ssid = creds.SSID
		s.mu.Unlock()

		s.deinitProvisioner()
		if err := s.station.Configure(creds); err != nil {
			return fmt.Errorf("failed to configure station: %w", err)
		}

	default:
		if !errors.Is(err, credentials.ErrNotFound) {
			s.logf("Failed to read stored credentials, provisioning instead: %v", err)
		}

		s.logf("Starting provisioning as %s", s.cfg.Pairing.ServiceName)
		if err := s.provisioner.Start(ctx, s.cfg.Pairing); err != nil {
			return fmt.Errorf("failed to start provisioning: %w", err)
		}
		s.logPairing()
	}

	if err := s.station.Start(ctx); err != nil {
		return fmt.Errorf("failed to start station: %w", err)
	}
	return nil
}

// Connected is closed the first time the station acquires an address
func (s *Supervisor) Connected() <-chan struct{} {
	return s.connected
}

// WaitConnected blocks until the device is connected or ctx is done
func (s *Supervisor) WaitConnected(ctx context.Context) error {
	select {
	case <-s.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the supervisor state
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Provisioning:     s.prov,
		Connectivity:     s.conn,
		ProvisioningName: s.prov.String(),
		ConnectivityName: s.conn.String(),
		Retries:          s.retries,
		SSID:             s.ssid,
		Addr:             s.addr,
	}
	if s.prov == ProvisioningFailed {
		st.Failures = s.failures
	}
	select {
	case <-s.connected:
		st.Connected = true
	default:
	}
	return st
}

func (s *Supervisor) onProvisioningStarted(events.ProvisioningStarted) {
	s.mu.Lock()
	s.prov = ProvisioningInProgress
	s.mu.Unlock()

	s.logf("Provisioning started")
	s.record(events.ActivityProvisioning, true, "started")
}

func (s *Supervisor) onCredentialsReceived(e events.CredentialsReceived) {
	s.mu.Lock()
	s.prov = ProvisioningCredentialsReceived
	s.ssid = e.SSID
	s.mu.Unlock()

	s.logf("Received Wi-Fi credentials for SSID %q", e.SSID)
	s.record(events.ActivityProvisioning, true, "credentials received for "+e.SSID)

	if err := s.store.Save(e.SSID, e.Password); err != nil {
		s.logf("Failed to save credentials: %v", err)
	}

	if err := s.station.Configure(credentials.Credentials{SSID: e.SSID, Password: e.Password}); err != nil {
		s.logf("Failed to apply credentials to station: %v", err)
	}
	s.connect()
}

func (s *Supervisor) onCredentialFailure(e events.CredentialFailure) {
	s.mu.Lock()
	s.retries++
	n := s.retries
	reset := s.retries >= s.cfg.MaxRetry
	if reset {
		s.retries = 0
	}
	s.prov = ProvisioningFailed
	s.failures = n
	s.mu.Unlock()

	s.logf("Provisioning failed (%s), attempt %d of %d", e.Reason, n, s.cfg.MaxRetry)
	s.metrics.ObserveCredentialFailure(e.Reason.String())
	s.record(events.ActivityProvisioning, false, "credential failure: "+e.Reason.String())

	if !reset {
		return
	}

	s.logf("Failed to connect with provisioned AP, resetting provisioning state")
	s.metrics.IncProvisioningReset()
	if err := s.provisioner.Reset(); err != nil {
		s.logf("Failed to reset provisioner: %v", err)
	}
}

func (s *Supervisor) onCredentialSuccess(events.CredentialSuccess) {
	s.mu.Lock()
	s.retries = 0
	s.prov = ProvisioningSucceeded
	s.mu.Unlock()

	s.logf("Provisioning successful")
	s.record(events.ActivityProvisioning, true, "succeeded")
}

func (s *Supervisor) onProvisioningEnded(events.ProvisioningEnded) {
	s.logf("Provisioning ended")
	s.deinitProvisioner()
}

func (s *Supervisor) onStationStarted(events.StationStarted) {
	s.mu.Lock()
	s.conn = StationStarted
	s.mu.Unlock()

	s.record(events.ActivityConnectivity, true, "station started")
	s.connect()
}

func (s *Supervisor) onStationDisconnected(events.StationDisconnected) {
	s.mu.Lock()
	s.conn = Disconnected
	s.addr = ""
	s.mu.Unlock()

	s.logf("Disconnected, connecting to the AP again")
	s.metrics.SetConnected(false)
	s.connect()
}

func (s *Supervisor) onIPAcquired(e events.IPAcquired) {
	s.mu.Lock()
	s.conn = IPAcquired
	s.addr = e.Addr
	s.mu.Unlock()

	s.logf("Connected with IP address %s", e.Addr)
	s.metrics.SetConnected(true)
	s.record(events.ActivityConnectivity, true, "ip acquired "+e.Addr)

	s.connectedOnce.Do(func() {
		close(s.connected)
	})
}

// connect requests a station connect; there is no backoff or retry limit
func (s *Supervisor) connect() {
	s.metrics.IncConnectAttempt()
	if err := s.station.Connect(); err != nil {
		s.logf("Station connect failed: %v", err)
	}
}

// deinitProvisioner calls Deinit at most once per process
func (s *Supervisor) deinitProvisioner() {
	s.mu.Lock()
	if s.deinited {
		s.mu.Unlock()
		return
	}
	s.deinited = true
	s.mu.Unlock()

	if err := s.provisioner.Deinit(); err != nil {
		s.logf("Failed to deinit provisioner: %v", err)
	}
}

func (s *Supervisor) logPairing() {
	payload, err := s.cfg.Pairing.Payload()
	if err != nil {
		s.logf("Cannot generate pairing payload: %v", err)
		return
	}
	s.logf("Pairing payload: %s", payload)

	if link, err := s.cfg.Pairing.QRURL(); err == nil {
		s.logf("If the QR code is not visible, open this URL in a browser: %s", link)
	}
}

func (s *Supervisor) record(kind events.ActivityType, success bool, details string) {
	if s.activity != nil {
		s.activity.Add(kind, "supervisor", success, details)
	}
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[Supervisor] "+format, v...)
	}
}
