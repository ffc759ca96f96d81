package connectivity

import "beacon/internal/events"

// ProvisioningState tracks the credential provisioning lifecycle
type ProvisioningState int

const (
	ProvisioningNotStarted ProvisioningState = iota
	ProvisioningInProgress
	ProvisioningCredentialsReceived
	ProvisioningFailed
	ProvisioningSucceeded
)

func (s ProvisioningState) String() string {
	switch s {
	case ProvisioningNotStarted:
		return "not_started"
	case ProvisioningInProgress:
		return "in_progress"
	case ProvisioningCredentialsReceived:
		return "credentials_received"
	case ProvisioningFailed:
		return "failed"
	case ProvisioningSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// State is the station connectivity state
type State int

const (
	Disconnected State = iota
	StationStarted
	IPAcquired
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case StationStarted:
		return "station_started"
	case IPAcquired:
		return "ip_acquired"
	default:
		return "unknown"
	}
}

// FailureReason explains a failed join attempt
type FailureReason = events.FailureReason

// Status is a snapshot of the supervisor for the status API.
// Failures is n of Failed(n) and is zero unless provisioning has failed.
type Status struct {
	Provisioning ProvisioningState `json:"-"`
	Connectivity State             `json:"-"`

	ProvisioningName string `json:"provisioning"`
	ConnectivityName string `json:"connectivity"`
	Failures         int    `json:"failures"`
	Retries          int    `json:"retries"`
	SSID             string `json:"ssid,omitempty"`
	Addr             string `json:"addr,omitempty"`
	Connected        bool   `json:"connected"`
}
