package events

// Event type constants for kelindar/event
const (
	TypeProvisioningStarted uint32 = iota + 1
	TypeCredentialsReceived
	TypeCredentialFailure
	TypeCredentialSuccess
	TypeProvisioningEnded
	TypeStationStarted
	TypeStationDisconnected
	TypeIPAcquired
	TypeLifecycle
)

// Event is implemented by every lifecycle event
type Event interface {
	Type() uint32
}

// FailureReason explains why the device could not join the network
type FailureReason int

const (
	ReasonAuthError FailureReason = iota
	ReasonAPNotFound
)

func (r FailureReason) String() string {
	switch r {
	case ReasonAuthError:
		return "auth_error"
	case ReasonAPNotFound:
		return "ap_not_found"
	default:
		return "unknown"
	}
}

// ProvisioningStarted is emitted when the provisioner starts advertising
type ProvisioningStarted struct{}

func (ProvisioningStarted) Type() uint32 { return TypeProvisioningStarted }

// CredentialsReceived carries credentials submitted by the pairing client
type CredentialsReceived struct {
	SSID     string
	Password string
}

func (CredentialsReceived) Type() uint32 { return TypeCredentialsReceived }

// CredentialFailure reports that joining with the received credentials failed
type CredentialFailure struct {
	Reason FailureReason
}

func (CredentialFailure) Type() uint32 { return TypeCredentialFailure }

// CredentialSuccess reports that the received credentials worked
type CredentialSuccess struct{}

func (CredentialSuccess) Type() uint32 { return TypeCredentialSuccess }

// ProvisioningEnded is emitted once the provisioner has finished
type ProvisioningEnded struct{}

func (ProvisioningEnded) Type() uint32 { return TypeProvisioningEnded }

// StationStarted is emitted when the Wi-Fi station comes up
type StationStarted struct{}

func (StationStarted) Type() uint32 { return TypeStationStarted }

// StationDisconnected is emitted when the station loses its access point
type StationDisconnected struct{}

func (StationDisconnected) Type() uint32 { return TypeStationDisconnected }

// IPAcquired is emitted when the station obtains an address
type IPAcquired struct {
	Addr string
}

func (IPAcquired) Type() uint32 { return TypeIPAcquired }

// Lifecycle wraps any lifecycle event. Every published event is also sent
// in this envelope so one subscriber sees all types in publish order.
type Lifecycle struct {
	Event Event
}

func (Lifecycle) Type() uint32 { return TypeLifecycle }
