// Package netif implements the Wi-Fi station on a Linux host by watching
// the IPv4 addresses of the host's network interfaces.
package netif

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"beacon/internal/credentials"
	"beacon/internal/events"
)

// DefaultPollInterval is how often addresses are checked
const DefaultPollInterval = 2 * time.Second

var (
	ErrNotStarted     = errors.New("station not started")
	ErrAlreadyStarted = errors.New("station already started")
)

// Publisher accepts lifecycle events
type Publisher interface {
	Publish(ev events.Event)
}

// AddrSource lists the usable IPv4 addresses, optionally restricted to one interface
type AddrSource func(iface string) []string

// Options configures a HostStation
type Options struct {
	Iface        string
	PollInterval time.Duration
	Addrs        AddrSource
}

// HostStation reports IPAcquired when an IPv4 address appears and
// StationDisconnected when it goes away or a connect attempt finds none.
// A connect attempt is judged on the next poll.
type HostStation struct {
	bus      Publisher
	iface    string
	interval time.Duration
	addrs    AddrSource
	logger   *log.Logger
	attempts chan struct{}

	mu        sync.Mutex
	ssid      string
	started   bool
	connected bool
	pending   bool
	addr      string
}

// NewHostStation creates a stopped station
func NewHostStation(bus Publisher, opts Options, logger *log.Logger) *HostStation {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Addrs == nil {
		opts.Addrs = LocalIPv4
	}
	return &HostStation{
		bus:      bus,
		iface:    opts.Iface,
		interval: opts.PollInterval,
		addrs:    opts.Addrs,
		logger:   logger,
		attempts: make(chan struct{}, 1),
	}
}

// Configure records the network to join. The host's own network stack
// owns the association; the SSID is kept for logs.
func (s *HostStation) Configure(creds credentials.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.ssid = creds.SSID
	s.mu.Unlock()

	s.logf("Station configured for SSID %q", creds.SSID)
	return nil
}

// Start launches the address watcher and emits StationStarted
func (s *HostStation) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)

	s.logf("Station started (poll every %s)", s.interval)
	s.bus.Publish(events.StationStarted{})
	return nil
}

// Connect requests a connect attempt. It never blocks.
func (s *HostStation) Connect() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return ErrNotStarted
	}

	select {
	case s.attempts <- struct{}{}:
	default:
	}
	return nil
}

// Addr returns the current address, empty while disconnected
func (s *HostStation) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *HostStation) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.attempts:
			s.attempt()
		case <-ticker.C:
			s.poll()
		}
	}
}

// attempt reports an address right away if one exists, otherwise leaves
// the attempt pending for the next poll. While connected the current
// address is reported again so a newly configured network is confirmed.
func (s *HostStation) attempt() {
	addr := s.firstAddr()

	s.mu.Lock()
	if s.connected && addr == s.addr {
		s.mu.Unlock()
		s.bus.Publish(events.IPAcquired{Addr: addr})
		return
	}
	if addr == "" {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.connected = true
	s.pending = false
	s.addr = addr
	s.mu.Unlock()

	s.bus.Publish(events.IPAcquired{Addr: addr})
}

func (s *HostStation) poll() {
	addr := s.firstAddr()

	s.mu.Lock()
	var ev events.Event
	switch {
	case addr != "" && !s.connected:
		s.connected = true
		s.pending = false
		s.addr = addr
		ev = events.IPAcquired{Addr: addr}
	case addr == "" && s.connected:
		s.connected = false
		s.addr = ""
		ev = events.StationDisconnected{}
	case addr == "" && s.pending:
		s.pending = false
		ev = events.StationDisconnected{}
	}
	s.mu.Unlock()

	if ev != nil {
		s.bus.Publish(ev)
	}
}

func (s *HostStation) firstAddr() string {
	addrs := s.addrs(s.iface)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func (s *HostStation) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[Station] "+format, v...)
	}
}

// LocalIPv4 returns the non-loopback IPv4 addresses of interfaces that are
// up, restricted to iface when it is not empty
func LocalIPv4(iface string) []string {
	var ips []string

	interfaces, err := net.Interfaces()
	if err != nil {
		return ips
	}

	for _, ifc := range interfaces {
		if iface != "" && ifc.Name != iface {
			continue
		}
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			ips = append(ips, ip.String())
		}
	}

	return ips
}
