// Package credentials persists the Wi-Fi station credentials
package credentials

import (
	"errors"
	"fmt"
	"log"

	"beacon/internal/storage"
)

const (
	// Namespace is the storage namespace holding the credentials
	Namespace = "wifi_config"

	// KeySSID and KeyPassword are the stored keys
	KeySSID     = "ssid"
	KeyPassword = "password"

	// MaxSSIDLen and MaxPasswordLen are the station config limits in bytes
	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

var (
	// ErrNotFound is returned by Load when no credentials are stored
	ErrNotFound = errors.New("credentials not found")

	// ErrInvalidCredentials is returned for an empty or over-long SSID or password
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StoreError wraps a failure of the underlying storage
type StoreError struct {
	Op  string // "save", "load", "erase"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credential %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Credentials is a Wi-Fi SSID and password pair
type Credentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"-"`
}

// Validate checks the station config limits
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return fmt.Errorf("%w: ssid is empty", ErrInvalidCredentials)
	}
	if len(c.SSID) > MaxSSIDLen {
		return fmt.Errorf("%w: ssid exceeds %d bytes", ErrInvalidCredentials, MaxSSIDLen)
	}
	if len(c.Password) > MaxPasswordLen {
		return fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidCredentials, MaxPasswordLen)
	}
	return nil
}

// Store saves, loads and erases credentials.
// It holds no open handle: each call is one storage transaction.
type Store struct {
	storage storage.Storage
	logger  *log.Logger
}

// NewStore creates a new credential store on top of s
func NewStore(s storage.Storage, logger *log.Logger) *Store {
	return &Store{
		storage: s,
		logger:  logger,
	}
}

// Save persists ssid and password in one commit
func (s *Store) Save(ssid, password string) error {
	creds := Credentials{SSID: ssid, Password: password}
	if err := creds.Validate(); err != nil {
		return err
	}

	err := s.storage.SetStrings(Namespace, map[string]string{
		KeySSID:     ssid,
		KeyPassword: password,
	})
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}

	if s.logger != nil {
		s.logger.Printf("[Store] Wi-Fi credentials saved (SSID: %s)", ssid)
	}
	return nil
}

// Load returns the stored credentials or ErrNotFound
func (s *Store) Load() (Credentials, error) {
	ssid, err := s.storage.GetString(Namespace, KeySSID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, &StoreError{Op: "load", Err: err}
	}

	password, err := s.storage.GetString(Namespace, KeyPassword)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, &StoreError{Op: "load", Err: err}
	}

	if s.logger != nil {
		s.logger.Printf("[Store] Wi-Fi credentials loaded (SSID: %s)", ssid)
	}
	return Credentials{SSID: ssid, Password: password}, nil
}

// Erase removes the stored credentials. Erasing absent credentials succeeds.
func (s *Store) Erase() error {
	if err := s.storage.Delete(Namespace, KeySSID, KeyPassword); err != nil {
		return &StoreError{Op: "erase", Err: err}
	}

	if s.logger != nil {
		s.logger.Printf("[Store] Wi-Fi credentials erased")
	}
	return nil
}
