package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when a key is not found
	ErrNotFound = errors.New("key not found")

	// ErrNamespaceRequired is returned when an empty namespace is used
	ErrNamespaceRequired = errors.New("namespace is required")
)

// Storage is a namespaced string key-value store
type Storage interface {
	// GetString retrieves a value by key
	// Returns ErrNotFound if the namespace or key doesn't exist
	GetString(namespace, key string) (string, error)

	// SetStrings stores all values in a single commit
	SetStrings(namespace string, values map[string]string) error

	// Delete removes keys from a namespace
	// Missing keys and missing namespaces are not an error
	Delete(namespace string, keys ...string) error

	// List returns all keys and values of a namespace
	List(namespace string) (map[string]string, error)
}
