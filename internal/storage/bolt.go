package storage

import (
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultOpenTimeout bounds how long Open waits for the file lock
const DefaultOpenTimeout = 1 * time.Second

// BoltStorage is a bbolt implementation of the Storage interface.
// It does not keep the database open: every call opens the file, runs one
// transaction against the namespace bucket, commits and closes again.
type BoltStorage struct {
	path    string
	timeout time.Duration

	// bbolt holds an flock on the file while open, so calls from
	// the same process must not overlap
	mu sync.Mutex
}

// NewBoltStorage creates a new BoltStorage instance
// The database file will be created if it doesn't exist
func NewBoltStorage(path string) (*BoltStorage, error) {
	s := &BoltStorage{
		path:    path,
		timeout: DefaultOpenTimeout,
	}

	// Open once so that a bad path is reported at startup
	if err := s.withDB(func(db *bbolt.DB) error { return nil }); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *BoltStorage) Path() string {
	return s.path
}

// withDB opens the database, runs fn and closes the database
func (s *BoltStorage) withDB(fn func(db *bbolt.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{
		Timeout: s.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open bolt database: %w", err)
	}

	fnErr := fn(db)

	if err := db.Close(); err != nil && fnErr == nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}

	return fnErr
}

// GetString retrieves a value by key
func (s *BoltStorage) GetString(namespace, key string) (string, error) {
	if namespace == "" {
		return "", ErrNamespaceRequired
	}

	var value string
	err := s.withDB(func(db *bbolt.DB) error {
		return db.View(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(namespace))
			if bucket == nil {
				return ErrNotFound
			}

			data := bucket.Get([]byte(key))
			if data == nil {
				return ErrNotFound
			}

			// data is only valid for the life of the transaction
			value = string(data)
			return nil
		})
	})

	return value, err
}

// SetStrings stores all values in a single commit
func (s *BoltStorage) SetStrings(namespace string, values map[string]string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}

	return s.withDB(func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
			if err != nil {
				return fmt.Errorf("failed to create namespace bucket: %w", err)
			}

			for key, value := range values {
				if err := bucket.Put([]byte(key), []byte(value)); err != nil {
					return fmt.Errorf("failed to put %s: %w", key, err)
				}
			}

			return nil
		})
	})
}

// Delete removes keys from a namespace
func (s *BoltStorage) Delete(namespace string, keys ...string) error {
	if namespace == "" {
		return ErrNamespaceRequired
	}

	return s.withDB(func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(namespace))
			if bucket == nil {
				// Nothing stored yet
				return nil
			}

			for _, key := range keys {
				// bbolt treats deleting a missing key as a no-op
				if err := bucket.Delete([]byte(key)); err != nil {
					return fmt.Errorf("failed to delete %s: %w", key, err)
				}
			}

			return nil
		})
	})
}

// List returns all keys and values of a namespace
func (s *BoltStorage) List(namespace string) (map[string]string, error) {
	if namespace == "" {
		return nil, ErrNamespaceRequired
	}

	result := make(map[string]string)
	err := s.withDB(func(db *bbolt.DB) error {
		return db.View(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(namespace))
			if bucket == nil {
				// Namespace has no data yet - return empty map
				return nil
			}

			return bucket.ForEach(func(k, v []byte) error {
				result[string(k)] = string(v)
				return nil
			})
		})
	})

	return result, err
}
