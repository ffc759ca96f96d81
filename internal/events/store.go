package events

import (
	"sync"
	"time"
)

// ActivityType classifies an activity log entry
type ActivityType string

const (
	ActivityCommand      ActivityType = "command"
	ActivityModeChange   ActivityType = "mode_change"
	ActivityProvisioning ActivityType = "provisioning"
	ActivityConnectivity ActivityType = "connectivity"
)

// Activity is one entry of the device activity log
type Activity struct {
	ID        int64        `json:"id"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
	Success   bool         `json:"success"`
	Details   string       `json:"details,omitempty"`
}

// Store holds activity entries in memory with a fixed capacity (ring buffer)
type Store struct {
	mu      sync.RWMutex
	entries []Activity
	maxSize int
	nextID  int64
}

// NewStore creates a store keeping at most maxSize entries
func NewStore(maxSize int) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		entries: make([]Activity, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when full
func (s *Store) Add(kind ActivityType, source string, success bool, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry := Activity{
		ID:        s.nextID,
		Type:      kind,
		Timestamp: time.Now(),
		Source:    source,
		Success:   success,
		Details:   details,
	}

	if len(s.entries) >= s.maxSize {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, entry)
}

// GetLast returns the last n entries (newest first)
func (s *Store) GetLast(n int) []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.entries) || n <= 0 {
		n = len(s.entries)
	}

	result := make([]Activity, n)
	for i := 0; i < n; i++ {
		result[i] = s.entries[len(s.entries)-1-i]
	}
	return result
}

// GetSince returns entries newer than lastID (newest first)
func (s *Store) GetSince(lastID int64) []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Activity
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID <= lastID {
			break
		}
		result = append(result, s.entries[i])
	}
	return result
}

// Count returns the number of retained entries
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LastID returns the ID of the most recent entry
func (s *Store) LastID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
