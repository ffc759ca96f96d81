package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const (
	// WSTokenTTL is how long a WebSocket token is valid
	WSTokenTTL = 30 * time.Second
	// WSTokenLength is the byte length of the token (hex encoded to 2x)
	WSTokenLength = 32
)

// WSTokenStore issues one-time tokens for WebSocket upgrades, which
// browsers cannot send with an Authorization header
type WSTokenStore struct {
	mu     sync.Mutex
	tokens map[string]wsTokenEntry
	ttl    time.Duration
}

type wsTokenEntry struct {
	principal Principal
	createdAt time.Time
}

// NewWSTokenStore creates an empty token store
func NewWSTokenStore() *WSTokenStore {
	return &WSTokenStore{
		tokens: make(map[string]wsTokenEntry),
		ttl:    WSTokenTTL,
	}
}

// Generate creates a one-time token for p
func (s *WSTokenStore) Generate(p Principal) (string, error) {
	bytes := make([]byte, WSTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(bytes)

	s.mu.Lock()
	s.tokens[token] = wsTokenEntry{principal: p, createdAt: time.Now()}
	s.mu.Unlock()

	return token, nil
}

// Validate consumes token and returns its principal
func (s *WSTokenStore) Validate(token string) (Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return Principal{}, false
	}
	delete(s.tokens, token)

	if time.Since(entry.createdAt) > s.ttl {
		return Principal{}, false
	}
	return entry.principal, true
}

// RunCleanup periodically removes expired tokens until ctx is done
func (s *WSTokenStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *WSTokenStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, entry := range s.tokens {
		if now.Sub(entry.createdAt) > s.ttl {
			delete(s.tokens, token)
		}
	}
}
