package auth

import (
	"context"
	"sync"
	"time"
)

// FailureLimiter blocks clients that present too many bad tokens
type FailureLimiter struct {
	mu       sync.Mutex
	attempts map[string]*ipAttempts

	maxFailures int
	window      time.Duration
	blockTime   time.Duration
}

type ipAttempts struct {
	count     int
	firstTime time.Time
	blockEnd  time.Time
}

// NewFailureLimiter creates a limiter.
// Default: 5 failures per 2 minutes, block for 5 minutes.
func NewFailureLimiter() *FailureLimiter {
	return &FailureLimiter{
		attempts:    make(map[string]*ipAttempts),
		maxFailures: 5,
		window:      2 * time.Minute,
		blockTime:   5 * time.Minute,
	}
}

// Blocked reports whether ip is blocked and the seconds until it is released
func (l *FailureLimiter) Blocked(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	att, ok := l.attempts[ip]
	if !ok || att.blockEnd.IsZero() {
		return false, 0
	}

	now := time.Now()
	if now.After(att.blockEnd) {
		delete(l.attempts, ip)
		return false, 0
	}
	return true, int(att.blockEnd.Sub(now).Seconds()) + 1
}

// RecordFailure counts a failed authentication from ip
func (l *FailureLimiter) RecordFailure(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	att, ok := l.attempts[ip]
	if !ok || now.Sub(att.firstTime) > l.window {
		l.attempts[ip] = &ipAttempts{count: 1, firstTime: now}
		att = l.attempts[ip]
	} else {
		att.count++
	}

	if att.count >= l.maxFailures {
		att.blockEnd = now.Add(l.blockTime)
	}
}

// Reset clears the record for ip after a successful authentication
func (l *FailureLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// RunCleanup periodically drops stale entries until ctx is done
func (l *FailureLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *FailureLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, att := range l.attempts {
		blocked := !att.blockEnd.IsZero()
		if (!blocked && now.Sub(att.firstTime) > l.window) || (blocked && now.After(att.blockEnd)) {
			delete(l.attempts, ip)
		}
	}
}
