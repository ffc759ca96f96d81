package peripheral

import (
	"log"
)

// Manager owns the strip handle and the GPIO line.
// It is not safe for concurrent use; callers serialize access.
type Manager struct {
	newStrip StripFactory
	strip    PixelDevice
	line     Line
	level    bool
	logger   *log.Logger
}

// NewManager creates a handle manager for line and strips built by factory
func NewManager(line Line, factory StripFactory, logger *log.Logger) *Manager {
	return &Manager{
		newStrip: factory,
		line:     line,
		logger:   logger,
	}
}

// AcquireStrip returns the current strip handle, constructing one if absent
func (m *Manager) AcquireStrip() (PixelDevice, error) {
	if m.strip != nil {
		return m.strip, nil
	}

	if m.newStrip == nil {
		return nil, &Error{Device: "strip", Op: "acquire", Err: ErrReleased}
	}

	strip, err := m.newStrip()
	if err != nil {
		return nil, &Error{Device: "strip", Op: "acquire", Err: err}
	}

	// New handles start dark
	if err := strip.Clear(); err != nil && m.logger != nil {
		m.logger.Printf("[LED] Failed to clear new strip: %v", err)
	}

	m.strip = strip
	if m.logger != nil {
		m.logger.Printf("[LED] Strip peripheral acquired")
	}
	return strip, nil
}

// ReleaseStrip clears and releases the strip handle. No-op when absent.
func (m *Manager) ReleaseStrip() error {
	if m.strip == nil {
		return nil
	}

	strip := m.strip
	m.strip = nil

	if err := strip.Clear(); err != nil && m.logger != nil {
		m.logger.Printf("[LED] Failed to clear strip before release: %v", err)
	}

	if err := strip.Release(); err != nil {
		return &Error{Device: "strip", Op: "release", Err: err}
	}

	if m.logger != nil {
		m.logger.Printf("[LED] Strip peripheral released")
	}
	return nil
}

// Strip returns the current strip handle or nil
func (m *Manager) Strip() PixelDevice {
	return m.strip
}

// HasStrip reports whether a strip handle is held
func (m *Manager) HasStrip() bool {
	return m.strip != nil
}

// SetGPIO drives the single-LED line
func (m *Manager) SetGPIO(high bool) error {
	if m.line == nil {
		m.level = high
		return nil
	}

	if err := m.line.SetLevel(high); err != nil {
		return &Error{Device: "gpio", Op: "set", Err: err}
	}
	m.level = high
	return nil
}

// GPIOLevel returns the last level written to the line
func (m *Manager) GPIOLevel() bool {
	return m.level
}

// Close releases the strip and the GPIO line
func (m *Manager) Close() error {
	stripErr := m.ReleaseStrip()

	if m.line != nil {
		if err := m.line.Close(); err != nil {
			return &Error{Device: "gpio", Op: "close", Err: err}
		}
		m.line = nil
	}

	return stripErr
}
