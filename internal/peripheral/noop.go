package peripheral

import (
	"log"
)

// NoopLine is used when no GPIO line is configured
type NoopLine struct {
	logger *log.Logger
}

// NewNoopLine creates a line that only logs level changes
func NewNoopLine(logger *log.Logger) *NoopLine {
	return &NoopLine{logger: logger}
}

// SetLevel logs the requested level
func (l *NoopLine) SetLevel(high bool) error {
	if l.logger != nil {
		l.logger.Printf("[GPIO] (no line configured) level=%v", high)
	}
	return nil
}

// Close does nothing
func (l *NoopLine) Close() error {
	return nil
}

// NoopStrip is a strip that discards every frame
type NoopStrip struct {
	released bool
}

// NoopStripFactory builds NoopStrip handles
func NoopStripFactory() (PixelDevice, error) {
	return &NoopStrip{}, nil
}

// SetPixel discards the pixel
func (s *NoopStrip) SetPixel(index int, c Color) error {
	if s.released {
		return ErrReleased
	}
	return nil
}

// Refresh discards the frame
func (s *NoopStrip) Refresh() error {
	if s.released {
		return ErrReleased
	}
	return nil
}

// Clear does nothing
func (s *NoopStrip) Clear() error {
	if s.released {
		return ErrReleased
	}
	return nil
}

// Release marks the handle unusable
func (s *NoopStrip) Release() error {
	s.released = true
	return nil
}
