//go:build !linux

package peripheral

import (
	"errors"
)

// CdevLine is only available on Linux
type CdevLine struct{}

// NewCdevLine always fails outside Linux
func NewCdevLine(chip string, offset int) (*CdevLine, error) {
	return nil, errors.New("GPIO character device is only supported on linux")
}

// SetLevel is never reached
func (l *CdevLine) SetLevel(high bool) error {
	return errors.New("GPIO character device is only supported on linux")
}

// Close is never reached
func (l *CdevLine) Close() error {
	return nil
}
