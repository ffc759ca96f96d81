// Package peripheral abstracts the LED hardware: a single GPIO output line
// and an addressable pixel strip that is created on demand.
package peripheral

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a released strip handle is used
var ErrReleased = errors.New("strip handle released")

// Color is an RGB pixel value
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// PixelDevice is an acquired handle to an addressable LED strip
type PixelDevice interface {
	// SetPixel stages a color for pixel index
	SetPixel(index int, c Color) error

	// Refresh pushes staged pixels to the strip
	Refresh() error

	// Clear turns all pixels off
	Clear() error

	// Release frees the underlying peripheral; the handle is unusable afterwards
	Release() error
}

// StripFactory constructs a new strip handle
type StripFactory func() (PixelDevice, error)

// Line is a single GPIO output line
type Line interface {
	// SetLevel drives the line high or low
	SetLevel(high bool) error

	// Close releases the line
	Close() error
}

// Error describes a peripheral failure
type Error struct {
	Device string // "strip" or "gpio"
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Device, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
