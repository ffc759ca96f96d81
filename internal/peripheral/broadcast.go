package peripheral

import (
	"fmt"
	"sync"
	"time"
)

// Frame is one refreshed strip state
type Frame struct {
	Pixels    []Color   `json:"pixels"`
	Timestamp time.Time `json:"timestamp"`
}

// FrameSink receives refreshed frames. PushFrame must not block.
type FrameSink interface {
	PushFrame(f Frame)
}

// BroadcastStrip is a virtual strip that pushes every refresh to a FrameSink.
// Hosts without an addressable strip use it to show the animation remotely.
type BroadcastStrip struct {
	mu       sync.Mutex
	pixels   []Color
	sink     FrameSink
	released bool
}

// NewBroadcastStripFactory returns a factory of numPixels-long virtual strips
func NewBroadcastStripFactory(numPixels int, sink FrameSink) StripFactory {
	return func() (PixelDevice, error) {
		if numPixels < 1 {
			return nil, fmt.Errorf("strip needs at least one pixel, got %d", numPixels)
		}
		return &BroadcastStrip{
			pixels: make([]Color, numPixels),
			sink:   sink,
		}, nil
	}
}

// SetPixel stages a color
func (s *BroadcastStrip) SetPixel(index int, c Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}
	if index < 0 || index >= len(s.pixels) {
		return fmt.Errorf("pixel index %d out of range [0,%d)", index, len(s.pixels))
	}
	s.pixels[index] = c
	return nil
}

// Refresh pushes the staged pixels to the sink
func (s *BroadcastStrip) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}
	s.push()
	return nil
}

// Clear zeroes all pixels and pushes the dark frame
func (s *BroadcastStrip) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}
	for i := range s.pixels {
		s.pixels[i] = Color{}
	}
	s.push()
	return nil
}

// Release marks the handle unusable
func (s *BroadcastStrip) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = true
	return nil
}

// push sends a copy of the pixels, caller holds mu
func (s *BroadcastStrip) push() {
	if s.sink == nil {
		return
	}

	pixels := make([]Color, len(s.pixels))
	copy(pixels, s.pixels)
	s.sink.PushFrame(Frame{Pixels: pixels, Timestamp: time.Now()})
}
