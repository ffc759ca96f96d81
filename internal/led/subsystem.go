// Package led drives the indicator output in one of two exclusive modes:
// a steady single LED on a GPIO line, or an animated RGB strip.
package led

import (
	"log"
	"sync"

	"beacon/internal/peripheral"
)

// Mode is the active LED output mode
type Mode int

const (
	ModeOff Mode = iota
	ModeSingle
	ModeRGB
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeSingle:
		return "single"
	case ModeRGB:
		return "rgb"
	default:
		return "unknown"
	}
}

// State is a point-in-time view of the subsystem
type State struct {
	Mode          Mode   `json:"-"`
	ModeName      string `json:"mode"`
	GPIOHigh      bool   `json:"gpioHigh"`
	StripAcquired bool   `json:"stripAcquired"`
	Animating     bool   `json:"animating"`
}

// Options configures the subsystem
type Options struct {
	Animation AnimationConfig

	// OnModeChange is called with the new mode after every transition
	OnModeChange func(Mode)

	// OnFrame is called after every animation frame written to the strip
	OnFrame func()
}

// Subsystem owns the LED mode, the peripheral handles and the animation.
// All transitions run under one mutex and finish (including stopping the
// animation and releasing the strip) before returning.
type Subsystem struct {
	mu        sync.Mutex
	mode      Mode
	handles   *peripheral.Manager
	animation *Animation
	opts      Options
	logger    *log.Logger
}

// NewSubsystem creates the LED subsystem in ModeOff
func NewSubsystem(handles *peripheral.Manager, opts Options, logger *log.Logger) *Subsystem {
	if opts.Animation.Steps <= 0 {
		opts.Animation = DefaultAnimationConfig()
	}
	return &Subsystem{
		mode:    ModeOff,
		handles: handles,
		opts:    opts,
		logger:  logger,
	}
}

// TurnOnSingle tears down RGB mode if active and drives the GPIO line high
func (s *Subsystem) TurnOnSingle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logf("Switching to single LED mode")

	tornDown := s.stopRGBLocked()

	if err := s.handles.SetGPIO(true); err != nil {
		s.logf("Failed to turn on single LED: %v", err)
		if tornDown {
			s.setModeLocked(ModeOff)
		}
		return err
	}

	s.setModeLocked(ModeSingle)
	s.logf("Single LED turned on")
	return nil
}

// TurnOffSingle drives the GPIO line low
func (s *Subsystem) TurnOffSingle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.handles.SetGPIO(false); err != nil {
		s.logf("Failed to turn off single LED: %v", err)
		return err
	}

	if s.mode == ModeSingle {
		s.setModeLocked(ModeOff)
	}
	s.logf("Single LED turned off")
	return nil
}

// TurnOnRGB acquires the strip if needed, turns the single LED off and
// starts the animation unless one is already running
func (s *Subsystem) TurnOnRGB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hadStrip := s.handles.HasStrip()
	strip, err := s.handles.AcquireStrip()
	if err != nil {
		s.logf("Failed to acquire strip, staying in %s mode: %v", s.mode, err)
		return err
	}

	if err := s.handles.SetGPIO(false); err != nil {
		s.logf("Failed to turn off single LED before RGB: %v", err)
		if !hadStrip {
			if relErr := s.handles.ReleaseStrip(); relErr != nil {
				s.logf("Failed to release strip: %v", relErr)
			}
		}
		return err
	}

	if s.animation == nil {
		s.animation = StartAnimation(strip, s.opts.Animation, s.logger, s.opts.OnFrame)
	}

	s.setModeLocked(ModeRGB)
	s.logf("RGB LED turned on")
	return nil
}

// TurnOffRGB stops the animation, clears and releases the strip and drives
// the GPIO line low. Repeated calls are harmless.
func (s *Subsystem) TurnOffRGB() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logf("Turning off RGB LED")
	s.stopRGBLocked()

	if err := s.handles.SetGPIO(false); err != nil {
		s.logf("Failed to drive GPIO low: %v", err)
		s.setModeLocked(ModeOff)
		return err
	}

	s.setModeLocked(ModeOff)
	return nil
}

// stopRGBLocked joins the animation and releases the strip.
// Returns true if anything was torn down.
func (s *Subsystem) stopRGBLocked() bool {
	stopped := false

	if s.animation != nil {
		s.animation.Stop()
		s.animation = nil
		stopped = true
	}

	if s.handles.HasStrip() {
		if err := s.handles.ReleaseStrip(); err != nil {
			s.logf("Failed to release strip: %v", err)
		}
		stopped = true
	}

	return stopped
}

func (s *Subsystem) setModeLocked(m Mode) {
	s.mode = m
	if s.opts.OnModeChange != nil {
		s.opts.OnModeChange(m)
	}
}

// Mode returns the current mode
func (s *Subsystem) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns the current state
func (s *Subsystem) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Mode:          s.mode,
		ModeName:      s.mode.String(),
		GPIOHigh:      s.handles.GPIOLevel(),
		StripAcquired: s.handles.HasStrip(),
		Animating:     s.animation != nil && s.animation.Running(),
	}
}

// Close turns everything off and releases the peripherals
func (s *Subsystem) Close() error {
	if err := s.TurnOffRGB(); err != nil {
		s.logf("Error turning off LEDs on close: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles.Close()
}

func (s *Subsystem) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[LED] "+format, v...)
	}
}
