package led

import (
	"context"
	"log"
	"time"

	"beacon/internal/peripheral"
)

// Palette is the fixed color cycle of the RGB animation
var Palette = [7]peripheral.Color{
	{R: 255, G: 0, B: 0},     // red
	{R: 255, G: 165, B: 0},   // orange
	{R: 255, G: 255, B: 0},   // yellow
	{R: 0, G: 255, B: 0},     // green
	{R: 0, G: 0, B: 255},     // blue
	{R: 75, G: 0, B: 130},    // indigo
	{R: 255, G: 255, B: 255}, // white
}

// Default animation timing
const (
	DefaultSteps      = 50
	DefaultFrameDelay = 20 * time.Millisecond
	DefaultPause      = 500 * time.Millisecond
)

// AnimationConfig controls the fade timing
type AnimationConfig struct {
	Steps      int           // interpolation steps per fade
	FrameDelay time.Duration // delay after each frame
	Pause      time.Duration // delay after each completed fade
}

// DefaultAnimationConfig returns the standard 50 step / 20ms / 500ms timing
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		Steps:      DefaultSteps,
		FrameDelay: DefaultFrameDelay,
		Pause:      DefaultPause,
	}
}

// Interpolate returns the color at step of steps between from and to.
// Each channel is c1 + (c2-c1)*step/steps with truncating integer division.
func Interpolate(from, to peripheral.Color, step, steps int) peripheral.Color {
	if steps <= 0 {
		return to
	}
	return peripheral.Color{
		R: lerp(from.R, to.R, step, steps),
		G: lerp(from.G, to.G, step, steps),
		B: lerp(from.B, to.B, step, steps),
	}
}

func lerp(c1, c2 uint8, step, steps int) uint8 {
	a, b := int(c1), int(c2)
	return uint8(a + (b-a)*step/steps)
}

// Animation is a running palette cycle on a strip.
// Stop cancels it and waits for the goroutine to exit.
type Animation struct {
	cancel  context.CancelFunc
	done    chan struct{}
	strip   peripheral.PixelDevice
	cfg     AnimationConfig
	logger  *log.Logger
	onFrame func()
}

// StartAnimation launches the palette cycle on strip
func StartAnimation(strip peripheral.PixelDevice, cfg AnimationConfig, logger *log.Logger, onFrame func()) *Animation {
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Animation{
		cancel:  cancel,
		done:    make(chan struct{}),
		strip:   strip,
		cfg:     cfg,
		logger:  logger,
		onFrame: onFrame,
	}

	go a.run(ctx)
	return a
}

// Stop cancels the animation and blocks until it no longer touches the strip.
// Safe to call more than once.
func (a *Animation) Stop() {
	a.cancel()
	<-a.done
}

// Running reports whether the animation goroutine is still alive
func (a *Animation) Running() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Done is closed when the animation goroutine exits
func (a *Animation) Done() <-chan struct{} {
	return a.done
}

func (a *Animation) run(ctx context.Context) {
	defer close(a.done)

	index := 0
	for {
		next := (index + 1) % len(Palette)

		for step := 0; step <= a.cfg.Steps; step++ {
			if ctx.Err() != nil {
				return
			}

			a.writeFrame(Interpolate(Palette[index], Palette[next], step, a.cfg.Steps))

			if !sleepCtx(ctx, a.cfg.FrameDelay) {
				return
			}
		}

		index = next

		if !sleepCtx(ctx, a.cfg.Pause) {
			return
		}
	}
}

// writeFrame pushes a single-pixel frame; errors are logged and the cycle continues
func (a *Animation) writeFrame(c peripheral.Color) {
	if err := a.strip.SetPixel(0, c); err != nil {
		if a.logger != nil {
			a.logger.Printf("[LED] Failed to set pixel: %v", err)
		}
		return
	}
	if err := a.strip.Refresh(); err != nil {
		if a.logger != nil {
			a.logger.Printf("[LED] Failed to refresh strip: %v", err)
		}
		return
	}
	if a.onFrame != nil {
		a.onFrame()
	}
}

// sleepCtx waits for d or until ctx is cancelled; returns false when cancelled
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
