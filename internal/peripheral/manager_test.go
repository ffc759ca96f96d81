package peripheral

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	levels   []bool
	closed   bool
	setError error
}

func (l *fakeLine) SetLevel(high bool) error {
	if l.setError != nil {
		return l.setError
	}
	l.levels = append(l.levels, high)
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) PushFrame(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *recordingSink) last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

func TestManagerAcquireIsIdempotent(t *testing.T) {
	built := 0
	factory := func() (PixelDevice, error) {
		built++
		return &NoopStrip{}, nil
	}

	m := NewManager(&fakeLine{}, factory, nil)

	first, err := m.AcquireStrip()
	require.NoError(t, err)
	second, err := m.AcquireStrip()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
	assert.True(t, m.HasStrip())
}

func TestManagerReleaseAbsentIsNoop(t *testing.T) {
	m := NewManager(&fakeLine{}, NoopStripFactory, nil)

	assert.NoError(t, m.ReleaseStrip())
	assert.NoError(t, m.ReleaseStrip())
	assert.False(t, m.HasStrip())
}

func TestManagerReleaseThenAcquireBuildsNewHandle(t *testing.T) {
	m := NewManager(&fakeLine{}, NoopStripFactory, nil)

	first, err := m.AcquireStrip()
	require.NoError(t, err)
	require.NoError(t, m.ReleaseStrip())

	// Released handles refuse further writes
	assert.ErrorIs(t, first.Refresh(), ErrReleased)

	second, err := m.AcquireStrip()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestManagerAcquireFailure(t *testing.T) {
	boom := errors.New("spi bus busy")
	m := NewManager(&fakeLine{}, func() (PixelDevice, error) { return nil, boom }, nil)

	_, err := m.AcquireStrip()

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "strip", perr.Device)
	assert.Equal(t, "acquire", perr.Op)
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.HasStrip())
}

func TestManagerGPIO(t *testing.T) {
	line := &fakeLine{}
	m := NewManager(line, NoopStripFactory, nil)

	require.NoError(t, m.SetGPIO(true))
	assert.True(t, m.GPIOLevel())
	require.NoError(t, m.SetGPIO(false))
	assert.False(t, m.GPIOLevel())
	assert.Equal(t, []bool{true, false}, line.levels)

	line.setError = errors.New("line busy")
	err := m.SetGPIO(true)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "gpio", perr.Device)
	// Level unchanged on failure
	assert.False(t, m.GPIOLevel())
}

func TestManagerClose(t *testing.T) {
	line := &fakeLine{}
	m := NewManager(line, NoopStripFactory, nil)

	_, err := m.AcquireStrip()
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.True(t, line.closed)
	assert.False(t, m.HasStrip())
}

func TestBroadcastStrip(t *testing.T) {
	sink := &recordingSink{}
	strip, err := NewBroadcastStripFactory(3, sink)()
	require.NoError(t, err)

	require.NoError(t, strip.SetPixel(1, Color{R: 10, G: 20, B: 30}))
	require.NoError(t, strip.Refresh())
	assert.Equal(t, []Color{{}, {R: 10, G: 20, B: 30}, {}}, sink.last().Pixels)

	assert.Error(t, strip.SetPixel(3, Color{}))
	assert.Error(t, strip.SetPixel(-1, Color{}))

	require.NoError(t, strip.Clear())
	assert.Equal(t, []Color{{}, {}, {}}, sink.last().Pixels)

	require.NoError(t, strip.Release())
	assert.ErrorIs(t, strip.SetPixel(0, Color{}), ErrReleased)
	assert.ErrorIs(t, strip.Refresh(), ErrReleased)
	assert.ErrorIs(t, strip.Clear(), ErrReleased)
}

func TestBroadcastStripFramesAreCopies(t *testing.T) {
	sink := &recordingSink{}
	strip, err := NewBroadcastStripFactory(1, sink)()
	require.NoError(t, err)

	require.NoError(t, strip.SetPixel(0, Color{R: 1}))
	require.NoError(t, strip.Refresh())
	frame := sink.last()

	require.NoError(t, strip.SetPixel(0, Color{R: 2}))
	assert.Equal(t, uint8(1), frame.Pixels[0].R)
}

func TestBroadcastStripFactoryRejectsEmpty(t *testing.T) {
	_, err := NewBroadcastStripFactory(0, nil)()
	assert.Error(t, err)
}
