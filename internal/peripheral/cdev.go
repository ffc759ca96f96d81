//go:build linux

package peripheral

import (
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// CdevLine is a GPIO output line on the Linux GPIO character device
type CdevLine struct {
	line *gpiod.Line
}

// NewCdevLine requests offset on chip (e.g. "gpiochip0") as an output, initially low
func NewCdevLine(chip string, offset int) (*CdevLine, error) {
	line, err := gpiod.RequestLine(chip, offset, gpiod.AsOutput(0), gpiod.WithConsumer("beacon"))
	if err != nil {
		return nil, fmt.Errorf("failed to request %s line %d: %w", chip, offset, err)
	}
	return &CdevLine{line: line}, nil
}

// SetLevel drives the line high or low
func (l *CdevLine) SetLevel(high bool) error {
	value := 0
	if high {
		value = 1
	}
	return l.line.SetValue(value)
}

// Close releases the line
func (l *CdevLine) Close() error {
	return l.line.Close()
}
