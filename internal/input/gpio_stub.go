//go:build !linux

package input

import (
	"fmt"
	"time"
)

type GPIOConfig struct {
	Chip      string
	Lines     [NumButtons]int
	Switch    int
	Debounce  time.Duration
	ActiveLow bool
}

type GPIO struct{}

func OpenGPIO(cfg GPIOConfig, buttons *Buttons, sw *Switch) (*GPIO, error) {
	return nil, fmt.Errorf("input: gpio unsupported on this platform")
}

func (g *GPIO) Close() error { return nil }
