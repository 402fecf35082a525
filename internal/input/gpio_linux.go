//go:build linux

package input

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOConfig names the line offsets of the operator inputs on one chip.
type GPIOConfig struct {
	Chip     string
	Lines    [NumButtons]int
	Switch   int
	Debounce time.Duration
	// ActiveLow inverts every line (buttons pulling to ground).
	ActiveLow bool
}

// GPIO feeds Buttons and Switch from the Linux GPIO character device.
type GPIO struct {
	lines []*gpiocdev.Line
}

func OpenGPIO(cfg GPIOConfig, buttons *Buttons, sw *Switch) (*GPIO, error) {
	if buttons == nil || sw == nil {
		return nil, fmt.Errorf("input: buttons and switch are required")
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 10 * time.Millisecond
	}

	base := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithDebounce(cfg.Debounce),
		gpiocdev.WithConsumer("helirig-input"),
	}
	if cfg.ActiveLow {
		base = append(base, gpiocdev.AsActiveLow, gpiocdev.WithPullUp)
	}

	g := &GPIO{}
	for b := Button(0); b < NumButtons; b++ {
		id := b
		opts := append(append([]gpiocdev.LineReqOption{}, base...),
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { buttons.Press(id) }),
		)
		l, err := gpiocdev.RequestLine(cfg.Chip, cfg.Lines[b], opts...)
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("input: request %s button line %d: %w", b, cfg.Lines[b], err)
		}
		g.lines = append(g.lines, l)
	}

	opts := append(append([]gpiocdev.LineReqOption{}, base...),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			sw.Set(evt.Type == gpiocdev.LineEventRisingEdge)
		}),
	)
	l, err := gpiocdev.RequestLine(cfg.Chip, cfg.Switch, opts...)
	if err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("input: request switch line %d: %w", cfg.Switch, err)
	}
	g.lines = append(g.lines, l)

	v, err := l.Value()
	if err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("input: read switch: %w", err)
	}
	sw.Prime(v == 1)
	return g, nil
}

func (g *GPIO) Close() error {
	if g == nil {
		return nil
	}
	var errs []error
	for _, l := range g.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	g.lines = nil
	return errors.Join(errs...)
}
