//go:build linux

package yaw

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

type GPIOConfig struct {
	Chip      string
	ChannelA  int
	ChannelB  int
	Reference int
}

// GPIO feeds a Sensor from gpiocdev edge events.
type GPIO struct {
	mu    sync.Mutex
	a, b  bool
	lines []*gpiocdev.Line
}

func OpenGPIO(cfg GPIOConfig, s *Sensor) (*GPIO, error) {
	if s == nil {
		return nil, errors.New("yaw: sensor is nil")
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	g := &GPIO{}

	quad := func(isA bool) func(gpiocdev.LineEvent) {
		return func(evt gpiocdev.LineEvent) {
			level := evt.Type == gpiocdev.LineEventRisingEdge
			g.mu.Lock()
			if isA {
				g.a = level
			} else {
				g.b = level
			}
			a, b := g.a, g.b
			g.mu.Unlock()
			s.Edge(a, b)
		}
	}

	lineA, err := gpiocdev.RequestLine(cfg.Chip, cfg.ChannelA,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("helirig-yaw-a"),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(quad(true)))
	if err != nil {
		return nil, fmt.Errorf("yaw: request channel A line %d: %w", cfg.ChannelA, err)
	}
	g.lines = append(g.lines, lineA)

	lineB, err := gpiocdev.RequestLine(cfg.Chip, cfg.ChannelB,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("helirig-yaw-b"),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(quad(false)))
	if err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("yaw: request channel B line %d: %w", cfg.ChannelB, err)
	}
	g.lines = append(g.lines, lineB)

	ref, err := gpiocdev.RequestLine(cfg.Chip, cfg.Reference,
		gpiocdev.AsInput,
		gpiocdev.AsActiveLow,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("helirig-yaw-ref"),
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { s.Reference() }))
	if err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("yaw: request reference line %d: %w", cfg.Reference, err)
	}
	g.lines = append(g.lines, ref)

	va, errA := lineA.Value()
	vb, errB := lineB.Value()
	if err := errors.Join(errA, errB); err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("yaw: read initial levels: %w", err)
	}
	g.mu.Lock()
	g.a, g.b = va != 0, vb != 0
	g.mu.Unlock()
	s.Prime(va != 0, vb != 0)
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
