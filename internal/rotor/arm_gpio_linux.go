//go:build linux

package rotor

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// armedDriver gates a PWM driver with a GPIO output, e.g. the enable pin of
// an ESC or motor driver. The line follows SetEnabled; it is driven low
// before the PWM output is disabled and raised only after it is enabled.
type armedDriver struct {
	Driver
	line *gpiocdev.Line
}

func openArmLine(d Driver, chip string, offset int) (Driver, error) {
	if offset < 0 {
		return d, nil
	}
	if chip == "" {
		chip = "gpiochip0"
	}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("helirig-rotor"))
	if err != nil {
		return nil, fmt.Errorf("rotor: request arm line %s:%d: %w", chip, offset, err)
	}
	return &armedDriver{Driver: d, line: line}, nil
}

func (a *armedDriver) SetEnabled(on bool) error {
	if !on {
		lerr := a.line.SetValue(0)
		return errors.Join(lerr, a.Driver.SetEnabled(false))
	}
	if err := a.Driver.SetEnabled(true); err != nil {
		return err
	}
	return a.line.SetValue(1)
}

func (a *armedDriver) Close() error {
	_ = a.line.SetValue(0)
	lerr := a.line.Close()
	return errors.Join(a.Driver.Close(), lerr)
}
