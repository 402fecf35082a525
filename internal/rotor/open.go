package rotor

import (
	"errors"
	"fmt"
)

var openPWMFn = openPWM
var openArmLineFn = openArmLine

// Config selects the hardware outputs for both rotors.
type Config struct {
	// PWMChip is the sysfs chip name (e.g. "pwmchip0"); empty picks the first
	// chip with enough channels.
	PWMChip     string
	MainChannel int
	TailChannel int
	FrequencyHz int

	// Optional GPIO arm lines; -1 disables.
	ArmChip     string
	MainArmLine int
	TailArmLine int
}

// Open builds an Actuator on sysfs PWM channels.
func Open(cfg Config) (*Actuator, error) {
	if cfg.MainChannel == cfg.TailChannel {
		return nil, fmt.Errorf("rotor: main and tail share pwm channel %d", cfg.MainChannel)
	}
	main, err := openOne(cfg, cfg.MainChannel, cfg.MainArmLine)
	if err != nil {
		return nil, fmt.Errorf("rotor: main: %w", err)
	}
	tail, err := openOne(cfg, cfg.TailChannel, cfg.TailArmLine)
	if err != nil {
		_ = main.Close()
		return nil, fmt.Errorf("rotor: tail: %w", err)
	}
	a, err := NewActuator(main, tail, cfg.FrequencyHz)
	if err != nil {
		return nil, errors.Join(err, main.Close(), tail.Close())
	}
	return a, nil
}

func openOne(cfg Config, channel, armLine int) (Driver, error) {
	d, err := openPWMFn(cfg.PWMChip, channel)
	if err != nil {
		return nil, err
	}
	armed, err := openArmLineFn(d, cfg.ArmChip, armLine)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return armed, nil
}
