//go:build !linux

package yaw

import "errors"

type GPIOConfig struct {
	Chip      string
	ChannelA  int
	ChannelB  int
	Reference int
}

type GPIO struct{}

func OpenGPIO(cfg GPIOConfig, s *Sensor) (*GPIO, error) {
	return nil, errors.New("yaw: gpio unsupported OS (need linux)")
}

func (g *GPIO) Close() error { return nil }
