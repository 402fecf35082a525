package ads1115

import (
	"errors"
	"fmt"
	"time"

	"helirig/internal/i2c"
)

var sleep = time.Sleep

// Minimal ADS1115 driver: single-ended AIN0, single-shot conversions.

const (
	addrDefault = 0x48

	regConversion = 0x00
	regConfig     = 0x01

	cfgOS        = 0x8000 // write: start conversion, read: idle
	cfgMuxAIN0   = 0x4000 // AIN0 vs GND
	cfgPGA4096   = 0x0200 // +/-4.096V
	cfgModeShot  = 0x0100
	cfgRate860   = 0x00E0
	cfgCompOff   = 0x0003
	cfgSingleEnd = cfgMuxAIN0 | cfgPGA4096 | cfgModeShot | cfgRate860 | cfgCompOff

	readyPolls    = 20
	readyInterval = 250 * time.Microsecond
)

var ErrNotReady = errors.New("ads1115: conversion not ready")

type regIO interface {
	ReadRegU16(reg byte) (uint16, error)
	WriteRegU16(reg byte, v uint16) error
}

type Device struct {
	dev regIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("ads1115: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("ads1115: dev is nil")
	}
	if err := dev.WriteRegU16(regConfig, cfgSingleEnd); err != nil {
		return nil, fmt.Errorf("ads1115: config write failed: %w", err)
	}
	got, err := dev.ReadRegU16(regConfig)
	if err != nil {
		return nil, fmt.Errorf("ads1115: config read failed: %w", err)
	}
	if got&^cfgOS != cfgSingleEnd {
		return nil, fmt.Errorf("ads1115: config=0x%04X want 0x%04X", got&^cfgOS, cfgSingleEnd)
	}
	return &Device{dev: dev}, nil
}

// ReadRaw runs one conversion and returns the signed result.
func (d *Device) ReadRaw() (int32, error) {
	if err := d.dev.WriteRegU16(regConfig, cfgSingleEnd|cfgOS); err != nil {
		return 0, fmt.Errorf("ads1115: start conversion: %w", err)
	}
	ready := false
	for i := 0; i < readyPolls; i++ {
		sleep(readyInterval)
		cfg, err := d.dev.ReadRegU16(regConfig)
		if err != nil {
			return 0, fmt.Errorf("ads1115: poll: %w", err)
		}
		if cfg&cfgOS != 0 {
			ready = true
			break
		}
	}
	if !ready {
		return 0, ErrNotReady
	}
	v, err := d.dev.ReadRegU16(regConversion)
	if err != nil {
		return 0, fmt.Errorf("ads1115: conversion read: %w", err)
	}
	return int32(int16(v)), nil
}
