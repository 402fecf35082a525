// Package control closes the height and yaw loops. Update runs on the
// high-rate scheduler task; Reset, Preload and SetTarget come from the poll
// loop.
package control

import (
	"sync"
	"time"

	"go.einride.tech/pid"

	"helirig/internal/flight"
	"helirig/internal/rotor"
)

type DutySetter interface {
	SetDutyCycle(r rotor.ID, percent int)
}

type HeightSource interface {
	HeightPercent() int32
}

type YawSource interface {
	Yaw() int32
}

type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

func (g Gains) config() pid.ControllerConfig {
	return pid.ControllerConfig{
		ProportionalGain: g.Kp,
		IntegralGain:     g.Ki,
		DerivativeGain:   g.Kd,
	}
}

// loop is a PID controller driving one rotor around a fixed duty offset.
type loop struct {
	mu     sync.Mutex
	pid    pid.Controller
	offset float64
	rotor  rotor.ID
	motors DutySetter
	duty   int
}

func newLoop(g Gains, offset float64, r rotor.ID, motors DutySetter) *loop {
	return &loop{
		pid:    pid.Controller{Config: g.config()},
		offset: offset,
		rotor:  r,
		motors: motors,
	}
}

func (l *loop) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pid.Reset()
}

func (l *loop) update(reference, actual float64, dt time.Duration) {
	if dt <= 0 {
		return
	}
	l.mu.Lock()
	l.pid.Update(pid.ControllerInput{
		ReferenceSignal:  reference,
		ActualSignal:     actual,
		SamplingInterval: dt,
	})
	duty := rotor.ClampDuty(int(l.offset + l.pid.State.ControlSignal + 0.5))
	l.duty = duty
	l.mu.Unlock()

	l.motors.SetDutyCycle(l.rotor, duty)
}

func (l *loop) lastDuty() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.duty
}

type HeightConfig struct {
	Gains
	// HoverDuty is the main rotor feed-forward duty (percent).
	HoverDuty float64
}

// Height holds the rig at the setpoint height by driving the main rotor.
type Height struct {
	*loop
	sensor HeightSource
	sp     *flight.SetpointBox
}

func NewHeight(cfg HeightConfig, sensor HeightSource, motors DutySetter, sp *flight.SetpointBox) *Height {
	return &Height{
		loop:   newLoop(cfg.Gains, cfg.HoverDuty, rotor.Main, motors),
		sensor: sensor,
		sp:     sp,
	}
}

func (h *Height) Reset() { h.reset() }

// Preload seeds the integral so its contribution equals bias duty, and primes
// the previous error with step so the first update after a setpoint step of
// that size produces no derivative kick.
func (h *Height) Preload(bias float64, step int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ki := h.pid.Config.IntegralGain; ki != 0 {
		h.pid.State.ControlErrorIntegral = bias / ki
	}
	h.pid.State.ControlError = float64(step)
}

func (h *Height) Target() int32 { return h.sp.Load().Height }

// SetTarget rewrites one field of the shared setpoint. It is a
// read-modify-write, so only the goroutine that polls the flight machine may
// call it.
func (h *Height) SetTarget(percent int32) {
	sp := h.sp.Load()
	sp.Height = percent
	h.sp.Store(sp)
}

func (h *Height) Update(dt time.Duration) {
	h.update(float64(h.Target()), float64(h.sensor.HeightPercent()), dt)
}

func (h *Height) Duty() int { return h.lastDuty() }

type YawConfig struct {
	Gains
	// TailOffset is the tail rotor feed-forward duty (percent).
	TailOffset float64
}

// Yaw holds the rig at the setpoint heading by driving the tail rotor.
type Yaw struct {
	*loop
	sensor YawSource
	sp     *flight.SetpointBox
}

func NewYaw(cfg YawConfig, sensor YawSource, motors DutySetter, sp *flight.SetpointBox) *Yaw {
	return &Yaw{
		loop:   newLoop(cfg.Gains, cfg.TailOffset, rotor.Tail, motors),
		sensor: sensor,
		sp:     sp,
	}
}

func (y *Yaw) Reset() { y.reset() }

func (y *Yaw) Target() int32 { return y.sp.Load().Yaw }

// SetTarget rewrites one field of the shared setpoint. It is a
// read-modify-write, so only the goroutine that polls the flight machine may
// call it.
func (y *Yaw) SetTarget(deg int32) {
	sp := y.sp.Load()
	sp.Yaw = deg
	y.sp.Store(sp)
}

func (y *Yaw) Update(dt time.Duration) {
	y.update(float64(y.Target()), float64(y.sensor.Yaw()), dt)
}

func (y *Yaw) Duty() int { return y.lastDuty() }
