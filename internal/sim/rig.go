// Package sim is a software stand-in for the helicopter rig: first-order
// height and yaw dynamics, the height ADC, the yaw encoder and the rotor PWM
// outputs, plus scripted operator input.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"helirig/internal/rotor"
)

type RigConfig struct {
	// ZeroRaw is the ADC reading on the ground; readings fall by FullScale
	// over the full height range.
	ZeroRaw   int32
	FullScale int32

	// HoverDuty is the main duty that holds height.
	HoverDuty float64
	// ClimbRate is the climb in percent/s per percent of main duty above hover.
	ClimbRate float64
	// YawRate is the turn rate in deg/s per percent of net tail torque.
	YawRate float64
	// Coupling is the main rotor reaction torque, as tail duty per main duty.
	Coupling float64

	Slots    int
	StartYaw float64
}

func DefaultRigConfig() RigConfig {
	return RigConfig{
		ZeroRaw:   20000,
		FullScale: 1200,
		HoverDuty: 40,
		ClimbRate: 2,
		YawRate:   5,
		Coupling:  0.8,
		Slots:     112,
		StartYaw:  100,
	}
}

// EncoderSink receives the quadrature levels and the reference pulse.
// *yaw.Sensor implements it.
type EncoderSink interface {
	Prime(a, b bool)
	Edge(a, b bool)
	Reference()
}

type RigState struct {
	Height float64 `json:"height"`
	Yaw    float64 `json:"yaw"`
}

type rotorOut struct {
	duty float64
	on   bool
}

type Rig struct {
	cfg          RigConfig
	countsPerRev int64

	mu     sync.Mutex
	height float64
	angle  float64
	count  int64
	rotors [2]rotorOut
	enc    EncoderSink
}

func NewRig(cfg RigConfig, enc EncoderSink) *Rig {
	def := DefaultRigConfig()
	if cfg.FullScale <= 0 {
		cfg.FullScale = def.FullScale
	}
	if cfg.Slots <= 0 {
		cfg.Slots = def.Slots
	}
	r := &Rig{
		cfg:          cfg,
		countsPerRev: int64(cfg.Slots) * 4,
		angle:        cfg.StartYaw,
		enc:          enc,
	}
	r.count = r.countAt(r.angle)
	if enc != nil {
		a, b := quadPhase(r.count)
		enc.Prime(a, b)
	}
	return r
}

func (r *Rig) countAt(deg float64) int64 {
	return int64(math.Floor(deg * float64(r.countsPerRev) / 360))
}

// quadPhase returns the A/B levels at an encoder count. Counting up walks
// 00, 10, 11, 01.
func quadPhase(n int64) (a, b bool) {
	m := ((n % 4) + 4) % 4
	return m == 1 || m == 2, m == 2 || m == 3
}

func (r *Rig) effective(id rotor.ID) float64 {
	o := r.rotors[id]
	if !o.on {
		return 0
	}
	return o.duty
}

// Step advances the physics by dt and emits any encoder edges crossed.
func (r *Rig) Step(dt time.Duration) {
	sec := dt.Seconds()
	if sec <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	main := r.effective(rotor.Main)
	tail := r.effective(rotor.Tail)

	r.height += r.cfg.ClimbRate * (main - r.cfg.HoverDuty) * sec
	r.height = math.Max(0, math.Min(100, r.height))

	r.angle += r.cfg.YawRate * (tail - r.cfg.Coupling*main) * sec
	r.emitLocked(r.countAt(r.angle))
}

func (r *Rig) emitLocked(target int64) {
	for r.count != target {
		if r.count < target {
			r.count++
		} else {
			r.count--
		}
		if r.enc == nil {
			continue
		}
		a, b := quadPhase(r.count)
		r.enc.Edge(a, b)
		if r.count%r.countsPerRev == 0 {
			r.enc.Reference()
		}
	}
}

// ReadRaw implements the height ADC source.
func (r *Rig) ReadRaw() (int32, error) {
	r.mu.Lock()
	h := r.height
	r.mu.Unlock()
	return r.cfg.ZeroRaw - int32(math.Round(h*float64(r.cfg.FullScale)/100)), nil
}

func (r *Rig) State() RigState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RigState{Height: r.height, Yaw: r.angle}
}

// Run steps the rig in real time until ctx is canceled.
func (r *Rig) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = time.Millisecond
	}
	t := time.NewTicker(period)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			r.Step(now.Sub(last))
			last = now
		}
	}
}

// Driver returns a rotor.Driver that feeds the given rotor.
func (r *Rig) Driver(id rotor.ID) rotor.Driver {
	return &rigDriver{rig: r, id: id}
}

type rigDriver struct {
	rig *Rig
	id  rotor.ID
}

func (d *rigDriver) SetFrequencyHz(hz int) error { return nil }

func (d *rigDriver) SetDutyPercent(p float64) error {
	d.rig.mu.Lock()
	d.rig.rotors[d.id].duty = p
	d.rig.mu.Unlock()
	return nil
}

func (d *rigDriver) SetEnabled(on bool) error {
	d.rig.mu.Lock()
	d.rig.rotors[d.id].on = on
	d.rig.mu.Unlock()
	return nil
}

func (d *rigDriver) Close() error { return d.SetEnabled(false) }
