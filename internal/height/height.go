// Package height turns raw ADC readings from the rig's height transducer into
// a height relative to the reading taken on the ground.
package height

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Source is a raw ADC channel.
type Source interface {
	ReadRaw() (int32, error)
}

type Config struct {
	// FullScale is the raw span between ground and maximum height.
	FullScale int32
	// ZeroSamples is how many reads are averaged for the ground reading.
	ZeroSamples int
}

type Snapshot struct {
	Raw        int32
	Zero       int32
	Calibrated bool
	Errors     uint64
}

type Sensor struct {
	cfg Config

	mu  sync.Mutex
	src Source

	latest     atomic.Int32
	zero       atomic.Int32
	calibrated atomic.Bool
	errs       atomic.Uint64
	failing    atomic.Bool
}

func New(cfg Config, src Source) (*Sensor, error) {
	if src == nil {
		return nil, fmt.Errorf("height: source is nil")
	}
	if cfg.FullScale <= 0 {
		return nil, fmt.Errorf("height: full_scale must be > 0")
	}
	if cfg.ZeroSamples <= 0 {
		cfg.ZeroSamples = 16
	}
	return &Sensor{cfg: cfg, src: src}, nil
}

func (s *Sensor) read() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.ReadRaw()
}

// Sample takes one reading and makes it the latest. Read errors keep the
// previous value.
func (s *Sensor) Sample() {
	v, err := s.read()
	if err != nil {
		s.errs.Add(1)
		if !s.failing.Swap(true) {
			log.Printf("height: sample failed: %v", err)
		}
		return
	}
	if s.failing.Swap(false) {
		log.Printf("height: sampling recovered")
	}
	s.latest.Store(v)
}

// TriggerZeroCalibration averages fresh reads into the ground reading. It
// blocks until done.
func (s *Sensor) TriggerZeroCalibration() {
	var sum int64
	n := 0
	for i := 0; i < s.cfg.ZeroSamples; i++ {
		v, err := s.read()
		if err != nil {
			s.errs.Add(1)
			continue
		}
		sum += int64(v)
		n++
	}
	if n == 0 {
		log.Printf("height: zero calibration failed: no good samples")
		return
	}
	zero := int32(sum / int64(n))
	s.zero.Store(zero)
	s.latest.Store(zero)
	s.calibrated.Store(true)
	log.Printf("height: zero=%d from %d samples", zero, n)
}

// Height is the raw distance above the ground reading, 0 until calibrated.
func (s *Sensor) Height() int32 {
	if !s.calibrated.Load() {
		return 0
	}
	return s.zero.Load() - s.latest.Load()
}

// HeightPercent is Height scaled to 0..100 of full scale.
func (s *Sensor) HeightPercent() int32 {
	p := int64(s.Height()) * 100 / int64(s.cfg.FullScale)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int32(p)
}

func (s *Sensor) Snapshot() Snapshot {
	return Snapshot{
		Raw:        s.latest.Load(),
		Zero:       s.zero.Load(),
		Calibrated: s.calibrated.Load(),
		Errors:     s.errs.Load(),
	}
}
