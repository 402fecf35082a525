// Package yaw decodes the rig's quadrature slot encoder into a heading in
// degrees, with a once-per-revolution reference pulse at 0.
package yaw

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// transitions maps prev<<2|cur of the 2-bit A/B state to a count delta.
// Zero entries are either no change or an invalid double step.
var transitions = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

func phase(a, b bool) uint8 {
	var p uint8
	if a {
		p |= 2
	}
	if b {
		p |= 1
	}
	return p
}

type Snapshot struct {
	Counts         int64
	Degrees        int32
	ReferenceFound bool
	Searching      bool
	Invalid        uint64
}

// Sensor counts quadrature edges. Edge and Reference may be called from
// event goroutines; the readers are lock-free.
type Sensor struct {
	countsPerRev int64

	mu   sync.Mutex
	last uint8

	count   atomic.Int64
	armed   atomic.Bool
	found   atomic.Bool
	invalid atomic.Uint64
}

// New returns a sensor for an encoder with the given slots per revolution.
func New(slots int) (*Sensor, error) {
	if slots <= 0 {
		return nil, fmt.Errorf("yaw: slots must be > 0")
	}
	return &Sensor{countsPerRev: int64(slots) * 4}, nil
}

// Prime sets the current A/B levels without counting.
func (s *Sensor) Prime(a, b bool) {
	s.mu.Lock()
	s.last = phase(a, b)
	s.mu.Unlock()
}

// Edge records the A/B levels after a change on either channel.
func (s *Sensor) Edge(a, b bool) {
	cur := phase(a, b)
	s.mu.Lock()
	prev := s.last
	s.last = cur
	s.mu.Unlock()

	if prev == cur {
		return
	}
	d := transitions[prev<<2|cur]
	if d == 0 {
		s.invalid.Add(1)
		return
	}
	s.count.Add(int64(d))
}

// Reference handles the reference pulse. While a search is armed it zeroes
// the count and latches ReferenceFound.
func (s *Sensor) Reference() {
	if !s.armed.CompareAndSwap(true, false) {
		return
	}
	s.count.Store(0)
	s.found.Store(true)
}

func (s *Sensor) TriggerReferenceSearch() {
	s.found.Store(false)
	s.armed.Store(true)
}

func (s *Sensor) ReferenceFound() bool { return s.found.Load() }

func (s *Sensor) Counts() int64 { return s.count.Load() }

// Yaw is the heading in whole degrees. It is not wrapped: one turn clockwise
// from the reference reads 360.
func (s *Sensor) Yaw() int32 {
	return int32(s.count.Load() * 360 / s.countsPerRev)
}

// ClosestReference returns the multiple of 360 nearest to deg.
func (s *Sensor) ClosestReference(deg int32) int32 {
	return ClosestReference(deg)
}

func ClosestReference(deg int32) int32 {
	d := int64(deg)
	n := d / 360
	rem := d % 360
	switch {
	case rem >= 180:
		n++
	case rem < -180:
		n--
	}
	r := n * 360
	if r > 1<<31-1 {
		r -= 360
	}
	if r < -1<<31 {
		r += 360
	}
	return int32(r)
}

func (s *Sensor) Snapshot() Snapshot {
	return Snapshot{
		Counts:         s.count.Load(),
		Degrees:        s.Yaw(),
		ReferenceFound: s.found.Load(),
		Searching:      s.armed.Load(),
		Invalid:        s.invalid.Load(),
	}
}
