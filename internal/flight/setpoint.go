package flight

import "sync/atomic"

const (
	heightMin = 0
	heightMax = 100
)

// Setpoint is the commanded target the controllers steer toward.
// Height is percent of full scale in [0,100]; Yaw is signed degrees.
type Setpoint struct {
	Height int32
	Yaw    int32
}

// SetpointBox is the single-word mailbox between the poll loop (the only
// writer) and the high-rate controller task (reader). Both fields travel in
// one atomic word so a reader never observes a half-written pair.
type SetpointBox struct {
	v atomic.Uint64
}

func (b *SetpointBox) Load() Setpoint {
	w := b.v.Load()
	return Setpoint{Height: int32(uint32(w >> 32)), Yaw: int32(uint32(w))}
}

func (b *SetpointBox) Store(sp Setpoint) {
	b.v.Store(uint64(uint32(sp.Height))<<32 | uint64(uint32(sp.Yaw)))
}

func clampHeight(h int64) int32 {
	if h < heightMin {
		return heightMin
	}
	if h > heightMax {
		return heightMax
	}
	return int32(h)
}
