package web

import (
	"sync/atomic"
	"time"

	"helirig/internal/telemetry"
)

// Status is the latest rig state as served on /api/status. It is a
// telemetry.Sink; the static fields are set once at startup.
type Status struct {
	startUnixNano int64
	framesTotal   uint64
	frame         atomic.Value // telemetry.Frame
	haveFrame     atomic.Bool
	backends      atomic.Value // map[string]string
	details       atomic.Value // func() map[string]any
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.frame.Store(telemetry.Frame{})
	s.backends.Store(map[string]string{})
	s.details.Store(func() map[string]any { return nil })
	return s
}

// SetBackends records which driver backs each component (e.g. "sim", "gpio").
func (s *Status) SetBackends(b map[string]string) {
	if b != nil {
		s.backends.Store(b)
	}
}

// SetDetails installs a provider for per-component snapshots, read on each
// request.
func (s *Status) SetDetails(fn func() map[string]any) {
	if fn != nil {
		s.details.Store(fn)
	}
}

// Publish implements telemetry.Sink.
func (s *Status) Publish(f telemetry.Frame) error {
	s.frame.Store(f)
	s.haveFrame.Store(true)
	atomic.AddUint64(&s.framesTotal, 1)
	return nil
}

type StatusSnapshot struct {
	Service     string            `json:"service"`
	NowUTC      string            `json:"now_utc"`
	UptimeSec   int64             `json:"uptime_sec"`
	FramesTotal uint64            `json:"frames_total"`
	Frame       *telemetry.Frame  `json:"frame,omitempty"`
	Backends    map[string]string `json:"backends"`
	Details     map[string]any    `json:"details,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	snap := StatusSnapshot{
		Service:     "helirig",
		NowUTC:      nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:   int64(nowUTC.Sub(start).Seconds()),
		FramesTotal: atomic.LoadUint64(&s.framesTotal),
		Backends:    s.backends.Load().(map[string]string),
		Details:     s.details.Load().(func() map[string]any)(),
	}
	if s.haveFrame.Load() {
		f := s.frame.Load().(telemetry.Frame)
		snap.Frame = &f
	}
	return snap
}
