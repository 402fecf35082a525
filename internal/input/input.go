// Package input turns operator buttons and the flight switch into the
// press counts and edge events the flight machine consumes.
package input

import (
	"sync/atomic"
)

type Button int

const (
	Up Button = iota
	Down
	Left
	Right
	NumButtons
)

var buttonNames = [...]string{"up", "down", "left", "right"}

func (b Button) String() string {
	if b < 0 || b >= NumButtons {
		return "unknown"
	}
	return buttonNames[b]
}

// ParseButton maps a config/script name to a Button.
func ParseButton(s string) (Button, bool) {
	for i, n := range buttonNames {
		if n == s {
			return Button(i), true
		}
	}
	return 0, false
}

// Buttons counts debounced presses per button. Press is called from GPIO
// event goroutines; TakePressCount from the poll loop.
type Buttons struct {
	counts [NumButtons]atomic.Int32
}

func (b *Buttons) Press(id Button) {
	if id < 0 || id >= NumButtons {
		return
	}
	b.counts[id].Add(1)
}

// TakePressCount returns the presses since the previous call and clears them.
func (b *Buttons) TakePressCount(id Button) int {
	if id < 0 || id >= NumButtons {
		return 0
	}
	return int(b.counts[id].Swap(0))
}

func (b *Buttons) ResetAll() {
	for i := range b.counts {
		b.counts[i].Store(0)
	}
}

type Edge int32

const (
	EdgeNone Edge = iota
	EdgeUp
	EdgeDown
)

func (e Edge) String() string {
	switch e {
	case EdgeUp:
		return "up"
	case EdgeDown:
		return "down"
	default:
		return "none"
	}
}

// Switch tracks the flight switch level and latches the most recent change
// until it is polled.
type Switch struct {
	up      atomic.Bool
	pending atomic.Int32
}

// Prime records the level seen at startup without producing an edge.
func (s *Switch) Prime(up bool) {
	s.up.Store(up)
	s.pending.Store(int32(EdgeNone))
}

// Set records a new debounced level. A change latches an edge, replacing any
// edge not yet polled.
func (s *Switch) Set(up bool) {
	if s.up.Swap(up) == up {
		return
	}
	if up {
		s.pending.Store(int32(EdgeUp))
	} else {
		s.pending.Store(int32(EdgeDown))
	}
}

func (s *Switch) Up() bool { return s.up.Load() }

// PollEdgeEvent returns the latched edge, if any, and clears it.
func (s *Switch) PollEdgeEvent() Edge {
	return Edge(s.pending.Swap(int32(EdgeNone)))
}

// Panel drives Buttons and Switch from software, for the web UI and scripts.
type Panel struct {
	Buttons *Buttons
	Switch  *Switch
}

func (p Panel) Press(b Button) { p.Buttons.Press(b) }

func (p Panel) SetSwitch(up bool) { p.Switch.Set(up) }
