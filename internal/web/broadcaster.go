package web

import (
	"sync"

	"helirig/internal/telemetry"
)

// FrameBroadcaster fans telemetry frames out to stream subscribers. It keeps
// the most recent frame so a new subscriber gets an immediate sample. Slow
// subscribers drop frames rather than block the publisher.
type FrameBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan telemetry.Frame
	nextID   int
	last     telemetry.Frame
	haveLast bool
}

func NewFrameBroadcaster() *FrameBroadcaster {
	return &FrameBroadcaster{subs: make(map[int]chan telemetry.Frame)}
}

func (b *FrameBroadcaster) Subscribe(buffer int) (int, <-chan telemetry.Frame) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan telemetry.Frame, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last, have := b.last, b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *FrameBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *FrameBroadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish implements telemetry.Sink.
func (b *FrameBroadcaster) Publish(f telemetry.Frame) error {
	if b == nil {
		return nil
	}
	// Send under the read lock so Unsubscribe cannot close a channel mid-send.
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- f:
		default:
		}
	}
	b.mu.RUnlock()

	b.mu.Lock()
	b.last = f
	b.haveLast = true
	b.mu.Unlock()
	return nil
}
