package input

import "testing"

func TestButtons_TakePressCountResets(t *testing.T) {
	var b Buttons
	b.Press(Up)
	b.Press(Up)
	b.Press(Left)

	if got := b.TakePressCount(Up); got != 2 {
		t.Fatalf("up=%d want 2", got)
	}
	if got := b.TakePressCount(Up); got != 0 {
		t.Fatalf("up after take=%d want 0", got)
	}
	if got := b.TakePressCount(Left); got != 1 {
		t.Fatalf("left=%d want 1", got)
	}
}

func TestButtons_ResetAll(t *testing.T) {
	var b Buttons
	for id := Button(0); id < NumButtons; id++ {
		b.Press(id)
	}
	b.ResetAll()
	for id := Button(0); id < NumButtons; id++ {
		if got := b.TakePressCount(id); got != 0 {
			t.Fatalf("%s=%d want 0", id, got)
		}
	}
}

func TestButtons_OutOfRangeIgnored(t *testing.T) {
	var b Buttons
	b.Press(NumButtons)
	b.Press(-1)
	if got := b.TakePressCount(NumButtons); got != 0 {
		t.Fatalf("got=%d want 0", got)
	}
}

func TestSwitch_EdgesLatchedOnce(t *testing.T) {
	var s Switch
	if ev := s.PollEdgeEvent(); ev != EdgeNone {
		t.Fatalf("initial ev=%s want none", ev)
	}
	s.Set(true)
	if ev := s.PollEdgeEvent(); ev != EdgeUp {
		t.Fatalf("ev=%s want up", ev)
	}
	if ev := s.PollEdgeEvent(); ev != EdgeNone {
		t.Fatalf("second poll ev=%s want none", ev)
	}
	// Same level again is not an edge.
	s.Set(true)
	if ev := s.PollEdgeEvent(); ev != EdgeNone {
		t.Fatalf("repeat level ev=%s want none", ev)
	}
	s.Set(false)
	if ev := s.PollEdgeEvent(); ev != EdgeDown {
		t.Fatalf("ev=%s want down", ev)
	}
}

func TestSwitch_PrimeDoesNotProduceEdge(t *testing.T) {
	var s Switch
	s.Prime(true)
	if ev := s.PollEdgeEvent(); ev != EdgeNone {
		t.Fatalf("ev=%s want none", ev)
	}
	if !s.Up() {
		t.Fatalf("expected switch up")
	}
	s.Set(false)
	if ev := s.PollEdgeEvent(); ev != EdgeDown {
		t.Fatalf("ev=%s want down", ev)
	}
}

func TestSwitch_LatestEdgeWins(t *testing.T) {
	var s Switch
	s.Set(true)
	s.Set(false)
	if ev := s.PollEdgeEvent(); ev != EdgeDown {
		t.Fatalf("ev=%s want down", ev)
	}
}

func TestParseButton(t *testing.T) {
	if b, ok := ParseButton("right"); !ok || b != Right {
		t.Fatalf("got=%v ok=%v want right", b, ok)
	}
	if _, ok := ParseButton("sideways"); ok {
		t.Fatalf("expected unknown button")
	}
}
