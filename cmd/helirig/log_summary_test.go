package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"helirig/internal/flightlog"
	"helirig/internal/telemetry"
)

func frame(mode string, height int32) *telemetry.Frame {
	return &telemetry.Frame{Mode: mode, Height: height}
}

func TestSummarizeFlightLog(t *testing.T) {
	recs := []flightlog.Record{
		{At: 0},
		{At: 0, Frame: frame("Landed", 0)},
		{At: 200 * time.Millisecond, Frame: frame("Flying", 12)},
		{At: 700 * time.Millisecond, Frame: frame("Landing", 40)},
		{At: 0},
		{At: 1 * time.Second, Frame: frame("Landed", 0)},
	}

	s := summarizeFlightLog(recs)
	if s.Segments != 2 {
		t.Fatalf("segments=%d want %d", s.Segments, 2)
	}
	if s.Frames != 4 {
		t.Fatalf("frames=%d want %d", s.Frames, 4)
	}
	if s.MaxHeight != 40 {
		t.Fatalf("maxHeight=%d want %d", s.MaxHeight, 40)
	}
	if s.MaxDuration != 1*time.Second {
		t.Fatalf("maxDuration=%s want %s", s.MaxDuration, 1*time.Second)
	}
	if got := s.ModeTime["Landed"]; got != 200*time.Millisecond {
		t.Fatalf("Landed=%s want 200ms", got)
	}
	if got := s.ModeTime["Flying"]; got != 500*time.Millisecond {
		t.Fatalf("Flying=%s want 500ms", got)
	}
	if _, ok := s.ModeTime["Landing"]; ok {
		t.Fatalf("Landing charged across a segment boundary")
	}
}

func TestSummarizeFlightLog_NoStartMarker(t *testing.T) {
	s := summarizeFlightLog([]flightlog.Record{{At: 5, Frame: frame("Landed", 0)}})
	if s.Segments != 1 || s.Frames != 1 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestPrintLogSummary_Errors(t *testing.T) {
	if err := printLogSummary("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := printLogSummary(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.log")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := printLogSummary(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
