package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"helirig/internal/flightlog"
)

type logSummary struct {
	Segments    int
	Frames      int
	MaxDuration time.Duration
	MaxHeight   int32
	ModeTime    map[string]time.Duration
}

func summarizeFlightLog(records []flightlog.Record) logSummary {
	s := logSummary{ModeTime: map[string]time.Duration{}}
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasFrames := false
	segments := 0
	var prev *flightlog.Record

	for i := range records {
		r := &records[i]
		if r.Frame == nil {
			segments++
			origin = r.At
			prev = nil
			continue
		}
		hasFrames = true

		s.Frames++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}
		if r.Frame.Height > s.MaxHeight {
			s.MaxHeight = r.Frame.Height
		}
		// Time between two frames is charged to the earlier frame's mode.
		if prev != nil && r.At > prev.At {
			s.ModeTime[prev.Frame.Mode] += r.At - prev.At
		}
		prev = r
	}
	if segments == 0 && hasFrames {
		segments = 1
	}
	s.Segments = segments
	return s
}

func printLogSummary(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := flightlog.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	s := summarizeFlightLog(recs)

	fmt.Printf("path: %s\n", path)
	fmt.Printf("segments: %d\n", s.Segments)
	fmt.Printf("frames: %d\n", s.Frames)
	fmt.Printf("max_duration: %s\n", s.MaxDuration)
	fmt.Printf("max_height: %d\n", s.MaxHeight)

	modes := make([]string, 0, len(s.ModeTime))
	for m := range s.ModeTime {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	fmt.Printf("mode_time:\n")
	for _, m := range modes {
		fmt.Printf("  %s: %s\n", m, s.ModeTime[m])
	}
	return nil
}
