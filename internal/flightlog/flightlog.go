// Package flightlog records telemetry frames to disk and reads them back.
package flightlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"helirig/internal/telemetry"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<json>
//   where t_ns is nanoseconds since START and json is one telemetry.Frame.

type Record struct {
	At time.Duration
	// Frame is nil for a START marker.
	Frame *telemetry.Frame
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}

		tsStr, js, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("flightlog: line %d: missing comma", n)
		}
		tsStr = strings.TrimSpace(tsStr)
		js = strings.TrimSpace(js)
		if tsStr == "" || js == "" {
			return nil, fmt.Errorf("flightlog: line %d: empty field", n)
		}
		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("flightlog: line %d: timestamp %q: %w", n, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("flightlog: line %d: negative timestamp", n)
		}
		var f telemetry.Frame
		if err := json.Unmarshal([]byte(js), &f); err != nil {
			return nil, fmt.Errorf("flightlog: line %d: %w", n, err)
		}
		recs = append(recs, Record{At: time.Duration(tsNs), Frame: &f})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Writer appends frames to a log file. It is a telemetry.Sink.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// Create opens path for appending and writes a START marker, so one file can
// hold several runs.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flightlog: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteFrame(now time.Time, f telemetry.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}

	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("flightlog: writer is closed")
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err = fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), b)
	return err
}

// Publish implements telemetry.Sink using the frame's own timestamp.
func (ww *Writer) Publish(f telemetry.Frame) error {
	now := f.Time
	if now.IsZero() {
		now = time.Now()
	}
	return ww.WriteFrame(now, f)
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}
