// Package telemetry samples the rig state at a fixed rate and publishes it to
// sinks: the serial console line and the web status stream.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Frame is one status sample. Heights are percent, yaw is degrees, duty is
// percent.
type Frame struct {
	Time         time.Time `json:"time"`
	Mode         string    `json:"mode"`
	Yaw          int32     `json:"yaw"`
	YawTarget    int32     `json:"yaw_target"`
	Height       int32     `json:"height"`
	HeightTarget int32     `json:"height_target"`
	MainDuty     int       `json:"main_duty"`
	TailDuty     int       `json:"tail_duty"`
	MainEnabled  bool      `json:"main_enabled"`
	TailEnabled  bool      `json:"tail_enabled"`
	Ticks        uint64    `json:"ticks"`
}

// Line renders the frame for a serial terminal.
func (f Frame) Line() string {
	return fmt.Sprintf("mode=%s yaw=%d/%d height=%d/%d main=%d%s tail=%d%s\r\n",
		f.Mode,
		f.Yaw, f.YawTarget,
		f.Height, f.HeightTarget,
		f.MainDuty, offMark(f.MainEnabled),
		f.TailDuty, offMark(f.TailEnabled))
}

func offMark(enabled bool) string {
	if enabled {
		return ""
	}
	return "(off)"
}

type Sink interface {
	Publish(f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

func (fn SinkFunc) Publish(f Frame) error { return fn(f) }

type Reporter struct {
	interval time.Duration
	sample   func() Frame
	sinks    []Sink
	now      func() time.Time

	// failing tracks which sinks are currently erroring so each failure
	// streak is logged once.
	failing []bool
}

func NewReporter(interval time.Duration, sample func() Frame, sinks ...Sink) (*Reporter, error) {
	if sample == nil {
		return nil, fmt.Errorf("telemetry: sample func is nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Reporter{
		interval: interval,
		sample:   sample,
		sinks:    sinks,
		now:      time.Now,
		failing:  make([]bool, len(sinks)),
	}, nil
}

// Publish takes one sample and hands it to every sink.
func (r *Reporter) Publish() Frame {
	f := r.sample()
	if f.Time.IsZero() {
		f.Time = r.now().UTC()
	}
	for i, s := range r.sinks {
		err := s.Publish(f)
		switch {
		case err != nil && !r.failing[i]:
			r.failing[i] = true
			log.Printf("telemetry: sink %d publish failed: %v", i, err)
		case err == nil && r.failing[i]:
			r.failing[i] = false
			log.Printf("telemetry: sink %d recovered", i)
		}
	}
	return f
}

func (r *Reporter) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.Publish()
		}
	}
}
