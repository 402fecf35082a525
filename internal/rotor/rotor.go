// Package rotor drives the main and tail rotor PWM outputs.
package rotor

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

type ID int

const (
	Main ID = iota
	Tail
	numRotors
)

func (r ID) String() string {
	switch r {
	case Main:
		return "main"
	case Tail:
		return "tail"
	default:
		return fmt.Sprintf("rotor(%d)", int(r))
	}
}

// Duty limits (percent). The PWM generators misbehave outside this range.
const (
	MinDuty = 2
	MaxDuty = 98
)

func ClampDuty(p int) int {
	if p < MinDuty {
		return MinDuty
	}
	if p > MaxDuty {
		return MaxDuty
	}
	return p
}

// Driver is the minimal interface the actuator needs from a PWM backend.
// Duty is expressed in percent (0..100).
//
// Close should be best-effort and leave the output disabled.
type Driver interface {
	SetFrequencyHz(hz int) error
	SetDutyPercent(p float64) error
	SetEnabled(on bool) error
	Close() error
}

type State struct {
	Enabled bool `json:"enabled"`
	Duty    int  `json:"duty"`
}

type Snapshot struct {
	Main      State     `json:"main"`
	Tail      State     `json:"tail"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Actuator owns both rotor outputs. It is called from the poll loop (enable,
// disable, spin-up duty) and from the high-rate controller task (duty), so
// every method is safe for concurrent use.
//
// Backend errors are logged and kept in the snapshot; callers never see them.
type Actuator struct {
	mu    sync.Mutex
	drv   [numRotors]Driver
	state [numRotors]State

	lastErr   string
	updatedAt time.Time
}

// NewActuator wraps one driver per rotor. Both outputs start disabled at
// minimum duty.
func NewActuator(main, tail Driver, frequencyHz int) (*Actuator, error) {
	if main == nil || tail == nil {
		return nil, fmt.Errorf("rotor: both drivers are required")
	}
	if frequencyHz <= 0 {
		frequencyHz = 200
	}
	a := &Actuator{drv: [numRotors]Driver{main, tail}}
	for r := Main; r < numRotors; r++ {
		if err := a.drv[r].SetFrequencyHz(frequencyHz); err != nil {
			return nil, fmt.Errorf("rotor: %s set frequency: %w", r, err)
		}
		if err := a.drv[r].SetEnabled(false); err != nil {
			return nil, fmt.Errorf("rotor: %s disable: %w", r, err)
		}
		if err := a.drv[r].SetDutyPercent(MinDuty); err != nil {
			return nil, fmt.Errorf("rotor: %s set duty: %w", r, err)
		}
		a.state[r].Duty = MinDuty
	}
	return a, nil
}

func valid(r ID) bool { return r >= 0 && r < numRotors }

func (a *Actuator) Enable(r ID)  { a.setEnabled(r, true) }
func (a *Actuator) Disable(r ID) { a.setEnabled(r, false) }

func (a *Actuator) setEnabled(r ID, on bool) {
	if !valid(r) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drv[r] == nil {
		return
	}
	if err := a.drv[r].SetEnabled(on); err != nil {
		a.failLocked(fmt.Errorf("rotor: %s enable=%v: %w", r, on, err))
		return
	}
	a.state[r].Enabled = on
	a.updatedAt = time.Now().UTC()
}

// SetDutyCycle sets the duty in percent, clamped to [MinDuty, MaxDuty].
func (a *Actuator) SetDutyCycle(r ID, percent int) {
	if !valid(r) {
		return
	}
	percent = ClampDuty(percent)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drv[r] == nil || a.state[r].Duty == percent {
		return
	}
	if err := a.drv[r].SetDutyPercent(float64(percent)); err != nil {
		a.failLocked(fmt.Errorf("rotor: %s duty=%d: %w", r, percent, err))
		return
	}
	a.state[r].Duty = percent
	a.updatedAt = time.Now().UTC()
}

func (a *Actuator) failLocked(err error) {
	msg := err.Error()
	if msg != a.lastErr {
		log.Printf("%s", msg)
	}
	a.lastErr = msg
	a.updatedAt = time.Now().UTC()
}

func (a *Actuator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Main:      a.state[Main],
		Tail:      a.state[Tail],
		LastError: a.lastErr,
		UpdatedAt: a.updatedAt,
	}
}

// Close disables both outputs and releases the drivers.
func (a *Actuator) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for r := Main; r < numRotors; r++ {
		if a.drv[r] == nil {
			continue
		}
		_ = a.drv[r].SetEnabled(false)
		a.state[r].Enabled = false
		if err := a.drv[r].Close(); err != nil {
			errs = append(errs, fmt.Errorf("rotor: %s close: %w", r, err))
		}
		a.drv[r] = nil
	}
	return errors.Join(errs...)
}
