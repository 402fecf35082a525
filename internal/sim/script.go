package sim

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"helirig/internal/input"
)

// InputScript is a timed sequence of operator actions.
//
// YAML schema (v1):
//
//	version: 1
//	events:
//	  - t: 500ms
//	    switch: up
//	  - t: 3s
//	    button: up
//	    count: 4
//	  - t: 14s
//	    switch: down
//
// Events must be sorted by t. Each sets exactly one of button or switch.
type InputScript struct {
	Version int           `yaml:"version"`
	Events  []ScriptEvent `yaml:"events"`
}

type ScriptEvent struct {
	T      time.Duration `yaml:"t"`
	Button string        `yaml:"button,omitempty"`
	Count  int           `yaml:"count,omitempty"`
	Switch string        `yaml:"switch,omitempty"`
}

// Inputs is what a script drives. input.Panel implements it.
type Inputs interface {
	Press(b input.Button)
	SetSwitch(up bool)
}

func LoadInputScript(path string) (InputScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return InputScript{}, err
	}
	return ParseInputScriptYAML(b)
}

func ParseInputScriptYAML(b []byte) (InputScript, error) {
	var s InputScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return InputScript{}, err
	}
	return s, nil
}

type action struct {
	at     time.Duration
	button input.Button
	count  int
	isSw   bool
	up     bool
}

// Player applies a validated script to Inputs as time advances.
type Player struct {
	actions []action
	next    int
	inputs  Inputs
}

func NewPlayer(script InputScript, inputs Inputs) (*Player, error) {
	if inputs == nil {
		return nil, fmt.Errorf("inputs is nil")
	}
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported input script version %d", script.Version)
	}

	p := &Player{inputs: inputs}
	for i, ev := range script.Events {
		if ev.T < 0 {
			return nil, fmt.Errorf("events[%d].t must be >= 0", i)
		}
		if i > 0 && ev.T < script.Events[i-1].T {
			return nil, fmt.Errorf("events must be sorted by t (index %d)", i)
		}
		a := action{at: ev.T}
		switch {
		case ev.Button != "" && ev.Switch != "":
			return nil, fmt.Errorf("events[%d]: set either button or switch", i)
		case ev.Button != "":
			b, ok := input.ParseButton(strings.ToLower(ev.Button))
			if !ok {
				return nil, fmt.Errorf("events[%d].button %q is unknown", i, ev.Button)
			}
			if ev.Count < 0 {
				return nil, fmt.Errorf("events[%d].count must be >= 0", i)
			}
			a.button = b
			a.count = ev.Count
			if a.count == 0 {
				a.count = 1
			}
		case ev.Switch != "":
			a.isSw = true
			switch strings.ToLower(ev.Switch) {
			case "up":
				a.up = true
			case "down":
			default:
				return nil, fmt.Errorf("events[%d].switch must be up or down", i)
			}
		default:
			return nil, fmt.Errorf("events[%d]: button or switch is required", i)
		}
		p.actions = append(p.actions, a)
	}
	return p, nil
}

// Advance applies every event due at or before elapsed and returns how many
// were applied.
func (p *Player) Advance(elapsed time.Duration) int {
	n := 0
	for p.next < len(p.actions) && p.actions[p.next].at <= elapsed {
		a := p.actions[p.next]
		p.next++
		n++
		if a.isSw {
			p.inputs.SetSwitch(a.up)
			continue
		}
		for i := 0; i < a.count; i++ {
			p.inputs.Press(a.button)
		}
	}
	return n
}

func (p *Player) Done() bool { return p.next >= len(p.actions) }

// Run plays the script in real time from now until it is done or ctx is
// canceled.
func (p *Player) Run(ctx context.Context) error {
	start := time.Now()
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for !p.Done() {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			p.Advance(now.Sub(start))
		}
	}
	return nil
}
