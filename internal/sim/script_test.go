package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"helirig/internal/input"
)

type recorder struct {
	presses  []input.Button
	switches []bool
}

func (r *recorder) Press(b input.Button) { r.presses = append(r.presses, b) }
func (r *recorder) SetSwitch(up bool)    { r.switches = append(r.switches, up) }

func TestScript_ParseAndAdvance(t *testing.T) {
	script, err := ParseInputScriptYAML([]byte(`
version: 1
events:
  - t: 500ms
    switch: up
  - t: 3s
    button: Up
    count: 2
  - t: 3s
    button: right
  - t: 10s
    switch: down
`))
	if err != nil {
		t.Fatalf("ParseInputScriptYAML: %v", err)
	}
	rec := &recorder{}
	p, err := NewPlayer(script, rec)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}

	if n := p.Advance(499 * time.Millisecond); n != 0 {
		t.Fatalf("applied %d events early", n)
	}
	if n := p.Advance(time.Second); n != 1 || len(rec.switches) != 1 || !rec.switches[0] {
		t.Fatalf("n=%d switches=%v", n, rec.switches)
	}
	if n := p.Advance(3 * time.Second); n != 2 {
		t.Fatalf("n=%d want 2", n)
	}
	want := []input.Button{input.Up, input.Up, input.Right}
	if len(rec.presses) != len(want) {
		t.Fatalf("presses=%v want %v", rec.presses, want)
	}
	for i := range want {
		if rec.presses[i] != want[i] {
			t.Fatalf("presses=%v want %v", rec.presses, want)
		}
	}
	if p.Done() {
		t.Fatalf("done too early")
	}
	p.Advance(time.Minute)
	if !p.Done() || len(rec.switches) != 2 || rec.switches[1] {
		t.Fatalf("done=%v switches=%v", p.Done(), rec.switches)
	}
	if n := p.Advance(time.Hour); n != 0 {
		t.Fatalf("replayed %d events", n)
	}
}

func TestScript_Validation(t *testing.T) {
	cases := []struct {
		name   string
		script InputScript
	}{
		{"version", InputScript{Version: 2}},
		{"unsorted", InputScript{Events: []ScriptEvent{{T: time.Second, Switch: "up"}, {T: 0, Switch: "down"}}}},
		{"negative", InputScript{Events: []ScriptEvent{{T: -time.Second, Switch: "up"}}}},
		{"unknown button", InputScript{Events: []ScriptEvent{{Button: "fire"}}}},
		{"negative count", InputScript{Events: []ScriptEvent{{Button: "up", Count: -1}}}},
		{"bad switch", InputScript{Events: []ScriptEvent{{Switch: "middle"}}}},
		{"both", InputScript{Events: []ScriptEvent{{Button: "up", Switch: "up"}}}},
		{"neither", InputScript{Events: []ScriptEvent{{T: time.Second}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPlayer(tc.script, &recorder{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := NewPlayer(InputScript{}, nil); err == nil {
		t.Fatalf("expected error for nil inputs")
	}
}

func TestLoadInputScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takeoff.yaml")
	if err := os.WriteFile(path, []byte("events:\n  - t: 1s\n    switch: up\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	script, err := LoadInputScript(path)
	if err != nil {
		t.Fatalf("LoadInputScript: %v", err)
	}
	if len(script.Events) != 1 || script.Events[0].T != time.Second || script.Events[0].Switch != "up" {
		t.Fatalf("script=%+v", script)
	}
}

func TestLoadInputScript_Sample(t *testing.T) {
	s, err := LoadInputScript(filepath.Join("..", "..", "configs", "hover-and-land.yaml"))
	if err != nil {
		t.Fatalf("LoadInputScript() error: %v", err)
	}
	r := &recorder{}
	p, err := NewPlayer(s, r)
	if err != nil {
		t.Fatalf("NewPlayer() error: %v", err)
	}
	p.Advance(time.Minute)
	if !p.Done() {
		t.Fatalf("player not done")
	}
	if len(r.switches) != 2 || !r.switches[0] || r.switches[1] {
		t.Fatalf("switches=%v", r.switches)
	}
	if len(r.presses) != 6 {
		t.Fatalf("presses=%d want 6", len(r.presses))
	}
}
