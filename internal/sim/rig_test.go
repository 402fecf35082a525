package sim

import (
	"testing"
	"time"

	"helirig/internal/rotor"
	"helirig/internal/yaw"
)

type edgeLog struct {
	primed bool
	edges  int
	refs   int
}

func (e *edgeLog) Prime(a, b bool) { e.primed = true }
func (e *edgeLog) Edge(a, b bool)  { e.edges++ }
func (e *edgeLog) Reference()      { e.refs++ }

func TestRig_HoverHoldsHeight(t *testing.T) {
	r := NewRig(DefaultRigConfig(), nil)
	main := r.Driver(rotor.Main)
	_ = main.SetDutyPercent(40)
	_ = main.SetEnabled(true)
	for i := 0; i < 100; i++ {
		r.Step(10 * time.Millisecond)
	}
	if h := r.State().Height; h != 0 {
		t.Fatalf("height=%v want 0 at hover duty from the ground", h)
	}

	_ = main.SetDutyPercent(50)
	r.Step(time.Second)
	if h := r.State().Height; h != 20 {
		t.Fatalf("height=%v want 20", h)
	}
	raw, err := r.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if raw != 20000-240 {
		t.Fatalf("raw=%d want %d", raw, 20000-240)
	}

	_ = main.SetEnabled(false)
	r.Step(time.Second)
	if h := r.State().Height; h != 0 {
		t.Fatalf("height=%v want 0 after cutting the main rotor", h)
	}
}

func TestRig_HeightCeiling(t *testing.T) {
	r := NewRig(DefaultRigConfig(), nil)
	main := r.Driver(rotor.Main)
	_ = main.SetDutyPercent(98)
	_ = main.SetEnabled(true)
	r.Step(10 * time.Second)
	if h := r.State().Height; h != 100 {
		t.Fatalf("height=%v want 100", h)
	}
}

func TestRig_MainTorqueTurnsRig(t *testing.T) {
	cfg := DefaultRigConfig()
	cfg.StartYaw = 10
	enc := &edgeLog{}
	r := NewRig(cfg, enc)
	if !enc.primed {
		t.Fatalf("encoder not primed")
	}
	main := r.Driver(rotor.Main)
	_ = main.SetDutyPercent(25)
	_ = main.SetEnabled(true)

	// -100 deg/s for 200ms: 10 degrees down to -10.
	for i := 0; i < 20; i++ {
		r.Step(10 * time.Millisecond)
	}
	if y := r.State().Yaw; y > -9.99 || y < -10.01 {
		t.Fatalf("yaw=%v want -10", y)
	}
	if enc.refs != 1 {
		t.Fatalf("refs=%d want 1 crossing of 0", enc.refs)
	}
	// Counts 12 down to -13.
	if enc.edges != 25 {
		t.Fatalf("edges=%d want 25", enc.edges)
	}
}

func TestRig_DrivesYawSensor(t *testing.T) {
	ys, err := yaw.New(112)
	if err != nil {
		t.Fatalf("yaw.New: %v", err)
	}
	cfg := DefaultRigConfig()
	cfg.StartYaw = 45
	r := NewRig(cfg, ys)
	ys.TriggerReferenceSearch()

	main := r.Driver(rotor.Main)
	_ = main.SetDutyPercent(25)
	_ = main.SetEnabled(true)
	for i := 0; i < 100 && !ys.ReferenceFound(); i++ {
		r.Step(10 * time.Millisecond)
	}
	if !ys.ReferenceFound() {
		t.Fatalf("reference not found")
	}
	if y := ys.Yaw(); y > 0 || y < -2 {
		t.Fatalf("yaw=%d want ~0 right after the reference", y)
	}

	tail := r.Driver(rotor.Tail)
	_ = tail.SetDutyPercent(20 + 18) // net +18% torque: +90 deg/s
	_ = tail.SetEnabled(true)
	start := ys.Yaw()
	r.Step(time.Second)
	if d := ys.Yaw() - start; d < 89 || d > 91 {
		t.Fatalf("yaw moved %d want ~90", d)
	}
}

func TestRig_ZeroStepIgnored(t *testing.T) {
	r := NewRig(DefaultRigConfig(), nil)
	before := r.State()
	r.Step(0)
	if r.State() != before {
		t.Fatalf("state changed on zero step")
	}
}
