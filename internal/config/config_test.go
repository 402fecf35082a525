package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_EmptyFileGetsDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	f := cfg.Flight
	if f.PollInterval != 10*time.Millisecond || f.HeightIncrement != 10 || f.YawIncrement != 15 {
		t.Fatalf("flight=%+v", f)
	}
	if f.SpinUpDuty != 25 || f.PreloadBias != 20 {
		t.Fatalf("flight=%+v", f)
	}
	if f.DescentPeriod != 35*time.Millisecond || f.LandingTimeout != 10*time.Second {
		t.Fatalf("flight=%+v", f)
	}
	if f.YawTolerance != 2 || f.HeightTolerance != 1 {
		t.Fatalf("flight=%+v", f)
	}
	if cfg.Scheduler.ControlHz != 200 {
		t.Fatalf("control_hz=%d want 200", cfg.Scheduler.ControlHz)
	}
	if cfg.Rotors.Backend != BackendSysfs || cfg.Rotors.MainChannel != 0 || cfg.Rotors.TailChannel != 1 || cfg.Rotors.FrequencyHz != 200 {
		t.Fatalf("rotors=%+v", cfg.Rotors)
	}
	if cfg.Rotors.MainArmLine != nil || cfg.Rotors.TailArmLine != nil {
		t.Fatalf("arm lines should be unset by default")
	}
	if cfg.Height.Backend != BackendADS1115 || cfg.Height.I2CBus != 1 || cfg.Height.Addr != 0x48 || cfg.Height.FullScale != 1200 || cfg.Height.ZeroSamples != 16 {
		t.Fatalf("height=%+v", cfg.Height)
	}
	if cfg.Yaw.Backend != BackendGPIO || cfg.Yaw.Slots != 112 {
		t.Fatalf("yaw=%+v", cfg.Yaw)
	}
	if cfg.Inputs.Backend != BackendGPIO || cfg.Inputs.Debounce != 10*time.Millisecond {
		t.Fatalf("inputs=%+v", cfg.Inputs)
	}
	if cfg.Control.HoverDuty != 40 || cfg.Control.TailOffset != 32 || cfg.Control.Height.Kp != 2 || cfg.Control.Yaw.Ki != 1 {
		t.Fatalf("control=%+v", cfg.Control)
	}
	if cfg.Telemetry.Baud != 9600 || cfg.Telemetry.Interval != 100*time.Millisecond {
		t.Fatalf("telemetry=%+v", cfg.Telemetry)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("web.listen=%q", cfg.Web.Listen)
	}
}

func TestLoad_OverridesKept(t *testing.T) {
	path := writeTempConfig(t, `
flight:
  poll_interval: 20ms
  height_increment: 5
  landing_timeout: 3s
rotors:
  backend: sim
  main_channel: 1
  tail_channel: 0
  main_arm_line: 23
height:
  backend: sim
  full_scale: 900
yaw:
  backend: sim
  slots: 56
inputs:
  backend: sim
control:
  height: {kp: 3, ki: 0.5, kd: 0.1}
web:
  listen: "off"
sim:
  script: ./scripts/hop.yaml
  start_yaw: 45
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Flight.PollInterval != 20*time.Millisecond || cfg.Flight.HeightIncrement != 5 || cfg.Flight.LandingTimeout != 3*time.Second {
		t.Fatalf("flight=%+v", cfg.Flight)
	}
	if cfg.Rotors.MainChannel != 1 || cfg.Rotors.TailChannel != 0 {
		t.Fatalf("rotors=%+v", cfg.Rotors)
	}
	if cfg.Rotors.MainArmLine == nil || *cfg.Rotors.MainArmLine != 23 || cfg.Rotors.TailArmLine != nil {
		t.Fatalf("arm lines=%v %v", cfg.Rotors.MainArmLine, cfg.Rotors.TailArmLine)
	}
	if cfg.Height.FullScale != 900 || cfg.Yaw.Slots != 56 {
		t.Fatalf("height=%+v yaw=%+v", cfg.Height, cfg.Yaw)
	}
	if cfg.Control.Height != (GainsConfig{Kp: 3, Ki: 0.5, Kd: 0.1}) {
		t.Fatalf("height gains=%+v", cfg.Control.Height)
	}
	if cfg.Control.Yaw != (GainsConfig{Kp: 1, Ki: 1}) {
		t.Fatalf("yaw gains=%+v want defaults", cfg.Control.Yaw)
	}
	if cfg.Web.Listen != WebOff {
		t.Fatalf("web.listen=%q", cfg.Web.Listen)
	}
	if cfg.Sim.Script != "./scripts/hop.yaml" || cfg.Sim.StartYaw != 45 {
		t.Fatalf("sim=%+v", cfg.Sim)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "RotorBackend",
			body: "rotors:\n  backend: pigpio\n",
			want: "rotors.backend must be 'sysfs' or 'sim'",
		},
		{
			name: "SharedChannel",
			body: "rotors:\n  main_channel: 2\n  tail_channel: 2\n",
			want: "rotors.main_channel and rotors.tail_channel must differ",
		},
		{
			name: "HeightBackend",
			body: "height:\n  backend: bmp280\n",
			want: "height.backend must be 'ads1115' or 'sim'",
		},
		{
			name: "HeightAddr",
			body: "height:\n  addr: 0x90\n",
			want: "height.addr must be a 7-bit address",
		},
		{
			name: "SpinUpDuty",
			body: "flight:\n  spin_up_duty: 99\n",
			want: "flight.spin_up_duty must be in [2,98]",
		},
		{
			name: "HeightIncrement",
			body: "flight:\n  height_increment: 101\n",
			want: "flight.height_increment must be in [1,100]",
		},
		{
			name: "YawLinesShared",
			body: "yaw:\n  channel_a: 4\n  channel_b: 4\n  reference: 5\n",
			want: "yaw.channel_a and yaw.channel_b share line 4",
		},
		{
			name: "InputLineNegative",
			body: "inputs:\n  up: -1\n  down: 2\n  left: 3\n  right: 4\n  switch: 7\n",
			want: "inputs.up must be >= 0",
		},
		{
			name: "YawInputOverlap",
			body: "yaw:\n  channel_a: 5\n  channel_b: 6\n  reference: 7\n",
			want: "yaw and inputs both use line 5 on gpiochip0",
		},
		{
			name: "ControlRateTooLow",
			body: "scheduler:\n  control_hz: 50\n",
			want: "scheduler.control_hz is too low for flight.poll_interval 10ms",
		},
		{
			name: "HoverDuty",
			body: "control:\n  hover_duty: 120\n",
			want: "control.hover_duty must be in [2,98]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.body)
			_, err := Load(path)
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_SimBackendsSkipLineOverlapCheck(t *testing.T) {
	path := writeTempConfig(t, "yaw:\n  backend: sim\n  channel_a: 5\n  channel_b: 6\n  reference: 7\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "flight:\n  poll_interval: 10ms\n  hover: 40\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field hover not found in type config.FlightConfig")
}

func TestLoad_RejectsBadValue(t *testing.T) {
	path := writeTempConfig(t, "scheduler:\n  control_hz: fast\n")
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), "config contains invalid values: ") {
		t.Fatalf("err=%v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestForceSim(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.ForceSim()
	if cfg.Rotors.Backend != BackendSim || cfg.Height.Backend != BackendSim || cfg.Yaw.Backend != BackendSim || cfg.Inputs.Backend != BackendSim {
		t.Fatalf("backends not forced: %+v", cfg)
	}
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "helirig.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Height.Addr != 0x48 || cfg.Height.Backend != BackendADS1115 {
		t.Fatalf("height=%+v", cfg.Height)
	}
	if !cfg.Inputs.ActiveLow || cfg.Inputs.Switch != 26 {
		t.Fatalf("inputs=%+v", cfg.Inputs)
	}
	if cfg.Sim.Script == "" {
		t.Fatalf("sample should name a sim script")
	}
}
