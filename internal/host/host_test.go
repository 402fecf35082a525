package host

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCPUTempC(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"52345\n", 52.345},
		{"52", 52},
	}
	for _, tc := range cases {
		v, err := parseCPUTempC(tc.in)
		if err != nil {
			t.Fatalf("parseCPUTempC(%q) err=%v", tc.in, err)
		}
		if d := v - tc.want; d > 1e-9 || d < -1e-9 {
			t.Fatalf("parseCPUTempC(%q)=%v want %v", tc.in, v, tc.want)
		}
	}
	if _, err := parseCPUTempC("\n"); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := parseCPUTempC("hot"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}

func withPaths(t *testing.T, temp string, models []string) {
	t.Helper()
	oldTemp, oldModels := cpuTempPath, modelPaths
	cpuTempPath, modelPaths = temp, models
	t.Cleanup(func() { cpuTempPath, modelPaths = oldTemp, oldModels })
}

func TestRead_FromFiles(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, "temp")
	model := filepath.Join(dir, "model")
	if err := os.WriteFile(temp, []byte("42000\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(model, []byte("Raspberry Pi 4 Model B\x00"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	withPaths(t, temp, []string{filepath.Join(dir, "missing"), model})

	h := Read()
	if h.Model != "Raspberry Pi 4 Model B" {
		t.Fatalf("model=%q", h.Model)
	}
	if h.CPUTempC == nil || *h.CPUTempC != 42.0 {
		t.Fatalf("cpu temp=%v want 42", h.CPUTempC)
	}
	if h.Error != "" {
		t.Fatalf("error=%q", h.Error)
	}
}

func TestRead_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	withPaths(t, filepath.Join(dir, "temp"), []string{filepath.Join(dir, "model")})

	h := Read()
	if h.Model != "" || h.CPUTempC != nil {
		t.Fatalf("health=%+v", h)
	}
	if h.Error == "" {
		t.Fatalf("expected error text")
	}
}
