// Package host reports the controller board's identity and temperature.
package host

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	cpuTempPath = "/sys/class/thermal/thermal_zone0/temp"
	modelPaths  = []string{
		"/sys/firmware/devicetree/base/model",
		"/proc/device-tree/model",
	}
)

type Health struct {
	Model    string   `json:"model,omitempty"`
	CPUTempC *float64 `json:"cpu_temp_c,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func parseCPUTempC(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("host: cpu temp empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("host: parse cpu temp %q: %w", s, err)
	}
	// Usually milli-degrees; some kernels report whole degrees.
	if n > 1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}

func ReadCPUTempC() (float64, error) {
	b, err := os.ReadFile(cpuTempPath)
	if err != nil {
		return 0, fmt.Errorf("host: read cpu temp: %w", err)
	}
	return parseCPUTempC(string(b))
}

// BoardModel returns the device-tree model string, or "" off a board.
func BoardModel() string {
	for _, p := range modelPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		model := strings.Trim(strings.TrimSpace(string(b)), "\x00")
		if model != "" {
			return model
		}
	}
	return ""
}

func Read() Health {
	h := Health{Model: BoardModel()}
	if c, err := ReadCPUTempC(); err != nil {
		h.Error = err.Error()
	} else {
		h.CPUTempC = &c
	}
	return h
}
