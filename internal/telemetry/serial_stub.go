//go:build !linux

package telemetry

import (
	"fmt"
	"io"
)

func openSerial(path string, baud int) (io.WriteCloser, error) {
	return nil, fmt.Errorf("telemetry serial not supported on this platform")
}
