package telemetry

import (
	"fmt"
	"io"
	"sync"
)

var openSerialFn = openSerial

// Serial writes frame lines to a UART.
type Serial struct {
	mu   sync.Mutex
	w    io.WriteCloser
	path string
}

func OpenSerial(path string, baud int) (*Serial, error) {
	if path == "" {
		return nil, fmt.Errorf("telemetry: serial device is empty")
	}
	if baud <= 0 {
		baud = 9600
	}
	f, err := openSerialFn(path, baud)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Serial{w: f, path: path}, nil
}

func (s *Serial) Publish(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("telemetry: %s is closed", s.path)
	}
	_, err := io.WriteString(s.w, f.Line())
	return err
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
