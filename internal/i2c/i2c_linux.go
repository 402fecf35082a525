//go:build linux

package i2c

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux /dev/i2c-N access through I2C_RDWR, so a register pointer write and
// the following read go out as one transfer with a repeated start.

const (
	flagRead   = 0x0001
	ioctlRdwr  = 0x0707
	maxAddr7   = 0x7F
	maxMsgSize = 0xFFFF
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an open adapter. Transfers are serialised, so devices on the same
// bus may be used from different goroutines.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &Bus{f: f, path: path}, nil
}

// BusPath returns the device node for an adapter number.
func BusPath(n int) string { return fmt.Sprintf("/dev/i2c-%d", n) }

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

func (b *Bus) Dev(addr uint16) *Dev {
	if b == nil {
		return nil
	}
	return &Dev{bus: b, addr: addr}
}

// Dev is a device at a 7-bit address.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Write(p []byte) error { return d.transfer(p, nil) }

func (d *Dev) WriteRead(w, r []byte) error { return d.transfer(w, r) }

func (d *Dev) ReadReg(reg byte, dst []byte) error {
	return d.transfer([]byte{reg}, dst)
}

// ReadRegU16 reads a big-endian 16-bit register.
func (d *Dev) ReadRegU16(reg byte) (uint16, error) {
	var b [2]byte
	if err := d.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// WriteRegU16 writes a big-endian 16-bit register.
func (d *Dev) WriteRegU16(reg byte, v uint16) error {
	buf := []byte{reg, 0, 0}
	binary.BigEndian.PutUint16(buf[1:], v)
	return d.Write(buf)
}

func (d *Dev) transfer(w, r []byte) error {
	if d == nil || d.bus == nil {
		return errors.New("i2c: device is nil")
	}
	if d.addr == 0 || d.addr > maxAddr7 {
		return fmt.Errorf("i2c: invalid addr 0x%X", d.addr)
	}
	if len(w) > maxMsgSize || len(r) > maxMsgSize {
		return fmt.Errorf("i2c: message too long")
	}

	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: d.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: d.addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	if d.bus.f == nil {
		return fmt.Errorf("i2c: %s is closed", d.bus.path)
	}
	data := i2cRdwrIoctlData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), uintptr(ioctlRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("i2c: addr 0x%02X: %w", d.addr, errno)
	}
	return nil
}
