//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func openDevNull(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	b := &Bus{f: f, path: "/dev/null"}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestTransfer_RejectsBadAddress(t *testing.T) {
	b := openDevNull(t)
	for _, addr := range []uint16{0, 0x80, 0x3FF} {
		err := b.Dev(addr).WriteRegU16(0x01, 0x8583)
		if err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Fatalf("addr=0x%X err=%v want invalid addr", addr, err)
		}
	}
}

func TestTransfer_EmptyIsNoop(t *testing.T) {
	b := openDevNull(t)
	if err := b.Dev(0x48).WriteRead(nil, nil); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestTransfer_ClosedBus(t *testing.T) {
	b := openDevNull(t)
	d := b.Dev(0x48)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := d.ReadRegU16(0x00); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("err=%v want closed", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestBusPath(t *testing.T) {
	if got := BusPath(1); got != "/dev/i2c-1" {
		t.Fatalf("BusPath(1)=%q", got)
	}
}

func TestNilDev(t *testing.T) {
	var b *Bus
	if d := b.Dev(0x48); d != nil {
		t.Fatalf("expected nil dev from nil bus")
	}
	var d *Dev
	if err := d.Write([]byte{1}); err == nil {
		t.Fatalf("expected error from nil dev")
	}
}
