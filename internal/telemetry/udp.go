package telemetry

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// UDP sends each frame as one JSON datagram to a ground station.
type UDP struct {
	mu   sync.Mutex
	dest string
	conn udpConn
}

func OpenUDP(dest string) (*UDP, error) {
	return openUDP(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func openUDP(dest string, resolve resolveFunc, dial dialFunc) (*UDP, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve %s: %w", dest, err)
	}
	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial %s: %w", dest, err)
	}
	return &UDP{dest: dest, conn: conn}, nil
}

func (u *UDP) Publish(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return fmt.Errorf("telemetry: udp %s is closed", u.dest)
	}
	_, err = u.conn.Write(b)
	return err
}

func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	err := u.conn.Close()
	u.conn = nil
	return err
}
