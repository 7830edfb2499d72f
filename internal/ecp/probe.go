package ecp

import (
	"context"
	"net"
	"time"
)

// DefaultProbeTimeout bounds a single reachability probe
const DefaultProbeTimeout = 2 * time.Second

// Prober answers "is this device reachable".
type Prober interface {
	Reachable(ctx context.Context, address string) bool
}

// TCPProber checks reachability by opening and closing a TCP connection to
// the device's control port.
type TCPProber struct {
	Timeout time.Duration
}

// NewTCPProber creates a prober with the default timeout
func NewTCPProber() *TCPProber {
	return &TCPProber{Timeout: DefaultProbeTimeout}
}

// Reachable dials address ("host:port") and reports whether it connected.
func (p *TCPProber) Reachable(ctx context.Context, address string) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
