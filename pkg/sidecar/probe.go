package sidecar

import (
	"context"
	"net"
	"time"
)

// Probe reports whether the supervised service is reachable.
// A nil error means ready.
type Probe interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// TCPProbe checks that something accepts connections on Address.
// The connection is closed immediately; no payload is exchanged.
type TCPProbe struct {
	Address string
	Timeout time.Duration
}

// Probe dials Address once.
func (p TCPProbe) Probe(ctx context.Context) error {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return err
	}
	_ = conn.Close() //nolint:errcheck // reachability already established
	return nil
}
