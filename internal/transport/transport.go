// Package transport dials the Exchange Stream endpoint over TLS-over-TCP.
// The stream is not a WebSocket upgrade: it is a bare TLS socket that the
// codec package frames as newline-delimited JSON, so transport only needs
// net.Dialer and crypto/tls — the direct analogue of the upstream
// implementation's tokio-rustls connector.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// Options configures the TLS dial.
type Options struct {
	// ServerName overrides the TLS SNI/verification hostname; defaults to
	// the host portion of the dialed address.
	ServerName string
	// RootCAs pins a certificate pool instead of trusting the OS store —
	// used by tests against an in-process mock stream server.
	RootCAs *x509.CertPool
	// InsecureSkipVerify disables certificate verification; tests only.
	InsecureSkipVerify bool
	// DialTimeout bounds the TCP connect phase.
	DialTimeout time.Duration
}

func (o Options) dialTimeout() time.Duration {
	if o.DialTimeout > 0 {
		return o.DialTimeout
	}
	return 10 * time.Second
}

// Dial establishes a TLS connection to addr ("host:port"). The TCP connect
// is bounded by Options.DialTimeout (default 10s); the TLS handshake
// inherits ctx's deadline if one is set.
func Dial(ctx context.Context, addr string, opts Options) (*tls.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid address %q: %w", addr, err)
	}
	serverName := opts.ServerName
	if serverName == "" {
		serverName = host
	}

	dialer := &net.Dialer{Timeout: opts.dialTimeout()}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	tlsConfig := &tls.Config{
		ServerName:         serverName,
		RootCAs:            opts.RootCAs,
		InsecureSkipVerify: opts.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	conn := tls.Client(rawConn, tlsConfig)

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("transport: set deadline: %w", err)
		}
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("transport: tls handshake with %s: %w", serverName, err)
	}
	// Clear the handshake deadline; no read/write deadline is set on the
	// connection after this point.
	conn.SetDeadline(time.Time{})

	return conn, nil
}
