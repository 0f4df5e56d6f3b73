package h2client

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
)

// ErrServerSupport mirrors dgrr-http2's sentinel: the peer completed a TLS
// handshake but did not negotiate h2 over ALPN.
var ErrServerSupport = errors.New("h2client: server does not support HTTP/2 (h2 not negotiated via ALPN)")

// DialTLS is a thin convenience dialer: it resolves, TCP-dials, and
// TLS-handshakes addr, requiring ALPN to negotiate "h2", then returns the
// resulting *tls.Conn for New/h2conn.New. TLS verification itself is an
// out-of-scope collaborator (base spec §1); this only enforces the ALPN
// outcome the core's transport contract requires.
//
// Grounded on dgrr-http2's Dialer.tryDial.
func DialTLS(ctx context.Context, addr string, cfg *tls.Config) (*tls.Conn, error) {
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if !hasALPN(cfg, "h2") {
		cfg = cfg.Clone()
		cfg.NextProtos = append([]string{"h2"}, cfg.NextProtos...)
	}

	var d net.Dialer
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(rawConn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}

	if tlsConn.ConnectionState().NegotiatedProtocol != "h2" {
		_ = rawConn.Close()
		return nil, ErrServerSupport
	}

	return tlsConn, nil
}

func hasALPN(cfg *tls.Config, proto string) bool {
	for _, p := range cfg.NextProtos {
		if p == proto {
			return true
		}
	}
	return false
}
