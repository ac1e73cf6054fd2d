// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/netip"

	"github.com/anyks-go/awh"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/settings"
)

// Engine exposes connect/accept over every transport of spec.md §4.2. It
// is deliberately thin: each Connect call builds a fresh
// [awh.ConnectFunc]/[awh.TLSHandshakeFunc] pipeline (or the DTLS/SCTP
// equivalent) rather than caching state, since all configuration it needs
// comes from the immutable [settings.Scheme] installed before Start().
type Engine struct {
	Config *awh.Config
	Logger awh.SLogger
}

// NewEngine builds an [*Engine] with the given shared [awh.Config] and logger.
func NewEngine(cfg *awh.Config, logger awh.SLogger) *Engine {
	if logger == nil {
		logger = awh.DefaultSLogger()
	}
	return &Engine{Config: cfg, Logger: logger}
}

// Connect dials addr over network, applying scheme-level TLS/keepalive/
// tunables. It returns a plain [net.Conn] for every transport: TLS and
// DTLS connections satisfy net.Conn directly ([*tls.Conn] and
// [*dtls.Conn] respectively), and the SCTP stream is wrapped into one by
// [sctpStreamConn].
func (e *Engine) Connect(ctx context.Context, network Network, addr netip.AddrPort, host string, scheme settings.Scheme) (net.Conn, error) {
	return e.ConnectFor(ctx, network, addr, host, scheme, 0)
}

// ConnectFor behaves like [Engine.Connect] but tags the TCP/UDP dial (and,
// for [NetworkTLS], the handshake) with schemeID so every
// connectStart/connectDone/tlsHandshakeStart/tlsHandshakeDone log line it
// emits correlates with the owning [broker.Scheme], the way every other
// broker-scoped log line in this tree already does. The DTLS, SCTP and
// Unix paths do not take schemeID.
func (e *Engine) ConnectFor(ctx context.Context, network Network, addr netip.AddrPort, host string, scheme settings.Scheme, schemeID broker.SchemeID) (net.Conn, error) {
	switch network {
	case NetworkTCP:
		return e.connectPlain(ctx, "tcp", addr, scheme, schemeID)
	case NetworkUDP:
		return e.connectPlain(ctx, "udp", addr, scheme, schemeID)
	case NetworkUnix:
		return e.connectUnix(ctx, addr.String())
	case NetworkTLS:
		return e.connectTLS(ctx, addr, host, scheme, schemeID)
	case NetworkDTLS:
		return e.connectDTLS(ctx, addr, host, scheme)
	case NetworkSCTP:
		return e.connectSCTP(ctx, addr)
	default:
		return nil, ErrUnsupportedNetwork
	}
}

func (e *Engine) connectPlain(ctx context.Context, kind string, addr netip.AddrPort, scheme settings.Scheme, schemeID broker.SchemeID) (net.Conn, error) {
	fn := awh.NewConnectFunc(e.Config, kind, e.Logger).WithCorrelation(0, uint16(schemeID))
	conn, err := fn.Call(ctx, addr)
	if err != nil {
		return nil, err
	}
	if kind == "tcp" {
		applyTCPTunables(conn, scheme)
	}
	return conn, nil
}

func (e *Engine) connectUnix(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

func (e *Engine) connectTLS(ctx context.Context, addr netip.AddrPort, host string, scheme settings.Scheme, schemeID broker.SchemeID) (net.Conn, error) {
	conn, err := e.connectPlain(ctx, "tcp", addr, scheme, schemeID)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := buildTLSConfig(host, scheme.TLS)
	if err != nil {
		conn.Close()
		return nil, err
	}
	hfn := awh.NewTLSHandshakeFunc(e.Config, tlsCfg, e.Logger).WithCorrelation(0, uint16(schemeID))
	tconn, err := hfn.Call(ctx, conn)
	if err != nil {
		return nil, err
	}
	return tconn, nil
}

func buildTLSConfig(host string, cfg settings.TLS) (*tls.Config, error) {
	serverName := host
	if cfg.SNI != "" {
		serverName = cfg.SNI
	}
	tlsCfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: !cfg.VerifyPeer,
	}
	if cfg.CAFile != "" || cfg.CADir != "" {
		pool, err := loadCAPool(cfg.CAFile, cfg.CADir)
		if err != nil {
			return nil, fmt.Errorf("socket: loading CA trust anchor: %w", err)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
