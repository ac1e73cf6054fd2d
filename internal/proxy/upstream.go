// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"context"
	"errors"
	"net/netip"

	"github.com/anyks-go/awh"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/socket"
	"github.com/anyks-go/awh/settings"
)

// ErrUpstreamNotTLS is returned by [Upstream.Dial] if the engine somehow
// returns a connection that doesn't satisfy [awh.TLSConn] for a TLS dial.
var ErrUpstreamNotTLS = errors.New("proxy: engine returned a non-TLS connection for a TLS dial")

// Upstream dials the forward target C of spec.md §4.11 and wraps the
// resulting connection into an [*awh.HTTPConn] ready for [Proxy.Handle]'s
// DecisionForward round trip. Proxy.Handle itself only decides and
// rewrites, matching the parser-layer "no I/O inside the codec"
// discipline; Upstream is the piece that actually connects.
type Upstream struct {
	Engine *socket.Engine
	Config *awh.Config
	Logger awh.SLogger
}

// NewUpstream builds an [*Upstream] bound to engine.
func NewUpstream(engine *socket.Engine, cfg *awh.Config, logger awh.SLogger) *Upstream {
	if logger == nil {
		logger = awh.DefaultSLogger()
	}
	return &Upstream{Engine: engine, Config: cfg, Logger: logger}
}

// Dial connects to addr on behalf of schemeID (for log correlation),
// optionally over TLS (host supplies the handshake's SNI), and returns an
// HTTP round-tripper over the resulting connection with ALPN-based
// HTTP/1.1 vs HTTP/2 transport selection.
func (u *Upstream) Dial(ctx context.Context, addr netip.AddrPort, host string, useTLS bool, schemeID broker.SchemeID) (*awh.HTTPConn, error) {
	if useTLS {
		conn, err := u.Engine.ConnectFor(ctx, socket.NetworkTLS, addr, host, settings.DefaultScheme(), schemeID)
		if err != nil {
			return nil, err
		}
		tconn, ok := conn.(awh.TLSConn)
		if !ok {
			conn.Close()
			return nil, ErrUpstreamNotTLS
		}
		return awh.NewHTTPConnFuncTLS(u.Config, u.Logger).Call(ctx, tconn)
	}

	conn, err := u.Engine.ConnectFor(ctx, socket.NetworkTCP, addr, host, settings.DefaultScheme(), schemeID)
	if err != nil {
		return nil, err
	}
	// Plain HTTP never negotiates ALPN, so wrapping the conn for
	// cancellation and I/O observability here doesn't interfere with the
	// HTTP/1.1-vs-h2 detection NewHTTPConnFuncPlain performs (TLS conns
	// skip this: ConnectionState() must still be reachable for that).
	watched, err := awh.NewCancelWatchFunc().Call(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	observed, err := awh.NewObserveConnFunc(u.Config, u.Logger).Call(ctx, watched)
	if err != nil {
		watched.Close()
		return nil, err
	}
	return awh.NewHTTPConnFuncPlain(u.Config, u.Logger).Call(ctx, observed)
}
