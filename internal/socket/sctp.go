// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/pion/logging"
	"github.com/pion/sctp"
)

// connectSCTP dials an SCTP association over a UDP transport socket using
// pion/sctp (a pure-Go SCTP stack; the stdlib has no SCTP support) and
// opens stream 0 for application data, wrapped into a net.Conn by
// [sctpStreamConn].
func (e *Engine) connectSCTP(ctx context.Context, addr netip.AddrPort) (net.Conn, error) {
	var d net.Dialer
	udp, err := d.DialContext(ctx, "udp", addr.String())
	if err != nil {
		return nil, err
	}
	assoc, err := sctp.Client(sctp.Config{
		NetConn:       udp,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		udp.Close()
		return nil, err
	}
	stream, err := assoc.OpenStream(0, sctp.PayloadTypeWebRTCBinary)
	if err != nil {
		assoc.Close()
		udp.Close()
		return nil, err
	}
	return &sctpStreamConn{stream: stream, assoc: assoc, underlying: udp}, nil
}

// sctpStreamConn adapts an SCTP stream + its association to net.Conn, so
// it can flow through the same internal/node send/receive path as every
// other transport.
type sctpStreamConn struct {
	stream     *sctp.Stream
	assoc      *sctp.Association
	underlying net.Conn
}

func (c *sctpStreamConn) Read(b []byte) (int, error)  { return c.stream.Read(b) }
func (c *sctpStreamConn) Write(b []byte) (int, error) { return c.stream.Write(b) }

func (c *sctpStreamConn) Close() error {
	c.stream.Close()
	c.assoc.Close()
	return c.underlying.Close()
}

func (c *sctpStreamConn) LocalAddr() net.Addr  { return c.underlying.LocalAddr() }
func (c *sctpStreamConn) RemoteAddr() net.Addr { return c.underlying.RemoteAddr() }

func (c *sctpStreamConn) SetDeadline(t time.Time) error      { return c.underlying.SetDeadline(t) }
func (c *sctpStreamConn) SetReadDeadline(t time.Time) error   { return c.underlying.SetReadDeadline(t) }
func (c *sctpStreamConn) SetWriteDeadline(t time.Time) error  { return c.underlying.SetWriteDeadline(t) }

var _ net.Conn = &sctpStreamConn{}
