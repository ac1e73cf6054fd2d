// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"net"

	"github.com/anyks-go/awh/settings"
)

// applyTCPTunables sets TCP_NODELAY and SO_KEEPALIVE per spec.md §4.2. Cork
// (TCP_CORK/TCP_NOPUSH) is platform-specific and not exposed by the
// standard library; it is applied on unix in cork_unix.go and is a no-op
// elsewhere (documented in DESIGN.md).
func applyTCPTunables(conn net.Conn, scheme settings.Scheme) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	// Disabling Nagle is the common default for low-latency proxies and
	// WebSocket servers; cork (set separately) re-coalesces small writes
	// when the caller explicitly wants batching.
	_ = tc.SetNoDelay(true)
	if scheme.Keepalive.Enabled {
		_ = tc.SetKeepAlive(true)
		if scheme.Keepalive.Idle > 0 {
			_ = tc.SetKeepAlivePeriod(scheme.Keepalive.Idle)
		}
	} else {
		_ = tc.SetKeepAlive(false)
	}
	applyCork(tc, false)
}

// SetCork toggles TCP_CORK (linux) / TCP_NOPUSH (bsd/darwin) on conn, per
// spec.md §4.2's "Per-broker tunables: TCP_CORK, TCP_NODELAY, ...".
func SetCork(conn net.Conn, on bool) {
	if tc, ok := conn.(*net.TCPConn); ok {
		applyCork(tc, on)
	}
}
