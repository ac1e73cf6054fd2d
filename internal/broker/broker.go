// SPDX-License-Identifier: GPL-3.0-or-later

package broker

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/anyks-go/awh/settings"
)

// ID is a 64-bit broker identifier, unique process-wide and monotonically
// generated, per spec.md §3.
type ID uint64

// SchemeID is a 16-bit scheme identifier.
type SchemeID uint16

var nextID atomic.Uint64

// NewID returns the next process-wide monotonic broker [ID]. IDs start at 1
// so the zero value of [ID] can serve as "no broker".
func NewID() ID {
	return ID(nextID.Add(1))
}

// Peer is the best-effort address/MAC pair spec.md §3 attaches to a broker.
type Peer struct {
	Addr string // IP:port, or a unix socket path
	MAC  string // best-effort; empty when not resolvable (e.g. over TLS/TCP to a WAN peer)
}

// Hooks are the per-broker callback fields of spec.md §3 ("a callback
// table"). internal/web's typed, named callback registry (C14) is layered
// on top of these low-level hooks; Hooks itself only carries what the
// reactor and node-base send/receive loop need to drive a broker without
// importing internal/web (which would create an import cycle).
type Hooks struct {
	OnRead       func(b *Broker, data []byte)
	OnWriteReady func(b *Broker)
	OnConnect    func(b *Broker)
	OnDisconnect func(b *Broker, err error)
	OnTimeout    func(b *Broker, which string)
}

// Broker is a single live connection and all its per-socket state, per
// spec.md §3.
type Broker struct {
	ID       ID
	Scheme   SchemeID
	Peer     Peer
	Conn     net.Conn
	Timeouts settings.Timeouts
	Keep     settings.Keepalive
	Hooks    Hooks

	RecvBuf []byte
	Send    Queue

	LastActivity time.Time

	Real State
	Wait State

	// closing marks the broker as draining its send queue before the
	// socket is actually closed, answering Open Question (b) of
	// SPEC_FULL.md §6 ("close after last pending write drains").
	closing bool
	closed  bool
}

// New constructs a [Broker] bound to conn, in the StateConnected real
// state (the caller has already completed the handshake by the time it
// owns a net.Conn).
func New(scheme SchemeID, conn net.Conn, peer Peer, timeouts settings.Timeouts, keep settings.Keepalive) *Broker {
	return &Broker{
		ID:           NewID(),
		Scheme:       scheme,
		Peer:         peer,
		Conn:         conn,
		Timeouts:     timeouts,
		Keep:         keep,
		LastActivity: time.Now(),
		Real:         StateConnected,
		Wait:         StateConnected,
	}
}

// MarkClosing flags the broker to refuse new queue pushes while letting the
// existing queue drain; see [Broker.Closing].
func (b *Broker) MarkClosing() { b.closing = true }

// Closing reports whether the broker is draining before close.
func (b *Broker) Closing() bool { return b.closing }

// Closed reports whether [Broker.Close] has already run. Close is
// idempotent, per spec.md §5.
func (b *Broker) Closed() bool { return b.closed }

// Close closes the underlying socket and discards any pending send
// payloads, per the removal invariant of spec.md §3. Safe to call more
// than once and safe to call from inside a callback (the registry defers
// actual removal to the reaper).
func (b *Broker) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.Send.Discard()
	if b.Conn != nil {
		return b.Conn.Close()
	}
	return nil
}

// Touch records activity for keepalive/idle-timeout bookkeeping.
func (b *Broker) Touch(now time.Time) {
	b.LastActivity = now
}
