// SPDX-License-Identifier: GPL-3.0-or-later

package ws

import (
	"io"
	"time"
)

// Liveness drives the ping/pong keepalive of spec.md §4.7: after
// PingInterval of outbound silence, send a PING; if no PONG arrives
// within WaitPong, the caller should close with [CloseInternalError].
type Liveness struct {
	PingInterval time.Duration
	WaitPong     time.Duration

	lastOutbound time.Time
	pingSentAt   time.Time
	awaitingPong bool
}

// NewLiveness builds a [*Liveness] tracker.
func NewLiveness(pingInterval, waitPong time.Duration) *Liveness {
	return &Liveness{PingInterval: pingInterval, WaitPong: waitPong, lastOutbound: time.Now()}
}

// NoteOutbound records that data was just written, resetting the
// ping-interval clock.
func (l *Liveness) NoteOutbound(now time.Time) {
	l.lastOutbound = now
}

// NotePong records that a PONG was received, clearing the await state.
func (l *Liveness) NotePong() {
	l.awaitingPong = false
}

// Tick is called periodically (e.g. by internal/timers's persist timer).
// It returns sendPing=true when a PING should be written now, and
// timedOut=true when a previously sent PING never got a PONG within
// WaitPong — the caller must close the connection in that case.
func (l *Liveness) Tick(now time.Time) (sendPing bool, timedOut bool) {
	if l.awaitingPong {
		if now.Sub(l.pingSentAt) > l.WaitPong {
			return false, true
		}
		return false, false
	}
	if now.Sub(l.lastOutbound) >= l.PingInterval {
		l.awaitingPong = true
		l.pingSentAt = now
		return true, false
	}
	return false, false
}

// WritePong replies to an incoming PING by echoing its payload back as a
// PONG frame, per spec.md §4.7.
func WritePong(w io.Writer, isServerSide bool, pingPayload []byte) error {
	return WriteFrame(w, &Frame{Fin: true, Opcode: OpcodePong, Payload: pingPayload}, isServerSide, randomMaskKey)
}

// WritePing writes a PING frame with payload as its correlation token
// (e.g. the broker id, per spec.md §4.14).
func WritePing(w io.Writer, isServerSide bool, payload []byte) error {
	return WriteFrame(w, &Frame{Fin: true, Opcode: OpcodePing, Payload: payload}, isServerSide, randomMaskKey)
}

// WriteClose writes a close frame with the given code/reason.
func WriteClose(w io.Writer, isServerSide bool, code uint16, reason string) error {
	return WriteFrame(w, &Frame{Fin: true, Opcode: OpcodeClose, Payload: EncodeCloseReason(code, reason)}, isServerSide, randomMaskKey)
}
