// SPDX-License-Identifier: GPL-3.0-or-later

// Package httpcodec implements the C7 HTTP/1.x parser+serializer of
// spec.md §4.6: byte-exact request/response framing, chunked transfer,
// content negotiation, the optional payload envelope, and Basic/Digest
// authentication.
package httpcodec

import "github.com/anyks-go/awh/settings"

// State is the parser state machine of spec.md §4.6.
type State int

const (
	StateQuery State = iota
	StateHeaders
	StateBody
	StateGood
	StateHandshake
	StateBroken
)

// Role distinguishes client/server/proxy framing, per SPEC_FULL.md §4
// ("Deep virtual inheritance ... flatten into a sum type HttpRole").
type Role int

const (
	RoleClient Role = iota
	RoleServer
	RoleProxy
)

// Message is the HTTP message data model of spec.md §3.
type Message struct {
	Method   string
	URL      string
	Protocol string // e.g. "HTTP/1.1"

	StatusCode int
	Reason     string

	Headers Headers
	Body    []byte

	state State

	ChunkState ChunkState

	Compressor settings.Compressor
	// Encrypted records whether X-AWH-Encryption was present on the
	// input (for RoleServer parsing a request) so the serializer knows
	// to re-apply the same envelope on a proxied/echoed response.
	Encrypted   bool
	EncryptBits int
}

// State returns the current parser state.
func (m *Message) State() State { return m.state }

// Reset clears a message back to StateQuery, per spec.md §3's invariant
// ("once state = GOOD or HANDSHAKE, parser input is refused until
// reset").
func (m *Message) Reset() {
	*m = Message{}
}

// IsTerminal reports whether the message has reached a state where new
// parser input must be refused.
func (m *Message) IsTerminal() bool {
	return m.state == StateGood || m.state == StateHandshake || m.state == StateBroken
}
