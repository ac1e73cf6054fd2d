// SPDX-License-Identifier: GPL-3.0-or-later

package h2

// StreamState is the RFC 7540 §5.1 stream state, restricted to the subset
// this server-side multiplexer needs to track.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

// Stream is one HTTP/2 stream's multiplexer-visible state.
type Stream struct {
	ID    uint32
	State StreamState

	// SendWindow/RecvWindow are this stream's flow-control credit, per
	// RFC 7540 §6.9, seeded from the peer's/local SETTINGS_INITIAL_WINDOW_SIZE.
	SendWindow int64
	RecvWindow int64

	// Headers accumulates HeaderField entries across HEADERS + any
	// CONTINUATION frames until FlagEndHeaders is seen.
	Headers []HeaderField

	// headerBlockBuf accumulates the raw (still-compressed) HPACK bytes
	// across a HEADERS/CONTINUATION sequence before a single Decode call,
	// since HPACK state is only valid to decode once the full block is in.
	headerBlockBuf []byte
}

func newStream(id uint32, initialSendWindow, initialRecvWindow int64) *Stream {
	return &Stream{
		ID:         id,
		State:      StreamIdle,
		SendWindow: initialSendWindow,
		RecvWindow: initialRecvWindow,
	}
}

// markEndStreamRemote transitions the stream on an inbound END_STREAM flag.
func (s *Stream) markEndStreamRemote() {
	switch s.State {
	case StreamHalfClosedLocal:
		s.State = StreamClosed
	default:
		s.State = StreamHalfClosedRemote
	}
}

// markEndStreamLocal transitions the stream on an outbound END_STREAM flag.
func (s *Stream) markEndStreamLocal() {
	switch s.State {
	case StreamHalfClosedRemote:
		s.State = StreamClosed
	default:
		s.State = StreamHalfClosedLocal
	}
}
