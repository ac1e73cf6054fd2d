// SPDX-License-Identifier: GPL-3.0-or-later

// Package h2 implements the C10 HTTP/2 stream multiplexer of spec.md §4.9:
// a minimal server-side frame reader/writer and HPACK header (de)compression
// layered directly on golang.org/x/net/http2/hpack, driven by a single
// reader loop in the same style as internal/reactor.
//
// The client ALPN path stays on the teacher's golang.org/x/net/http2.Transport
// (see httpconn.go); this package only covers the low-level per-stream
// send/receive operations spec.md §4.9 names, which http.RoundTripper does
// not expose.
package h2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameType is the RFC 7540 §6 frame type byte.
type FrameType byte

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRSTStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

// Flags is the RFC 7540 §6 per-frame flags byte. Meaning depends on
// FrameType; only the flags this package uses are named.
type Flags byte

const (
	FlagEndStream  Flags = 0x1
	FlagEndHeaders Flags = 0x4
	FlagPadded     Flags = 0x8
	FlagPriority   Flags = 0x20
	FlagAck        Flags = 0x1 // SETTINGS/PING ack, same bit as FlagEndStream
)

// Has reports whether f contains bit.
func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// frameHeaderLen is the fixed 9-byte RFC 7540 §4.1 frame header size.
const frameHeaderLen = 9

// maxFrameSizeDefault is the RFC 7540 §4.2 default, also the floor a peer is
// always permitted to send.
const maxFrameSizeDefault = 16384

// ErrFrameSizeExceeded is returned when a peer's frame length exceeds the
// negotiated SETTINGS_MAX_FRAME_SIZE.
var ErrFrameSizeExceeded = errors.New("h2: frame size exceeds negotiated maximum")

// FrameHeader is the decoded 9-byte frame header.
type FrameHeader struct {
	Length   uint32 // 24 bits
	Type     FrameType
	Flags    Flags
	StreamID uint32 // 31 bits, top bit reserved
}

// ReadFrameHeader reads and decodes the next 9-byte frame header from r.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var buf [frameHeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FrameHeader{}, err
	}
	return FrameHeader{
		Length:   uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]),
		Type:     FrameType(buf[3]),
		Flags:    Flags(buf[4]),
		StreamID: binary.BigEndian.Uint32(buf[5:9]) & 0x7fffffff,
	}, nil
}

// WriteFrameHeader encodes and writes a 9-byte frame header to w.
func WriteFrameHeader(w io.Writer, h FrameHeader) error {
	if h.Length > 0xffffff {
		return fmt.Errorf("h2: frame length %d exceeds 24-bit field", h.Length)
	}
	var buf [frameHeaderLen]byte
	buf[0] = byte(h.Length >> 16)
	buf[1] = byte(h.Length >> 8)
	buf[2] = byte(h.Length)
	buf[3] = byte(h.Type)
	buf[4] = byte(h.Flags)
	binary.BigEndian.PutUint32(buf[5:9], h.StreamID&0x7fffffff)
	_, err := w.Write(buf[:])
	return err
}

// Frame is a fully read frame: header plus raw, still-padded payload.
type Frame struct {
	Header  FrameHeader
	Payload []byte
}

// ReadFrame reads one complete frame, rejecting lengths above maxFrameSize
// (the locally negotiated SETTINGS_MAX_FRAME_SIZE).
func ReadFrame(r io.Reader, maxFrameSize uint32) (*Frame, error) {
	h, err := ReadFrameHeader(r)
	if err != nil {
		return nil, err
	}
	if maxFrameSize == 0 {
		maxFrameSize = maxFrameSizeDefault
	}
	if h.Length > maxFrameSize {
		return nil, ErrFrameSizeExceeded
	}
	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes a frame's header followed by its payload.
func WriteFrame(w io.Writer, f *Frame) error {
	f.Header.Length = uint32(len(f.Payload))
	if err := WriteFrameHeader(w, f.Header); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// stripPadding removes RFC 7540 §6.1/§6.2 padding from a DATA/HEADERS
// payload when FlagPadded is set; the first byte is the pad length.
func stripPadding(payload []byte, flags Flags) ([]byte, error) {
	if !flags.Has(FlagPadded) {
		return payload, nil
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("h2: padded frame has no pad-length byte")
	}
	padLen := int(payload[0])
	rest := payload[1:]
	if padLen > len(rest) {
		return nil, fmt.Errorf("h2: pad length %d exceeds payload", padLen)
	}
	return rest[:len(rest)-padLen], nil
}
