// SPDX-License-Identifier: GPL-3.0-or-later

package ws

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/anyks-go/awh/settings"
)

// Codec encodes/decodes whole messages (possibly fragmented, possibly
// permessage-deflate compressed) over one direction of a WebSocket
// connection, per spec.md §4.7.
type Codec struct {
	IsServerSide bool
	Settings     settings.WebSocket
	Deflate      *DeflateContext
}

// NewCodec builds a [*Codec]. isServerSide selects masking direction;
// cfg.PermessageDeflate selects whether frames carry RSV1 compression.
func NewCodec(isServerSide bool, cfg settings.WebSocket) *Codec {
	var noTakeover bool
	if isServerSide {
		noTakeover = cfg.ServerNoContextTakeover
	} else {
		noTakeover = cfg.ClientNoContextTakeover
	}
	var deflate *DeflateContext
	if cfg.PermessageDeflate {
		deflate = NewDeflateContext(noTakeover)
	}
	return &Codec{IsServerSide: isServerSide, Settings: cfg, Deflate: deflate}
}

// EncodeMessage renders payload as one or more frames (fragmented once it
// exceeds Settings.FrameSize), writing them to w. RSV1 is only set on the
// first frame, and only when compression actually shrinks the payload,
// per spec.md §4.7.
func (c *Codec) EncodeMessage(w io.Writer, opcode Opcode, payload []byte) error {
	body := payload
	compressed := false
	if c.Deflate != nil && len(payload) > 0 {
		deflated, err := c.Deflate.Deflate(payload)
		if err == nil && len(deflated) < len(payload) {
			body = deflated
			compressed = true
		}
	}

	frameSize := c.Settings.FrameSize
	if frameSize <= 0 {
		frameSize = 0xFA000
	}

	if len(body) == 0 {
		return WriteFrame(w, &Frame{Fin: true, RSV1: compressed, Opcode: opcode}, c.IsServerSide, randomMaskKey)
	}

	for offset := 0; offset < len(body); offset += frameSize {
		end := offset + frameSize
		if end > len(body) {
			end = len(body)
		}
		frame := &Frame{
			Fin:     end == len(body),
			RSV1:    compressed && offset == 0,
			Opcode:  firstOrContinuation(opcode, offset),
			Payload: body[offset:end],
		}
		if err := WriteFrame(w, frame, c.IsServerSide, randomMaskKey); err != nil {
			return fmt.Errorf("ws: writing frame: %w", err)
		}
	}
	return nil
}

func firstOrContinuation(opcode Opcode, offset int) Opcode {
	if offset == 0 {
		return opcode
	}
	return OpcodeContinuation
}

// ReadMessage reads frames from r (reassembling fragments) until a
// complete message (Fin=true) is seen, decompressing if RSV1 was set on
// the first frame. Control frames (ping/pong/close) are returned as
// single-frame messages without reassembly, per RFC 6455 §5.4.
func (c *Codec) ReadMessage(r io.Reader, maxSize int) (opcode Opcode, payload []byte, err error) {
	var buf bytes.Buffer
	var firstOpcode Opcode
	var firstRSV1 bool
	fragment := 0

	for {
		frame, err := ReadFrame(r, c.IsServerSide)
		if err != nil {
			return 0, nil, err
		}

		if isControlOpcode(frame.Opcode) {
			return frame.Opcode, frame.Payload, nil
		}

		if fragment == 0 {
			firstOpcode = frame.Opcode
			firstRSV1 = frame.RSV1
		} else if frame.Opcode != OpcodeContinuation {
			return 0, nil, fmt.Errorf("%w: expected continuation frame", ErrMalformedFrame)
		}
		fragment++

		buf.Write(frame.Payload)
		if maxSize > 0 && buf.Len() > maxSize {
			return 0, nil, ErrMessageTooBig
		}
		if frame.Fin {
			break
		}
	}

	out := buf.Bytes()
	if firstRSV1 {
		if c.Deflate == nil {
			return 0, nil, fmt.Errorf("%w: RSV1 set but deflate not negotiated", ErrMalformedFrame)
		}
		inflated, ierr := c.Deflate.Inflate(out)
		if ierr != nil {
			return 0, nil, ierr
		}
		out = inflated
	}
	return firstOpcode, out, nil
}

func isControlOpcode(op Opcode) bool {
	return op == OpcodeClose || op == OpcodePing || op == OpcodePong
}

func randomMaskKey() [4]byte {
	var key [4]byte
	_, _ = rand.Read(key[:])
	return key
}
