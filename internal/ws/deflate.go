// SPDX-License-Identifier: GPL-3.0-or-later

package ws

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// deflateTrailer is the 4-byte sequence permessage-deflate appends to
// every compressed message before inflating, per RFC 7692 §7.2.2, unless
// the peer's no-takeover setting already stripped it.
var deflateTrailer = []byte{0x00, 0x00, 0xFF, 0xFF}

// DeflateContext holds one direction's compressor/decompressor pair. The
// flate writer and reader objects are reused across messages unless the
// no-takeover flag is set, but both are reset for every message, so no
// sliding-window history carries over from one message to the next
// whichever way NoContextTakeover is set.
type DeflateContext struct {
	NoContextTakeover bool

	writer      *flate.Writer
	flateReader io.ReadCloser
	readBuf     *bytes.Buffer
}

// NewDeflateContext constructs a context with the given no-takeover flag.
func NewDeflateContext(noTakeover bool) *DeflateContext {
	return &DeflateContext{NoContextTakeover: noTakeover}
}

// Deflate compresses payload and strips the trailing 00 00 FF FF marker
// (it is re-appended implicitly by the peer's inflate step per RFC 7692).
// Per spec.md §4.7, the caller only sets RSV1 if the result is actually
// shorter than the original.
func (d *DeflateContext) Deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if d.writer == nil || d.NoContextTakeover {
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("ws: creating deflate writer: %w", err)
		}
		d.writer = w
	} else {
		d.writer.Reset(&buf)
	}

	if _, err := d.writer.Write(payload); err != nil {
		return nil, fmt.Errorf("ws: deflate write: %w", err)
	}
	if err := d.writer.Flush(); err != nil {
		return nil, fmt.Errorf("ws: deflate flush: %w", err)
	}

	out := buf.Bytes()
	out = bytes.TrimSuffix(out, deflateTrailer)
	return out, nil
}

// Inflate decompresses a frame payload that had RSV1 set, appending the
// `00 00 FF FF` trailer the encoder stripped before decode.
func (d *DeflateContext) Inflate(payload []byte) ([]byte, error) {
	input := append(append([]byte(nil), payload...), deflateTrailer...)
	// A final empty stored block ends the stream, so the reader stops with
	// io.EOF instead of io.ErrUnexpectedEOF.
	input = append(input, 0x01, 0x00, 0x00, 0xFF, 0xFF)

	if d.flateReader == nil || d.NoContextTakeover {
		d.readBuf = bytes.NewBuffer(input)
		d.flateReader = flate.NewReader(d.readBuf)
	} else {
		d.readBuf.Reset()
		d.readBuf.Write(input)
		if resetter, ok := d.flateReader.(flate.Resetter); ok {
			if err := resetter.Reset(d.readBuf, nil); err != nil {
				return nil, fmt.Errorf("ws: resetting deflate reader: %w", err)
			}
		}
	}

	out, err := io.ReadAll(d.flateReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return out, nil
}
