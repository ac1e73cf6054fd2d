// SPDX-License-Identifier: GPL-3.0-or-later

package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"
)

// HeaderField is a decoded name/value pair, mirroring hpack.HeaderField so
// callers outside this package never need to import golang.org/x/net/http2/hpack
// directly.
type HeaderField struct {
	Name      string
	Value     string
	Sensitive bool
}

// HeaderCodec wraps an [hpack.Encoder]/[hpack.Decoder] pair bound to a
// single connection's dynamic table, per RFC 7541.
type HeaderCodec struct {
	enc    *hpack.Encoder
	encBuf *bytes.Buffer
	dec    *hpack.Decoder
}

// NewHeaderCodec builds a [*HeaderCodec] with the given dynamic table size
// (SETTINGS_HEADER_TABLE_SIZE, both directions share the same local bound
// in this implementation for simplicity).
func NewHeaderCodec(tableSize uint32) *HeaderCodec {
	var buf bytes.Buffer
	enc := hpack.NewEncoder(&buf)
	enc.SetMaxDynamicTableSize(tableSize)
	dec := hpack.NewDecoder(tableSize, nil)
	return &HeaderCodec{enc: enc, encBuf: &buf, dec: dec}
}

// Encode compresses fields into an HPACK header block fragment.
func (c *HeaderCodec) Encode(fields []HeaderField) ([]byte, error) {
	c.encBuf.Reset()
	for _, f := range fields {
		if err := c.enc.WriteField(hpack.HeaderField{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive}); err != nil {
			return nil, err
		}
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// Decode decompresses an HPACK header block fragment into fields.
func (c *HeaderCodec) Decode(block []byte) ([]HeaderField, error) {
	hf, err := c.dec.DecodeFull(block)
	if err != nil {
		return nil, err
	}
	out := make([]HeaderField, len(hf))
	for i, f := range hf {
		out[i] = HeaderField{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive}
	}
	return out, nil
}

// SetMaxDynamicTableSize adjusts the encoder's table size, e.g. on a
// SETTINGS_HEADER_TABLE_SIZE update from the peer.
func (c *HeaderCodec) SetMaxDynamicTableSize(size uint32) {
	c.enc.SetMaxDynamicTableSize(size)
}
