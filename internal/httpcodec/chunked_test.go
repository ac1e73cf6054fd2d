// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Chunked idempotence: chunk_decode(chunk_encode(B)) = B, per spec.md §8.
func TestChunkRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("hello world"),
		bytes.Repeat([]byte("x"), 70000), // crosses the default frame size
	}

	for _, payload := range payloads {
		var wire bytes.Buffer
		if len(payload) > 0 {
			wire.Write(ChunkEncode(payload))
		}
		wire.Write(ChunkEncodeFinal(nil))

		var state ChunkState
		var out bytes.Buffer
		consumed, done, err := ChunkDecode(&state, wire.Bytes(), &out)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, wire.Len(), consumed)
		assert.Equal(t, payload, out.Bytes())
	}
}

func TestChunkDecodeAcrossBoundaries(t *testing.T) {
	full := append(ChunkEncode([]byte("abcdef")), ChunkEncodeFinal(nil)...)

	// Feed byte-by-byte to exercise resumable parsing. An incomplete
	// size/CRLF line is not consumed, so unconsumed bytes are carried over
	// to the next call, as Parser does with its buffer.
	var state ChunkState
	var out bytes.Buffer
	var pending []byte
	for i := 0; i < len(full); i++ {
		pending = append(pending, full[i])
		n, done, err := ChunkDecode(&state, pending, &out)
		require.NoError(t, err)
		pending = pending[n:]
		if i == len(full)-1 {
			assert.True(t, done)
			require.Empty(t, pending)
		}
	}
	assert.Equal(t, "abcdef", out.String())
}

func TestChunkDecodeRejectsMalformedSize(t *testing.T) {
	var state ChunkState
	var out bytes.Buffer
	_, _, err := ChunkDecode(&state, []byte("zzz\r\n"), &out)
	assert.ErrorIs(t, err, ErrMalformedChunk)
}

func TestChunkDecodeWithTrailers(t *testing.T) {
	var wire bytes.Buffer
	wire.Write(ChunkEncode([]byte("hi")))
	var trailers Headers
	trailers.Add("X-Checksum", "abc123")
	wire.Write(ChunkEncodeFinal(&trailers))

	var state ChunkState
	var out bytes.Buffer
	_, done, err := ChunkDecode(&state, wire.Bytes(), &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "hi", out.String())
	v, ok := state.Trailers.Get("X-Checksum")
	assert.True(t, ok)
	assert.Equal(t, "abc123", v)
}
