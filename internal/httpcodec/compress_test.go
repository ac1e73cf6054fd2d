// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"testing"

	"github.com/anyks-go/awh/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	compressors := []settings.Compressor{
		settings.CompressNone,
		settings.CompressGzip,
		settings.CompressDeflate,
		settings.CompressBrotli,
		settings.CompressZstd,
	}
	original := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	for _, c := range compressors {
		encoded, err := Compress(c, original)
		require.NoError(t, err)

		decoded, err := Decompress(c, encoded)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	}
}

func TestNegotiateCompressorPicksFirstOffered(t *testing.T) {
	offered := []settings.Compressor{settings.CompressGzip, settings.CompressBrotli}
	got := NegotiateCompressor("br, gzip, deflate", offered)
	assert.Equal(t, settings.CompressGzip, got)
}

func TestNegotiateCompressorNoMatch(t *testing.T) {
	got := NegotiateCompressor("identity", []settings.Compressor{settings.CompressGzip})
	assert.Equal(t, settings.CompressNone, got)
}
