// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/anyks-go/awh/settings"
	"github.com/klauspost/compress/zstd"
)

// NegotiateCompressor picks the first entry of offered that also appears
// in acceptEncoding (an Accept-Encoding header value), per spec.md §4.6's
// content negotiation. It returns CompressNone if nothing matches.
func NegotiateCompressor(acceptEncoding string, offered []settings.Compressor) settings.Compressor {
	lower := strings.ToLower(acceptEncoding)
	for _, c := range offered {
		if token := compressorToken(c); token != "" && strings.Contains(lower, token) {
			return c
		}
	}
	return settings.CompressNone
}

func compressorToken(c settings.Compressor) string {
	switch c {
	case settings.CompressGzip:
		return "gzip"
	case settings.CompressDeflate:
		return "deflate"
	case settings.CompressBrotli:
		return "br"
	case settings.CompressZstd:
		return "zstd"
	default:
		return ""
	}
}

// CompressorName returns the Content-Encoding token for c, or "" for
// CompressNone.
func CompressorName(c settings.Compressor) string { return compressorToken(c) }

// Compress encodes data with the given compressor.
func Compress(c settings.Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case settings.CompressNone:
		return data, nil
	case settings.CompressGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case settings.CompressDeflate:
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case settings.CompressBrotli:
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case settings.CompressZstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("httpcodec: unknown compressor %d", c)
	}
	return buf.Bytes(), nil
}

// Decompress decodes data that was encoded with the given compressor.
func Decompress(c settings.Compressor, data []byte) ([]byte, error) {
	switch c {
	case settings.CompressNone:
		return data, nil
	case settings.CompressGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case settings.CompressDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return io.ReadAll(r)
	case settings.CompressBrotli:
		r := brotli.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case settings.CompressZstd:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("httpcodec: unknown compressor %d", c)
	}
}
