// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedChunk is the "rejects malformed chunks with an explanatory
// log line" error of spec.md §4.6.
var ErrMalformedChunk = errors.New("httpcodec: malformed chunk")

// chunkPhase tracks where ChunkDecoder is within one chunk.
type chunkPhase int

const (
	chunkPhaseSize chunkPhase = iota
	chunkPhaseData
	chunkPhaseDataCRLF
	chunkPhaseTrailer
	chunkPhaseDone
)

// ChunkState is the streaming chunk-decoder state embedded in [Message],
// so parsing can resume across arbitrary byte boundaries per spec.md
// §4.6 ("Parsing is byte-streaming: input may be fed in arbitrary
// chunks").
type ChunkState struct {
	phase     chunkPhase
	remaining int64
	Trailers  Headers
}

// ChunkDecode consumes as much of buf as forms complete chunks, appending
// decoded payload bytes to out, and returns the number of input bytes
// consumed. done reports whether the terminating "0\r\n\r\n" was seen.
func ChunkDecode(state *ChunkState, buf []byte, out *bytes.Buffer) (consumed int, done bool, err error) {
	i := 0
	for i < len(buf) {
		switch state.phase {
		case chunkPhaseSize:
			line, adv, ok := readCRLFLine(buf[i:])
			if !ok {
				return i, false, nil
			}
			i += adv
			sizeField := line
			if idx := bytes.IndexByte(line, ';'); idx >= 0 {
				sizeField = line[:idx] // chunk extensions are ignored
			}
			size, perr := strconv.ParseInt(string(bytes.TrimSpace(sizeField)), 16, 64)
			if perr != nil || size < 0 {
				return i, false, fmt.Errorf("%w: bad chunk size %q", ErrMalformedChunk, sizeField)
			}
			state.remaining = size
			if size == 0 {
				state.phase = chunkPhaseTrailer
			} else {
				state.phase = chunkPhaseData
			}

		case chunkPhaseData:
			n := int64(len(buf) - i)
			if n > state.remaining {
				n = state.remaining
			}
			out.Write(buf[i : i+int(n)])
			i += int(n)
			state.remaining -= n
			if state.remaining == 0 {
				state.phase = chunkPhaseDataCRLF
			}

		case chunkPhaseDataCRLF:
			line, adv, ok := readCRLFLine(buf[i:])
			if !ok {
				return i, false, nil
			}
			if len(line) != 0 {
				return i, false, fmt.Errorf("%w: expected CRLF after chunk data", ErrMalformedChunk)
			}
			i += adv
			state.phase = chunkPhaseSize

		case chunkPhaseTrailer:
			line, adv, ok := readCRLFLine(buf[i:])
			if !ok {
				return i, false, nil
			}
			i += adv
			if len(line) == 0 {
				state.phase = chunkPhaseDone
				return i, true, nil
			}
			name, value, perr := splitHeaderLine(line)
			if perr != nil {
				return i, false, fmt.Errorf("%w: bad trailer", ErrMalformedChunk)
			}
			state.Trailers.Add(name, value)

		case chunkPhaseDone:
			return i, true, nil
		}
	}
	return i, state.phase == chunkPhaseDone, nil
}

// readCRLFLine scans buf for a line terminated by CRLF (tolerating a
// bare LF per spec.md §4.6 "tolerates LF-only"), returning the line
// (without terminator), bytes consumed including the terminator, and
// whether a complete line was found.
func readCRLFLine(buf []byte) (line []byte, consumed int, ok bool) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return nil, 0, false
	}
	end := idx
	if end > 0 && buf[end-1] == '\r' {
		end--
	}
	return buf[:end], idx + 1, true
}

// ChunkEncode wraps data as a single chunk: "<hex-size>\r\n<data>\r\n".
func ChunkEncode(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%x\r\n", len(data))
	buf.Write(data)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// ChunkEncodeFinal returns the terminating "0\r\n\r\n" sequence, optionally
// preceded by trailer headers.
func ChunkEncodeFinal(trailers *Headers) []byte {
	var buf bytes.Buffer
	buf.WriteString("0\r\n")
	if trailers != nil {
		trailers.Each(func(name, value string) {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
		})
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}
