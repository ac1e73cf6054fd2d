// SPDX-License-Identifier: GPL-3.0-or-later

package cluster

import (
	"encoding/binary"
	"fmt"
	"io"
)

// headerLen is the size in bytes of the fixed `{pid, size, quit}` header
// that precedes every IPC message on the master<->worker pipes, per
// spec.md §4.12.
const headerLen = 4 + 4 + 1

// maxPayload guards against a corrupt or hostile size field forcing an
// unbounded allocation; settings.Cluster.MaxMessage is the configured
// value actually enforced by [frameReader.next], this is just a hard cap.
const maxPayload = 256 << 20

// writeFrame encodes pid/payload/quit as `{pid, size, quit}` followed by
// payload and writes it to w in a single Write call per logical frame.
func writeFrame(w io.Writer, pid int32, payload []byte, quit bool) error {
	buf := make([]byte, headerLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(pid))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	if quit {
		buf[8] = 1
	}
	copy(buf[headerLen:], payload)
	_, err := w.Write(buf)
	return err
}

// frameReader buffers partial reads off a pipe until a complete
// `{pid, size, quit}` header and payload are available, matching spec.md
// §4.12's "the reader buffers until both header and payload are complete
// then invokes onMessage".
type frameReader struct {
	r   io.Reader
	buf []byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

// next blocks until one full frame has been read, or returns an error
// (io.EOF when the peer end of the pipe has been closed).
func (fr *frameReader) next(maxMessage int) (pid int32, payload []byte, quit bool, err error) {
	if maxMessage <= 0 {
		maxMessage = maxPayload
	}
	for len(fr.buf) < headerLen {
		if err = fr.fill(); err != nil {
			return 0, nil, false, err
		}
	}
	size := binary.BigEndian.Uint32(fr.buf[4:8])
	if int(size) > maxMessage {
		return 0, nil, false, fmt.Errorf("cluster: frame size %d exceeds max message %d", size, maxMessage)
	}
	total := headerLen + int(size)
	for len(fr.buf) < total {
		if err = fr.fill(); err != nil {
			return 0, nil, false, err
		}
	}
	pid = int32(binary.BigEndian.Uint32(fr.buf[0:4]))
	quit = fr.buf[8] != 0
	payload = make([]byte, size)
	copy(payload, fr.buf[headerLen:total])
	fr.buf = fr.buf[total:]
	return pid, payload, quit, nil
}

func (fr *frameReader) fill() error {
	chunk := make([]byte, 64*1024)
	n, err := fr.r.Read(chunk)
	if n > 0 {
		fr.buf = append(fr.buf, chunk[:n]...)
	}
	if n == 0 && err == nil {
		return io.ErrNoProgress
	}
	return err
}
