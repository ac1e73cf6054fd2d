// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"sync/atomic"

	"github.com/anyks-go/awh/internal/httpcodec"
)

// RequestID is a 64-bit request identifier, unique per process and
// monotonically generated, mirroring broker.ID's construction.
type RequestID uint64

var nextRequestID atomic.Uint64

// NewRequestID returns the next process-wide monotonic [RequestID].
func NewRequestID() RequestID {
	return RequestID(nextRequestID.Add(1))
}

// Key correlates a request/response pair to the HTTP/2 stream (or, for
// HTTP/1.x, the single implicit stream 0) that carries it, per spec.md
// §4.10 ("Request-response correlation by (stream_id, request_id)").
type Key struct {
	StreamID  uint32
	RequestID RequestID
}

// pending tracks one in-flight request through redirect/reauth retries.
type pending struct {
	Method  string
	URL     string
	Headers httpcodec.Headers
	Body    []byte

	attempts int
}

func newPending(method, url string, headers httpcodec.Headers, body []byte) *pending {
	return &pending{Method: method, URL: url, Headers: headers, Body: body}
}
