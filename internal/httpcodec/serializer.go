// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"bytes"
	"fmt"
	"strconv"
)

// Serialize renders msg as wire bytes for the given role. When body is
// non-empty and forceChunked is set, the body is emitted as a single
// chunk followed by the terminating sequence; otherwise a Content-Length
// header is added (replacing any prior value) and the body is emitted
// verbatim. Callers needing true streaming chunked output should use
// [ChunkEncode]/[ChunkEncodeFinal] directly against the connection
// instead of buffering through Serialize.
func Serialize(msg *Message, role Role, forceChunked bool) []byte {
	var out bytes.Buffer

	switch role {
	case RoleServer, RoleProxy:
		fmt.Fprintf(&out, "%s %s %s\r\n", msg.Protocol, statusCodeText(msg.StatusCode), reasonOrDefault(msg))
	case RoleClient:
		fmt.Fprintf(&out, "%s %s %s\r\n", msg.Method, msg.URL, msg.Protocol)
	}

	headers := msg.Headers
	if forceChunked {
		headers.Set("Transfer-Encoding", "chunked")
		headers.Del("Content-Length")
	} else if len(msg.Body) > 0 {
		headers.Set("Content-Length", strconv.Itoa(len(msg.Body)))
	}

	headers.Each(func(name, value string) {
		fmt.Fprintf(&out, "%s: %s\r\n", canonicalEmitName(name), value)
	})
	out.WriteString("\r\n")

	if len(msg.Body) > 0 {
		if forceChunked {
			out.Write(ChunkEncode(msg.Body))
			out.Write(ChunkEncodeFinal(nil))
		} else {
			out.Write(msg.Body)
		}
	}

	return out.Bytes()
}

func reasonOrDefault(msg *Message) string {
	if msg.Reason != "" {
		return msg.Reason
	}
	return ReasonPhrase(msg.StatusCode)
}

func statusCodeText(code int) string {
	if code == 0 {
		return "200"
	}
	return strconv.Itoa(code)
}
