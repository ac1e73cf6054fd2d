// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedMessage is returned (and drives a StateBroken transition)
// when the parser cannot make sense of the input, per spec.md §4.6
// ("any byte sequence that cannot be interpreted moves state to BROKEN").
var ErrMalformedMessage = fmt.Errorf("httpcodec: malformed message")

// Parser is the byte-streaming state machine of spec.md §4.6: QUERY ->
// HEADERS -> BODY -> GOOD/HANDSHAKE/BROKEN. Feed arbitrary byte slices to
// Parse; it buffers a partial line/body across calls.
type Parser struct {
	Role Role

	buf   bytes.Buffer
	msg   *Message
	bodyN int64 // remaining bytes when Content-Length framed
}

// NewParser constructs a [*Parser] that writes parsed fields into msg.
func NewParser(role Role, msg *Message) *Parser {
	return &Parser{Role: role, msg: msg}
}

// Parse feeds data into the state machine, advancing msg.state as far as
// the buffered input allows. It is safe to call repeatedly as more bytes
// arrive; once msg.IsTerminal() is true, Parse refuses further input per
// spec.md §3's "parser input is refused until reset" invariant.
func (p *Parser) Parse(data []byte) error {
	if p.msg.IsTerminal() {
		return fmt.Errorf("httpcodec: parser input refused: message is terminal")
	}
	p.buf.Write(data)

	for {
		switch p.msg.state {
		case StateQuery:
			line, ok := p.takeLine()
			if !ok {
				return nil
			}
			if err := p.parseStartLine(line); err != nil {
				p.msg.state = StateBroken
				return err
			}
			p.msg.state = StateHeaders

		case StateHeaders:
			line, ok := p.takeLine()
			if !ok {
				return nil
			}
			if len(line) == 0 {
				if err := p.onHeadersComplete(); err != nil {
					p.msg.state = StateBroken
					return err
				}
				continue
			}
			// RFC 7230 obs-fold: a line starting with SP/HTAB continues
			// the previous header value.
			if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && p.msg.Headers.Len() > 0 {
				p.foldIntoLast(line)
				continue
			}
			name, value, err := splitHeaderLine(line)
			if err != nil {
				p.msg.state = StateBroken
				return err
			}
			p.msg.Headers.Add(name, value)

		case StateBody:
			if p.msg.ChunkState.phase != chunkPhaseDone && p.isChunked() {
				var out bytes.Buffer
				n, done, err := ChunkDecode(&p.msg.ChunkState, p.buf.Bytes(), &out)
				p.buf.Next(n)
				p.msg.Body = append(p.msg.Body, out.Bytes()...)
				if err != nil {
					p.msg.state = StateBroken
					return err
				}
				if !done {
					return nil
				}
				p.msg.state = StateGood
				continue
			}
			if p.bodyN > 0 {
				avail := int64(p.buf.Len())
				if avail == 0 {
					return nil
				}
				take := avail
				if take > p.bodyN {
					take = p.bodyN
				}
				p.msg.Body = append(p.msg.Body, p.buf.Next(int(take))...)
				p.bodyN -= take
			}
			if p.bodyN == 0 {
				p.msg.state = StateGood
			} else {
				return nil
			}

		case StateGood, StateHandshake, StateBroken:
			return nil
		}
	}
}

// takeLine pops a single CRLF/LF-terminated line (without the terminator)
// from the internal buffer, or reports ok=false if none is complete yet.
func (p *Parser) takeLine() (line []byte, ok bool) {
	b := p.buf.Bytes()
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return nil, false
	}
	end := idx
	if end > 0 && b[end-1] == '\r' {
		end--
	}
	out := append([]byte(nil), b[:end]...)
	p.buf.Next(idx + 1)
	return out, true
}

func (p *Parser) foldIntoLast(continuation []byte) {
	// headerEntry.Value folding: append to the last-added entry's value.
	entries := p.msg.Headers.entries
	if len(entries) == 0 {
		return
	}
	last := &entries[len(entries)-1]
	last.Value = last.Value + " " + string(bytes.TrimSpace(continuation))
}

// parseStartLine dispatches to the request-line or status-line parser
// depending on Role, per spec.md §3's Role sum type.
func (p *Parser) parseStartLine(line []byte) error {
	fields := bytes.Fields(line)
	switch p.Role {
	case RoleServer, RoleProxy:
		if len(fields) != 3 {
			return fmt.Errorf("%w: bad request line %q", ErrMalformedMessage, line)
		}
		p.msg.Method = string(fields[0])
		p.msg.URL = string(fields[1])
		p.msg.Protocol = string(fields[2])
	case RoleClient:
		if len(fields) < 2 {
			return fmt.Errorf("%w: bad status line %q", ErrMalformedMessage, line)
		}
		p.msg.Protocol = string(fields[0])
		code, err := strconv.Atoi(string(fields[1]))
		if err != nil {
			return fmt.Errorf("%w: bad status code %q", ErrMalformedMessage, fields[1])
		}
		p.msg.StatusCode = code
		if len(fields) > 2 {
			p.msg.Reason = string(bytes.Join(fields[2:], []byte(" ")))
		}
	}
	return nil
}

// onHeadersComplete decides the body-framing strategy (spec.md §4.6:
// chunked beats Content-Length when both are present; a 101 response or
// CONNECT request moves straight to HANDSHAKE/GOOD with no body) and
// applies the X-AWH-Encryption bookkeeping of spec.md §6.
func (p *Parser) onHeadersComplete() error {
	if enc, ok := p.msg.Headers.Get("X-AWH-Encryption"); ok {
		bits, err := strconv.Atoi(strings.TrimSpace(enc))
		if err != nil {
			return fmt.Errorf("%w: bad X-AWH-Encryption value %q", ErrMalformedMessage, enc)
		}
		p.msg.Encrypted = true
		p.msg.EncryptBits = bits
	}

	if p.msg.StatusCode == 101 {
		p.msg.state = StateHandshake
		return nil
	}
	if p.Role == RoleServer && strings.EqualFold(p.msg.Method, "CONNECT") {
		p.msg.state = StateGood
		return nil
	}

	if p.isChunked() {
		p.msg.state = StateBody
		return nil
	}

	if cl, ok := p.msg.Headers.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: bad Content-Length %q", ErrMalformedMessage, cl)
		}
		p.bodyN = n
		if n == 0 {
			p.msg.state = StateGood
			return nil
		}
		p.msg.state = StateBody
		return nil
	}

	// No framing header: treat as a bodyless message (e.g. GET request).
	// A response body delimited by connection close is not read: the
	// message completes here with an empty body.
	p.msg.state = StateGood
	return nil
}

func (p *Parser) isChunked() bool {
	te, ok := p.msg.Headers.Get("Transfer-Encoding")
	return ok && strings.Contains(strings.ToLower(te), "chunked")
}

// FinishUnframedBody moves a message that is still in StateBody to
// StateGood, e.g. once the peer has closed. A message with neither
// Content-Length nor chunked framing never reaches StateBody (it completes
// when its headers end), so for it this does nothing.
func (p *Parser) FinishUnframedBody() {
	if p.msg.state == StateBody {
		p.msg.state = StateGood
	}
}

// splitHeaderLine splits a single header line into its name and value,
// trimming optional whitespace around the colon per RFC 7230 §3.2.
func splitHeaderLine(line []byte) (name, value string, err error) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", fmt.Errorf("%w: header missing colon: %q", ErrMalformedMessage, line)
	}
	name = string(bytes.TrimSpace(line[:idx]))
	value = string(bytes.TrimSpace(line[idx+1:]))
	if name == "" {
		return "", "", fmt.Errorf("%w: empty header name", ErrMalformedMessage)
	}
	return name, value, nil
}
