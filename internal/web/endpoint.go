// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"sync"

	"github.com/anyks-go/awh/errs"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/httpcodec"
	"github.com/anyks-go/awh/internal/node"
	"github.com/anyks-go/awh/settings"
)

// Endpoint wires internal/broker, internal/node and internal/httpcodec
// together into the request/response surface of spec.md §4.10. One
// [Endpoint] serves one scheme (client or server); the reactor owning the
// scheme's brokers feeds parsed [httpcodec.Message]s to [Endpoint.Deliver].
type Endpoint struct {
	Registry  *broker.Registry
	Node      *node.Base
	HTTP      settings.HTTP
	Role      httpcodec.Role
	Callbacks Callbacks

	// WaitMess inverts the default "close on idle" policy to "keep
	// waiting" once a response completes, per spec.md §4.10.
	WaitMess bool

	mu      sync.Mutex
	pending map[Key]*pending
}

// NewEndpoint constructs an [*Endpoint].
func NewEndpoint(registry *broker.Registry, n *node.Base, cfg settings.HTTP, role httpcodec.Role, callbacks Callbacks) *Endpoint {
	return &Endpoint{
		Registry:  registry,
		Node:      n,
		HTTP:      cfg,
		Role:      role,
		Callbacks: callbacks,
		pending:   make(map[Key]*pending),
	}
}

// BeginRequest registers a new logical request and returns its
// correlation id, to be paired with sid in a [Key] by the caller.
func (e *Endpoint) BeginRequest(sid uint32, method, url string, headers httpcodec.Headers, body []byte) RequestID {
	rid := NewRequestID()
	e.mu.Lock()
	e.pending[Key{StreamID: sid, RequestID: rid}] = newPending(method, url, headers, body)
	e.mu.Unlock()
	return rid
}

// DeliverChunk fires the chunks(sid, rid, bytes) callback as body bytes
// arrive incrementally, ahead of the eventual [Endpoint.Deliver] call once
// the message reaches StateGood. Used while a chunked-transfer body is
// still streaming in.
func (e *Endpoint) DeliverChunk(sid uint32, rid RequestID, data []byte) {
	if e.Callbacks.Chunks != nil {
		e.Callbacks.Chunks(sid, rid, data)
	}
}

// Deliver is called once a parser reaches [httpcodec.StateGood] for a
// complete response. It fires the response/headers/entity callbacks in
// order, evaluates the auto-redirect/auto-reauthenticate policy of spec.md
// §4.10 (firing Retry when a retry applies), and then fires complete.
//
// It returns true when the caller should reinvoke the connector at
// retryURL with retryMethod (the Retry callback, if set, has already been
// fired); the caller is responsible for actually opening the new
// connection, since that requires DNS/socket machinery this package does
// not own.
func (e *Endpoint) Deliver(sid uint32, bid broker.ID, rid RequestID, msg *httpcodec.Message) (retry bool, retryMethod, retryURL string) {
	code, reason := msg.StatusCode, msg.Reason

	if e.Callbacks.Response != nil {
		e.Callbacks.Response(sid, rid, code, reason)
	}
	if e.Callbacks.Headers != nil {
		e.Callbacks.Headers(sid, rid, code, reason, msg.Headers)
	}
	if e.Callbacks.Entity != nil {
		e.Callbacks.Entity(sid, rid, code, reason, msg.Body)
	}

	key := Key{StreamID: sid, RequestID: rid}
	e.mu.Lock()
	p, ok := e.pending[key]
	e.mu.Unlock()

	if ok {
		if loc, retryNeeded := e.checkRedirect(key, p, code, msg.Headers); retryNeeded {
			if e.Callbacks.Retry != nil {
				e.Callbacks.Retry(sid, rid, p.Method, loc)
			}
			if e.Callbacks.Complete != nil {
				e.Callbacks.Complete(sid, rid, code, reason, msg.Body, msg.Headers)
			}
			return true, p.Method, loc
		}
		if e.checkReauth(key, p, code) {
			if e.Callbacks.Retry != nil {
				e.Callbacks.Retry(sid, rid, p.Method, p.URL)
			}
			if e.Callbacks.Complete != nil {
				e.Callbacks.Complete(sid, rid, code, reason, msg.Body, msg.Headers)
			}
			return true, p.Method, p.URL
		}
	}

	if e.Callbacks.Complete != nil {
		e.Callbacks.Complete(sid, rid, code, reason, msg.Body, msg.Headers)
	}
	e.mu.Lock()
	delete(e.pending, key)
	e.mu.Unlock()
	return false, "", ""
}

// checkRedirect reports whether code is 301/308 or a configured redirect status with
// a usable Location header and the request hasn't exhausted
// settings.HTTP.Attempts; it mutates p.attempts and p.URL on success.
func (e *Endpoint) checkRedirect(key Key, p *pending, code int, headers httpcodec.Headers) (location string, retry bool) {
	if !isAllowedRedirect(code, e.HTTP.AllowRedirectCodes) {
		return "", false
	}
	loc, ok := headers.Get("Location")
	if !ok || loc == "" {
		return "", false
	}
	if !e.bumpAttempts(key, p) {
		e.Callbacks.fireError(0, errs.KindRedirectExhaust, "redirect attempts exhausted")
		return "", false
	}
	p.URL = loc
	return loc, true
}

// checkReauth reports whether code demands re-authentication (401 for a
// direct server, 407 for a proxy) and the request hasn't exhausted
// settings.HTTP.Attempts.
func (e *Endpoint) checkReauth(key Key, p *pending, code int) bool {
	if e.HTTP.AuthType == settings.AuthNone {
		return false
	}
	if code != 401 && code != 407 {
		return false
	}
	if !e.bumpAttempts(key, p) {
		e.Callbacks.fireError(0, errs.KindAuthFailed, "authentication attempts exhausted")
		return false
	}
	return true
}

// bumpAttempts increments p.attempts and reports whether the request may
// still retry, per spec.md §4.10 ("bounded by attempts, default 15").
func (e *Endpoint) bumpAttempts(key Key, p *pending) bool {
	limit := e.HTTP.Attempts
	if limit <= 0 {
		limit = settings.DefaultHTTP().Attempts
	}
	p.attempts++
	return p.attempts < limit
}

func isAllowedRedirect(code int, allowed []int) bool {
	if code == 301 || code == 308 {
		return true
	}
	for _, c := range allowed {
		if c == code {
			return true
		}
	}
	return false
}
