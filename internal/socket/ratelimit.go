// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"net"
	"sync"
	"time"
)

// TokenBucket throttles a net.Conn's ingress and/or egress to a configured
// bytes/second rate, implementing the "token-bucket ingress/egress rate
// limits" of spec.md §4.2.
type TokenBucket struct {
	mu         sync.Mutex
	ratePerSec int64
	capacity   int64
	tokens     float64
	last       time.Time
	now        func() time.Time
}

// NewTokenBucket builds a [*TokenBucket] capped at ratePerSec bytes/second,
// with a burst capacity equal to one second's worth of traffic.
func NewTokenBucket(ratePerSec int64) *TokenBucket {
	return &TokenBucket{
		ratePerSec: ratePerSec,
		capacity:   ratePerSec,
		tokens:     float64(ratePerSec),
		last:       time.Now(),
		now:        time.Now,
	}
}

// Take blocks until n tokens (bytes) are available, then consumes them.
// A zero or negative rate disables throttling entirely.
func (tb *TokenBucket) Take(n int) {
	if tb == nil || tb.ratePerSec <= 0 {
		return
	}
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= float64(n) {
			tb.tokens -= float64(n)
			tb.mu.Unlock()
			return
		}
		deficit := float64(n) - tb.tokens
		wait := time.Duration(deficit / float64(tb.ratePerSec) * float64(time.Second))
		tb.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}
		time.Sleep(wait)
	}
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last).Seconds()
	tb.last = now
	tb.tokens += elapsed * float64(tb.ratePerSec)
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
}

// ThrottledConn wraps a net.Conn with independent ingress/egress token
// buckets. A nil bucket disables throttling in that direction.
type ThrottledConn struct {
	net.Conn
	Ingress *TokenBucket
	Egress  *TokenBucket
}

// Read implements net.Conn, consuming ingress tokens proportional to the
// number of bytes actually read.
func (c *ThrottledConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 && c.Ingress != nil {
		c.Ingress.Take(n)
	}
	return n, err
}

// Write implements net.Conn, consuming egress tokens before writing so a
// slow budget throttles the caller rather than the kernel's send buffer.
func (c *ThrottledConn) Write(b []byte) (int, error) {
	if c.Egress != nil {
		c.Egress.Take(len(b))
	}
	return c.Conn.Write(b)
}
