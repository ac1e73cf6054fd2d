// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"net"
	"testing"
	"time"

	"github.com/anyks-go/awh/errs"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortWriteConn accepts only the first n bytes of any Write and reports
// success anyway, simulating a partial socket write under SendingInstant.
type shortWriteConn struct {
	net.Conn
	allow int
	got   []byte
}

func (c *shortWriteConn) Write(p []byte) (int, error) {
	n := len(p)
	if n > c.allow {
		n = c.allow
	}
	c.got = append(c.got, p[:n]...)
	return n, nil
}

func newPipeBroker(t *testing.T) (*broker.Broker, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	b := broker.New(1, client, broker.Peer{Addr: "peer"}, settings.DefaultTimeouts(), settings.DefaultKeepalive())
	return b, server
}

// Writing beyond brokerAvailableSize returns Backpressure and never
// truncates nor reorders the prior queue (spec.md §8).
func TestSendRejectsOverBrokerQuota(t *testing.T) {
	registry := broker.NewRegistry(settings.DefaultQuota())
	n := NewBase(registry)
	b, server := newPipeBroker(t)
	defer server.Close()

	// Use DEFFER so nothing is written out from under the queue during
	// this test.
	err := n.Send(b, make([]byte, 50), settings.SendingDeffer, 100)
	require.NoError(t, err)

	err = n.Send(b, make([]byte, 60), settings.SendingDeffer, 100)
	assert.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindBackpressure, e.Kind)

	// The prior 50-byte frame is still queued, untouched.
	assert.EqualValues(t, 50, b.Send.Size())
}

// The process-wide memory quota is enforced across brokers.
func TestSendRejectsOverProcessQuota(t *testing.T) {
	registry := broker.NewRegistry(settings.Quota{MemoryAvailableSize: 10})
	n := NewBase(registry)
	b, server := newPipeBroker(t)
	defer server.Close()

	err := n.Send(b, make([]byte, 20), settings.SendingDeffer, 0)
	assert.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindQuotaExceeded, e.Kind)
}

// Flush drains queued frames in order, verbatim.
func TestFlushDrainsInOrder(t *testing.T) {
	registry := broker.NewRegistry(settings.DefaultQuota())
	n := NewBase(registry)
	b, server := newPipeBroker(t)
	defer server.Close()

	require.NoError(t, n.Send(b, []byte("hello "), settings.SendingDeffer, 0))
	require.NoError(t, n.Send(b, []byte("world"), settings.SendingDeffer, 0))

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 11)
		total := 0
		for total < 11 {
			nr, err := server.Read(buf[total:])
			if err != nil {
				break
			}
			total += nr
		}
		received <- string(buf[:total])
	}()

	flushed, err := n.Flush(b)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)

	select {
	case got := <-received:
		assert.Equal(t, "hello world", got)
	case <-time.After(time.Second):
		t.Fatal("never received flushed data")
	}
}

// A partial write under SendingInstant must release the bytes actually
// handed to the socket from the process-wide quota immediately, not only
// once the frame fully drains on a later Flush.
func TestSendInstantReleasesMemoryOnShortWrite(t *testing.T) {
	registry := broker.NewRegistry(settings.Quota{MemoryAvailableSize: 100})
	n := NewBase(registry)
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	conn := &shortWriteConn{Conn: server, allow: 4}
	b := broker.New(1, conn, broker.Peer{Addr: "peer"}, settings.DefaultTimeouts(), settings.DefaultKeepalive())

	require.NoError(t, n.Send(b, []byte("hello world"), settings.SendingInstant, 0))

	// Only the unwritten remainder (11-4=7 bytes) should still be charged
	// against the quota; the 4 bytes the socket already accepted must not
	// linger as leaked reservation.
	assert.EqualValues(t, 7, registry.MemoryUsed())
	assert.EqualValues(t, "hell", string(conn.got))
	assert.EqualValues(t, 11, b.Send.Size())
}

// BelowLowWatermark only clears once the queue has drained under 50%.
func TestBelowLowWatermark(t *testing.T) {
	registry := broker.NewRegistry(settings.DefaultQuota())
	n := NewBase(registry)
	b, server := newPipeBroker(t)
	defer server.Close()

	require.NoError(t, n.Send(b, make([]byte, 80), settings.SendingDeffer, 100))
	assert.False(t, BelowLowWatermark(b, 100))

	b.Send.Pop() // simulate having fully flushed that frame
	assert.True(t, BelowLowWatermark(b, 100))
}
