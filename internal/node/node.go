// SPDX-License-Identifier: GPL-3.0-or-later

// Package node implements the C6 "Node base" of spec.md §4.5: the send
// path shared by every server/client endpoint (internal/web), with
// per-broker and process-wide memory quotas and the two sending modes
// (INSTANT/DEFFER).
package node

import (
	"net"

	"github.com/anyks-go/awh/errs"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/settings"
)

// lowWatermarkNum/Den define the 50% low watermark that BelowLowWatermark
// reports. Send rejects a push only when it would take the queue past
// brokerAvailableSize; it does not hold further pushes back until the
// queue has drained below the watermark.
const lowWatermarkNum, lowWatermarkDen = 1, 2

// Base drives the send path for a [*broker.Registry]: Send enqueues
// application data as one or more [broker.Frame]s, and Flush performs the
// actual socket writes, matching the four steps of spec.md §4.5.
type Base struct {
	Registry *broker.Registry
}

// NewBase constructs a [*Base] bound to registry.
func NewBase(registry *broker.Registry) *Base {
	return &Base{Registry: registry}
}

// Send implements steps 1-3 of spec.md §4.5: serialize into a frame, push
// it onto the broker's queue (respecting brokerAvailableSize), and —
// depending on [settings.SendingMode] — attempt an immediate write first.
func (n *Base) Send(b *broker.Broker, data []byte, mode settings.SendingMode, brokerQuota int64) error {
	if b.Closing() || b.Closed() {
		return errs.New(errs.KindWriteReset, "broker is closing")
	}

	if brokerQuota > 0 && b.Send.Size()+int64(len(data)) > brokerQuota {
		return errs.New(errs.KindBackpressure, "per-broker queue at capacity")
	}
	if !n.Registry.ReserveMemory(int64(len(data))) {
		return errs.New(errs.KindQuotaExceeded, "process-wide memory quota exceeded")
	}

	frame, err := broker.NewFrame(b.ID, data)
	if err != nil {
		n.Registry.ReleaseMemory(int64(len(data)))
		return errs.Wrap(errs.KindPayloadTooLarge, err)
	}

	if mode == settings.SendingInstant {
		written, werr := tryWriteNow(b.Conn, frame)
		if written > 0 {
			// Release the bytes actually handed to the socket now, whether
			// or not the frame fully drained; the remainder (if any) stays
			// reserved until Flush releases it in turn.
			n.Registry.ReleaseMemory(int64(written))
		}
		if werr == nil && frame.Drained() {
			return nil
		}
		// Partial (or zero) write: queue the remainder and fall through
		// to the regular drain path below.
	}

	b.Send.Push(frame)
	return nil
}

// tryWriteNow attempts a direct non-blocking-ish write (best-effort; Go's
// net.Conn has no true non-blocking mode, so this is a single Write call
// whose short-write result is treated the same as "Wait" would be in the
// original reactor).
func tryWriteNow(conn net.Conn, frame *broker.Frame) (int, error) {
	remaining := frame.Remaining()
	if len(remaining) == 0 {
		return 0, nil
	}
	n, err := conn.Write(remaining)
	if n > 0 {
		frame.Advance(n)
	}
	return n, err
}

// Flush implements step 4 of spec.md §4.5: "On write-ready: dequeue head,
// write as many bytes as the socket accepts, advance read_offset. If the
// frame is drained, pop it." Returns the number of whole frames fully
// flushed in this call.
func (n *Base) Flush(b *broker.Broker) (int, error) {
	flushed := 0
	for {
		frame := b.Send.Front()
		if frame == nil {
			if b.Closing() {
				b.Close()
			}
			return flushed, nil
		}
		written, err := tryWriteNow(b.Conn, frame)
		if written > 0 {
			n.Registry.ReleaseMemory(int64(written))
		}
		if err != nil {
			return flushed, errs.Wrap(errs.KindWriteReset, err)
		}
		if !frame.Drained() {
			// Short write: stop here, the remainder waits for the next
			// write-ready event.
			return flushed, nil
		}
		b.Send.Pop()
		flushed++
	}
}

// BelowLowWatermark reports whether the broker's queued bytes have
// drained below 50% of brokerQuota, the condition spec.md §4.5 uses to
// resume accepting new pushes after backpressure.
func BelowLowWatermark(b *broker.Broker, brokerQuota int64) bool {
	if brokerQuota <= 0 {
		return true
	}
	return b.Send.Size()*lowWatermarkDen < brokerQuota*lowWatermarkNum
}
