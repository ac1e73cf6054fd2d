// SPDX-License-Identifier: GPL-3.0-or-later

package broker

import "errors"

// MaxPayload is the hard ceiling on a single [Frame]'s capacity, per
// spec.md §3 ("Payload frame ... max single-frame ≤ MAX_PAYLOAD").
const MaxPayload = 1 << 20 // 1 MiB

// ErrPayloadTooLarge is returned by [NewFrame] when data exceeds [MaxPayload].
var ErrPayloadTooLarge = errors.New("broker: payload exceeds MAX_PAYLOAD")

// Frame is a contiguous bounded byte region queued for a broker, matching
// the "Payload frame" data model of spec.md §3.
//
// Invariant: ReadOffset <= WriteOffset <= len(Data). The frame is popped
// from its queue only when ReadOffset == WriteOffset.
type Frame struct {
	Data        []byte
	WriteOffset int
	ReadOffset  int
	// TargetBroker identifies which broker this frame is destined for;
	// queues are per-broker so this is mostly useful for logging/tracing.
	TargetBroker ID
}

// NewFrame wraps data into a [Frame] ready to be queued, fully written.
func NewFrame(target ID, data []byte) (*Frame, error) {
	if len(data) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	return &Frame{Data: data, WriteOffset: len(data), TargetBroker: target}, nil
}

// Remaining returns the unread bytes of the frame.
func (f *Frame) Remaining() []byte {
	return f.Data[f.ReadOffset:f.WriteOffset]
}

// Advance marks n bytes as consumed from the read side.
func (f *Frame) Advance(n int) {
	f.ReadOffset += n
	if f.ReadOffset > f.WriteOffset {
		f.ReadOffset = f.WriteOffset
	}
}

// Drained reports whether every byte of the frame has been read.
func (f *Frame) Drained() bool {
	return f.ReadOffset == f.WriteOffset
}

// Queue is the per-broker FIFO of spec.md §3 ("Stored in a FIFO per-scheme
// queue").
type Queue struct {
	frames []*Frame
	size   int64
}

// Push appends a frame to the tail of the queue.
func (q *Queue) Push(f *Frame) {
	q.frames = append(q.frames, f)
	q.size += int64(len(f.Data))
}

// Front returns the head frame without removing it, or nil if empty.
func (q *Queue) Front() *Frame {
	if len(q.frames) == 0 {
		return nil
	}
	return q.frames[0]
}

// Pop removes the head frame. Callers must only call this once
// [Frame.Drained] holds for the head frame (the invariant from spec.md §3).
func (q *Queue) Pop() {
	if len(q.frames) == 0 {
		return
	}
	head := q.frames[0]
	q.size -= int64(len(head.Data))
	q.frames[0] = nil
	q.frames = q.frames[1:]
}

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.frames) }

// Size returns the total queued bytes across all frames (drained or not).
func (q *Queue) Size() int64 { return q.size }

// Discard drops every queued frame without writing it, matching the
// "removal from its scheme implies ... any pending send payloads
// discarded" invariant of spec.md §3.
func (q *Queue) Discard() {
	q.frames = nil
	q.size = 0
}
