// SPDX-License-Identifier: GPL-3.0-or-later

package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameRejectsOversizedPayload(t *testing.T) {
	_, err := NewFrame(1, make([]byte, MaxPayload+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

// A frame is popped from its queue only once read_offset == write_offset.
func TestQueuePopOnlyAfterDrain(t *testing.T) {
	var q Queue
	f, err := NewFrame(1, []byte("hello"))
	require.NoError(t, err)
	q.Push(f)

	assert.Equal(t, 1, q.Len())
	head := q.Front()
	assert.False(t, head.Drained())

	head.Advance(3)
	assert.False(t, head.Drained())
	assert.Equal(t, []byte("lo"), head.Remaining())

	head.Advance(2)
	assert.True(t, head.Drained())
	q.Pop()
	assert.Equal(t, 0, q.Len())
}

func TestQueueDiscardDropsPendingFrames(t *testing.T) {
	var q Queue
	f1, _ := NewFrame(1, []byte("a"))
	f2, _ := NewFrame(1, []byte("b"))
	q.Push(f1)
	q.Push(f2)
	assert.EqualValues(t, 2, q.Size())

	q.Discard()
	assert.Equal(t, 0, q.Len())
	assert.EqualValues(t, 0, q.Size())
}
