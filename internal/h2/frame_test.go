// SPDX-License-Identifier: GPL-3.0-or-later

package h2

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := FrameHeader{Length: 10, Type: FrameHeaders, Flags: FlagEndHeaders | FlagEndStream, StreamID: 5}
	require.NoError(t, WriteFrameHeader(&buf, h))

	got, err := ReadFrameHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := &Frame{Header: FrameHeader{Type: FrameData, StreamID: 3}, Payload: []byte("hello")}
	require.NoError(t, WriteFrame(&buf, f))

	got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Header.StreamID)
	assert.Equal(t, "hello", string(got.Payload))
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	f := &Frame{Header: FrameHeader{Type: FrameData}, Payload: make([]byte, 100)}
	require.NoError(t, WriteFrame(&buf, f))

	_, err := ReadFrame(&buf, 50)
	assert.ErrorIs(t, err, ErrFrameSizeExceeded)
}

func TestStripPadding(t *testing.T) {
	payload := append([]byte{3}, append([]byte("data"), []byte{0, 0, 0}...)...)
	out, err := stripPadding(payload, FlagPadded)
	require.NoError(t, err)
	assert.Equal(t, "data", string(out))

	out, err = stripPadding([]byte("unpadded"), 0)
	require.NoError(t, err)
	assert.Equal(t, "unpadded", string(out))
}

func TestStripPaddingRejectsOverlongPad(t *testing.T) {
	_, err := stripPadding([]byte{200, 1, 2}, FlagPadded)
	assert.Error(t, err)
}
