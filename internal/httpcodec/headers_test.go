// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersCaseInsensitiveLookup(t *testing.T) {
	var h Headers
	h.Add("Content-Type", "text/plain")

	v, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", v)
}

func TestHeadersMultimapPreservesOrder(t *testing.T) {
	var h Headers
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")

	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("set-cookie"))
	assert.Equal(t, 2, h.Len())
}

func TestHeadersSetReplacesAll(t *testing.T) {
	var h Headers
	h.Add("X-Foo", "1")
	h.Add("X-Foo", "2")
	h.Set("X-Foo", "3")

	assert.Equal(t, []string{"3"}, h.Values("X-Foo"))
}

func TestHeadersDel(t *testing.T) {
	var h Headers
	h.Add("X-Foo", "1")
	h.Add("X-Bar", "2")
	h.Del("x-foo")

	assert.False(t, h.Has("X-Foo"))
	assert.True(t, h.Has("X-Bar"))
}

func TestCanonicalEmitName(t *testing.T) {
	assert.Equal(t, "Content-Type", canonicalEmitName("content-type"))
	assert.Equal(t, "X-Awh-Encryption", canonicalEmitName("x-awh-encryption"))
}
