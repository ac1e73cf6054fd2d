// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"testing"

	"github.com/anyks-go/awh/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuthRoundTrip(t *testing.T) {
	header := BasicAuthHeader("alice", "s3cret")
	user, pass, ok := ParseBasicAuth(header)
	require.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", pass)
}

func TestParseBasicAuthRejectsOtherSchemes(t *testing.T) {
	_, _, ok := ParseBasicAuth("Bearer abc")
	assert.False(t, ok)
}

func TestDigestChallengeHeader(t *testing.T) {
	c, err := NewDigestChallenge("awh", "opaque-val", settings.DigestMD5)
	require.NoError(t, err)
	assert.Contains(t, c.Header(), `realm="awh"`)
	assert.Contains(t, c.Header(), `qop="auth"`)
	assert.NotEmpty(t, c.Nonce)
}

func TestDigestResponseIsDeterministic(t *testing.T) {
	r1 := DigestResponse(settings.DigestMD5, "alice", "s3cret", "awh", "GET", "/x", "nonce1", "00000001", "cnonce1", "auth")
	r2 := DigestResponse(settings.DigestMD5, "alice", "s3cret", "awh", "GET", "/x", "nonce1", "00000001", "cnonce1", "auth")
	assert.Equal(t, r1, r2)

	r3 := DigestResponse(settings.DigestMD5, "alice", "wrong", "awh", "GET", "/x", "nonce1", "00000001", "cnonce1", "auth")
	assert.NotEqual(t, r1, r3)
}
