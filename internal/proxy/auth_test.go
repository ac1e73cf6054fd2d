// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"testing"

	"github.com/anyks-go/awh/internal/httpcodec"
	"github.com/anyks-go/awh/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorBasicVerify(t *testing.T) {
	cfg := settings.Proxy{AuthType: settings.AuthBasic, Realm: "awh"}
	a := NewAuthenticator(cfg, settings.DigestMD5, map[string]string{"alice": "secret"})

	header := httpcodec.BasicAuthHeader("alice", "secret")
	assert.True(t, a.Verify("GET", "/", header))
	assert.False(t, a.Verify("GET", "/", httpcodec.BasicAuthHeader("alice", "wrong")))
}

func TestAuthenticatorBasicChallenge(t *testing.T) {
	cfg := settings.Proxy{AuthType: settings.AuthBasic, Realm: "awh"}
	a := NewAuthenticator(cfg, settings.DigestMD5, nil)

	challenge, err := a.Challenge()
	require.NoError(t, err)
	assert.Equal(t, `Basic realm="awh"`, challenge)
}

func TestAuthenticatorDigestRoundTrip(t *testing.T) {
	cfg := settings.Proxy{AuthType: settings.AuthDigest, Realm: "awh", Opaque: "op123"}
	a := NewAuthenticator(cfg, settings.DigestMD5, map[string]string{"alice": "secret"})

	challengeHeader, err := a.Challenge()
	require.NoError(t, err)

	var nonce string
	for n := range a.nonces {
		nonce = n
	}
	require.NotEmpty(t, nonce)
	_ = challengeHeader

	response := httpcodec.DigestResponse(settings.DigestMD5, "alice", "secret", "awh", "GET", "/resource", nonce, "00000001", "abcd1234", "auth")
	header := `Digest username="alice", realm="awh", nonce="` + nonce + `", uri="/resource", qop=auth, nc=00000001, cnonce="abcd1234", response="` + response + `"`

	assert.True(t, a.Verify("GET", "/resource", header))
}

func TestAuthenticatorDigestRejectsUnknownNonce(t *testing.T) {
	cfg := settings.Proxy{AuthType: settings.AuthDigest, Realm: "awh"}
	a := NewAuthenticator(cfg, settings.DigestMD5, map[string]string{"alice": "secret"})

	header := `Digest username="alice", realm="awh", nonce="bogus", uri="/", response="deadbeef"`
	assert.False(t, a.Verify("GET", "/", header))
}

func TestAuthenticatorNoneAlwaysPasses(t *testing.T) {
	a := NewAuthenticator(settings.Proxy{AuthType: settings.AuthNone}, settings.DigestMD5, nil)
	assert.True(t, a.Verify("GET", "/", ""))
}
