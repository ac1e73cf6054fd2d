// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"strings"
	"sync"

	"github.com/anyks-go/awh/internal/httpcodec"
	"github.com/anyks-go/awh/settings"
)

// Authenticator verifies Proxy-Authorization per session, per spec.md
// §4.11 ("Per-session authentication is required before any bridging").
type Authenticator struct {
	Type        settings.AuthType
	Algorithm   settings.DigestAlgorithm
	Realm       string
	Opaque      string
	Credentials map[string]string // user -> password

	mu     sync.Mutex
	nonces map[string]httpcodec.DigestChallenge
}

// NewAuthenticator builds an [*Authenticator] from cfg and a user/password
// store.
func NewAuthenticator(cfg settings.Proxy, algorithm settings.DigestAlgorithm, credentials map[string]string) *Authenticator {
	return &Authenticator{
		Type:        cfg.AuthType,
		Algorithm:   algorithm,
		Realm:       cfg.Realm,
		Opaque:      cfg.Opaque,
		Credentials: credentials,
		nonces:      make(map[string]httpcodec.DigestChallenge),
	}
}

// Challenge builds the WWW-Authenticate/Proxy-Authenticate header value
// to send with a 407, per a.Type. For Digest, the fresh nonce is
// remembered so a subsequent Verify call can validate against it.
func (a *Authenticator) Challenge() (string, error) {
	switch a.Type {
	case settings.AuthBasic:
		return `Basic realm="` + a.Realm + `"`, nil
	case settings.AuthDigest:
		c, err := httpcodec.NewDigestChallenge(a.Realm, a.Opaque, a.Algorithm)
		if err != nil {
			return "", err
		}
		a.mu.Lock()
		a.nonces[c.Nonce] = c
		a.mu.Unlock()
		return c.Header(), nil
	default:
		return "", nil
	}
}

// Verify reports whether header (a Proxy-Authorization value) proves
// valid credentials for method/uri, per a.Type.
func (a *Authenticator) Verify(method, uri, header string) bool {
	switch a.Type {
	case settings.AuthNone:
		return true
	case settings.AuthBasic:
		user, pass, ok := httpcodec.ParseBasicAuth(header)
		if !ok {
			return false
		}
		want, known := a.Credentials[user]
		return known && want == pass
	case settings.AuthDigest:
		return a.verifyDigest(method, uri, header)
	default:
		return false
	}
}

func (a *Authenticator) verifyDigest(method, uri, header string) bool {
	params := parseDigestParams(header)
	nonce := params["nonce"]

	a.mu.Lock()
	_, known := a.nonces[nonce]
	a.mu.Unlock()
	if !known {
		return false
	}

	user := params["username"]
	pass, ok := a.Credentials[user]
	if !ok {
		return false
	}

	want := httpcodec.DigestResponse(a.Algorithm, user, pass, a.Realm, method, uri,
		nonce, params["nc"], params["cnonce"], params["qop"])
	return params["response"] == want
}

// parseDigestParams parses `Digest key1="v1", key2=v2` into a map.
func parseDigestParams(header string) map[string]string {
	out := make(map[string]string)
	header = strings.TrimPrefix(header, "Digest ")
	for _, part := range splitDigestFields(header) {
		k, v, ok := splitKV(part)
		if ok {
			out[k] = v
		}
	}
	return out
}

func splitDigestFields(s string) []string {
	var fields []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			depth ^= 1
		case ',':
			if depth == 0 {
				fields = append(fields, s[start:i])
				start = i + 1
			}
		}
	}
	fields = append(fields, s[start:])
	return fields
}

func splitKV(s string) (key, value string, ok bool) {
	k, v, found := strings.Cut(s, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.Trim(strings.TrimSpace(v), `"`), true
}
