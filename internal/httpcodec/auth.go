// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/anyks-go/awh/settings"
)

// BasicAuthHeader renders the "Authorization: Basic ..." value for
// user/pass, per spec.md §4.6.
func BasicAuthHeader(user, pass string) string {
	raw := user + ":" + pass
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// ParseBasicAuth extracts user/pass from an "Authorization: Basic ..."
// header value.
func ParseBasicAuth(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// DigestChallenge is a server-issued WWW-Authenticate/Proxy-Authenticate
// Digest challenge, per spec.md §4.6's realm/nonce/opaque/algorithm/qop
// fields.
type DigestChallenge struct {
	Realm     string
	Nonce     string
	Opaque    string
	Algorithm settings.DigestAlgorithm
	QOP       string // always "auth"
}

// NewDigestChallenge builds a fresh challenge with a random nonce.
func NewDigestChallenge(realm, opaque string, algorithm settings.DigestAlgorithm) (DigestChallenge, error) {
	nonce, err := randomHex(16)
	if err != nil {
		return DigestChallenge{}, err
	}
	return DigestChallenge{Realm: realm, Nonce: nonce, Opaque: opaque, Algorithm: algorithm, QOP: "auth"}, nil
}

// Header renders the challenge as a WWW-Authenticate/Proxy-Authenticate
// header value.
func (c DigestChallenge) Header() string {
	return fmt.Sprintf(`Digest realm=%q, qop="auth", nonce=%q, opaque=%q, algorithm=%s`,
		c.Realm, c.Nonce, c.Opaque, digestAlgorithmName(c.Algorithm))
}

// DigestResponse computes the Digest response hash for a client request,
// per RFC 7616 (and RFC 2617 for MD5), using the given credentials and
// challenge/request parameters.
func DigestResponse(algorithm settings.DigestAlgorithm, user, pass, realm, method, uri, nonce, nc, cnonce, qop string) string {
	h := newDigestHash(algorithm)

	ha1 := hexHash(h, fmt.Sprintf("%s:%s:%s", user, realm, pass))
	ha2 := hexHash(h, fmt.Sprintf("%s:%s", method, uri))

	if qop == "" {
		return hexHash(h, fmt.Sprintf("%s:%s:%s", ha1, nonce, ha2))
	}
	return hexHash(h, fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, nonce, nc, cnonce, qop, ha2))
}

func newDigestHash(algorithm settings.DigestAlgorithm) hash.Hash {
	switch algorithm {
	case settings.DigestSHA256:
		return sha256.New()
	case settings.DigestSHA512:
		return sha512.New()
	default:
		return md5.New()
	}
}

func hexHash(h hash.Hash, s string) string {
	h.Reset()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func digestAlgorithmName(a settings.DigestAlgorithm) string {
	switch a {
	case settings.DigestSHA256:
		return "SHA-256"
	case settings.DigestSHA512:
		return "SHA-512"
	default:
		return "MD5"
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
