// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings holds the tunables for the reactor-driven components
// (internal/broker, internal/node, internal/httpcodec, internal/ws,
// internal/web, internal/proxy, internal/cluster). These are installed
// once before Start() and are treated as read-only afterwards, per
// spec.md §5 "Shared resources".
package settings

import "time"

// AuthType enumerates the authentication schemes of spec.md §4.6.
type AuthType int

const (
	AuthNone AuthType = iota
	AuthBasic
	AuthDigest
)

// DigestAlgorithm enumerates the Digest algorithms spec.md §4.6 lists.
type DigestAlgorithm int

const (
	DigestMD5 DigestAlgorithm = iota
	DigestSHA256
	DigestSHA512
)

// Compressor enumerates the Content-Encoding values negotiated by C7.
type Compressor int

const (
	CompressNone Compressor = iota
	CompressGzip
	CompressDeflate
	CompressBrotli
	CompressZstd
)

// SendingMode is the C6 node-base send strategy.
type SendingMode int

const (
	// SendingInstant attempts a direct non-blocking write before enqueueing.
	SendingInstant SendingMode = iota
	// SendingDeffer always enqueues, matching the spec's "DEFFER" spelling.
	SendingDeffer
)

// Timeouts are the per-broker deadlines of spec.md §3 "Broker".
type Timeouts struct {
	Wait    time.Duration
	Read    time.Duration
	Write   time.Duration
	Connect time.Duration
}

// DefaultTimeouts matches the teacher-adjacent ambient default of a few
// seconds for connect and a more generous window for idle wait.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Wait:    30 * time.Second,
		Read:    10 * time.Second,
		Write:   10 * time.Second,
		Connect: 5 * time.Second,
	}
}

// Keepalive mirrors the SO_KEEPALIVE tunables of spec.md §4.2.
type Keepalive struct {
	Enabled  bool
	Count    int
	Idle     time.Duration
	Interval time.Duration
}

// DefaultKeepalive matches common OS defaults (TCP_KEEPCNT=9-ish, scaled down).
func DefaultKeepalive() Keepalive {
	return Keepalive{Enabled: true, Count: 3, Idle: 60 * time.Second, Interval: 15 * time.Second}
}

// Quota bounds outbound queued bytes, process-wide or per-broker (§4.5).
type Quota struct {
	MemoryAvailableSize int64
	BrokerAvailableSize int64
}

// DefaultQuota matches the spec's description of a modest per-process window.
func DefaultQuota() Quota {
	return Quota{
		MemoryAvailableSize: 64 << 20, // 64 MiB process-wide
		BrokerAvailableSize: 4 << 20,  // 4 MiB per broker
	}
}

// TLS holds the scheme-level TLS configuration surface of spec.md §4.2.
type TLS struct {
	Enabled    bool
	SNI        string // overrides the URL-derived SNI when non-empty
	VerifyPeer bool
	CAFile     string
	CADir      string
}

// HTTP holds the HTTP/1.x & HTTP/2 tunables of spec.md §4.6/§4.9/§4.10.
type HTTP struct {
	Compressors []Compressor
	AuthType    AuthType
	Algorithm   DigestAlgorithm
	Realm       string
	Opaque      string
	Attempts    int
	// AllowRedirectCodes lists which 3xx beyond 301/308 trigger a retry.
	AllowRedirectCodes []int
	// EncryptionBits is 0 (disabled) or one of 128/192/256 for the payload
	// envelope of spec.md §6.
	EncryptionBits int
	Passphrase     string
	Salt           string

	H2HeaderTableSize      uint32
	H2MaxConcurrentStreams uint32
	H2InitialWindowSize    uint32
	H2MaxFrameSize         uint32
	H2MaxHeaderListSize    uint32
	H2EnablePush           bool
}

// DefaultHTTP returns the baseline HTTP configuration. The HTTP/2 defaults
// answer Open Question (a) of SPEC_FULL.md §6: RFC 7540 §6.5.2 values,
// with MAX_CONCURRENT_STREAMS and MAX_HEADER_LIST_SIZE pinned to finite
// numbers since the RFC leaves both "unbounded" by default.
func DefaultHTTP() HTTP {
	return HTTP{
		Compressors:            []Compressor{CompressGzip, CompressDeflate, CompressBrotli, CompressZstd},
		AuthType:               AuthNone,
		Algorithm:              DigestMD5,
		Attempts:               15,
		AllowRedirectCodes:     []int{301, 302, 303, 307, 308},
		H2HeaderTableSize:      4096,
		H2MaxConcurrentStreams: 250,
		H2InitialWindowSize:    65535,
		H2MaxFrameSize:         16384,
		H2MaxHeaderListSize:    16384,
		H2EnablePush:           false,
	}
}

// WebSocket holds the C8 frame codec tunables of spec.md §4.7.
type WebSocket struct {
	PermessageDeflate       bool
	WbitServer              int
	WbitClient              int
	ServerNoContextTakeover bool
	ClientNoContextTakeover bool
	FrameSize               int
	PingInterval            time.Duration
	WaitPong                time.Duration
	Subprotocols            []string
	EncryptionBits          int
	Passphrase              string
	Salt                    string
}

// DefaultWebSocket matches spec.md §4.7's stated defaults.
func DefaultWebSocket() WebSocket {
	return WebSocket{
		PermessageDeflate: true,
		WbitServer:        15,
		WbitClient:        15,
		FrameSize:         0xFA000,
		PingInterval:      30 * time.Second,
		WaitPong:          10 * time.Second,
	}
}

// Proxy holds the C12 forwarding proxy tunables of spec.md §4.11.
type Proxy struct {
	ConnectEnabled bool
	AuthType       AuthType
	Realm          string
	Opaque         string
	MaxRequests    int
	Alive          bool
	Compressor     Compressor
	AgentOS        string
	AgentName      string
	AgentID        string
	AgentVersion   string
}

// DefaultProxy returns sensible proxy defaults (CONNECT on, no auth).
func DefaultProxy() Proxy {
	return Proxy{
		ConnectEnabled: true,
		AuthType:       AuthNone,
		Alive:          true,
		AgentName:      "awh",
		AgentVersion:   "1.0.0",
	}
}

// Cluster holds the C13 supervisor tunables of spec.md §4.12.
type Cluster struct {
	Workers int
	Restart bool
	// MinUptimeForRestart is the 3-minute threshold of spec.md §4.12.
	MinUptimeForRestart time.Duration
	MaxMessage          int
	Async               bool
	// ShutdownFlush bounds the graceful-flush window answering Open
	// Question (c) of SPEC_FULL.md §6.
	ShutdownFlush time.Duration
}

// DefaultCluster returns the spec's literal 3-minute restart threshold.
func DefaultCluster() Cluster {
	return Cluster{
		Workers:             0,
		Restart:             true,
		MinUptimeForRestart: 3 * time.Minute,
		MaxMessage:          16 << 20,
		ShutdownFlush:       5 * time.Second,
	}
}

// Scheme bundles the per-listener/per-target configuration of spec.md §3.
type Scheme struct {
	Timeouts  Timeouts
	Keepalive Keepalive
	Quota     Quota
	TLS       TLS
	Sending   SendingMode
	// WaitMess inverts the idle policy from "close on idle" to "keep
	// waiting", per spec.md §4.10.
	WaitMess bool
}

// DefaultScheme returns a scheme configuration with every sub-default wired in.
func DefaultScheme() Scheme {
	return Scheme{
		Timeouts:  DefaultTimeouts(),
		Keepalive: DefaultKeepalive(),
		Quota:     DefaultQuota(),
		Sending:   SendingInstant,
	}
}

// ParseRateLimit parses strings like "12Mbps" into bytes/second, per spec.md §4.2.
// Accepted suffixes: "bps", "Kbps", "Mbps", "Gbps" (bits/second, decimal).
func ParseRateLimit(s string) (bytesPerSecond int64, ok bool) {
	return parseRateLimit(s)
}
