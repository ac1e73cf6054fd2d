// SPDX-License-Identifier: GPL-3.0-or-later

// Package awh provides the composable connection-establishment primitives
// shared by the rest of the module: dialing, TLS, DNS exchange and plain
// HTTP round trips. The stateful reactor, the HTTP/1.x and WebSocket state
// machines, the SOCKS5 client, the forwarding proxy and the cluster
// supervisor live in internal/ subpackages and are built on top of these
// primitives rather than duplicating them.
//
// # Core Abstraction
//
// The package is built around a single interface:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// Each Func represents an atomic network operation with exactly one success
// mode and one failure mode. This design enables type-safe composition via
// [Compose2], [Compose3], etc., where the compiler verifies that outputs
// match inputs across pipeline stages. internal/socket.Engine and
// internal/web's client endpoint both build their connect/handshake paths
// out of these Funcs.
//
// # Available Primitives
//
// Connection establishment:
//   - [ConnectFunc]: dials TCP or UDP endpoints
//   - [TLSHandshakeFunc]: performs TLS handshake over an existing connection
//   - [ObserveConnFunc]: observes connections for logging I/O operations
//   - [CancelWatchFunc]: closes connection on context cancellation (for responsive ^C handling)
//
// HTTP:
//   - [HTTPConn]: wraps a connection with an HTTP transport, performs round trips
//     with structured logging and transparent body observation (created via [NewHTTPConnFunc])
//
// DNS resolution:
//   - [DNSOverUDPConn]: wraps a UDP connection for DNS-over-UDP (owns the connection)
//   - [DNSOverTCPConn]: wraps a TCP connection for DNS-over-TCP (owns the connection)
//   - [DNSOverTLSConn]: wraps a TLS connection for DNS-over-TLS (owns the connection)
//   - [DNSOverHTTPSConn]: wraps an HTTPConn for DNS-over-HTTPS (owns the connection)
//   - [DNSExchangeLogContext]: structured logging for DNS exchanges, used internally
//     by the above types and by internal/dnsresolver, which drives them to
//     implement the caching, blacklist and hostfile resolver of spec §4.3.
//
// Composition utilities:
//   - [Compose2] through [Compose8]: chain Funcs into pipelines
//   - [FuncAdapter]: wrap a function as a Func for ad-hoc custom behavior
//   - [Apply]: bind a fixed input to a Func
//   - [ConstFunc]: lift a pure value into a Func
//   - [NewEndpointFunc]: convenience wrapper for ConstFunc with endpoints
//
// # Connection Lifecycle
//
// This package uses two ownership patterns for connection management:
//
// Dial operations ([ConnectFunc], [TLSHandshakeFunc]) create connections and
// transfer ownership to the next stage on success. On error, they close the connection.
//
// Wrapper types ([HTTPConn], [DNSOverTLSConn], etc.) OWN their underlying connection.
// The caller must call Close() when done, which closes the underlying connection.
// These can be composed into pipelines via their corresponding Func types.
//
// See the testable examples for complete code demonstrating these patterns.
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible with [log/slog]).
//
// By default, logging is disabled. Set the Logger field to a custom [*slog.Logger]
// to enable logging. Error classification is configurable via [ErrClassifier]; by
// default, [DefaultErrClassifier] is used. The reactor-driven packages
// (internal/broker, internal/web, internal/proxy, internal/cluster) reuse
// [SLogger] and [ErrClassifier] so a caller wires logging once at the top.
//
// Primitives emit two kinds of structured log events:
//
//   - Span events (*Start/*Done pairs): Record operation lifecycle including
//     timing and success/failure. Used for latency analysis and error tracking.
//
//   - Wire observations (e.g., dnsQuery/dnsResponse): Capture protocol-level
//     messages for dig-like UI output and protocol debugging.
//
// The [SLogger] interface accepts any slog-compatible handler, enabling flexible
// post-processing. Handlers can filter, transform, or route events as needed.
//
// All events share a common set of fields: localAddr, remoteAddr, protocol,
// and t (timestamp). Completion events (*Done) additionally include t0 (start
// time), err, and errClass. I/O-level events (read, write, deadline changes)
// are emitted at [slog.LevelDebug]; all other events use [slog.LevelInfo].
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7) for each
// operation, then attach it to the logger with [*slog.Logger.With]. All log entries
// from that operation will share the same spanID, enabling correlation across
// pipeline stages and simplifying log analysis. internal/web reuses [NewSpanID]
// to mint its per-request request_id.
//
// # Timeout and Context Philosophy
//
// This package is context-transparent: operations never modify the context they receive.
// The caller controls timeouts externally via [context.WithTimeout], [context.WithDeadline],
// or [signal.NotifyContext]. When the context is done (timeout, cancel, or signal),
// operations fail and the pipeline is interrupted.
//
// Connection lifecycle requires [CancelWatchFunc] to bind the context lifecycle to
// the connection: when the context is done, the connection is closed immediately,
// causing any in-progress I/O to fail. This enables responsive ^C handling via
// [signal.NotifyContext] and ensures that blocking I/O respects the context deadline.
// The reactor in internal/reactor applies the same principle to broker deadlines
// (spec §5 "Cancellation / timeouts"), just driven by timer expiry instead of
// [context.AfterFunc].
//
// # Design Boundaries
//
// This package intentionally provides only connection-establishment primitives.
// Parallel execution, retry/backoff, multi-step orchestration and application
// routing are out of scope for this package specifically — they are implemented
// in internal/web (auto-redirect/auto-reauthenticate), internal/proxy and
// internal/cluster, which are free to layer that policy on top of these Funcs.
package awh
