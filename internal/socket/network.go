// SPDX-License-Identifier: GPL-3.0-or-later

// Package socket implements the C2 socket engine of spec.md §4.2: connect/
// accept/read/write over {TCP, UDP, TLS, DTLS, SCTP, UNIX}, socket
// tunables (cork/nodelay/keepalive/rate limiting) and SNI/certificate
// verification. It builds directly on the root package's [awh.ConnectFunc]
// and [awh.TLSHandshakeFunc] for the TCP/TLS path, and adds DTLS (pion/
// dtls) and SCTP (pion/sctp) transports the teacher does not cover.
package socket

import "errors"

// Network enumerates the transports of spec.md §4.2.
type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkUDP  Network = "udp"
	NetworkTLS  Network = "tls"
	NetworkDTLS Network = "dtls"
	NetworkSCTP Network = "sctp"
	NetworkUnix Network = "unix"
)

// ErrUnsupportedNetwork is returned for a [Network] the engine does not implement.
var ErrUnsupportedNetwork = errors.New("socket: unsupported network")

// Result mirrors the read outcomes of spec.md §4.2 ("read(broker) → bytes |
// Wait | Closed | Err"). Go's net.Conn already distinguishes these via
// (n, err) with net.Error.Timeout()/io.EOF, and no package in this tree
// consumes Result; it only names these outcomes.
type Result int

const (
	ResultData Result = iota
	ResultWait
	ResultClosed
	ResultErr
)
