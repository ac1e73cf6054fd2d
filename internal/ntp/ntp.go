// SPDX-License-Identifier: GPL-3.0-or-later

// Package ntp implements the C4 NTP client of spec.md §4.4: a standard
// 48-byte NTPv3 request sent to each server in a pool until one replies
// within the timeout, converting the reply into Unix milliseconds.
package ntp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01), per spec.md §4.4.
const ntpEpochOffset = 2208988800

// packetSize is the fixed NTPv3/v4 request/response size.
const packetSize = 48

// Dialer abstracts UDP dialing so tests can substitute a fake.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client queries a pool of NTP servers, per spec.md §4.4.
type Client struct {
	Dialer  Dialer
	Timeout time.Duration
}

// NewClient builds a [*Client] with a default per-server timeout.
func NewClient(dialer Dialer) *Client {
	return &Client{Dialer: dialer, Timeout: 3 * time.Second}
}

// Now queries servers in order until one replies within Timeout,
// returning the server's clock as Unix milliseconds. Returns 0 if every
// server fails, per spec.md §4.4.
func (c *Client) Now(ctx context.Context, servers []string) int64 {
	for _, server := range servers {
		ms, err := c.query(ctx, server)
		if err == nil {
			return ms
		}
	}
	return 0
}

func (c *Client) query(ctx context.Context, server string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, err := c.Dialer.DialContext(ctx, "udp", server)
	if err != nil {
		return 0, fmt.Errorf("ntp: dialing %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := newRequest()
	if _, err := conn.Write(req); err != nil {
		return 0, fmt.Errorf("ntp: writing request to %s: %w", server, err)
	}

	resp := make([]byte, packetSize)
	n, err := conn.Read(resp)
	if err != nil {
		return 0, fmt.Errorf("ntp: reading response from %s: %w", server, err)
	}
	if n < packetSize {
		return 0, fmt.Errorf("ntp: short response from %s: %d bytes", server, n)
	}

	return transmitTimestampToUnixMillis(resp), nil
}

// newRequest builds the standard 48-byte NTP client request: LI=0,
// VN=3, Mode=3 (client) in the first byte, all other fields zero.
func newRequest() []byte {
	buf := make([]byte, packetSize)
	buf[0] = 0x1B // 00 011 011: LI=0, VN=3, Mode=3
	return buf
}

// transmitTimestampToUnixMillis reads the 64-bit transmit timestamp
// (seconds since the NTP epoch, fixed-point fraction) at offset 40 and
// converts it to Unix milliseconds per spec.md §4.4.
func transmitTimestampToUnixMillis(resp []byte) int64 {
	seconds := binary.BigEndian.Uint32(resp[40:44])
	fraction := binary.BigEndian.Uint32(resp[44:48])

	unixSeconds := int64(seconds) - ntpEpochOffset
	fracMillis := (int64(fraction) * 1000) >> 32
	return unixSeconds*1000 + fracMillis
}
