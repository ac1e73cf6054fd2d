// SPDX-License-Identifier: GPL-3.0-or-later

package socks5

import (
	"io"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer drives the server side of the handshake over a net.Pipe,
// replying exactly per RFC 1928/1929.
func fakeServer(t *testing.T, conn net.Conn, method byte, authOK bool, rep byte) {
	t.Helper()
	go func() {
		greeting := make([]byte, 2)
		if _, err := io.ReadFull(conn, greeting); err != nil {
			return
		}
		methods := make([]byte, greeting[1])
		if _, err := io.ReadFull(conn, methods); err != nil {
			return
		}
		conn.Write([]byte{version5, method})

		if method == methodUserPass {
			head := make([]byte, 2)
			if _, err := io.ReadFull(conn, head); err != nil {
				return
			}
			user := make([]byte, head[1])
			io.ReadFull(conn, user)
			plen := make([]byte, 1)
			io.ReadFull(conn, plen)
			pass := make([]byte, plen[0])
			io.ReadFull(conn, pass)
			if authOK {
				conn.Write([]byte{userPassVersion, 0x00})
			} else {
				conn.Write([]byte{userPassVersion, 0x01})
				return
			}
		}

		head := make([]byte, 4)
		if _, err := io.ReadFull(conn, head); err != nil {
			return
		}
		switch head[3] {
		case atypIPv4:
			buf := make([]byte, 6)
			io.ReadFull(conn, buf)
		case atypDomain:
			lenBuf := make([]byte, 1)
			io.ReadFull(conn, lenBuf)
			buf := make([]byte, int(lenBuf[0])+2)
			io.ReadFull(conn, buf)
		}

		conn.Write([]byte{version5, rep, 0x00, atypIPv4, 0, 0, 0, 0, 0, 0})
	}()
}

func TestConnectSucceedsNoAuth(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fakeServer(t, server, methodNoAuth, true, 0x00)

	c := NewClient(client, MethodNoAuth)
	err := c.Connect(Target{IP: netip.MustParseAddr("93.184.216.34"), Port: 443})
	require.NoError(t, err)
}

func TestConnectSucceedsWithUserPass(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fakeServer(t, server, methodUserPass, true, 0x00)

	c := NewClient(client, MethodUserPass)
	c.Username, c.Password = "alice", "secret"
	err := c.Connect(Target{Hostname: "example.com", Port: 80})
	require.NoError(t, err)
}

func TestConnectFailsOnBadAuth(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fakeServer(t, server, methodUserPass, false, 0x00)

	c := NewClient(client, MethodUserPass)
	c.Username, c.Password = "alice", "wrong"
	err := c.Connect(Target{Hostname: "example.com", Port: 80})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestConnectFailsOnNonZeroReply(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fakeServer(t, server, methodNoAuth, true, byte(ReplyHostUnreachable))

	c := NewClient(client, MethodNoAuth)
	err := c.Connect(Target{IP: netip.MustParseAddr("93.184.216.34"), Port: 443})
	assert.ErrorIs(t, err, ErrProtocol)
}
