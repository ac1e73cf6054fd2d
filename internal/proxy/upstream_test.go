// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/netip"
	"testing"

	"github.com/anyks-go/awh"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/socket"
	"github.com/stretchr/testify/require"
)

// TestUpstreamDialPlainRoundTrip exercises the real forward-connect path
// DESIGN.md flags as missing from Proxy.Handle: Upstream.Dial connects
// over plain TCP and performs an actual HTTP round trip against a server.
func TestUpstreamDialPlainRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer conn.Close()
		req, rerr := http.ReadRequest(bufio.NewReader(conn))
		if rerr != nil {
			return
		}
		req.Body.Close()
		resp := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"
		conn.Write([]byte(resp))
	}()

	addr, err := netip.ParseAddrPort(ln.Addr().String())
	require.NoError(t, err)

	cfg := awh.NewConfig()
	engine := socket.NewEngine(cfg, awh.DefaultSLogger())
	up := NewUpstream(engine, cfg, awh.DefaultSLogger())

	hc, err := up.Dial(context.Background(), addr, "example.test", false, broker.SchemeID(1))
	require.NoError(t, err)
	defer hc.Close()

	httpReq, err := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	require.NoError(t, err)

	resp, err := hc.RoundTrip(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}
