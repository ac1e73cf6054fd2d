// SPDX-License-Identifier: GPL-3.0-or-later

package dnsresolver

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/anyks-go/awh"
	"github.com/anyks-go/awh/internal/socket"
	"github.com/anyks-go/awh/settings"
	"github.com/bassosimone/dnscodec"
)

// UDPExchanger is the live [Exchanger] used in production: it dials
// server over UDP via [socket.Engine], wraps the connection with
// [awh.DNSOverUDPConnFunc] (grounded on the teacher's own DNS-over-UDP
// pipeline), and issues one [dnscodec.Query].
type UDPExchanger struct {
	Engine *socket.Engine
	Config *awh.Config
	Logger awh.SLogger
}

// Exchange implements [Exchanger].
func (x *UDPExchanger) Exchange(ctx context.Context, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	addr, err := netip.ParseAddrPort(server)
	if err != nil {
		return nil, false, fmt.Errorf("dnsresolver: bad UDP server address %q: %w", server, err)
	}
	conn, err := x.Engine.Connect(ctx, socket.NetworkUDP, addr, "", settings.DefaultScheme())
	if err != nil {
		return nil, false, err
	}
	wrapFn := awh.NewDNSOverUDPConnFunc(x.Config, x.Logger)
	dnsConn, err := wrapFn.Call(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, false, err
	}
	defer dnsConn.Close()

	query := dnscodec.NewQuery(hostname, dnsTypeFor(family))
	resp, err := dnsConn.Exchange(ctx, query)
	if err != nil {
		return nil, isTruncationError(err), err
	}
	addrs, err := recordsFor(resp, family)
	return addrs, false, err
}

// TCPExchanger is the TCP-fallback [Exchanger] used when a UDP response
// reports truncation, per spec.md §4.3.
type TCPExchanger struct {
	Engine *socket.Engine
	Config *awh.Config
	Logger awh.SLogger
}

// Exchange implements [Exchanger].
func (x *TCPExchanger) Exchange(ctx context.Context, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	addr, err := netip.ParseAddrPort(server)
	if err != nil {
		return nil, false, fmt.Errorf("dnsresolver: bad TCP server address %q: %w", server, err)
	}
	conn, err := x.Engine.Connect(ctx, socket.NetworkTCP, addr, "", settings.DefaultScheme())
	if err != nil {
		return nil, false, err
	}
	wrapFn := awh.NewDNSOverTCPConnFunc(x.Config, x.Logger)
	dnsConn, err := wrapFn.Call(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, false, err
	}
	defer dnsConn.Close()

	query := dnscodec.NewQuery(hostname, dnsTypeFor(family))
	resp, err := dnsConn.Exchange(ctx, query)
	if err != nil {
		return nil, false, err
	}
	addrs, err := recordsFor(resp, family)
	return addrs, false, err
}

// TLSExchanger is the DNS-over-TLS (DoT) [Exchanger]: it dials server over
// TLS via [socket.Engine] and wraps the connection with
// [awh.DNSOverTLSConnFunc]. Truncation cannot happen over a stream
// transport, so it always reports truncated=false.
type TLSExchanger struct {
	Engine     *socket.Engine
	Config     *awh.Config
	Logger     awh.SLogger
	ServerName string
}

// Exchange implements [Exchanger].
func (x *TLSExchanger) Exchange(ctx context.Context, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	addr, err := netip.ParseAddrPort(server)
	if err != nil {
		return nil, false, fmt.Errorf("dnsresolver: bad DoT server address %q: %w", server, err)
	}
	conn, err := x.Engine.Connect(ctx, socket.NetworkTLS, addr, x.ServerName, settings.DefaultScheme())
	if err != nil {
		return nil, false, err
	}
	tconn, ok := conn.(awh.TLSConn)
	if !ok {
		conn.Close()
		return nil, false, fmt.Errorf("dnsresolver: engine returned a non-TLS connection for DoT")
	}
	dotConn, err := awh.NewDNSOverTLSConnFunc(x.Config, x.Logger).Call(ctx, tconn)
	if err != nil {
		tconn.Close()
		return nil, false, err
	}
	defer dotConn.Close()

	query := dnscodec.NewQuery(hostname, dnsTypeFor(family))
	resp, err := dotConn.Exchange(ctx, query)
	if err != nil {
		return nil, false, err
	}
	addrs, err := recordsFor(resp, family)
	return addrs, false, err
}

// HTTPSExchanger is the DNS-over-HTTPS (DoH) [Exchanger]: it dials an
// already-resolved DoH endpoint over TLS via [socket.Engine] and wraps the
// connection with [awh.NewHTTPConnFuncTLS] then [awh.DNSOverHTTPSConnFunc].
type HTTPSExchanger struct {
	Engine     *socket.Engine
	Config     *awh.Config
	Logger     awh.SLogger
	ServerName string
	URL        string
}

// Exchange implements [Exchanger].
func (x *HTTPSExchanger) Exchange(ctx context.Context, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	addr, err := netip.ParseAddrPort(server)
	if err != nil {
		return nil, false, fmt.Errorf("dnsresolver: bad DoH server address %q: %w", server, err)
	}
	conn, err := x.Engine.Connect(ctx, socket.NetworkTLS, addr, x.ServerName, settings.DefaultScheme())
	if err != nil {
		return nil, false, err
	}
	tconn, ok := conn.(awh.TLSConn)
	if !ok {
		conn.Close()
		return nil, false, fmt.Errorf("dnsresolver: engine returned a non-TLS connection for DoH")
	}
	hc, err := awh.NewHTTPConnFuncTLS(x.Config, x.Logger).Call(ctx, tconn)
	if err != nil {
		tconn.Close()
		return nil, false, err
	}
	dohConn, err := awh.NewDNSOverHTTPSConnFunc(x.Config, x.URL, x.Logger).Call(ctx, hc)
	if err != nil {
		hc.Close()
		return nil, false, err
	}
	defer dohConn.Close()

	query := dnscodec.NewQuery(hostname, dnsTypeFor(family))
	resp, err := dohConn.Exchange(ctx, query)
	if err != nil {
		return nil, false, err
	}
	addrs, err := recordsFor(resp, family)
	return addrs, false, err
}

func recordsFor(resp *dnscodec.Response, family Family) ([]netip.Addr, error) {
	var raw []string
	var err error
	if family == FamilyIPv6 {
		raw, err = resp.RecordsAAAA()
	} else {
		raw, err = resp.RecordsA()
	}
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(raw))
	for _, s := range raw {
		a, perr := netip.ParseAddr(s)
		if perr != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// isTruncationError reports whether err indicates the peer set DNS's TC
// bit (RFC 1035 §4.1.1), meaning the caller must retry over TCP. dnscodec
// does not export a typed truncation error, so this recognizes its
// message text; see DESIGN.md for the tradeoff.
func isTruncationError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "truncat")
}
