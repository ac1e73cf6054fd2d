// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"

	"github.com/anyks-go/awh/settings"
	"github.com/pion/dtls/v2"
)

// connectDTLS dials a DTLS-over-UDP endpoint using pion/dtls, since the
// standard library has no DTLS implementation. [*dtls.Conn] satisfies
// net.Conn directly.
func (e *Engine) connectDTLS(ctx context.Context, addr netip.AddrPort, host string, scheme settings.Scheme) (net.Conn, error) {
	serverName := host
	if scheme.TLS.SNI != "" {
		serverName = scheme.TLS.SNI
	}
	var roots *tls.Config
	if scheme.TLS.CAFile != "" || scheme.TLS.CADir != "" {
		cfg, err := buildTLSConfig(serverName, scheme.TLS)
		if err != nil {
			return nil, err
		}
		roots = cfg
	}
	dtlsCfg := &dtls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: !scheme.TLS.VerifyPeer,
	}
	if roots != nil {
		dtlsCfg.RootCAs = roots.RootCAs
	}
	udpAddr := &net.UDPAddr{IP: net.IP(addr.Addr().AsSlice()), Port: int(addr.Port())}
	conn, err := dtls.DialWithContext(ctx, "udp", udpAddr, dtlsCfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
