// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"fmt"
	"strings"

	"github.com/anyks-go/awh/internal/httpcodec"
	"github.com/anyks-go/awh/settings"
)

// Decision is the outcome of [Proxy.Handle] for one request on broker S.
type Decision int

const (
	// DecisionTunnel means a CONNECT succeeded: the caller must reply
	// "200 Connection Established" on S and then call [TunnelBytes].
	DecisionTunnel Decision = iota
	// DecisionForward means req was rewritten and should be written to
	// the upstream connection C, with the eventual response parsed and
	// relayed back to S unchanged.
	DecisionForward
	// DecisionChallenge means authentication failed; resp carries a 407
	// with a fresh challenge and S should stay open for a retry.
	DecisionChallenge
	// DecisionReject means CONNECT was requested but disabled, or the
	// request is otherwise malformed; resp carries the error response.
	DecisionReject
)

// Proxy implements the C12 forwarding proxy logic of spec.md §4.11. It
// holds no sockets itself: [Proxy.Handle] is a pure decision function the
// reactor/node layer drives, matching the parser's "no I/O inside the
// codec" shape used throughout internal/httpcodec.
type Proxy struct {
	Config        settings.Proxy
	Authenticator *Authenticator
	SelfHost      string
	SelfPort      int

	// requestCounts tracks per-broker request counts against MaxRequests,
	// keyed by an opaque broker identifier the caller supplies.
	requestCounts map[uint64]int
}

// NewProxy builds a [*Proxy].
func NewProxy(cfg settings.Proxy, auth *Authenticator, selfHost string, selfPort int) *Proxy {
	return &Proxy{
		Config:        cfg,
		Authenticator: auth,
		SelfHost:      selfHost,
		SelfPort:      selfPort,
		requestCounts: make(map[uint64]int),
	}
}

// Handle implements spec.md §4.11's three-step request handling for one
// parsed request on broker brokerID. For DecisionTunnel, req.URL is the
// CONNECT target ("host:port") the caller must dial; for DecisionForward,
// req has been rewritten in place (Via/X-Proxy-Agent appended,
// Proxy-Authorization stripped) and is ready to forward upstream.
func (p *Proxy) Handle(brokerID uint64, req *httpcodec.Message) (Decision, *httpcodec.Message) {
	if p.Config.AuthType != settings.AuthNone {
		header, _ := req.Headers.Get("Proxy-Authorization")
		if !p.Authenticator.Verify(req.Method, req.URL, header) {
			challenge, err := p.Authenticator.Challenge()
			resp := &httpcodec.Message{StatusCode: 407, Reason: "Proxy Authentication Required"}
			if err == nil {
				resp.Headers.Set("Proxy-Authenticate", challenge)
			}
			return DecisionChallenge, resp
		}
	}

	p.requestCounts[brokerID]++
	closeConn := !p.Config.Alive
	if p.Config.MaxRequests > 0 && p.requestCounts[brokerID] > p.Config.MaxRequests {
		closeConn = true
	}

	if strings.EqualFold(req.Method, "CONNECT") {
		if !p.Config.ConnectEnabled {
			return DecisionReject, &httpcodec.Message{StatusCode: 405, Reason: "Method Not Allowed"}
		}
		return DecisionTunnel, nil
	}

	StripProxyAuthorization(&req.Headers)
	AppendVia(&req.Headers, 1, 1, p.SelfHost, p.SelfPort, p.Config)
	SetProxyAgent(&req.Headers, p.Config)
	if closeConn {
		req.Headers.Set("Connection", "close")
	} else if p.Config.Alive {
		req.Headers.Set("Connection", "keep-alive")
	}
	return DecisionForward, req
}

// RecompressResponse re-encodes resp.Body with the negotiated compressor
// and rewrites Content-Encoding accordingly, per spec.md §4.11 step 2
// ("optionally re-compress with the configured compressor").
func RecompressResponse(resp *httpcodec.Message, acceptEncoding string, offered []settings.Compressor) error {
	chosen := httpcodec.NegotiateCompressor(acceptEncoding, offered)
	if chosen == settings.CompressNone {
		return nil
	}
	compressed, err := httpcodec.Compress(chosen, resp.Body)
	if err != nil {
		return err
	}
	resp.Body = compressed
	resp.Headers.Set("Content-Encoding", httpcodec.CompressorName(chosen))
	resp.Headers.Set("Content-Length", fmt.Sprintf("%d", len(compressed)))
	return nil
}
