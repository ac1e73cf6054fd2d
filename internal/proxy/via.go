// SPDX-License-Identifier: GPL-3.0-or-later

// Package proxy implements the C12 forwarding proxy of spec.md §4.11:
// CONNECT tunneling, Via/X-Proxy-Agent header management, per-session
// Proxy-Authorization challenge/strip, recompression, and the
// maxRequests/alive connection-lifetime policy.
package proxy

import (
	"fmt"

	"github.com/anyks-go/awh/internal/httpcodec"
	"github.com/anyks-go/awh/settings"
)

// AppendVia appends a `Via: <major>.<minor> <host>:<port> (<agent>/<version>)`
// entry to headers, creating the header if absent, per SPEC_FULL.md §4
// ("Via-header format ... re-derived from the original source's
// proxy.cpp/proxy2.cpp behavior").
func AppendVia(headers *httpcodec.Headers, protoMajor, protoMinor int, selfHost string, selfPort int, cfg settings.Proxy) {
	entry := fmt.Sprintf("%d.%d %s:%d (%s/%s)", protoMajor, protoMinor, selfHost, selfPort, cfg.AgentName, cfg.AgentVersion)
	if existing, ok := headers.Get("Via"); ok && existing != "" {
		headers.Set("Via", existing+", "+entry)
		return
	}
	headers.Set("Via", entry)
}

// SetProxyAgent sets `X-Proxy-Agent: (<os>; <name>) <id>/<version>`, per
// spec.md §4.11 and the original source's rest.cpp OS/name/id/version
// tuple (SPEC_FULL.md §4 "Supplemented features").
func SetProxyAgent(headers *httpcodec.Headers, cfg settings.Proxy) {
	headers.Set("X-Proxy-Agent", fmt.Sprintf("(%s; %s) %s/%s", cfg.AgentOS, cfg.AgentName, cfg.AgentID, cfg.AgentVersion))
}

// StripProxyAuthorization removes the Proxy-Authorization header before
// forwarding the request upstream, per spec.md §4.11 step 2.
func StripProxyAuthorization(headers *httpcodec.Headers) {
	headers.Del("Proxy-Authorization")
}
