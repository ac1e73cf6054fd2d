// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

// reasonPhrases is the subset of the IANA status code registry that
// spec.md §4.6 calls out by name: 100/101/200-206/301/308/401/403/404/
// 407/500/502/503/504.
var reasonPhrases = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	301: "Moved Permanently",
	308: "Permanent Redirect",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	407: "Proxy Authentication Required",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// ReasonPhrase returns the canonical reason phrase for code, or "Unknown"
// if it isn't one of the codes spec.md names explicitly.
func ReasonPhrase(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown"
}
