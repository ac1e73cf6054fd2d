// SPDX-License-Identifier: GPL-3.0-or-later

// Package web implements the C11 "Web endpoints" of spec.md §4.10: request-
// response correlation keyed by (stream_id, request_id), the public
// callback set, and the auto-redirect/auto-reauthenticate policy bounded
// by settings.HTTP.Attempts.
package web

// CoreStatus is the convenience lifecycle status spec.md §4.10's
// status(core_status) callback reports. Supplemented from the original
// implementation's REST convenience status enum (core.hpp), since the
// distilled spec names the callback parameter but not its value set.
type CoreStatus int

const (
	StatusStart CoreStatus = iota
	StatusStop
	StatusReconnect
)

// String implements [fmt.Stringer].
func (s CoreStatus) String() string {
	switch s {
	case StatusStart:
		return "start"
	case StatusStop:
		return "stop"
	case StatusReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}
