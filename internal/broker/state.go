// SPDX-License-Identifier: GPL-3.0-or-later

package broker

// State is the connection lifecycle enum of spec.md §3 ("two state flags:
// real ... and wait"). Both the current ("real") and desired ("wait")
// state of a [Broker] use this same enum.
type State int

const (
	StateDisconnected State = iota
	StatePreconnecting
	StateConnected
	StateReconnecting
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StatePreconnecting:
		return "preconnecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
