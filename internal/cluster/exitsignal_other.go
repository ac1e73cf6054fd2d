//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package cluster

// exitedOnSIGINT always reports false on windows: there is no POSIX
// signal-terminated wait status to inspect, matching internal/socket's
// windows cork shim's "explicitly out of scope" stance on winsock-only
// behavior (spec.md §1).
func exitedOnSIGINT(err error) bool { return false }
