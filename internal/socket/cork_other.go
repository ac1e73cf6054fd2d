//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import "net"

// applyCork is a no-op on windows: winsock has no TCP_CORK/TCP_NOPUSH
// equivalent, and the spec's winsock init is explicitly out of scope
// (spec.md §1 "Windows-specific winsock init").
func applyCork(tc *net.TCPConn, on bool) {}
