//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyCork implements [SetCork] on unix platforms via TCP_CORK (linux) or
// TCP_NOPUSH (darwin/bsd); corkOption, defined per platform in
// cork_linux.go and cork_bsd.go, selects which.
func applyCork(tc *net.TCPConn, on bool) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	var v int
	if on {
		v = 1
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, corkOption, v)
	})
}
