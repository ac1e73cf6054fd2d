//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import "golang.org/x/sys/unix"

const corkOption = unix.TCP_NOPUSH
