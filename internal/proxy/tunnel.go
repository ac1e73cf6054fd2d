// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"io"
	"net"
)

// TunnelBytes bidirectionally splices a and b until either side's copy
// returns (EOF or error), then closes both. Used once a CONNECT tunnel's
// "200 Connection Established" has been written, per spec.md §4.11 step 1
// ("thereafter byte-splice S <-> C unchanged").
func TunnelBytes(a, b net.Conn) {
	defer a.Close()
	defer b.Close()

	done := make(chan struct{}, 2)
	go func() { io.Copy(a, b); done <- struct{}{} }()
	go func() { io.Copy(b, a); done <- struct{}{} }()
	<-done
}
