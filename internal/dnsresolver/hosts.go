// SPDX-License-Identifier: GPL-3.0-or-later

package dnsresolver

import (
	"bufio"
	"bytes"
	"fmt"
	"net/netip"
)

// parseHosts parses a hosts(5)-formatted file: one "<ip> <name...>" entry
// per line, '#' starts a comment, blank lines are ignored.
func parseHosts(data []byte) (map[string]netip.Addr, error) {
	out := make(map[string]netip.Addr)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if idx := bytes.IndexByte(line, '#'); idx >= 0 {
			line = bytes.TrimSpace(line[:idx])
		}
		fields := bytes.Fields(line)
		if len(fields) < 2 {
			continue
		}
		addr, err := netip.ParseAddr(string(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("dnsresolver: bad hosts entry %q: %w", line, err)
		}
		for _, name := range fields[1:] {
			out[string(name)] = addr
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dnsresolver: scanning hosts file: %w", err)
	}
	return out, nil
}
