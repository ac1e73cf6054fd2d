// SPDX-License-Identifier: GPL-3.0-or-later

package dnsresolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostsIgnoresCommentsAndBlankLines(t *testing.T) {
	data := []byte("# comment\n\n127.0.0.1 localhost loopback\n::1 localhost6 # trailing comment\n")
	entries, err := parseHosts(data)
	require.NoError(t, err)

	assert.Equal(t, mustAddr(t, "127.0.0.1"), entries["localhost"])
	assert.Equal(t, mustAddr(t, "127.0.0.1"), entries["loopback"])
	assert.Equal(t, mustAddr(t, "::1"), entries["localhost6"])
}

func TestParseHostsRejectsBadAddress(t *testing.T) {
	_, err := parseHosts([]byte("not-an-ip somehost\n"))
	assert.Error(t, err)
}
