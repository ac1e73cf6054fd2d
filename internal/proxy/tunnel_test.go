// SPDX-License-Identifier: GPL-3.0-or-later

package proxy

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunnelBytesSplicesBothDirections(t *testing.T) {
	aClient, aServer := net.Pipe()
	bClient, bServer := net.Pipe()

	go TunnelBytes(aServer, bServer)

	go func() {
		aClient.Write([]byte("from-a"))
	}()
	buf := make([]byte, 6)
	_, err := io.ReadFull(bClient, buf)
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(buf))

	go func() {
		bClient.Write([]byte("from-b"))
	}()
	buf2 := make([]byte, 6)
	_, err = io.ReadFull(aClient, buf2)
	require.NoError(t, err)
	assert.Equal(t, "from-b", string(buf2))

	aClient.Close()
	bClient.Close()
	time.Sleep(10 * time.Millisecond)
}
