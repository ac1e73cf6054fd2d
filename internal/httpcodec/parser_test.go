// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserRequestContentLength(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)

	raw := "GET /path HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello"
	require.NoError(t, p.Parse([]byte(raw)))

	assert.Equal(t, StateGood, msg.State())
	assert.Equal(t, "GET", msg.Method)
	assert.Equal(t, "/path", msg.URL)
	assert.Equal(t, "hello", string(msg.Body))
	host, ok := msg.Headers.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestParserFeedsByteAtATime(t *testing.T) {
	var msg Message
	p := NewParser(RoleClient, &msg)

	raw := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi"
	for i := 0; i < len(raw); i++ {
		require.NoError(t, p.Parse([]byte{raw[i]}))
	}
	assert.Equal(t, StateGood, msg.State())
	assert.Equal(t, 200, msg.StatusCode)
	assert.Equal(t, "hi", string(msg.Body))
}

func TestParserChunkedBody(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)

	raw := "POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	require.NoError(t, p.Parse([]byte(raw)))

	assert.Equal(t, StateGood, msg.State())
	assert.Equal(t, "hello", string(msg.Body))
}

func TestParserRefusesInputAfterTerminal(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)
	require.NoError(t, p.Parse([]byte("GET / HTTP/1.1\r\n\r\n")))
	assert.Equal(t, StateGood, msg.State())

	err := p.Parse([]byte("more"))
	assert.Error(t, err)
}

func TestParserMalformedRequestLineGoesBroken(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)
	err := p.Parse([]byte("not a request line\r\n\r\n"))
	assert.Error(t, err)
	assert.Equal(t, StateBroken, msg.State())
}

func TestParserObsFold(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)
	raw := "GET / HTTP/1.1\r\nX-Multi: one\r\n two\r\n\r\n"
	require.NoError(t, p.Parse([]byte(raw)))

	v, ok := msg.Headers.Get("X-Multi")
	require.True(t, ok)
	assert.Equal(t, "one two", v)
}

func TestParserHandshakeOnSwitchingProtocols(t *testing.T) {
	var msg Message
	p := NewParser(RoleClient, &msg)
	raw := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\n\r\n"
	require.NoError(t, p.Parse([]byte(raw)))
	assert.Equal(t, StateHandshake, msg.State())
}

func TestParserEncryptionHeaderRecorded(t *testing.T) {
	var msg Message
	p := NewParser(RoleServer, &msg)
	raw := "GET / HTTP/1.1\r\nX-AWH-Encryption: 256\r\n\r\n"
	require.NoError(t, p.Parse([]byte(raw)))
	assert.True(t, msg.Encrypted)
	assert.Equal(t, 256, msg.EncryptBits)
}
