// SPDX-License-Identifier: GPL-3.0-or-later

package ws

import "errors"

// ErrDecompressionFailed maps to close code 1007, per spec.md §4.7.
var ErrDecompressionFailed = errors.New("ws: permessage-deflate decompression failed")

// ErrMessageTooBig maps to close code 1009.
var ErrMessageTooBig = errors.New("ws: message exceeds policy size")

// ErrPongTimeout maps to close code 1011.
var ErrPongTimeout = errors.New("ws: no pong within wait window")
