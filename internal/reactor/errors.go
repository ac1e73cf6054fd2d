// SPDX-License-Identifier: GPL-3.0-or-later

package reactor

import "errors"

// ErrInvalidID is returned when registering an I/O source under the zero id.
var ErrInvalidID = errors.New("reactor: invalid io id")
