// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"github.com/anyks-go/awh/errs"
	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/httpcodec"
)

// Callbacks is the public callback set of spec.md §4.10. Names are
// contractual; payloads typed. Every field is optional — a nil field is
// simply not invoked, the same convention [broker.Hooks] uses.
type Callbacks struct {
	Open func(scheme broker.SchemeID)
	// Status is named core_status in spec.md; Go's type already carries
	// that name so the parameter itself is just "status".
	Status     func(status CoreStatus)
	Connect    func(bid broker.ID, sid uint32)
	Disconnect func(bid broker.ID, sid uint32)
	Accept     func(ip, mac string, port int) bool
	SSL        func(url string, bid broker.ID, sid uint32) bool
	Read       func(data []byte, bid broker.ID, sid uint32)

	Response func(sid uint32, rid RequestID, code int, reason string)
	Headers  func(sid uint32, rid RequestID, code int, reason string, headers httpcodec.Headers)
	Entity   func(sid uint32, rid RequestID, code int, reason string, body []byte)
	Complete func(sid uint32, rid RequestID, code int, reason string, body []byte, headers httpcodec.Headers)
	Chunks   func(sid uint32, rid RequestID, data []byte)

	Handshake func(sid uint32, bid broker.ID, agent string)
	Origin    func(list []string)
	AltSvc    func(origin, field string)
	Error     func(flag int, kind errs.Kind, text string)

	// Retry is fired when auto-redirect/auto-reauthenticate reinvokes the
	// connector for the same logical request, per spec.md §4.10 ("produce
	// retry events that reinvoke the connector").
	Retry func(sid uint32, rid RequestID, method, url string)
}

func (c Callbacks) fireError(flag int, kind errs.Kind, text string) {
	if c.Error != nil {
		c.Error(flag, kind, text)
	}
}
