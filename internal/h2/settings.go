// SPDX-License-Identifier: GPL-3.0-or-later

package h2

import (
	"encoding/binary"
	"fmt"

	"github.com/anyks-go/awh/settings"
)

// SettingID is the RFC 7540 §6.5.2 settings parameter identifier.
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// Setting is one (identifier, value) pair as it appears on the wire, 6
// bytes each per RFC 7540 §6.5.
type Setting struct {
	ID    SettingID
	Value uint32
}

// PeerSettings collects the negotiated values gathered from a SETTINGS
// frame. Zero-value fields mean "not yet told, use the RFC 7540 §6.5.2
// default."
type PeerSettings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32
}

// FromConfig builds the local [PeerSettings] this endpoint advertises,
// from settings.HTTP per SPEC_FULL.md Open Question (a).
func FromConfig(cfg settings.HTTP) PeerSettings {
	return PeerSettings{
		HeaderTableSize:      cfg.H2HeaderTableSize,
		EnablePush:           cfg.H2EnablePush,
		MaxConcurrentStreams: cfg.H2MaxConcurrentStreams,
		InitialWindowSize:    cfg.H2InitialWindowSize,
		MaxFrameSize:         cfg.H2MaxFrameSize,
		MaxHeaderListSize:    cfg.H2MaxHeaderListSize,
	}
}

// EncodeSettings encodes a SETTINGS frame payload (RFC 7540 §6.5): a flat
// sequence of 6-byte (id, value) pairs.
func EncodeSettings(s []Setting) []byte {
	buf := make([]byte, 6*len(s))
	for i, e := range s {
		binary.BigEndian.PutUint16(buf[i*6:], uint16(e.ID))
		binary.BigEndian.PutUint32(buf[i*6+2:], e.Value)
	}
	return buf
}

// DecodeSettings parses a SETTINGS frame payload into its (id, value) pairs.
func DecodeSettings(payload []byte) ([]Setting, error) {
	if len(payload)%6 != 0 {
		return nil, fmt.Errorf("h2: settings payload length %d not a multiple of 6", len(payload))
	}
	out := make([]Setting, 0, len(payload)/6)
	for i := 0; i < len(payload); i += 6 {
		out = append(out, Setting{
			ID:    SettingID(binary.BigEndian.Uint16(payload[i:])),
			Value: binary.BigEndian.Uint32(payload[i+2:]),
		})
	}
	return out, nil
}

// Apply merges decoded settings into p, per RFC 7540 §6.5.3 ("the values
// in the SETTINGS frame MUST be processed in the order they appear").
func (p *PeerSettings) Apply(s []Setting) {
	for _, e := range s {
		switch e.ID {
		case SettingHeaderTableSize:
			p.HeaderTableSize = e.Value
		case SettingEnablePush:
			p.EnablePush = e.Value != 0
		case SettingMaxConcurrentStreams:
			p.MaxConcurrentStreams = e.Value
		case SettingInitialWindowSize:
			p.InitialWindowSize = e.Value
		case SettingMaxFrameSize:
			p.MaxFrameSize = e.Value
		case SettingMaxHeaderListSize:
			p.MaxHeaderListSize = e.Value
		}
		// Unknown settings IDs are ignored per RFC 7540 §6.5.2.
	}
}

// EffectiveMaxFrameSize returns p.MaxFrameSize, falling back to the RFC
// 7540 §6.5.2 default of 16384 when unset.
func (p *PeerSettings) EffectiveMaxFrameSize() uint32 {
	if p.MaxFrameSize == 0 {
		return maxFrameSizeDefault
	}
	return p.MaxFrameSize
}

// EffectiveInitialWindowSize returns p.InitialWindowSize, falling back to
// the RFC 7540 §6.5.2 default of 65535 when unset.
func (p *PeerSettings) EffectiveInitialWindowSize() uint32 {
	if p.InitialWindowSize == 0 {
		return 65535
	}
	return p.InitialWindowSize
}
