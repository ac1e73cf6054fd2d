// SPDX-License-Identifier: GPL-3.0-or-later

package h2

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/anyks-go/awh/settings"
)

// Preface is the RFC 7540 §3.5 connection preface a client must send (and
// a server must verify) before any frame.
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Callbacks is the set of stream-lifecycle hooks the multiplexer drives,
// mirroring internal/ws's codec callback shape rather than internal/web's
// full named-callback registry (C14 sits above this and supplies that).
type Callbacks struct {
	OnHeaders func(streamID uint32, headers []HeaderField, endStream bool)
	OnData    func(streamID uint32, data []byte, endStream bool)
	OnReset   func(streamID uint32, code ErrorCode)
	OnGoAway  func(lastStreamID uint32, code ErrorCode)
}

// Mux is a single-connection HTTP/2 server-side multiplexer: one reader
// loop draining frames from conn (the same single-loop-goroutine shape as
// internal/reactor), dispatching to Callbacks, and a Send* API serializing
// writes under writeMu.
type Mux struct {
	conn   io.ReadWriteCloser
	logger *slog.Logger

	local  PeerSettings
	remote PeerSettings

	hpackLocal  *HeaderCodec // decodes header blocks the peer sends
	hpackRemote *HeaderCodec // encodes header blocks we send

	callbacks Callbacks

	mu      sync.Mutex
	streams map[uint32]*Stream

	writeMu sync.Mutex
}

// NewMux builds a [*Mux] bound to conn with the local settings derived
// from cfg (see [FromConfig]).
func NewMux(conn io.ReadWriteCloser, cfg settings.HTTP, callbacks Callbacks, logger *slog.Logger) *Mux {
	local := FromConfig(cfg)
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{
		conn:        conn,
		logger:      logger,
		local:       local,
		remote:      PeerSettings{},
		hpackLocal:  NewHeaderCodec(local.HeaderTableSize),
		hpackRemote: NewHeaderCodec(local.HeaderTableSize),
		callbacks:   callbacks,
		streams:     make(map[uint32]*Stream),
	}
}

// Handshake reads and verifies the client connection preface, then sends
// our initial SETTINGS frame, per RFC 7540 §3.5.
func (m *Mux) Handshake() error {
	buf := make([]byte, len(Preface))
	if _, err := io.ReadFull(m.conn, buf); err != nil {
		return fmt.Errorf("h2: reading connection preface: %w", err)
	}
	if string(buf) != Preface {
		return fmt.Errorf("h2: invalid connection preface")
	}
	return m.sendSettings(settingsFromLocal(m.local))
}

func settingsFromLocal(p PeerSettings) []Setting {
	enablePush := uint32(0)
	if p.EnablePush {
		enablePush = 1
	}
	return []Setting{
		{ID: SettingHeaderTableSize, Value: p.HeaderTableSize},
		{ID: SettingEnablePush, Value: enablePush},
		{ID: SettingMaxConcurrentStreams, Value: p.MaxConcurrentStreams},
		{ID: SettingInitialWindowSize, Value: p.InitialWindowSize},
		{ID: SettingMaxFrameSize, Value: p.MaxFrameSize},
		{ID: SettingMaxHeaderListSize, Value: p.MaxHeaderListSize},
	}
}

func (m *Mux) sendSettings(s []Setting) error {
	return m.writeFrame(&Frame{
		Header:  FrameHeader{Type: FrameSettings},
		Payload: EncodeSettings(s),
	})
}

// Run drives the single reader loop until conn is closed or a fatal
// protocol error occurs. Intended to run in its own goroutine, matching
// internal/reactor's one-loop-per-connection shape.
func (m *Mux) Run() error {
	br := bufio.NewReader(m.conn)
	for {
		f, err := ReadFrame(br, m.local.EffectiveMaxFrameSize())
		if err != nil {
			return err
		}
		if err := m.dispatch(f); err != nil {
			return err
		}
	}
}

func (m *Mux) dispatch(f *Frame) error {
	switch f.Header.Type {
	case FrameSettings:
		return m.onSettings(f)
	case FrameHeaders:
		return m.onHeaders(f)
	case FrameContinuation:
		return m.onContinuation(f)
	case FrameData:
		return m.onData(f)
	case FrameWindowUpdate:
		return m.onWindowUpdate(f)
	case FrameRSTStream:
		return m.onRSTStream(f)
	case FrameGoAway:
		return m.onGoAway(f)
	case FramePing:
		return m.onPing(f)
	case FramePriority:
		return nil // priority signaling is advisory; not modeled
	default:
		return nil // unknown frame types are ignored per RFC 7540 §4.1
	}
}

func (m *Mux) onSettings(f *Frame) error {
	if f.Header.Flags.Has(FlagAck) {
		return nil
	}
	settingsList, err := DecodeSettings(f.Payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.remote.Apply(settingsList)
	if m.remote.HeaderTableSize != 0 {
		m.hpackRemote.SetMaxDynamicTableSize(m.remote.HeaderTableSize)
	}
	m.mu.Unlock()
	return m.writeFrame(&Frame{Header: FrameHeader{Type: FrameSettings, Flags: FlagAck}})
}

func (m *Mux) onHeaders(f *Frame) error {
	payload, err := stripPadding(f.Payload, Flags(f.Header.Flags))
	if err != nil {
		return err
	}
	if f.Header.Flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return fmt.Errorf("h2: HEADERS frame with PRIORITY flag too short")
		}
		payload = payload[5:]
	}

	s := m.getOrCreateStream(f.Header.StreamID)
	s.headerBlockBuf = append(s.headerBlockBuf, payload...)
	s.State = StreamOpen

	if !f.Header.Flags.Has(FlagEndHeaders) {
		return nil
	}
	return m.finishHeaderBlock(s, f.Header.Flags.Has(FlagEndStream))
}

func (m *Mux) onContinuation(f *Frame) error {
	m.mu.Lock()
	s, ok := m.streams[f.Header.StreamID]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownStream
	}
	s.headerBlockBuf = append(s.headerBlockBuf, f.Payload...)
	if !f.Header.Flags.Has(FlagEndHeaders) {
		return nil
	}
	return m.finishHeaderBlock(s, false)
}

func (m *Mux) finishHeaderBlock(s *Stream, endStream bool) error {
	m.mu.Lock()
	fields, err := m.hpackLocal.Decode(s.headerBlockBuf)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("h2: %w: %v", ErrCompressionErrSentinel, err)
	}
	s.Headers = fields
	s.headerBlockBuf = nil
	if endStream {
		s.markEndStreamRemote()
	}
	if m.callbacks.OnHeaders != nil {
		m.callbacks.OnHeaders(s.ID, fields, endStream)
	}
	return nil
}

func (m *Mux) onData(f *Frame) error {
	payload, err := stripPadding(f.Payload, Flags(f.Header.Flags))
	if err != nil {
		return err
	}
	m.mu.Lock()
	s, ok := m.streams[f.Header.StreamID]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownStream
	}
	s.RecvWindow -= int64(len(f.Payload))
	endStream := f.Header.Flags.Has(FlagEndStream)
	if endStream {
		s.markEndStreamRemote()
	}
	if m.callbacks.OnData != nil {
		m.callbacks.OnData(s.ID, payload, endStream)
	}
	return nil
}

func (m *Mux) onWindowUpdate(f *Frame) error {
	if len(f.Payload) != 4 {
		return fmt.Errorf("h2: malformed WINDOW_UPDATE frame")
	}
	increment := int64(f.Payload[0]&0x7f)<<24 | int64(f.Payload[1])<<16 | int64(f.Payload[2])<<8 | int64(f.Payload[3])
	if f.Header.StreamID == 0 {
		return nil // connection-level window accounting not modeled: we trust the peer's advertised settings
	}
	m.mu.Lock()
	if s, ok := m.streams[f.Header.StreamID]; ok {
		s.SendWindow += increment
	}
	m.mu.Unlock()
	return nil
}

func (m *Mux) onRSTStream(f *Frame) error {
	if len(f.Payload) != 4 {
		return fmt.Errorf("h2: malformed RST_STREAM frame")
	}
	code := ErrorCode(uint32(f.Payload[0])<<24 | uint32(f.Payload[1])<<16 | uint32(f.Payload[2])<<8 | uint32(f.Payload[3]))
	m.mu.Lock()
	if s, ok := m.streams[f.Header.StreamID]; ok {
		s.State = StreamClosed
	}
	m.mu.Unlock()
	if m.callbacks.OnReset != nil {
		m.callbacks.OnReset(f.Header.StreamID, code)
	}
	return nil
}

func (m *Mux) onGoAway(f *Frame) error {
	if len(f.Payload) < 8 {
		return fmt.Errorf("h2: malformed GOAWAY frame")
	}
	last := uint32(f.Payload[0])<<24 | uint32(f.Payload[1])<<16 | uint32(f.Payload[2])<<8 | uint32(f.Payload[3])
	code := ErrorCode(uint32(f.Payload[4])<<24 | uint32(f.Payload[5])<<16 | uint32(f.Payload[6])<<8 | uint32(f.Payload[7]))
	if m.callbacks.OnGoAway != nil {
		m.callbacks.OnGoAway(last, code)
	}
	return nil
}

func (m *Mux) onPing(f *Frame) error {
	if f.Header.Flags.Has(FlagAck) {
		return nil
	}
	return m.writeFrame(&Frame{
		Header:  FrameHeader{Type: FramePing, Flags: FlagAck},
		Payload: f.Payload,
	})
}

func (m *Mux) getOrCreateStream(id uint32) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[id]; ok {
		return s
	}
	s := newStream(id, int64(m.remote.EffectiveInitialWindowSize()), int64(m.local.EffectiveInitialWindowSize()))
	m.streams[id] = s
	return s
}

// SendHeaders implements spec.md §4.9's send(stream_id, headers, flags):
// it HPACK-encodes fields and writes a HEADERS frame, setting
// FlagEndStream when endStream is true.
func (m *Mux) SendHeaders(streamID uint32, headers []HeaderField, endStream bool) error {
	m.mu.Lock()
	block, err := m.hpackRemote.Encode(headers)
	s := m.getOrCreateStreamLocked(streamID)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	flags := FlagEndHeaders
	if endStream {
		flags |= FlagEndStream
		s.markEndStreamLocal()
	}
	return m.writeFrame(&Frame{
		Header:  FrameHeader{Type: FrameHeaders, Flags: flags, StreamID: streamID},
		Payload: block,
	})
}

// SendData implements spec.md §4.9's send(stream_id, data, end_stream): it
// fragments data into frames no larger than the peer's
// SETTINGS_MAX_FRAME_SIZE and sets FlagEndStream on the final fragment.
func (m *Mux) SendData(streamID uint32, data []byte, endStream bool) error {
	max := int(m.remote.EffectiveMaxFrameSize())
	if max <= 0 {
		max = maxFrameSizeDefault
	}

	m.mu.Lock()
	s := m.getOrCreateStreamLocked(streamID)
	m.mu.Unlock()

	for {
		chunk := data
		last := true
		if len(data) > max {
			chunk = data[:max]
			data = data[max:]
			last = false
		}
		var flags Flags
		if last && endStream {
			flags |= FlagEndStream
		}
		if err := m.writeFrame(&Frame{
			Header:  FrameHeader{Type: FrameData, Flags: flags, StreamID: streamID},
			Payload: chunk,
		}); err != nil {
			return err
		}
		if last {
			break
		}
	}
	if endStream {
		m.mu.Lock()
		s.markEndStreamLocal()
		m.mu.Unlock()
	}
	return nil
}

// ResetStream sends an RST_STREAM with code, per RFC 7540 §6.4.
func (m *Mux) ResetStream(streamID uint32, code ErrorCode) error {
	payload := []byte{byte(code >> 24), byte(code >> 16), byte(code >> 8), byte(code)}
	m.mu.Lock()
	if s, ok := m.streams[streamID]; ok {
		s.State = StreamClosed
	}
	m.mu.Unlock()
	return m.writeFrame(&Frame{Header: FrameHeader{Type: FrameRSTStream, StreamID: streamID}, Payload: payload})
}

// GoAway sends a GOAWAY frame announcing lastStreamID as the highest
// stream this endpoint will process, per RFC 7540 §6.8.
func (m *Mux) GoAway(lastStreamID uint32, code ErrorCode) error {
	payload := make([]byte, 8)
	payload[0] = byte(lastStreamID >> 24)
	payload[1] = byte(lastStreamID >> 16)
	payload[2] = byte(lastStreamID >> 8)
	payload[3] = byte(lastStreamID)
	payload[4] = byte(code >> 24)
	payload[5] = byte(code >> 16)
	payload[6] = byte(code >> 8)
	payload[7] = byte(code)
	return m.writeFrame(&Frame{Header: FrameHeader{Type: FrameGoAway}, Payload: payload})
}

func (m *Mux) getOrCreateStreamLocked(id uint32) *Stream {
	if s, ok := m.streams[id]; ok {
		return s
	}
	s := newStream(id, int64(m.remote.EffectiveInitialWindowSize()), int64(m.local.EffectiveInitialWindowSize()))
	m.streams[id] = s
	return s
}

func (m *Mux) writeFrame(f *Frame) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return WriteFrame(m.conn, f)
}
