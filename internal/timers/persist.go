// SPDX-License-Identifier: GPL-3.0-or-later

package timers

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/reactor"
	"github.com/anyks-go/awh/internal/ws"
)

// DefaultPersistInterval is the spec.md §4.14 "default ~15s" PERSIST_INTERVAL.
const DefaultPersistInterval = 15 * time.Second

// LivenessDriver arms one repeating persist timer per tracked WebSocket
// broker, driving an [ws.Liveness] state machine per spec.md §4.14: send
// a PING carrying the broker id as payload, expect a matching PONG, and
// force-close on mismatch or silence beyond keepAlive.
type LivenessDriver struct {
	base     *reactor.Base
	interval time.Duration
	waitPong time.Duration

	writePing func(id broker.ID, payload []byte) error
	onTimeout func(id broker.ID)

	mu       sync.Mutex
	liveness map[broker.ID]*ws.Liveness
	timerIDs map[broker.ID]uint64
}

// NewLivenessDriver constructs a [*LivenessDriver]. interval falls back
// to [DefaultPersistInterval] when zero; waitPong is the keepAlive
// deadline after which a missing/mismatched PONG forces a close.
// writePing performs the actual frame write (internal/ws.WritePing);
// onTimeout is invoked once per broker that times out, after it has
// already been untracked.
func NewLivenessDriver(base *reactor.Base, interval, waitPong time.Duration, writePing func(broker.ID, []byte) error, onTimeout func(broker.ID)) *LivenessDriver {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &LivenessDriver{
		base:      base,
		interval:  interval,
		waitPong:  waitPong,
		writePing: writePing,
		onTimeout: onTimeout,
		liveness:  make(map[broker.ID]*ws.Liveness),
		timerIDs:  make(map[broker.ID]uint64),
	}
}

// PingPayload encodes id as the 8-byte big-endian PING payload spec.md
// §4.14 describes ("PING with the broker id as payload").
func PingPayload(id broker.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// Track starts liveness tracking for id, arming its persist timer.
func (d *LivenessDriver) Track(id broker.ID) {
	d.mu.Lock()
	if _, ok := d.liveness[id]; ok {
		d.mu.Unlock()
		return
	}
	l := ws.NewLiveness(d.interval, d.waitPong)
	d.liveness[id] = l
	d.mu.Unlock()

	timerID := d.base.ArmTimer(d.interval, d.interval, func(reactor.Event) { d.tick(id) })
	d.mu.Lock()
	d.timerIDs[id] = timerID
	d.mu.Unlock()
}

// Untrack stops liveness tracking for id and disarms its timer. Safe to
// call for an id that was never tracked.
func (d *LivenessDriver) Untrack(id broker.ID) {
	d.mu.Lock()
	timerID, ok := d.timerIDs[id]
	delete(d.timerIDs, id)
	delete(d.liveness, id)
	d.mu.Unlock()

	if ok {
		d.base.DisarmTimer(timerID)
	}
}

func (d *LivenessDriver) tick(id broker.ID) {
	d.mu.Lock()
	l, ok := d.liveness[id]
	d.mu.Unlock()
	if !ok {
		return
	}

	sendPing, timedOut := l.Tick(time.Now())
	if timedOut {
		d.Untrack(id)
		if d.onTimeout != nil {
			d.onTimeout(id)
		}
		return
	}
	if sendPing && d.writePing != nil {
		if err := d.writePing(id, PingPayload(id)); err == nil {
			l.NoteOutbound(time.Now())
		}
	}
}

// NotePong reports a received PONG for id. payload must exactly match
// the PING payload this id was sent (spec.md's "mismatch ... forces
// close"); a mismatched PONG is ignored so the pending liveness deadline
// still applies and eventually times out.
func (d *LivenessDriver) NotePong(id broker.ID, payload []byte) {
	d.mu.Lock()
	l, ok := d.liveness[id]
	d.mu.Unlock()
	if !ok {
		return
	}
	want := PingPayload(id)
	if len(payload) != len(want) {
		return
	}
	for i := range want {
		if payload[i] != want[i] {
			return
		}
	}
	l.NotePong()
}
