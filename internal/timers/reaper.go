// SPDX-License-Identifier: GPL-3.0-or-later

// Package timers implements the C15 periodic housekeeping of spec.md
// §4.14: a 10-second garbage reaper releasing closed-but-not-yet-freed
// brokers, and a per-connection WebSocket persist/liveness timer driving
// internal/ws.Liveness with PING/PONG.
//
// Both timers are armed on an internal/reactor.Base so their handlers run
// on the same single loop goroutine as every other reactor-dispatched
// event, per spec.md §4.1's "all handlers run on the same thread as the
// base" guarantee.
package timers

import (
	"time"

	"github.com/anyks-go/awh/internal/broker"
	"github.com/anyks-go/awh/internal/reactor"
)

// DefaultReapInterval is the fixed 10-second sweep cadence spec.md §4.14
// names for the garbage reaper.
const DefaultReapInterval = 10 * time.Second

// DefaultReapAge is how old a closed-but-unfreed broker must be before
// the reaper releases it, matching the reactor's own 10-second reaper
// grace period from spec.md §4.2 ("removes them lazily via a reaper on a
// 10-second sweep to avoid use-after-free across callback dispatch").
const DefaultReapAge = 10 * time.Second

// Reaper periodically scans registry for brokers that have been garbage
// for longer than Age and releases them.
type Reaper struct {
	base     *reactor.Base
	registry *broker.Registry
	interval time.Duration
	age      time.Duration
	onReap   func(ids []broker.ID)

	timerID uint64
}

// NewReaper constructs a [*Reaper] bound to base/registry. interval/age
// fall back to [DefaultReapInterval]/[DefaultReapAge] when zero. onReap
// may be nil if the caller does not need to observe which ids were freed.
func NewReaper(base *reactor.Base, registry *broker.Registry, interval, age time.Duration, onReap func(ids []broker.ID)) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if age <= 0 {
		age = DefaultReapAge
	}
	return &Reaper{base: base, registry: registry, interval: interval, age: age, onReap: onReap}
}

// Start arms the repeating reap timer.
func (r *Reaper) Start() {
	r.timerID = r.base.ArmTimer(r.interval, r.interval, func(reactor.Event) {
		ids := r.registry.ReapOlderThan(time.Now(), r.age)
		if len(ids) > 0 && r.onReap != nil {
			r.onReap(ids)
		}
	})
}

// Stop disarms the reap timer. Safe to call even if Start was never
// called.
func (r *Reaper) Stop() {
	if r.timerID != 0 {
		r.base.DisarmTimer(r.timerID)
		r.timerID = 0
	}
}
