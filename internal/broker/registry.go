// SPDX-License-Identifier: GPL-3.0-or-later

package broker

import (
	"errors"
	"time"

	"github.com/anyks-go/awh/settings"
)

// ErrBrokerAlreadyOwned enforces the invariant of spec.md §3: "broker id
// appears at most once across all schemes".
var ErrBrokerAlreadyOwned = errors.New("broker: id already owned by a scheme")

// ErrUnknownBroker is returned when looking up a broker id the registry has
// never seen, or has already reaped.
var ErrUnknownBroker = errors.New("broker: unknown id")

// Scheme is a listener or an outbound target, per spec.md §3. It owns a
// set of brokers uniquely: at most one scheme owns any given broker id.
type Scheme struct {
	ID       SchemeID
	Config   settings.Scheme
	brokers  map[ID]*Broker
}

func newScheme(id SchemeID, cfg settings.Scheme) *Scheme {
	return &Scheme{ID: id, Config: cfg, brokers: make(map[ID]*Broker)}
}

// Brokers returns a snapshot slice of the brokers currently owned by this
// scheme. The reactor is single-threaded so no locking is required here
// (spec.md §5 "Scheduling model").
func (s *Scheme) Brokers() []*Broker {
	out := make([]*Broker, 0, len(s.brokers))
	for _, b := range s.brokers {
		out = append(out, b)
	}
	return out
}

// garbageEntry records when a broker was soft-deleted, so the 10-second
// reaper (spec.md §4.14) can free it once any in-flight callback holding
// its id has had a chance to finish.
type garbageEntry struct {
	id      ID
	removed time.Time
}

// Registry is the process-wide broker/scheme arena: "the Scheme registry
// is owned by the reactor; no cross-thread mutation" (spec.md §5). It is
// the concrete home of C5 ("Scheme / Broker registry").
type Registry struct {
	schemes map[SchemeID]*Scheme
	brokers map[ID]*Broker
	garbage []garbageEntry

	memoryUsed int64
	quota      settings.Quota
}

// NewRegistry constructs an empty [Registry] bounded by the process-wide
// quota in cfg.
func NewRegistry(quota settings.Quota) *Registry {
	return &Registry{
		schemes: make(map[SchemeID]*Scheme),
		brokers: make(map[ID]*Broker),
		quota:   quota,
	}
}

// AddScheme registers a new [Scheme] under id, overwriting any previous
// scheme with the same id (the caller is expected to have removed its
// brokers first; AddScheme does not attempt to migrate them).
func (r *Registry) AddScheme(id SchemeID, cfg settings.Scheme) *Scheme {
	s := newScheme(id, cfg)
	r.schemes[id] = s
	return s
}

// Scheme looks up a registered scheme by id.
func (r *Registry) Scheme(id SchemeID) (*Scheme, bool) {
	s, ok := r.schemes[id]
	return s, ok
}

// Adopt attaches broker b to scheme sid, enforcing the "at most one scheme
// owns a broker" invariant.
func (r *Registry) Adopt(sid SchemeID, b *Broker) error {
	if _, exists := r.brokers[b.ID]; exists {
		return ErrBrokerAlreadyOwned
	}
	s, ok := r.schemes[sid]
	if !ok {
		s = r.AddScheme(sid, settings.DefaultScheme())
	}
	b.Scheme = sid
	s.brokers[b.ID] = b
	r.brokers[b.ID] = b
	return nil
}

// Lookup resolves a broker id to its [*Broker], or [ErrUnknownBroker] once
// it has been reaped; a removed but not yet reaped broker still resolves
// to its closed [*Broker]. This is the "arena index" pattern
// of SPEC_FULL.md §4/spec.md §9: everyone else refers to a broker by id
// and looks it up through the registry, so a stale id safely resolves to
// nothing instead of dangling.
func (r *Registry) Lookup(id ID) (*Broker, error) {
	b, ok := r.brokers[id]
	if !ok {
		return nil, ErrUnknownBroker
	}
	return b, nil
}

// Remove closes broker id (idempotent), removes it from its owning scheme,
// and schedules it for reaping rather than deleting it from the global
// index immediately — any callback still holding the id keeps resolving
// it to a closed, safe-to-ignore [*Broker] until [Registry.ReapOlderThan]
// frees it, after which lookups return [ErrUnknownBroker].
func (r *Registry) Remove(id ID, now time.Time) {
	b, ok := r.brokers[id]
	if !ok {
		return
	}
	b.Close()
	if s, ok := r.schemes[b.Scheme]; ok {
		delete(s.brokers, id)
	}
	r.garbage = append(r.garbage, garbageEntry{id: id, removed: now})
}

// ReapOlderThan frees every soft-deleted broker whose removal predates
// now.Add(-age), implementing the 10-second sweep of spec.md §3/§4.14.
// Returns the ids actually freed.
func (r *Registry) ReapOlderThan(now time.Time, age time.Duration) []ID {
	var freed []ID
	kept := r.garbage[:0]
	for _, g := range r.garbage {
		if now.Sub(g.removed) >= age {
			delete(r.brokers, g.id)
			freed = append(freed, g.id)
			continue
		}
		kept = append(kept, g)
	}
	r.garbage = kept
	return freed
}

// ReserveMemory attempts to account for n additional queued bytes against
// the process-wide quota; returns false (no mutation) if that would exceed
// [settings.Quota.MemoryAvailableSize], implementing the memory-quota
// testable property of spec.md §8.
func (r *Registry) ReserveMemory(n int64) bool {
	if r.quota.MemoryAvailableSize > 0 && r.memoryUsed+n > r.quota.MemoryAvailableSize {
		return false
	}
	r.memoryUsed += n
	return true
}

// ReleaseMemory gives back n bytes previously reserved via [Registry.ReserveMemory].
func (r *Registry) ReleaseMemory(n int64) {
	r.memoryUsed -= n
	if r.memoryUsed < 0 {
		r.memoryUsed = 0
	}
}

// MemoryUsed returns the current process-wide queued-byte accounting.
func (r *Registry) MemoryUsed() int64 { return r.memoryUsed }
