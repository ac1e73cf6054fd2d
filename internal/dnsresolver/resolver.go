// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnsresolver implements the C3 asynchronous resolver of spec.md
// §4.3: hosts file, then cache (respecting TTL), then queries against the
// per-family server rotation, one server after another, with TCP
// fallback on truncation, filtering blacklisted IPs on the way in.
package dnsresolver

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Family selects which record type is requested, per spec.md §4.3.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

// ErrNotFound is returned when every server in rotation was tried and
// none produced a usable (non-blacklisted) answer.
var ErrNotFound = errors.New("dnsresolver: not found")

// ErrTimeout is returned when every server in rotation timed out.
var ErrTimeout = errors.New("dnsresolver: timeout")

// Exchanger performs one DNS query/response round trip over a specific
// transport (UDP or TCP) against a specific server. Implementations wrap
// [awh.DNSOverUDPConnFunc]/[awh.DNSOverTCPConnFunc]; tests use a fake.
type Exchanger interface {
	// Exchange performs the query against server and reports whether the
	// response was truncated (requiring a TCP retry against the same
	// server) alongside the resolved addresses and any error.
	Exchange(ctx context.Context, server string, family Family, hostname string) (addrs []netip.Addr, truncated bool, err error)
}

// Resolver is the C3 async resolver: it layers a hosts file, a TTL cache,
// and a blacklist filter over a pair of [Exchanger]s (UDP primary, TCP
// fallback) rotated across a configured per-family server pool.
type Resolver struct {
	UDP Exchanger
	TCP Exchanger

	mu         sync.Mutex // guards everything below; not reentrant
	servers    map[Family][]string
	rotation   map[Family]int
	hosts      map[string]netip.Addr
	blacklist  map[string]map[netip.Addr]struct{}
	cache      map[cacheKey]cacheEntry
	ttl        time.Duration
	bindIPs    map[Family][]netip.Addr
	timeout    time.Duration
}

type cacheKey struct {
	Family   Family
	Hostname string
}

type cacheEntry struct {
	Addrs   []netip.Addr
	Expires time.Time
}

// New constructs a [*Resolver]. The default TTL and per-server timeout
// match the teacher-adjacent ambient defaults used throughout settings.
func New(udp, tcp Exchanger) *Resolver {
	return &Resolver{
		UDP:       udp,
		TCP:       tcp,
		servers:   make(map[Family][]string),
		rotation:  make(map[Family]int),
		hosts:     make(map[string]netip.Addr),
		blacklist: make(map[string]map[netip.Addr]struct{}),
		cache:     make(map[cacheKey]cacheEntry),
		ttl:       5 * time.Minute,
		bindIPs:   make(map[Family][]netip.Addr),
		timeout:   3 * time.Second,
	}
}

// Replace installs the server pool for family, resetting rotation to the
// first entry.
func (r *Resolver) Replace(family Family, servers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers[family] = append([]string(nil), servers...)
	r.rotation[family] = 0
}

// Network records the local addresses to bind outgoing queries from, per
// family, per spec.md §4.3's `network(family, bind_ips)` operation.
func (r *Resolver) Network(family Family, bindIPs []netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindIPs[family] = append([]netip.Addr(nil), bindIPs...)
}

// SetToBlackList marks ip as unacceptable for domain; any cached or future
// answer containing it is filtered out.
func (r *Resolver) SetToBlackList(domain string, ip netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.blacklist[domain]
	if !ok {
		set = make(map[netip.Addr]struct{})
		r.blacklist[domain] = set
	}
	set[ip] = struct{}{}
}

// TimeToLive sets the cache TTL.
func (r *Resolver) TimeToLive(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttl = d
}

// Flush empties the cache.
func (r *Resolver) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[cacheKey]cacheEntry)
}

// Hosts loads a hosts(5)-formatted file, per spec.md §4.3's `hosts(file)`
// operation.
func (r *Resolver) Hosts(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dnsresolver: reading hosts file: %w", err)
	}
	entries, err := parseHosts(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for host, addr := range entries {
		r.hosts[host] = addr
	}
	return nil
}

// Prefix loads default nameserver lists from `<prefix>_DNS_V4`/`<prefix>_DNS_V6`
// environment variables (comma-separated), per spec.md §4.3's
// `prefix(env_prefix)` operation and §4's "<PREFIX>_DNS_* families"
// environment convention.
func (r *Resolver) Prefix(envPrefix string) {
	if v4 := os.Getenv(envPrefix + "_DNS_V4"); v4 != "" {
		r.Replace(FamilyIPv4, splitCSV(v4))
	}
	if v6 := os.Getenv(envPrefix + "_DNS_V6"); v6 != "" {
		r.Replace(FamilyIPv6, splitCSV(v6))
	}
}

// Resolve implements spec.md §4.3's algorithm: hosts file, then cache,
// then queries to the rotation's servers one at a time (moving on when a
// server fails, times out or yields nothing usable) with TCP fallback on
// truncation, filtering blacklisted results.
func (r *Resolver) Resolve(ctx context.Context, family Family, hostname string) (netip.Addr, error) {
	if addr, ok := r.lookupHosts(hostname); ok {
		return addr, nil
	}
	if addr, ok := r.lookupCache(family, hostname); ok {
		return addr, nil
	}

	servers := r.serverList(family)
	if len(servers) == 0 {
		return netip.Addr{}, fmt.Errorf("dnsresolver: no servers configured for family %d", family)
	}

	var lastErr error
	for _, server := range servers {
		addrs, truncated, err := r.exchange(ctx, r.UDP, server, family, hostname)
		if err == nil && truncated {
			addrs, _, err = r.exchange(ctx, r.TCP, server, family, hostname)
		}
		if err != nil {
			lastErr = err
			continue
		}
		filtered := r.filterBlacklist(hostname, addrs)
		if len(filtered) == 0 {
			lastErr = ErrNotFound
			continue
		}
		r.storeCache(family, hostname, filtered)
		return filtered[0], nil
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return netip.Addr{}, ErrTimeout
	}
	return netip.Addr{}, lastErr
}

func (r *Resolver) exchange(ctx context.Context, x Exchanger, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	r.mu.Lock()
	timeout := r.timeout
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return x.Exchange(ctx, server, family, hostname)
}

func (r *Resolver) lookupHosts(hostname string) (netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.hosts[hostname]
	return addr, ok
}

func (r *Resolver) lookupCache(family Family, hostname string) (netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cacheKey{Family: family, Hostname: hostname}
	entry, ok := r.cache[key]
	if !ok || time.Now().After(entry.Expires) {
		delete(r.cache, key) // lazy eviction per spec.md §4.3
		return netip.Addr{}, false
	}
	return entry.Addrs[0], true
}

func (r *Resolver) storeCache(family Family, hostname string, addrs []netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[cacheKey{Family: family, Hostname: hostname}] = cacheEntry{
		Addrs:   addrs,
		Expires: time.Now().Add(r.ttl),
	}
}

func (r *Resolver) filterBlacklist(hostname string, addrs []netip.Addr) []netip.Addr {
	r.mu.Lock()
	set := r.blacklist[hostname]
	r.mu.Unlock()
	if len(set) == 0 {
		return addrs
	}
	out := addrs[:0]
	for _, a := range addrs {
		if _, bad := set[a]; !bad {
			out = append(out, a)
		}
	}
	return out
}

// serverList returns the configured pool for family, rotated one step per
// call so consecutive lookups fan out across the pool.
func (r *Resolver) serverList(family Family) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool := r.servers[family]
	if len(pool) == 0 {
		return nil
	}
	start := r.rotation[family] % len(pool)
	r.rotation[family] = (start + 1) % len(pool)
	out := make([]string, len(pool))
	for i := range pool {
		out[i] = pool[(start+i)%len(pool)]
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// dnsTypeFor maps a [Family] onto the miekg/dns RR type constant used by
// [dnscodec.NewQuery].
func dnsTypeFor(family Family) uint16 {
	if family == FamilyIPv6 {
		return dns.TypeAAAA
	}
	return dns.TypeA
}
