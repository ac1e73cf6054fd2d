// SPDX-License-Identifier: GPL-3.0-or-later

package dnsresolver

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExchanger counts calls and returns a canned answer per server.
type fakeExchanger struct {
	calls   int
	answers map[string][]netip.Addr
	err     error
}

func (f *fakeExchanger) Exchange(ctx context.Context, server string, family Family, hostname string) ([]netip.Addr, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	return f.answers[server], false, nil
}

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	require.NoError(t, err)
	return a
}

// Two consecutive Resolve calls within TTL produce identical results and
// exactly one network query, per spec.md §8's DNS cache property.
func TestResolveCachesWithinTTL(t *testing.T) {
	udp := &fakeExchanger{answers: map[string][]netip.Addr{"1.1.1.1:53": {mustAddr(t, "93.184.216.34")}}}
	r := New(udp, udp)
	r.Replace(FamilyIPv4, []string{"1.1.1.1:53"})

	a1, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)
	a2, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, 1, udp.calls)
}

func TestResolveFiltersBlacklist(t *testing.T) {
	bad := mustAddr(t, "10.0.0.1")
	good := mustAddr(t, "10.0.0.2")
	udp := &fakeExchanger{answers: map[string][]netip.Addr{"1.1.1.1:53": {bad, good}}}
	r := New(udp, udp)
	r.Replace(FamilyIPv4, []string{"1.1.1.1:53"})
	r.SetToBlackList("example.com", bad)

	got, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)
	assert.Equal(t, good, got)
}

func TestResolveUsesHostsFileBeforeNetwork(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 local.example\n"), 0o644))

	udp := &fakeExchanger{}
	r := New(udp, udp)
	require.NoError(t, r.Hosts(path))

	got, err := r.Resolve(context.Background(), FamilyIPv4, "local.example")
	require.NoError(t, err)
	assert.Equal(t, mustAddr(t, "127.0.0.1"), got)
	assert.Equal(t, 0, udp.calls)
}

func TestResolveRotatesServersOnFailure(t *testing.T) {
	good := mustAddr(t, "203.0.113.1")
	udp := &fakeExchanger{answers: map[string][]netip.Addr{"2.2.2.2:53": {good}}}
	r := New(udp, udp)
	r.Replace(FamilyIPv4, []string{"1.1.1.1:53", "2.2.2.2:53"})

	got, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)
	assert.Equal(t, good, got)
	assert.Equal(t, 2, udp.calls)
}

func TestResolveNoServersConfigured(t *testing.T) {
	udp := &fakeExchanger{}
	r := New(udp, udp)
	_, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	assert.Error(t, err)
}

func TestPrefixLoadsFromEnvironment(t *testing.T) {
	t.Setenv("AWH_DNS_V4", "9.9.9.9:53,8.8.8.8:53")
	r := New(&fakeExchanger{}, &fakeExchanger{})
	r.Prefix("AWH")

	servers := r.serverList(FamilyIPv4)
	assert.ElementsMatch(t, []string{"9.9.9.9:53", "8.8.8.8:53"}, servers)
}

func TestFlushClearsCache(t *testing.T) {
	udp := &fakeExchanger{answers: map[string][]netip.Addr{"1.1.1.1:53": {mustAddr(t, "203.0.113.9")}}}
	r := New(udp, udp)
	r.Replace(FamilyIPv4, []string{"1.1.1.1:53"})

	_, err := r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)
	r.Flush()
	_, err = r.Resolve(context.Background(), FamilyIPv4, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, udp.calls)
}
