// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr is the topology/gossip address cache peer selection
// draws from: known peer addresses, and a quarantine list for peers
// recently evicted for misbehavior, lifted automatically after a
// timeout.
package addrmgr

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/dchest/siphash"

	"github.com/ouroboros-go/node/container/apbf"
	"github.com/ouroboros-go/node/hash"
)

// knownAddressCapacity bounds the address cache so an unbounded gossip
// flood cannot grow it without limit.
const knownAddressCapacity = 8192

// addrKnownBuckets partitions the known-address cache for eviction, the
// same keyed-short-hash bucketing the teacher's txscript.SigCache uses to
// pick an eviction candidate: a per-process random key feeds siphash so
// an adversary flooding addresses cannot predict, and therefore cannot
// steer, which bucket absorbs the resulting evictions.
const addrKnownBuckets = 64

// quarantineGenerations/quarantineBucketSize size the age-partitioned
// Bloom filter used as a fast pre-check ahead of the authoritative
// quarantine map: a handful of generations, each sized for a few
// thousand recently quarantined peers.
const (
	quarantineGenerations  = 4
	quarantineBucketSize   = 4096
	quarantineFalsePosRate = 0.01
)

// AddrInfo is one peer's last-known network address.
type AddrInfo struct {
	NodeID   hash.Hash
	Addr     string
	LastSeen time.Time
}

// Manager is the address/gossip cache plus quarantine bookkeeping.
type Manager struct {
	liftAfter time.Duration

	mu           sync.Mutex
	known        map[hash.Hash]AddrInfo
	bucketKey0   uint64
	bucketKey1   uint64
	bucketCounts [addrKnownBuckets]int
	quarantine   map[hash.Hash]time.Time // NodeId -> deadline it may be selected again
	recentQ      *apbf.Filter
}

// New creates a Manager. liftAfter is how long a quarantined peer stays
// excluded from selection before it becomes eligible again.
func New(liftAfter time.Duration) *Manager {
	var keyBuf [16]byte
	if _, err := rand.Read(keyBuf[:]); err != nil {
		panic("addrmgr: reading random bucket key: " + err.Error())
	}
	return &Manager{
		liftAfter:  liftAfter,
		known:      make(map[hash.Hash]AddrInfo),
		bucketKey0: binary.LittleEndian.Uint64(keyBuf[0:8]),
		bucketKey1: binary.LittleEndian.Uint64(keyBuf[8:16]),
		quarantine: make(map[hash.Hash]time.Time),
		recentQ:    apbf.NewFilter(quarantineGenerations, quarantineBucketSize, quarantineFalsePosRate),
	}
}

// bucketOf deterministically assigns id to one of addrKnownBuckets
// buckets under this Manager's random key.
func (m *Manager) bucketOf(id hash.Hash) int {
	return int(siphash.Hash(m.bucketKey0, m.bucketKey1, id[:]) % addrKnownBuckets)
}

// AddOrUpdate records or refreshes a peer's address, evicting from the
// fullest bucket if the cache is at capacity.
func (m *Manager) AddOrUpdate(info AddrInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.known[info.NodeID]; !ok {
		if len(m.known) >= knownAddressCapacity {
			m.evictFromFullestBucketLocked()
		}
		m.bucketCounts[m.bucketOf(info.NodeID)]++
	}
	info.LastSeen = time.Now()
	m.known[info.NodeID] = info
}

// evictFromFullestBucketLocked evicts the oldest address in whichever
// bucket currently holds the most entries, so a flood of addresses
// hashing into one bucket is evicted ahead of the sparser buckets
// holding longer-lived, more diverse peers.
func (m *Manager) evictFromFullestBucketLocked() {
	fullest := 0
	for b := 1; b < addrKnownBuckets; b++ {
		if m.bucketCounts[b] > m.bucketCounts[fullest] {
			fullest = b
		}
	}

	var oldestID hash.Hash
	var oldestTime time.Time
	found := false
	for id, info := range m.known {
		if m.bucketOf(id) != fullest {
			continue
		}
		if !found || info.LastSeen.Before(oldestTime) {
			oldestID, oldestTime, found = id, info.LastSeen, true
		}
	}
	if found {
		delete(m.known, oldestID)
		m.bucketCounts[fullest]--
	}
}

// Quarantine excludes id from selection until liftAfter has elapsed.
func (m *Manager) Quarantine(id hash.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quarantine[id] = time.Now().Add(m.liftAfter)
	m.recentQ.Add(id[:])
}

// IsQuarantined reports whether id is currently excluded from selection.
// It first consults the approximate recently-quarantined filter; only on
// a hit does it fall through to the authoritative map, so a peer that
// was never quarantined is resolved without a map lookup on the common
// path.
func (m *Manager) IsQuarantined(id hash.Hash) bool {
	if !m.recentQ.Contains(id[:]) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.quarantine[id]
	if !ok {
		return false
	}
	if time.Now().After(deadline) {
		delete(m.quarantine, id)
		return false
	}
	return true
}

// RotateQuarantineFilter ages the approximate recently-quarantined
// filter by one generation. Callers run this on a fixed cadence (roughly
// liftAfter / quarantineGenerations) so the filter's false-negative-free,
// eventually-forgets behavior tracks the authoritative map's own
// lift-after timeout.
func (m *Manager) RotateQuarantineFilter() {
	m.recentQ.Rotate()
}

// SelectableAddrs returns every known address not currently quarantined.
func (m *Manager) SelectableAddrs() []AddrInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AddrInfo, 0, len(m.known))
	for id, info := range m.known {
		if m.isQuarantinedLocked(id) {
			continue
		}
		out = append(out, info)
	}
	return out
}

func (m *Manager) isQuarantinedLocked(id hash.Hash) bool {
	deadline, ok := m.quarantine[id]
	if !ok {
		return false
	}
	return time.Now().Before(deadline)
}
