// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package apbf implements an age-partitioned Bloom filter: a probabilistic
// set membership test whose entries age out automatically as newer
// generations are added, without the unbounded growth of a plain Bloom
// filter or the synchronization cost of an exact LRU set. It is used to
// answer "have I seen this recently" questions — address gossip dedup,
// peer quarantine — where a false positive just means re-deriving an
// answer that is still cheap to re-derive, and a false negative is
// impossible.
package apbf

import (
	"hash/fnv"
	"math"
	"sync"
)

// Filter is an age-partitioned Bloom filter made of numGenerations
// fixed-size partitions. Add always writes into the newest (generation 0)
// partition; Contains checks every partition. Rotate starts a new
// generation, sliding every partition's contents one generation older and
// discarding the oldest, bounding how long a membership claim can stay
// positive.
type Filter struct {
	mu           sync.Mutex
	generations  [][]uint64 // each a bitset of m bits, stored as uint64 words
	m            uint32     // bits per generation
	k            uint32     // hash functions per generation
}

// NewFilter creates a Filter with numGenerations partitions, each sized to
// hold up to maxElementsPerGeneration items at no more than falsePosRate
// false-positive probability.
func NewFilter(numGenerations int, maxElementsPerGeneration uint32, falsePosRate float64) *Filter {
	if numGenerations < 1 {
		numGenerations = 1
	}
	m, k := optimalParams(maxElementsPerGeneration, falsePosRate)
	words := (m + 63) / 64
	f := &Filter{m: m, k: k}
	f.generations = make([][]uint64, numGenerations)
	for i := range f.generations {
		f.generations[i] = make([]uint64, words)
	}
	return f
}

// optimalParams computes the classic Bloom filter bit-array size m and
// hash-function count k for n elements at the given false-positive rate.
func optimalParams(n uint32, p float64) (m, k uint32) {
	if n == 0 {
		n = 1
	}
	mf := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	m = uint32(math.Ceil(mf))
	if m == 0 {
		m = 1
	}
	kf := mf / float64(n) * math.Ln2
	k = uint32(math.Round(kf))
	if k == 0 {
		k = 1
	}
	return m, k
}

// Add inserts key into the newest generation.
func (f *Filter) Add(key []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h1, h2 := splitHash(key)
	setBits(f.generations[0], f.m, f.k, h1, h2)
}

// Contains reports whether key was added in any generation still held by
// the filter. False positives are possible; false negatives are not.
func (f *Filter) Contains(key []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	h1, h2 := splitHash(key)
	for _, gen := range f.generations {
		if testBits(gen, f.m, f.k, h1, h2) {
			return true
		}
	}
	return false
}

// Rotate ages every generation by one slot, discarding the oldest and
// starting a fresh, empty generation 0. Callers call this on a fixed
// cadence (e.g. once per quarantine window) to bound how long membership
// persists.
func (f *Filter) Rotate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	words := len(f.generations[len(f.generations)-1])
	copy(f.generations[1:], f.generations[:len(f.generations)-1])
	fresh := make([]uint64, words)
	f.generations[0] = fresh
}

// splitHash derives two independent 64-bit hashes from key using FNV-1a
// with two different seeds, combined via double hashing (Kirsch-Mitzenmacher)
// to derive the k bit positions cheaply.
func splitHash(key []byte) (uint64, uint64) {
	h1 := fnv.New64a()
	h1.Write(key)
	h2 := fnv.New64a()
	h2.Write([]byte{0xff})
	h2.Write(key)
	return h1.Sum64(), h2.Sum64()
}

func bitPosition(h1, h2 uint64, i, m uint32) uint32 {
	return uint32((h1 + uint64(i)*h2) % uint64(m))
}

func setBits(bits []uint64, m, k uint32, h1, h2 uint64) {
	for i := uint32(0); i < k; i++ {
		pos := bitPosition(h1, h2, i, m)
		bits[pos/64] |= 1 << (pos % 64)
	}
}

func testBits(bits []uint64, m, k uint32, h1, h2 uint64) bool {
	for i := uint32(0); i < k; i++ {
		pos := bitPosition(h1, h2, i, m)
		if bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
