// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"time"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

// Ref is an immutable snapshot tying a block to its applied ledger state.
// Two blocks with the same hash share one Ref; building a new Ref requires
// the parent Ref, the freshly applied ledger state, and the block header.
type Ref struct {
	Hash        hash.Hash
	ChainLength wire.ChainLength
	Date        wire.BlockDate
	Ledger      ledger.State
	Leadership  ledger.Leadership
	TimeFrame   wire.TimeFrame
	Parent      *Ref
}

// NewBlock0Ref builds the Ref for block0, the chain's genesis: it has no
// parent and ChainLength 0.
func NewBlock0Ref(blockHash hash.Hash, date wire.BlockDate, state ledger.State, leadership ledger.Leadership, tf wire.TimeFrame) *Ref {
	return &Ref{
		Hash:        blockHash,
		ChainLength: 0,
		Date:        date,
		Ledger:      state,
		Leadership:  leadership,
		TimeFrame:   tf,
	}
}

// NewChildRef builds the Ref for a block applied on top of parent. If the
// child's date falls in the same epoch as its parent, the parent's
// leadership schedule is reused rather than recomputed, per "within an
// epoch the parent's schedule is reused" (sharing here is simply holding
// the same interface value; ledger.Leadership implementations are
// themselves immutable).
func NewChildRef(parent *Ref, blockHash hash.Hash, date wire.BlockDate, chainLength wire.ChainLength, state ledger.State) (*Ref, error) {
	leadership := parent.Leadership
	if date.Epoch != parent.Date.Epoch || leadership == nil {
		var err error
		leadership, err = state.LeadershipScheduleForEpoch(date.Epoch)
		if err != nil {
			return nil, err
		}
	}
	return &Ref{
		Hash:        blockHash,
		ChainLength: chainLength,
		Date:        date,
		Ledger:      state,
		Leadership:  leadership,
		TimeFrame:   parent.TimeFrame,
		Parent:      parent,
	}, nil
}

// IsAncestorOf reports whether r is an ancestor of, or equal to, d
// (reflexive for r == d, distance 0). It walks parent pointers, which is
// correct but not the O(log n) path used by storage.GetNthAncestor; callers
// on a hot path should prefer the storage-backed skip-list lookup.
func (r *Ref) IsAncestorOf(d *Ref) bool {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.Hash == r.Hash {
			return true
		}
		if cur.ChainLength <= r.ChainLength && cur.Hash != r.Hash {
			// cur can't be a descendant of r if it's no longer than r and
			// isn't r itself; continuing would only walk further back.
			if cur.ChainLength < r.ChainLength {
				return false
			}
		}
	}
	return false
}

// CommonAncestor returns the nearest Ref that is an ancestor of both a and
// b (which may be a or b themselves), walking parent pointers to equalize
// chain length first. It returns nil if the chains share no ancestor
// within the in-memory multiverse (e.g. one side's parent chain has
// already been garbage collected).
func CommonAncestor(a, b *Ref) *Ref {
	for a != nil && b != nil && a.ChainLength > b.ChainLength {
		a = a.Parent
	}
	for a != nil && b != nil && b.ChainLength > a.ChainLength {
		b = b.Parent
	}
	for a != nil && b != nil {
		if a.Hash == b.Hash {
			return a
		}
		a = a.Parent
		b = b.Parent
	}
	return nil
}

// Branch is a mutable pointer to the current Ref of a fork.
type Branch struct {
	mu          sync.Mutex
	ref         *Ref
	lastUpdated time.Time
}

// NewBranch creates a Branch pointing at ref.
func NewBranch(ref *Ref) *Branch {
	return &Branch{ref: ref, lastUpdated: time.Now()}
}

// Current returns the branch's current Ref.
func (b *Branch) Current() *Ref {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ref
}

// LastUpdated returns the wall-clock time of the last Replace.
func (b *Branch) LastUpdated() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdated
}

// Replace swaps in a new Ref and returns the old one.
func (b *Branch) Replace(ref *Ref) *Ref {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.ref
	b.ref = ref
	b.lastUpdated = time.Now()
	return old
}
