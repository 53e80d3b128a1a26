// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

func newTestBlock0Ref() *Ref {
	st := ledger.NewMemState(ledger.Settings{Consensus: ledger.ConsensusBFT, SlotsPerEpoch: 10}, nil, nil)
	return NewBlock0Ref(hash.Sum256([]byte("block0")), wire.BlockDate{}, st, nil, wire.TimeFrame{})
}

func chainRef(t *testing.T, parent *Ref, length int) *Ref {
	t.Helper()
	cur := parent
	for i := 0; i < length; i++ {
		next, err := NewChildRef(cur, hash.Sum256([]byte{byte(cur.ChainLength + 1)}), wire.BlockDate{Slot: uint32(cur.ChainLength + 1)}, cur.ChainLength.Next(), cur.Ledger)
		if err != nil {
			t.Fatalf("NewChildRef: %v", err)
		}
		cur = next
	}
	return cur
}

func TestCommonAncestorSameChain(t *testing.T) {
	block0 := newTestBlock0Ref()
	tip := chainRef(t, block0, 5)

	anc := CommonAncestor(block0, tip)
	if anc == nil || anc.Hash != block0.Hash {
		t.Fatalf("CommonAncestor() = %v, want block0", anc)
	}
}

func TestCommonAncestorDivergentForks(t *testing.T) {
	block0 := newTestBlock0Ref()
	base := chainRef(t, block0, 3)
	forkA := chainRef(t, base, 4)
	forkB := chainRef(t, base, 2)

	anc := CommonAncestor(forkA, forkB)
	if anc == nil || anc.Hash != base.Hash {
		t.Fatalf("CommonAncestor() = %v, want base at length %d", anc, base.ChainLength)
	}
}

func TestIsAncestorOf(t *testing.T) {
	block0 := newTestBlock0Ref()
	tip := chainRef(t, block0, 3)

	if !block0.IsAncestorOf(tip) {
		t.Fatal("block0.IsAncestorOf(tip) = false, want true")
	}
	if tip.IsAncestorOf(block0) {
		t.Fatal("tip.IsAncestorOf(block0) = true, want false")
	}
}

func TestBranchReplace(t *testing.T) {
	block0 := newTestBlock0Ref()
	b := NewBranch(block0)

	next := chainRef(t, block0, 1)
	old := b.Replace(next)
	if old.Hash != block0.Hash {
		t.Fatalf("Replace returned %v, want block0", old)
	}
	if b.Current().Hash != next.Hash {
		t.Fatalf("Current() = %v, want next", b.Current())
	}
}
