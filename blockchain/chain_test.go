// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ouroboros-go/node/blockchain/storage"
	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

func newTestChain(t *testing.T) (*Chain, *wire.Block) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "chain.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	genesisState := ledger.NewMemState(ledger.Settings{
		Consensus:     ledger.ConsensusBFT,
		SlotsPerEpoch: 100,
	}, nil, nil)

	block0 := &wire.Block{Header: wire.Header{ChainLength: 0}}
	block0.Header.ContentHash = block0.ComputeContentHash()

	c, err := New(store, block0, genesisState, wire.TimeFrame{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, block0
}

func buildChild(parentHash hash.Hash, chainLength wire.ChainLength, date wire.BlockDate) *wire.Block {
	b := &wire.Block{Header: wire.Header{
		ParentHash:  parentHash,
		Date:        date,
		ChainLength: chainLength,
	}}
	b.Header.ContentHash = b.ComputeContentHash()
	return b
}

func TestApplyAndStoreBlockAdvancesTip(t *testing.T) {
	c, block0 := newTestChain(t)

	b1 := buildChild(block0.Hash(), 1, wire.BlockDate{Slot: 1})
	ref, err := c.ApplyAndStoreBlock(b1, time.Now())
	if err != nil {
		t.Fatalf("ApplyAndStoreBlock: %v", err)
	}
	if ref.ChainLength != 1 {
		t.Fatalf("ref.ChainLength = %d, want 1", ref.ChainLength)
	}
	if c.Tip().Current().Hash != ref.Hash {
		t.Fatal("tip did not advance to the new block")
	}
}

func TestApplyAndStoreBlockRejectsUnknownParent(t *testing.T) {
	c, _ := newTestChain(t)

	orphan := buildChild(hash.Sum256([]byte("nowhere")), 1, wire.BlockDate{Slot: 1})
	_, err := c.ApplyAndStoreBlock(orphan, time.Now())
	if !errors.Is(err, ErrParentUnknown) {
		t.Fatalf("error = %v, want ErrParentUnknown", err)
	}
}

func TestApplyAndStoreBlockRejectsBadChainLength(t *testing.T) {
	c, block0 := newTestChain(t)

	bad := buildChild(block0.Hash(), 2, wire.BlockDate{Slot: 1})
	_, err := c.ApplyAndStoreBlock(bad, time.Now())
	if !errors.Is(err, ErrChainLengthMismatch) {
		t.Fatalf("error = %v, want ErrChainLengthMismatch", err)
	}
}

func TestApplyAndStoreBlockRejectsContentHashMismatch(t *testing.T) {
	c, block0 := newTestChain(t)

	tampered := buildChild(block0.Hash(), 1, wire.BlockDate{Slot: 1})
	tampered.Contents = []*wire.Fragment{{Kind: wire.FragmentTransfer, Payload: []byte{1}}}
	// ContentHash was computed before Contents was mutated, so it no
	// longer matches.

	_, err := c.ApplyAndStoreBlock(tampered, time.Now())
	if !errors.Is(err, ErrContentHashMismatch) {
		t.Fatalf("error = %v, want ErrContentHashMismatch", err)
	}
}

func TestApplyAndStoreBlockCachesKnownBad(t *testing.T) {
	c, block0 := newTestChain(t)

	bad := buildChild(block0.Hash(), 2, wire.BlockDate{Slot: 1})
	if _, err := c.ApplyAndStoreBlock(bad, time.Now()); err == nil {
		t.Fatal("expected first application to fail")
	}

	_, err := c.ApplyAndStoreBlock(bad, time.Now())
	if !errors.Is(err, ErrBlockIsKnownBad) {
		t.Fatalf("second error = %v, want ErrBlockIsKnownBad", err)
	}
}

func TestApplyAndStoreBlockRejectsFutureDate(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "chain.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	genesisState := ledger.NewMemState(ledger.Settings{
		Consensus:     ledger.ConsensusBFT,
		SlotsPerEpoch: 100,
	}, nil, nil)

	block0 := &wire.Block{Header: wire.Header{ChainLength: 0}}
	block0.Header.ContentHash = block0.ComputeContentHash()

	tf := wire.TimeFrame{Block0Time: time.Now(), SlotDuration: time.Minute}
	c, err := New(store, block0, genesisState, tf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Slot 100 begins roughly 100 minutes from now, far past
	// AllowedTimeDiscrepancy of the wall clock this validation runs with.
	future := buildChild(block0.Hash(), 1, wire.BlockDate{Slot: 100})
	_, err = c.ApplyAndStoreBlock(future, time.Now())
	if !errors.Is(err, ErrBlockDateInFuture) {
		t.Fatalf("error = %v, want ErrBlockDateInFuture", err)
	}
}
