// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"testing"
)

func TestMultiverseSelectsLongerChain(t *testing.T) {
	block0 := newTestBlock0Ref()
	m := NewMultiverse(block0)

	short := chainRef(t, block0, 2)
	long := chainRef(t, block0, 5)

	if err := m.Insert(short, 0); err != nil {
		t.Fatalf("Insert(short): %v", err)
	}
	if m.Tip().Current().Hash != short.Hash {
		t.Fatalf("tip = %v, want short", m.Tip().Current())
	}

	if err := m.Insert(long, 0); err != nil {
		t.Fatalf("Insert(long): %v", err)
	}
	if m.Tip().Current().Hash != long.Hash {
		t.Fatalf("tip = %v, want long", m.Tip().Current())
	}
}

func TestMultiverseKeepsIncumbentOnTie(t *testing.T) {
	block0 := newTestBlock0Ref()
	m := NewMultiverse(block0)

	first := chainRef(t, block0, 3)
	second := chainRef(t, block0, 3)

	if err := m.Insert(first, 0); err != nil {
		t.Fatalf("Insert(first): %v", err)
	}
	if err := m.Insert(second, 0); err != nil {
		t.Fatalf("Insert(second): %v", err)
	}
	if m.Tip().Current().Hash != first.Hash {
		t.Fatal("equal-length fork replaced the incumbent tip")
	}
}

func TestMultiverseRejectsRollbackPastStabilityDepth(t *testing.T) {
	block0 := newTestBlock0Ref()
	m := NewMultiverse(block0)

	base := chainRef(t, block0, 10)
	if err := m.Insert(base, 0); err != nil {
		t.Fatalf("Insert(base): %v", err)
	}

	// Fork off 5 blocks before base's tip, then extend it past base's
	// length: it wins length comparison, but its common ancestor with
	// base is 5 blocks back, deeper than a stability depth of 2.
	forkPoint := base
	for i := 0; i < 5; i++ {
		forkPoint = forkPoint.Parent
	}
	fork := chainRef(t, forkPoint, 7)

	err := m.Insert(fork, 2)
	if !errors.Is(err, ErrRollbackTooDeep) {
		t.Fatalf("Insert(fork) error = %v, want ErrRollbackTooDeep", err)
	}
	if m.Tip().Current().Hash != base.Hash {
		t.Fatal("tip changed despite rollback depth violation")
	}
}

func TestMultiverseAllowsRollbackWithinStabilityDepth(t *testing.T) {
	block0 := newTestBlock0Ref()
	m := NewMultiverse(block0)

	base := chainRef(t, block0, 10)
	if err := m.Insert(base, 0); err != nil {
		t.Fatalf("Insert(base): %v", err)
	}

	forkPoint := base
	for i := 0; i < 2; i++ {
		forkPoint = forkPoint.Parent
	}
	fork := chainRef(t, forkPoint, 4)

	if err := m.Insert(fork, 5); err != nil {
		t.Fatalf("Insert(fork): %v", err)
	}
	if m.Tip().Current().Hash != fork.Hash {
		t.Fatal("tip did not switch to the longer, within-depth fork")
	}
}

func TestMultiverseGCPrunesOldSiblings(t *testing.T) {
	block0 := newTestBlock0Ref()
	m := NewMultiverse(block0)

	main := chainRef(t, block0, 20)
	if err := m.Insert(main, 0); err != nil {
		t.Fatalf("Insert(main): %v", err)
	}

	stale := chainRef(t, block0, 1)
	m.Register(stale)

	if _, ok := m.GetRef(stale.Hash); !ok {
		t.Fatal("stale ref missing before GC")
	}

	m.GC(5)

	if _, ok := m.GetRef(stale.Hash); ok {
		t.Fatal("GC did not prune the stale short fork")
	}
	if _, ok := m.GetRef(main.Hash); !ok {
		t.Fatal("GC pruned the tip")
	}
}
