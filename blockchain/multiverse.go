// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"sync"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

// ErrRollbackTooDeep is returned when a candidate branch's common ancestor
// with the current tip lies further back than the chain's epoch stability
// depth allows. Genesis-Praos's probabilistic settlement only guarantees
// finality up to that depth; a rollback past it is refused rather than
// silently applied, even if the candidate is otherwise longer.
var ErrRollbackTooDeep = errors.New("blockchain: candidate branch rolls back past epoch stability depth")

// Multiverse holds every Ref this node currently knows about, indexed by
// block hash, plus the distinguished Tip branch. Unlike a proof-of-work
// chain's single "most work" comparison, selecting among competing Refs
// here is chain-length comparison gated by a rollback-depth check (see
// SelectBestRef), since length alone can't distinguish an adversarial
// short reorg from a legitimate longer fork beyond the stability window.
type Multiverse struct {
	mu   sync.RWMutex
	refs map[hash.Hash]*Ref
	tip  *Branch
}

// NewMultiverse creates a Multiverse whose only known Ref is block0.
func NewMultiverse(block0 *Ref) *Multiverse {
	m := &Multiverse{
		refs: make(map[hash.Hash]*Ref),
		tip:  NewBranch(block0),
	}
	m.refs[block0.Hash] = block0
	return m
}

// Tip returns the distinguished best-known branch.
func (m *Multiverse) Tip() *Branch { return m.tip }

// GetRef looks up a known Ref by hash.
func (m *Multiverse) GetRef(h hash.Hash) (*Ref, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.refs[h]
	return r, ok
}

// Register records a newly validated Ref so later blocks built on it can
// find their parent, without affecting the current tip. Callers that also
// want candidate to be considered for tip replacement should follow this
// with SelectBestRef.
func (m *Multiverse) Register(r *Ref) {
	m.mu.Lock()
	m.refs[r.Hash] = r
	m.mu.Unlock()
}

// Insert registers a newly validated Ref and offers it as a candidate tip
// via SelectBestRef. It does not itself advance the tip if the candidate
// loses the comparison; callers that need to know which happened should
// compare Tip().Current() before and after.
func (m *Multiverse) Insert(r *Ref, epochStabilityDepth uint32) error {
	m.Register(r)
	return m.SelectBestRef(r, epochStabilityDepth)
}

// SelectBestRef compares candidate against the current tip and, if
// candidate wins, replaces the tip. A candidate with a strictly greater
// ChainLength wins unless doing so requires rolling back further than
// epochStabilityDepth blocks from the current tip's common ancestor with
// candidate, in which case ErrRollbackTooDeep is returned and the tip is
// left unchanged. A candidate with ChainLength no greater than the
// current tip never replaces it (ties keep the incumbent, matching "first
// seen wins" for equal-length forks).
func (m *Multiverse) SelectBestRef(candidate *Ref, epochStabilityDepth uint32) error {
	current := m.tip.Current()
	if candidate.ChainLength <= current.ChainLength {
		return nil
	}

	ancestor := CommonAncestor(current, candidate)
	if ancestor == nil {
		// No shared history within the retained window: treat as maximally
		// deep and refuse, rather than silently trusting an unrelated fork.
		return ErrRollbackTooDeep
	}
	rollbackDepth := uint32(current.ChainLength - ancestor.ChainLength)
	if epochStabilityDepth > 0 && rollbackDepth > epochStabilityDepth {
		return ErrRollbackTooDeep
	}

	m.tip.Replace(candidate)
	return nil
}

// GC discards every retained Ref whose chain length is more than
// keepDepth behind the current tip and that is not an ancestor of the
// tip, bounding the multiverse's memory to the stability window plus any
// live competing forks near the tip.
func (m *Multiverse) GC(keepDepth uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tip := m.tip.Current()
	if uint32(tip.ChainLength) <= keepDepth {
		return
	}
	floor := tip.ChainLength - wire.ChainLength(keepDepth)

	ancestors := make(map[hash.Hash]struct{})
	for r := tip; r != nil; r = r.Parent {
		ancestors[r.Hash] = struct{}{}
	}

	for h, r := range m.refs {
		if r.ChainLength < floor {
			if _, isAncestor := ancestors[h]; !isAncestor {
				delete(m.refs, h)
			}
		}
	}
}
