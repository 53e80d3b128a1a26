// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the chain multiverse: validating incoming
// blocks against a parent Ref, selecting the best of several competing
// branches, and persisting the winning chain to storage.
package blockchain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ouroboros-go/node/blockchain/storage"
	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/lru"
	"github.com/ouroboros-go/node/wire"
)

// AllowedTimeDiscrepancy bounds how far a header's Date may sit ahead of
// the validating node's own wall clock: tip selection's step 1, rejecting
// a candidate that claims a slot the network hasn't reached yet before it
// is ever compared against competing chains on length alone.
const AllowedTimeDiscrepancy = 1 * time.Second

var log = logging.Logger(logging.SubsystemBlockchain)

// Errors returned by the validation pipeline. They are deliberately plain
// sentinel values (rather than one CheckError type) so callers can use
// errors.Is without unwrapping, matching the rest of this package's style.
var (
	ErrBlockIsKnownBad    = errors.New("blockchain: block previously failed validation")
	ErrParentUnknown      = errors.New("blockchain: parent block not found")
	ErrChainLengthMismatch = errors.New("blockchain: chain length is not parent + 1")
	ErrDateNotIncreasing  = errors.New("blockchain: block date does not advance past parent")
	ErrContentHashMismatch = errors.New("blockchain: content hash does not match block contents")
	ErrNotLeaderAtSlot    = errors.New("blockchain: block date has no scheduled leader event for its evidence")
	ErrBlockDateInFuture  = errors.New("blockchain: block date is too far ahead of wall clock")
)

// knownBadCapacity bounds how many permanently-rejected block hashes Chain
// remembers, so a flood of invalid blocks from a misbehaving peer cannot
// grow this cache without bound.
const knownBadCapacity = 4096

// Chain coordinates the multiverse, the leveldb-backed store, and a
// per-process cache of blocks already known to be permanently invalid.
type Chain struct {
	store      *storage.Store
	multiverse *Multiverse

	mu       sync.Mutex
	knownBad *lru.Cache[hash.Hash, error]
}

// New loads or initializes a Chain. block0 is applied to seed the
// multiverse and is stored if the store does not already contain it.
func New(store *storage.Store, block0 *wire.Block, genesisState ledger.State, tf wire.TimeFrame) (*Chain, error) {
	leadership, err := genesisState.LeadershipScheduleForEpoch(0)
	if err != nil {
		return nil, fmt.Errorf("blockchain: block0 leadership schedule: %w", err)
	}
	ref := NewBlock0Ref(block0.Hash(), block0.Header.Date, genesisState, leadership, tf)

	if _, err := store.GetBlockInfo(block0.Hash()); errors.Is(err, storage.ErrBlockNotFound) {
		if err := store.PutBlock(block0, nil); err != nil {
			return nil, fmt.Errorf("blockchain: storing block0: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	if err := store.PutTag("tip", block0.Hash()); err != nil {
		return nil, fmt.Errorf("blockchain: tagging block0 as tip: %w", err)
	}

	return &Chain{
		store:      store,
		multiverse: NewMultiverse(ref),
		knownBad:   lru.New[hash.Hash, error](knownBadCapacity),
	}, nil
}

// Tip returns the chain's current best branch.
func (c *Chain) Tip() *Branch { return c.multiverse.Tip() }

// GetRef looks up an in-memory Ref by hash.
func (c *Chain) GetRef(h hash.Hash) (*Ref, bool) { return c.multiverse.GetRef(h) }

// preCheckHeader validates everything about a header that can be checked
// against its parent Ref alone, without the block's contents: chain
// length, date monotonicity, that the header's date is not an
// unreasonable claim about the future, and (for BFT/Genesis-Praos
// blocks) that the header's date actually has a leader event matching
// the evidence kind. This runs before the (possibly expensive) content
// hash and signature checks so a malformed header is rejected cheaply.
//
// wallClock is the validating node's own notion of "now"; it is compared
// against header.Date converted through parent's TimeFrame/era rather
// than against parent.Date, since the rejection is about the block
// lying about the present, not about chain ordering.
func (c *Chain) preCheckHeader(parent *Ref, header *wire.Header, wallClock time.Time) error {
	if header.ChainLength != parent.ChainLength.Next() {
		return ErrChainLengthMismatch
	}
	if !header.Date.After(parent.Date) {
		return ErrDateNotIncreasing
	}
	headerTime := parent.TimeFrame.TimeOfBlockDate(eraFromSettings(parent), header.Date)
	if headerTime.After(wallClock.Add(AllowedTimeDiscrepancy)) {
		return ErrBlockDateInFuture
	}
	return nil
}

// postCheckHeader validates that this header's date/evidence corresponds
// to a legitimate scheduled leader event. It assumes preCheckHeader has
// already passed.
//
// For BFT evidence this is a complete check: round-robin leader selection
// is a deterministic function of the slot, so re-deriving it here is
// sufficient. For Genesis-Praos evidence, eligibility additionally depends
// on a VRF proof produced with the pool's secret key, which this package
// cannot re-derive; only the structural shape is checked here; proof
// verification against the pool's registered VRF public key is done by
// internal/vrf.Verify, composed by the network layer before a block
// reaches ApplyAndStoreBlock.
func (c *Chain) postCheckHeader(parent *Ref, header *wire.Header) error {
	switch header.Evidence.Kind {
	case wire.EvidenceUnsigned:
		return nil
	case wire.EvidenceBFT:
		era := eraFromSettings(parent)
		slot := era.AbsoluteSlot(header.Date.Epoch, header.Date.Slot)
		events := parent.Leadership.EventsInRange(era, slot, 1, header.Evidence.BFTLeaderID, nil, nil)
		if len(events) == 0 {
			return ErrNotLeaderAtSlot
		}
		return nil
	case wire.EvidenceGenesisPraos:
		if header.Evidence.PoolID.IsZero() || len(header.Evidence.VRFProof) == 0 {
			return ErrNotLeaderAtSlot
		}
		return nil
	default:
		return fmt.Errorf("blockchain: unknown leader evidence kind %d", header.Evidence.Kind)
	}
}

func eraFromSettings(parent *Ref) wire.Era {
	settings := parent.Ledger.Settings()
	return wire.Era{
		EpochStart:    parent.Date.Epoch,
		EpochStartSlot: 0,
		SlotsPerEpoch: settings.SlotsPerEpoch,
	}
}

// ApplyAndStoreBlock runs the full validation pipeline for block against
// its already-known parent, and on success applies it to the ledger,
// stores it, inserts its Ref into the multiverse, and offers it as a tip
// candidate. It returns the new Ref.
//
// A block whose hash is already recorded in the known-bad cache is
// rejected immediately without re-validating it, since KES/VRF
// verification is not free and a malicious peer can otherwise force this
// node to redo the same failing work on every retransmission.
//
// now is the caller's real wall-clock time, used both to reject headers
// dated too far into the future and, converted to the parent's BlockDate
// terms, as the instant against which the ledger expires fragments.
func (c *Chain) ApplyAndStoreBlock(block *wire.Block, now time.Time) (*Ref, error) {
	h := block.Hash()

	c.mu.Lock()
	if badErr, ok := c.knownBad.Get(h); ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrBlockIsKnownBad, badErr)
	}
	c.mu.Unlock()

	ref, err := c.applyAndStoreBlockLocked(block, now)
	if err != nil {
		if isPermanent(err) {
			c.mu.Lock()
			c.knownBad.Add(h, err)
			c.mu.Unlock()
			log.Warnf("block %v permanently rejected: %v", h, err)
		} else {
			log.Debugf("block %v not yet applicable: %v", h, err)
		}
		return ref, err
	}
	log.Infof("accepted block %v at %v, chain length %d", ref.Hash, ref.Date, ref.ChainLength)
	return ref, nil
}

// isPermanent reports whether an error reflects a property of the block
// itself (so the block will never become valid and belongs in the
// known-bad cache), as opposed to a transient condition like an unknown
// parent that a later block delivery might resolve.
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, ErrParentUnknown):
		return false
	default:
		return err != nil
	}
}

func (c *Chain) applyAndStoreBlockLocked(block *wire.Block, now time.Time) (*Ref, error) {
	parent, ok := c.multiverse.GetRef(block.Header.ParentHash)
	if !ok {
		return nil, ErrParentUnknown
	}

	if err := c.preCheckHeader(parent, &block.Header, now); err != nil {
		return nil, err
	}

	if block.ComputeContentHash() != block.Header.ContentHash {
		return nil, ErrContentHashMismatch
	}

	if err := c.postCheckHeader(parent, &block.Header); err != nil {
		return nil, err
	}

	nowDate := parent.TimeFrame.BlockDateAt(eraFromSettings(parent), now)
	nextState, err := parent.Ledger.Apply(block, nowDate)
	if err != nil {
		return nil, fmt.Errorf("blockchain: ledger rejected block: %w", err)
	}

	ref, err := NewChildRef(parent, block.Hash(), block.Header.Date, block.Header.ChainLength, nextState)
	if err != nil {
		return nil, err
	}

	parentInfo, err := c.store.GetBlockInfo(parent.Hash)
	if err != nil {
		return nil, fmt.Errorf("blockchain: loading parent block info: %w", err)
	}
	if err := c.store.PutBlock(block, parentInfo); err != nil {
		return nil, fmt.Errorf("blockchain: storing block: %w", err)
	}

	// The block is valid and stored regardless of whether it wins the tip
	// race, so descendants built on it can still find their parent.
	stabilityDepth := nextState.Settings().EpochStabilityDepth
	if err := c.multiverse.Insert(ref, stabilityDepth); err != nil {
		return ref, err
	}

	if err := c.store.PutTag("tip", c.multiverse.Tip().Current().Hash); err != nil {
		return ref, fmt.Errorf("blockchain: updating tip tag: %w", err)
	}
	return ref, nil
}

// CollectGarbage discards retained Refs more than keepDepth blocks behind
// the tip that aren't ancestors of it.
func (c *Chain) CollectGarbage(keepDepth uint32) {
	c.multiverse.GC(keepDepth)
}

// Checkpoints returns a block-locator style list of this chain's own
// hashes, starting at the current tip and stepping back by doubling
// distances (1, 2, 4, 8, ...). A bootstrap peer walks this list to find
// the most recent hash it also recognizes, the same way a classic
// getheaders locator narrows down a common ancestor without either side
// needing to exchange the full chain.
func (c *Chain) Checkpoints() []hash.Hash {
	tip := c.multiverse.Tip().Current()
	checkpoints := []hash.Hash{tip.Hash}

	step := uint32(1)
	for {
		h, err := c.store.GetNthAncestor(tip.Hash, step)
		if err != nil {
			break
		}
		checkpoints = append(checkpoints, h)
		if uint32(tip.ChainLength) <= step {
			break
		}
		step *= 2
	}
	return checkpoints
}
