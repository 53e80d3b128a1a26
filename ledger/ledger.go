// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger defines the opaque ledger state-transition boundary this
// node builds on. The state-transition function itself (transaction
// validation, fee calculation, stake distribution, treasury, voting tally
// arithmetic) is out of scope for this node; State is treated as a black
// box that validates a block against a parent state and returns a
// successor state.
package ledger

import (
	"errors"
	"time"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

// ErrFragmentExpired is returned by Apply when a fragment's ValidUntil date
// has already passed at the block's date.
var ErrFragmentExpired = errors.New("ledger: transaction expired")

// ErrDuplicateFragment is returned by Apply when a fragment's ID has
// already been applied earlier in this chain of states.
var ErrDuplicateFragment = errors.New("ledger: duplicate fragment")

// LinearFees mirrors the block0 linear_fees configuration: a constant fee
// plus a per-byte coefficient and a certificate surcharge.
type LinearFees struct {
	Constant    uint64
	Coefficient uint64
	Certificate uint64
}

// ConsensusVersion selects the header's leader-evidence shape.
type ConsensusVersion int

const (
	ConsensusBFT ConsensusVersion = iota
	ConsensusGenesisPraos
)

// Settings are the block0-derived, chain-wide parameters a ledger state
// exposes to the rest of the node.
type Settings struct {
	Consensus           ConsensusVersion
	Fees                LinearFees
	SlotsPerEpoch        uint32
	SlotDuration         time.Duration
	KESUpdateSpeed       time.Duration
	EpochStabilityDepth  uint32
	BlockContentMaxSize  uint32
	ActiveSlotCoeff      float64 // Genesis-Praos only, in [0,1]
}

// StakeDistribution maps a stake pool ID to its absolute stake.
type StakeDistribution map[hash.Hash]uint64

// LeaderOutputKind tags which consensus mode's evidence a LeaderEvent
// carries.
type LeaderOutputKind int

const (
	LeaderBFT LeaderOutputKind = iota
	LeaderGenesisPraos
)

// LeaderOutput is the evidence this node is entitled to attach to a block
// at a given slot.
type LeaderOutput struct {
	Kind LeaderOutputKind

	// LeaderBFT
	LeaderID hash.Hash

	// LeaderGenesisPraos
	PoolID   hash.Hash
	VRFProof []byte
}

// LeaderEvent pairs a block date with the leader evidence this node may use
// to build a block at that date.
type LeaderEvent struct {
	Date   wire.BlockDate
	Output LeaderOutput
}

// Leadership is the epoch-scoped leadership schedule derived from a ledger
// state: the set of slots in an epoch, if any, at which this node's
// enclave keys are entitled to lead.
type Leadership interface {
	// EventsInRange returns every LeaderEvent this node's enclave is
	// entitled to for absolute slots [slotStart, slotStart+nbSlots) within
	// the epoch, identified by per-pool and per-BFT-leader key material
	// the caller (the enclave) knows about. At most one event per slot is
	// emitted, matching the spec's "emits at most one event per slot".
	EventsInRange(era wire.Era, slotStart uint64, nbSlots uint64, bftLeaderID hash.Hash, praosPoolIDs []hash.Hash, vrfEval VRFEvaluator) []LeaderEvent
}

// VRFEvaluator produces a verifiable pseudo-random proof and its derived
// uniform output for a pool at a given slot, used to test Genesis-Praos
// slot eligibility against the active slot coefficient.
type VRFEvaluator interface {
	Evaluate(poolID hash.Hash, slot uint64) (proof []byte, output float64)
}

// State is the opaque, immutable ledger snapshot tied to a block. Apply is
// a pure function: it never mutates the receiver, returning a new State
// (or an error) instead.
type State interface {
	Apply(block *wire.Block, now wire.BlockDate) (State, error)
	Settings() Settings
	StakeDistribution() StakeDistribution
	LeadershipScheduleForEpoch(epoch uint32) (Leadership, error)
}
