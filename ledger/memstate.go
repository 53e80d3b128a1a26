// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"math"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

// MemState is a minimal in-memory State sufficient to drive the leadership,
// fragment-pool, and chain-selection subsystems end to end: it tracks which
// fragment IDs have already been applied (for duplicate rejection) and
// rejects fragments whose ValidUntil date has passed. It does not implement
// account balances, fees, or certificate semantics — those are the opaque
// ledger rules this node treats as out of scope.
type MemState struct {
	settings   Settings
	stake      StakeDistribution
	bftLeaders []hash.Hash
	applied    map[hash.Hash]struct{}
}

var _ State = (*MemState)(nil)

// NewMemState constructs the block0 ledger state.
func NewMemState(settings Settings, stake StakeDistribution, bftLeaders []hash.Hash) *MemState {
	return &MemState{
		settings:   settings,
		stake:      stake,
		bftLeaders: bftLeaders,
		applied:    make(map[hash.Hash]struct{}),
	}
}

// Settings implements State.
func (s *MemState) Settings() Settings { return s.settings }

// StakeDistribution implements State.
func (s *MemState) StakeDistribution() StakeDistribution { return s.stake }

// Apply implements State. It never mutates s.
func (s *MemState) Apply(block *wire.Block, now wire.BlockDate) (State, error) {
	next := &MemState{
		settings:   s.settings,
		stake:      s.stake,
		bftLeaders: s.bftLeaders,
		applied:    make(map[hash.Hash]struct{}, len(s.applied)+len(block.Contents)),
	}
	for id := range s.applied {
		next.applied[id] = struct{}{}
	}
	for _, f := range block.Contents {
		if f.ValidUntil != (wire.BlockDate{}) && now.After(f.ValidUntil) {
			return nil, ErrFragmentExpired
		}
		id := f.ID()
		if _, dup := next.applied[id]; dup {
			return nil, ErrDuplicateFragment
		}
		next.applied[id] = struct{}{}
	}
	return next, nil
}

// LeadershipScheduleForEpoch implements State.
func (s *MemState) LeadershipScheduleForEpoch(epoch uint32) (Leadership, error) {
	return &memLeadership{epoch: epoch, state: s}, nil
}

type memLeadership struct {
	epoch uint32
	state *MemState
}

// EventsInRange implements Leadership.
func (l *memLeadership) EventsInRange(era wire.Era, slotStart uint64, nbSlots uint64, bftLeaderID hash.Hash, praosPoolIDs []hash.Hash, vrfEval VRFEvaluator) []LeaderEvent {
	var events []LeaderEvent

	var totalStake uint64
	for _, v := range l.state.stake {
		totalStake += v
	}

	for slot := slotStart; slot < slotStart+nbSlots; slot++ {
		epoch, slotInEpoch := era.EpochSlot(slot)
		if epoch != l.epoch {
			continue
		}
		date := wire.BlockDate{Epoch: epoch, Slot: slotInEpoch}

		switch l.state.settings.Consensus {
		case ConsensusBFT:
			if len(l.state.bftLeaders) == 0 {
				continue
			}
			idx := int(slotInEpoch) % len(l.state.bftLeaders)
			if l.state.bftLeaders[idx] == bftLeaderID {
				events = append(events, LeaderEvent{
					Date:   date,
					Output: LeaderOutput{Kind: LeaderBFT, LeaderID: bftLeaderID},
				})
			}
		case ConsensusGenesisPraos:
			if totalStake == 0 || vrfEval == nil {
				continue
			}
			for _, poolID := range praosPoolIDs {
				stake, ok := l.state.stake[poolID]
				if !ok || stake == 0 {
					continue
				}
				proof, output := vrfEval.Evaluate(poolID, slot)
				relative := float64(stake) / float64(totalStake)
				threshold := phi(relative, l.state.settings.ActiveSlotCoeff)
				if output < threshold {
					events = append(events, LeaderEvent{
						Date: date,
						Output: LeaderOutput{
							Kind:     LeaderGenesisPraos,
							PoolID:   poolID,
							VRFProof: proof,
						},
					})
					break // at most one event per slot
				}
			}
		}
	}
	return events
}

// phi is the Ouroboros Praos slot-leader probability function: the chance
// that a pool controlling the given fraction of stake is the slot leader,
// given the chain's active slot coefficient.
func phi(relativeStake, activeSlotCoeff float64) float64 {
	return 1 - math.Pow(1-activeSlotCoeff, relativeStake)
}
