// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"time"
)

// BlockDate is an (epoch, slot) pair in total lexicographic order.
type BlockDate struct {
	Epoch uint32
	Slot  uint32
}

// Compare returns -1, 0, or 1 as d is before, equal to, or after other.
func (d BlockDate) Compare(other BlockDate) int {
	switch {
	case d.Epoch < other.Epoch:
		return -1
	case d.Epoch > other.Epoch:
		return 1
	case d.Slot < other.Slot:
		return -1
	case d.Slot > other.Slot:
		return 1
	default:
		return 0
	}
}

// Before reports whether d sorts strictly before other.
func (d BlockDate) Before(other BlockDate) bool { return d.Compare(other) < 0 }

// After reports whether d sorts strictly after other.
func (d BlockDate) After(other BlockDate) bool { return d.Compare(other) > 0 }

func (d BlockDate) String() string {
	return fmt.Sprintf("%d.%d", d.Epoch, d.Slot)
}

// ChainLength is the number of blocks, including block0, in a chain ending
// at the block it is attached to. block0 has ChainLength 0; every other
// block's ChainLength is its parent's ChainLength + 1.
type ChainLength uint32

// Next returns the ChainLength of a direct descendant.
func (c ChainLength) Next() ChainLength { return c + 1 }

// TimeFrame anchors the wall-clock time of block0 to the fixed-duration
// slots that follow it, allowing conversion between a wall-clock instant and
// an absolute slot number.
type TimeFrame struct {
	Block0Time   time.Time
	SlotDuration time.Duration
}

// SlotAt returns the absolute slot containing instant t. Instants before
// Block0Time map to slot 0.
func (tf TimeFrame) SlotAt(t time.Time) uint64 {
	d := t.Sub(tf.Block0Time)
	if d < 0 {
		return 0
	}
	return uint64(d / tf.SlotDuration)
}

// TimeOfSlot returns the wall-clock instant at which the given absolute
// slot begins.
func (tf TimeFrame) TimeOfSlot(slot uint64) time.Time {
	return tf.Block0Time.Add(time.Duration(slot) * tf.SlotDuration)
}

// TimeOfBlockDate returns the wall-clock instant at which d begins, given
// era's epoch layout.
func (tf TimeFrame) TimeOfBlockDate(era Era, d BlockDate) time.Time {
	return tf.TimeOfSlot(era.AbsoluteSlot(d.Epoch, d.Slot))
}

// BlockDateAt returns the BlockDate of the slot containing instant t, given
// era's epoch layout. It is the inverse of TimeOfBlockDate.
func (tf TimeFrame) BlockDateAt(era Era, t time.Time) BlockDate {
	epoch, slotInEpoch := era.EpochSlot(tf.SlotAt(t))
	return BlockDate{Epoch: epoch, Slot: slotInEpoch}
}

// Era maps an absolute slot number to an (epoch, slot-in-epoch) pair, given
// a fixed number of slots per epoch starting at a known epoch boundary.
type Era struct {
	EpochStart    uint32 // epoch number at EpochStartSlot
	EpochStartSlot uint64
	SlotsPerEpoch uint32
}

// EpochSlot decomposes an absolute slot into its (epoch, slot-in-epoch).
func (e Era) EpochSlot(absoluteSlot uint64) (epoch uint32, slotInEpoch uint32) {
	if absoluteSlot < e.EpochStartSlot {
		return e.EpochStart, 0
	}
	elapsed := absoluteSlot - e.EpochStartSlot
	epochsElapsed := uint32(elapsed / uint64(e.SlotsPerEpoch))
	slotInEpoch = uint32(elapsed % uint64(e.SlotsPerEpoch))
	return e.EpochStart + epochsElapsed, slotInEpoch
}

// AbsoluteSlot is the inverse of EpochSlot.
func (e Era) AbsoluteSlot(epoch, slotInEpoch uint32) uint64 {
	epochsElapsed := uint64(epoch - e.EpochStart)
	return e.EpochStartSlot + epochsElapsed*uint64(e.SlotsPerEpoch) + uint64(slotInEpoch)
}

// FirstSlotOf returns the absolute slot at which the given epoch begins.
func (e Era) FirstSlotOf(epoch uint32) uint64 {
	return e.AbsoluteSlot(epoch, 0)
}
