// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the compiled-in parameter sets
// (mainnet/testnet/devnet) that tell the rest of the node how to talk to
// a given network: handshake magic, DNS seeds, slot timing, and the
// consensus-relevant settings a Block0Config on that network must agree
// with.
package chaincfg

import (
	"fmt"
	"time"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

// DNSSeed is one bootstrap DNS hostname, mirroring the teacher's
// mainnetparams DNS seed list shape.
type DNSSeed struct {
	Host      string
	HasFilter bool
}

// Checkpoint pins a known-good block at a given chain length, letting the
// bootstrap loop skip full validation of everything at or before it.
type Checkpoint struct {
	ChainLength wire.ChainLength
	Hash        hash.Hash
}

// Params is one network's parameter set.
type Params struct {
	Name        string
	Magic       uint32
	DefaultPort string
	DNSSeeds    []DNSSeed

	Consensus           ledger.ConsensusVersion
	SlotDuration        time.Duration
	SlotsPerEpoch       uint32
	EpochStabilityDepth uint32
	KESUpdateSpeed      time.Duration
	ActiveSlotCoeff     float64
	BlockContentMaxSize uint32
	Fees                ledger.LinearFees

	HardDeadlineSlots      uint64
	LeadershipLogsCapacity int

	Checkpoints []Checkpoint
}

// TimeFrame returns the slot-to-wallclock mapping for this network, given
// the network's actual block0 timestamp (read from the loaded
// Block0Config, not baked into Params, since unlike the teacher's
// PoW genesis this chain's block0 is generated per-deployment).
func (p *Params) TimeFrame(block0Time time.Time) wire.TimeFrame {
	return wire.TimeFrame{Block0Time: block0Time, SlotDuration: p.SlotDuration}
}

// Era returns the single, non-rolling era covering this network's entire
// history. Era transitions (hard forks changing SlotsPerEpoch) are not
// modeled; see DESIGN.md.
func (p *Params) Era() wire.Era {
	return wire.Era{EpochStart: 0, EpochStartSlot: 0, SlotsPerEpoch: p.SlotsPerEpoch}
}

// LedgerSettings returns the ledger.Settings this network's genesis state
// should be constructed with.
func (p *Params) LedgerSettings() ledger.Settings {
	return ledger.Settings{
		Consensus:           p.Consensus,
		Fees:                p.Fees,
		SlotsPerEpoch:       p.SlotsPerEpoch,
		SlotDuration:        p.SlotDuration,
		KESUpdateSpeed:      p.KESUpdateSpeed,
		EpochStabilityDepth: p.EpochStabilityDepth,
		BlockContentMaxSize: p.BlockContentMaxSize,
		ActiveSlotCoeff:     p.ActiveSlotCoeff,
	}
}

// MainNetParams returns the production network's parameters.
func MainNetParams() *Params {
	return &Params{
		Name:        "mainnet",
		Magic:       0x4f424654, // "OBFT"
		DefaultPort: "24201",
		DNSSeeds: []DNSSeed{
			{Host: "seed.ouroboros.example", HasFilter: true},
		},
		Consensus:              ledger.ConsensusGenesisPraos,
		SlotDuration:           2 * time.Second,
		SlotsPerEpoch:          43200, // 24h at 2s slots
		EpochStabilityDepth:    2160,
		KESUpdateSpeed:         3600 * time.Second,
		ActiveSlotCoeff:        0.05,
		BlockContentMaxSize:    256 * 1024,
		Fees:                   ledger.LinearFees{Constant: 200000, Coefficient: 100, Certificate: 400000},
		HardDeadlineSlots:      1,
		LeadershipLogsCapacity: 1024,
	}
}

// TestNetParams returns the public test network's parameters: same
// consensus mode as mainnet, shorter epochs so test deployments iterate
// faster.
func TestNetParams() *Params {
	p := MainNetParams()
	p.Name = "testnet"
	p.Magic = 0x4f424654 ^ 0x54455354 // distinct from mainnet
	p.DefaultPort = "24202"
	p.DNSSeeds = []DNSSeed{{Host: "testnet-seed.ouroboros.example", HasFilter: true}}
	p.SlotsPerEpoch = 1800 // one hour
	p.Checkpoints = nil
	return p
}

// DevNetParams returns parameters for a local development network: BFT
// round-robin consensus (no stake distribution needed), fast slots, a
// single-digit epoch length convenient for driving the leadership loop
// in integration tests.
func DevNetParams() *Params {
	return &Params{
		Name:                   "devnet",
		Magic:                  0x4f424644, // "OBFD"
		DefaultPort:            "24203",
		Consensus:              ledger.ConsensusBFT,
		SlotDuration:           time.Second,
		SlotsPerEpoch:          10,
		EpochStabilityDepth:    4,
		KESUpdateSpeed:         time.Hour,
		ActiveSlotCoeff:        1.0,
		BlockContentMaxSize:    256 * 1024,
		Fees:                   ledger.LinearFees{Constant: 100000, Coefficient: 50, Certificate: 200000},
		HardDeadlineSlots:      1,
		LeadershipLogsCapacity: 256,
	}
}

// ByName resolves a --network flag value to its Params, mirroring the
// teacher's network-name-to-params lookup used for the --testnet/--simnet
// style flags.
func ByName(name string) (*Params, error) {
	switch name {
	case "mainnet":
		return MainNetParams(), nil
	case "testnet":
		return TestNetParams(), nil
	case "devnet":
		return DevNetParams(), nil
	default:
		return nil, fmt.Errorf("chaincfg: unknown network %q", name)
	}
}
