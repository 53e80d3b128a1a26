// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/config"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

func testBlock0Config(consensusVersion string) *config.Block0Config {
	cfg := &config.Block0Config{
		Block0Date:          time.Unix(1700000000, 0).UTC(),
		SlotDuration:        2 * time.Second,
		SlotsPerEpoch:       100,
		EpochStabilityDepth: 10,
		KESUpdateSpeed:      time.Hour,
		ActiveSlotCoeff:     0.05,
		BlockContentMaxSize: 256 * 1024,
		ConsensusVersion:    consensusVersion,
	}
	switch consensusVersion {
	case "bft":
		cfg.BFTLeaders = []hash.Hash{hash.Sum256([]byte("leader-one"))}
	case "genesis_praos":
		cfg.InitialStake = []config.InitialStakePool{
			{PoolID: hash.Sum256([]byte("pool-one")), Stake: 1_000_000},
		}
	}
	return cfg
}

func TestBuildBlock0BFT(t *testing.T) {
	block0, state := buildBlock0(testBlock0Config("bft"))

	if block0.Header.ChainLength != 0 {
		t.Fatalf("ChainLength = %d, want 0", block0.Header.ChainLength)
	}
	if !block0.Header.ParentHash.IsZero() {
		t.Fatalf("ParentHash = %v, want zero", block0.Header.ParentHash)
	}
	if block0.Header.Evidence.Kind != wire.EvidenceUnsigned {
		t.Fatalf("Evidence.Kind = %v, want EvidenceUnsigned", block0.Header.Evidence.Kind)
	}
	if got, want := block0.Header.ContentHash, block0.ComputeContentHash(); got != want {
		t.Fatalf("ContentHash mismatch, header = %s", spew.Sdump(block0.Header))
	}
	if state.Settings().Consensus != ledger.ConsensusBFT {
		t.Fatalf("state consensus = %v, want ConsensusBFT", state.Settings().Consensus)
	}
}

func TestBuildBlock0GenesisPraos(t *testing.T) {
	cfg := testBlock0Config("genesis_praos")
	block0, state := buildBlock0(cfg)

	if block0.Header.ChainLength != 0 {
		t.Fatalf("ChainLength = %d, want 0", block0.Header.ChainLength)
	}
	if state.Settings().Consensus != ledger.ConsensusGenesisPraos {
		t.Fatalf("state consensus = %v, want ConsensusGenesisPraos", state.Settings().Consensus)
	}

	poolID := cfg.InitialStake[0].PoolID
	dist := cfg.StakeDistribution()
	if dist[poolID] != cfg.InitialStake[0].Stake {
		t.Fatalf("stake distribution for %v = %d, want %d", poolID, dist[poolID], cfg.InitialStake[0].Stake)
	}
}
