// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/ouroboros-go/node/internal/config"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

// buildBlock0 constructs the genesis block and its initial ledger state
// from a parsed Block0Config. block0 always carries EvidenceUnsigned and
// an all-zero ParentHash, the same way a PoW chain's genesis block
// carries no proof-of-work: nothing precedes it to validate against.
func buildBlock0(cfg *config.Block0Config) (*wire.Block, *ledger.MemState) {
	settings := cfg.Settings()

	var stake ledger.StakeDistribution
	if settings.Consensus == ledger.ConsensusGenesisPraos {
		stake = cfg.StakeDistribution()
	}

	genesisState := ledger.NewMemState(settings, stake, cfg.BFTLeaders)

	block0 := &wire.Block{
		Header: wire.Header{
			ChainLength: 0,
			Date:        wire.BlockDate{Epoch: 0, Slot: 0},
			Evidence:    wire.LeaderEvidence{Kind: wire.EvidenceUnsigned},
		},
	}
	block0.Header.ContentHash = block0.ComputeContentHash()

	return block0, genesisState
}
