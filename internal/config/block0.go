// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads the node's two YAML documents: the Block0 genesis
// configuration (chain-wide settings plus the initial stake
// distribution) and the node's own runtime configuration (storage path,
// listen address, peer list, logging).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/ledger"
)

// FeesGoTo canonicalizes the YAML schema's FeesInTreasury boolean (which
// can be spelled as a bool or as one of a couple of historical string
// variants) into a single, unambiguous destination.
type FeesGoTo int

const (
	FeesGoToRewards FeesGoTo = iota
	FeesGoToTreasury
)

// UnmarshalYAML accepts a YAML bool (true => treasury, false => rewards,
// matching the Block0 schema's literal FeesInTreasury field) or one of
// the strings "rewards"/"treasury", normalizing either spelling to the
// same enum value.
func (f *FeesGoTo) UnmarshalYAML(value *yaml.Node) error {
	var asBool bool
	if err := value.Decode(&asBool); err == nil {
		if asBool {
			*f = FeesGoToTreasury
		} else {
			*f = FeesGoToRewards
		}
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("config: FeesInTreasury must be a bool or string: %w", err)
	}
	switch asString {
	case "treasury":
		*f = FeesGoToTreasury
	case "rewards":
		*f = FeesGoToRewards
	default:
		return fmt.Errorf("config: FeesInTreasury: unrecognized value %q", asString)
	}
	return nil
}

// InitialStakePool is one stake pool's bootstrap allocation.
type InitialStakePool struct {
	PoolID hash.Hash `yaml:"pool_id"`
	Stake  uint64    `yaml:"stake"`
}

// Block0Config is the YAML document describing a network's genesis
// parameters, loaded once at node startup and also by `generate-priv-key`
// and block0-construction tooling.
type Block0Config struct {
	Block0Date    time.Time `yaml:"block0_date"`
	Discrimination string   `yaml:"discrimination"`

	SlotDuration        time.Duration `yaml:"slot_duration"`
	SlotsPerEpoch       uint32        `yaml:"slots_per_epoch"`
	EpochStabilityDepth uint32        `yaml:"epoch_stability_depth"`
	KESUpdateSpeed      time.Duration `yaml:"kes_update_speed"`
	ActiveSlotCoeff     float64       `yaml:"consensus_genesis_praos_active_slot_coeff"`
	BlockContentMaxSize uint32        `yaml:"block_content_max_size"`

	ConsensusVersion string `yaml:"consensus_version"` // "bft" or "genesis_praos"

	LinearFees struct {
		Constant    uint64 `yaml:"constant"`
		Coefficient uint64 `yaml:"coefficient"`
		Certificate uint64 `yaml:"certificate"`
	} `yaml:"linear_fees"`
	FeesInTreasury FeesGoTo `yaml:"fees_in_treasury"`

	BFTLeaders    []hash.Hash        `yaml:"bft_leaders"`
	InitialStake  []InitialStakePool `yaml:"initial_stake_pools"`
}

// LoadBlock0Config reads and parses a Block0Config from path.
func LoadBlock0Config(path string) (*Block0Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading block0 config: %w", err)
	}
	var cfg Block0Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing block0 config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Block0Config) validate() error {
	if c.SlotsPerEpoch == 0 {
		return fmt.Errorf("config: slots_per_epoch must be nonzero")
	}
	if c.SlotDuration <= 0 {
		return fmt.Errorf("config: slot_duration must be positive")
	}
	switch c.ConsensusVersion {
	case "bft":
		if len(c.BFTLeaders) == 0 {
			return fmt.Errorf("config: consensus_version bft requires at least one bft_leaders entry")
		}
	case "genesis_praos":
		if len(c.InitialStake) == 0 {
			return fmt.Errorf("config: consensus_version genesis_praos requires at least one initial_stake_pools entry")
		}
	default:
		return fmt.Errorf("config: unrecognized consensus_version %q", c.ConsensusVersion)
	}
	return nil
}

// Consensus returns the parsed consensus mode.
func (c *Block0Config) Consensus() ledger.ConsensusVersion {
	if c.ConsensusVersion == "bft" {
		return ledger.ConsensusBFT
	}
	return ledger.ConsensusGenesisPraos
}

// Settings converts this config into the ledger.Settings a genesis state
// is constructed with.
func (c *Block0Config) Settings() ledger.Settings {
	return ledger.Settings{
		Consensus: c.Consensus(),
		Fees: ledger.LinearFees{
			Constant:    c.LinearFees.Constant,
			Coefficient: c.LinearFees.Coefficient,
			Certificate: c.LinearFees.Certificate,
		},
		SlotsPerEpoch:       c.SlotsPerEpoch,
		SlotDuration:        c.SlotDuration,
		KESUpdateSpeed:      c.KESUpdateSpeed,
		EpochStabilityDepth: c.EpochStabilityDepth,
		BlockContentMaxSize: c.BlockContentMaxSize,
		ActiveSlotCoeff:     c.ActiveSlotCoeff,
	}
}

// StakeDistribution converts the configured initial stake pools into a
// ledger.StakeDistribution.
func (c *Block0Config) StakeDistribution() ledger.StakeDistribution {
	dist := make(ledger.StakeDistribution, len(c.InitialStake))
	for _, pool := range c.InitialStake {
		dist[pool.PoolID] = pool.Stake
	}
	return dist
}
