// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleBlock0 = `
block0_date: 2026-01-01T00:00:00Z
discrimination: production
slot_duration: 2s
slots_per_epoch: 100
epoch_stability_depth: 10
kes_update_speed: 1h
consensus_genesis_praos_active_slot_coeff: 0.05
block_content_max_size: 262144
consensus_version: genesis_praos
linear_fees:
  constant: 200000
  coefficient: 100
  certificate: 400000
fees_in_treasury: true
initial_stake_pools:
  - pool_id: "0000000000000000000000000000000000000000000000000000000000000001"
    stake: 1000000
`

func TestLoadBlock0ConfigParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block0.yaml")
	if err := os.WriteFile(path, []byte(sampleBlock0), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadBlock0Config(path)
	if err != nil {
		t.Fatalf("LoadBlock0Config: %v", err)
	}
	if cfg.SlotsPerEpoch != 100 {
		t.Fatalf("SlotsPerEpoch = %d, want 100", cfg.SlotsPerEpoch)
	}
	if cfg.FeesInTreasury != FeesGoToTreasury {
		t.Fatalf("FeesInTreasury = %v, want FeesGoToTreasury", cfg.FeesInTreasury)
	}
	if len(cfg.InitialStake) != 1 {
		t.Fatalf("InitialStake = %d entries, want 1", len(cfg.InitialStake))
	}
	dist := cfg.StakeDistribution()
	if len(dist) != 1 {
		t.Fatalf("StakeDistribution() = %d entries, want 1", len(dist))
	}
}

func TestLoadBlock0ConfigRejectsMissingLeadersForBFT(t *testing.T) {
	bad := `
slot_duration: 2s
slots_per_epoch: 10
consensus_version: bft
`
	path := filepath.Join(t.TempDir(), "block0.yaml")
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadBlock0Config(path); err == nil {
		t.Fatal("expected validation error for bft config with no bft_leaders")
	}
}

func TestFeesGoToAcceptsStringSpelling(t *testing.T) {
	doc := `
slot_duration: 2s
slots_per_epoch: 10
consensus_version: bft
bft_leaders:
  - "0000000000000000000000000000000000000000000000000000000000000001"
fees_in_treasury: "rewards"
`
	path := filepath.Join(t.TempDir(), "block0.yaml")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadBlock0Config(path)
	if err != nil {
		t.Fatalf("LoadBlock0Config: %v", err)
	}
	if cfg.FeesInTreasury != FeesGoToRewards {
		t.Fatalf("FeesInTreasury = %v, want FeesGoToRewards", cfg.FeesInTreasury)
	}
}

func TestLoadNodeConfigAppliesDefaults(t *testing.T) {
	doc := `
block0_path: block0.yaml
storage:
  dir: /var/lib/node
`
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadNodeConfig(path)
	if err != nil {
		t.Fatalf("LoadNodeConfig: %v", err)
	}
	if cfg.P2P.ListenAddr == "" {
		t.Fatal("expected a default P2P listen address")
	}
	if cfg.RPC.ListenAddr == "" {
		t.Fatal("expected a default RPC listen address")
	}
}

func TestLoadNodeConfigRequiresBlock0Path(t *testing.T) {
	doc := `
storage:
  dir: /var/lib/node
`
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadNodeConfig(path); err == nil {
		t.Fatal("expected an error when block0_path is missing")
	}
}
