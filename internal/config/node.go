// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mailbox depths for the node's internal channels, per the concurrency
// model's buffered-channel sizing.
const (
	DefaultBlockMailboxDepth      = 32
	DefaultFragmentMailboxDepth   = 1024
	DefaultNetworkMailboxDepth    = 64
	DefaultClientMailboxDepth     = 32
	DefaultTopologyMailboxDepth   = 32
	DefaultWatchMailboxDepth      = 32
	DefaultPeerSubscriptionDepth  = 8
)

// StorageConfig configures the on-disk leveldb block store.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// P2PConfig configures the node's listener and initial peer set.
type P2PConfig struct {
	ListenAddr   string   `yaml:"listen_addr"`
	PublicAddr   string   `yaml:"public_addr"`
	TrustedPeers []string `yaml:"trusted_peers"`
	MaxInbound   int      `yaml:"max_inbound"`
	MaxOutbound  int      `yaml:"max_outbound"`
	Proxy        string   `yaml:"proxy"` // optional SOCKS5/Tor proxy address

	// MaxBootstrapAttempts bounds how many times RunBootstrapLoop retries
	// initial block download against the trusted peer before giving up.
	// Zero means unbounded, for operators who would rather the node sit
	// and wait out a flaky bootstrap peer than fail startup outright.
	MaxBootstrapAttempts int `yaml:"max_bootstrap_attempts"`
}

// PersistentLogConfig names the directory the fragment pool's optional
// rotating admission log is written under. Its presence, not any field
// within it, is what turns the feature on.
type PersistentLogConfig struct {
	Dir string `yaml:"dir"`
}

// MempoolConfig configures the node's fragment pool (mempool): how many
// pending and resolved entries it retains, and whether admissions are
// also appended to a persistent rotating log.
type MempoolConfig struct {
	PoolMaxEntries int                  `yaml:"pool_max_entries"`
	LogMaxEntries  int                  `yaml:"log_max_entries"`
	PersistentLog  *PersistentLogConfig `yaml:"persistent_log"`
}

// RPCConfig configures the JSON-RPC/websocket server.
type RPCConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig configures the logging backend.
type LoggingConfig struct {
	File       string `yaml:"file"`
	DebugLevel string `yaml:"debug_level"` // e.g. "info" or "LEAD=debug,info"
}

// NodeConfig is the YAML document describing this node's own runtime
// configuration, as distinct from the network-wide Block0Config.
type NodeConfig struct {
	Block0Path string `yaml:"block0_path"`
	IdentityKeyPath string `yaml:"identity_key_path"`

	Storage StorageConfig `yaml:"storage"`
	P2P     P2PConfig     `yaml:"p2p"`
	RPC     RPCConfig     `yaml:"rpc"`
	Logging LoggingConfig `yaml:"logging"`
	Mempool MempoolConfig `yaml:"mempool"`

	Leadership struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"leadership"`
}

// LoadNodeConfig reads and parses a NodeConfig from path, filling in the
// mailbox-depth and storage defaults the YAML schema leaves optional.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading node config: %w", err)
	}
	cfg := defaultNodeConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing node config: %w", err)
	}
	if cfg.Block0Path == "" {
		return nil, fmt.Errorf("config: block0_path is required")
	}
	if cfg.Storage.Dir == "" {
		return nil, fmt.Errorf("config: storage.dir is required")
	}
	return &cfg, nil
}

func defaultNodeConfig() NodeConfig {
	return NodeConfig{
		IdentityKeyPath: "identity.key",
		P2P: P2PConfig{
			ListenAddr:  "0.0.0.0:24201",
			MaxInbound:  64,
			MaxOutbound: 16,
		},
		RPC: RPCConfig{
			ListenAddr: "127.0.0.1:24200",
		},
		Logging: LoggingConfig{
			File:       "logs/node.log",
			DebugLevel: "info",
		},
		Mempool: MempoolConfig{
			PoolMaxEntries: 4096,
			LogMaxEntries:  1024,
		},
	}
}
