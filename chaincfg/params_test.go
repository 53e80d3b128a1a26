// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "testing"

func TestByNameResolvesKnownNetworks(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "devnet"} {
		p, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if p.Name != name {
			t.Fatalf("p.Name = %q, want %q", p.Name, name)
		}
	}
}

func TestByNameRejectsUnknownNetwork(t *testing.T) {
	if _, err := ByName("not-a-network"); err == nil {
		t.Fatal("ByName should reject an unknown network name")
	}
}

func TestMainNetAndTestNetMagicDiffer(t *testing.T) {
	if MainNetParams().Magic == TestNetParams().Magic {
		t.Fatal("mainnet and testnet must not share a handshake magic")
	}
}

func TestDevNetUsesBFTConsensus(t *testing.T) {
	p := DevNetParams()
	if p.Consensus != 0 {
		t.Fatalf("devnet Consensus = %v, want ConsensusBFT (0)", p.Consensus)
	}
}
