// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package enclave

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/vrf"
	"github.com/ouroboros-go/node/kes"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

func TestFinalizeBFTSignsHeader(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	leaderID := hash.Sum256(pub)

	e := New()
	e.LoadBFTIdentity(leaderID, priv)

	unsigned := &wire.Header{
		Date:        wire.BlockDate{Slot: 5},
		ChainLength: 1,
		Evidence:    wire.LeaderEvidence{Kind: wire.EvidenceBFT, BFTLeaderID: leaderID},
	}
	preimage := unsigned.UnsignedPreImage()

	signed, err := e.FinalizeBFT(unsigned)
	if err != nil {
		t.Fatalf("FinalizeBFT: %v", err)
	}
	if !ed25519.Verify(pub, preimage, signed.Evidence.BFTSignature[:]) {
		t.Fatal("FinalizeBFT produced a signature that does not verify")
	}
}

func TestFinalizeBFTRejectsMismatchedLeader(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	e := New()
	e.LoadBFTIdentity(hash.Sum256([]byte("me")), priv)

	unsigned := &wire.Header{
		Evidence: wire.LeaderEvidence{Kind: wire.EvidenceBFT, BFTLeaderID: hash.Sum256([]byte("someone-else"))},
	}
	if _, err := e.FinalizeBFT(unsigned); err == nil {
		t.Fatal("FinalizeBFT should reject a header whose leader ID isn't ours")
	}
}

func TestFinalizeGenesisPraosSignsHeader(t *testing.T) {
	var seed kes.Seed
	copy(seed[:], []byte("01234567890123456789012345678901"))
	kesSK, kesPK := kes.Keygen(2, seed)

	vrfPub, vrfPriv, err := vrf.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("vrf.GenerateKey: %v", err)
	}
	poolID := hash.Sum256([]byte("pool"))

	e := New()
	e.LoadPool(poolID, kesSK, vrfPriv, vrfPub)

	unsigned := &wire.Header{
		Date:        wire.BlockDate{Slot: 1},
		ChainLength: 1,
		Evidence:    wire.LeaderEvidence{Kind: wire.EvidenceGenesisPraos, PoolID: poolID, VRFProof: []byte{1, 2, 3}},
	}
	preimage := unsigned.UnsignedPreImage()

	signed, err := e.FinalizeGenesisPraos(unsigned)
	if err != nil {
		t.Fatalf("FinalizeGenesisPraos: %v", err)
	}
	if !kes.Verify(kesPK, preimage, signed.Evidence.KESSignature) {
		t.Fatal("FinalizeGenesisPraos produced a KES signature that does not verify")
	}
}

func TestScheduleReflectsLoadedBFTIdentity(t *testing.T) {
	leaderID := hash.Sum256([]byte("leader"))
	otherID := hash.Sum256([]byte("other"))

	st := ledger.NewMemState(ledger.Settings{Consensus: ledger.ConsensusBFT, SlotsPerEpoch: 4}, nil, []hash.Hash{leaderID, otherID})
	leadership, err := st.LeadershipScheduleForEpoch(0)
	if err != nil {
		t.Fatalf("LeadershipScheduleForEpoch: %v", err)
	}

	e := New()
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	e.LoadBFTIdentity(leaderID, priv)

	era := wire.Era{SlotsPerEpoch: 4}
	events := e.Schedule(leadership, era, 0, 4)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Output.LeaderID != leaderID {
			t.Fatalf("event leader = %v, want %v", ev.Output.LeaderID, leaderID)
		}
	}
}
