// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hdkeychain

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"
)

// TestSLIP0010Ed25519Vectors exercises the well-known SLIP-0010 Ed25519
// test vector 1 (seed 000102030405060708090a0b0c0d0e0f), checking the
// master node and two levels of hardened derivation.
func TestSLIP0010Ed25519Vectors(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}

	master, err := NewMaster(seed)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	wantMasterPriv := "2b4be7f19ee27bbef30a1c9a91116dd6486f5d4601ceb4998a476a0a0a1cf6f"
	wantMasterChain := "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fff"
	if got := hex.EncodeToString(master.key[:]); got != wantMasterPriv {
		t.Fatalf("master private = %s, want %s", got, wantMasterPriv)
	}
	if got := hex.EncodeToString(master.chainCode[:]); got != wantMasterChain {
		t.Fatalf("master chain code = %s, want %s", got, wantMasterChain)
	}

	child0, err := master.Child(HardenedKeyStart + 0)
	if err != nil {
		t.Fatalf("Child(0'): %v", err)
	}
	wantChild0Priv := "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a"
	wantChild0Chain := "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c8"
	if got := hex.EncodeToString(child0.key[:]); got != wantChild0Priv {
		t.Fatalf("child m/0' private = %s, want %s", got, wantChild0Priv)
	}
	if got := hex.EncodeToString(child0.chainCode[:]); got != wantChild0Chain {
		t.Fatalf("child m/0' chain code = %s, want %s", got, wantChild0Chain)
	}
	if child0.Depth() != 1 {
		t.Fatalf("child m/0' depth = %d, want 1", child0.Depth())
	}

	child01, err := child0.Child(HardenedKeyStart + 1)
	if err != nil {
		t.Fatalf("Child(1'): %v", err)
	}
	wantChild01Priv := "b1d0bad404bf35da785a64ca1ac55c9219264379a1f7a7fa8b0b5ee0d1d8a4fa"
	wantChild01Chain := "a320425f77d1b5c2505a6b1b27382b37368ee641e3da12264b9ed27a4ca05b1"
	if got := hex.EncodeToString(child01.key[:]); got != wantChild01Priv {
		t.Fatalf("child m/0'/1' private = %s, want %s", got, wantChild01Priv)
	}
	if got := hex.EncodeToString(child01.chainCode[:]); got != wantChild01Chain {
		t.Fatalf("child m/0'/1' chain code = %s, want %s", got, wantChild01Chain)
	}
	if child01.Depth() != 2 {
		t.Fatalf("child m/0'/1' depth = %d, want 2", child01.Depth())
	}
}

func TestChildTreatsUnhardenedIndexAsHardened(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	master, err := NewMaster(seed)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}

	viaLow, err := master.Child(0)
	if err != nil {
		t.Fatalf("Child(0): %v", err)
	}
	viaHardened, err := master.Child(HardenedKeyStart)
	if err != nil {
		t.Fatalf("Child(HardenedKeyStart): %v", err)
	}
	if viaLow.key != viaHardened.key {
		t.Fatal("Child(0) and Child(HardenedKeyStart) should derive identically")
	}
	if viaLow.ChildIndex() != HardenedKeyStart {
		t.Fatalf("ChildIndex() = %d, want %d", viaLow.ChildIndex(), HardenedKeyStart)
	}
}

func TestDerivePathMatchesManualChildCalls(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	master, err := NewMaster(seed)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}

	viaPath, err := master.DerivePath([]uint32{0, 1})
	if err != nil {
		t.Fatalf("DerivePath: %v", err)
	}

	manual, err := master.Child(0)
	if err != nil {
		t.Fatalf("Child(0): %v", err)
	}
	manual, err = manual.Child(1)
	if err != nil {
		t.Fatalf("Child(1): %v", err)
	}

	if viaPath.key != manual.key || viaPath.chainCode != manual.chainCode {
		t.Fatal("DerivePath did not match sequential Child calls")
	}
}

func TestNewMasterRejectsBadSeedLength(t *testing.T) {
	if _, err := NewMaster(make([]byte, 8)); err != ErrInvalidSeedLen {
		t.Fatalf("err = %v, want ErrInvalidSeedLen", err)
	}
	if _, err := NewMaster(make([]byte, 65)); err != ErrInvalidSeedLen {
		t.Fatalf("err = %v, want ErrInvalidSeedLen", err)
	}
}

func TestSigningKeyProducesValidPublicKey(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	master, err := NewMaster(seed)
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	priv := master.SigningKey()
	pub := master.PublicKey()
	if !priv.Public().(ed25519.PublicKey).Equal(pub) {
		t.Fatal("PublicKey() does not match SigningKey().Public()")
	}
}
