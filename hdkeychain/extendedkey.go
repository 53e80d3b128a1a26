// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hdkeychain implements hierarchical deterministic key derivation
// for Ed25519 keys, following SLIP-0010's Ed25519 scheme. It plays the
// role the teacher's original hdkeychain package plays for secp256k1
// extended keys, adapted to this ledger's Ed25519 signature keys (the
// `ed25519bip32` key type in the node's `generate-priv-key` command).
//
// Ed25519 has no public-key point addition, so unlike secp256k1 BIP32,
// SLIP-0010's Ed25519 variant supports only hardened child derivation:
// every ExtendedKey here is a private extended key, and there is no
// Neuter-to-public-only operation.
package hdkeychain

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"
)

// HardenedKeyStart is the index of the first hardened child key, matching
// BIP32/SLIP-0010 convention. Because Ed25519 derivation supports only
// hardened children, every index Child accepts is implicitly treated as
// hardened (offset by HardenedKeyStart if not already in that range).
const HardenedKeyStart = uint32(1 << 31)

// seedModifier is the SLIP-0010 HMAC key used to derive the Ed25519
// master node from a seed.
var seedModifier = []byte("ed25519 seed")

// ErrDerivingHardenedFromPublic is returned by Child if called on a key
// with no private component, which cannot happen for this package's
// ExtendedKey (there is no Ed25519 SLIP-0010 public derivation) but is
// kept as a sentinel for API symmetry with the wider hdkeychain family.
var ErrDerivingHardenedFromPublic = errors.New("hdkeychain: cannot derive a hardened child from a public-only key")

// ErrInvalidSeedLen is returned by NewMaster when the seed is not within
// SLIP-0010's recommended length range.
var ErrInvalidSeedLen = errors.New("hdkeychain: seed length must be between 16 and 64 bytes")

// ExtendedKey is a single node in an Ed25519 SLIP-0010 hierarchy: a
// 32-byte private key seed plus the chain code needed to derive its
// children, together with bookkeeping (depth, child index, parent
// fingerprint) mirroring the teacher's original extended key layout.
type ExtendedKey struct {
	key       [32]byte // the Ed25519 seed at this node, not a full private key
	chainCode [32]byte
	depth     uint8
	childNum  uint32
	parentFP  uint32
	isPrivate bool
}

// NewMaster creates the master extended key for seed, per SLIP-0010's
// Ed25519 master key generation (HMAC-SHA512 with key "ed25519 seed").
func NewMaster(seed []byte) (*ExtendedKey, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeedLen
	}

	mac := hmac.New(sha512.New, seedModifier)
	mac.Write(seed)
	I := mac.Sum(nil)

	key := &ExtendedKey{isPrivate: true}
	copy(key.key[:], I[:32])
	copy(key.chainCode[:], I[32:])
	return key, nil
}

// Depth returns the number of derivation steps between this key and the
// master key.
func (k *ExtendedKey) Depth() uint8 { return k.depth }

// ChildIndex returns the index this key was derived with, relative to its
// parent.
func (k *ExtendedKey) ChildIndex() uint32 { return k.childNum }

// ParentFingerprint returns the first 4 bytes of this key's parent's
// identifier, or 0 for the master key.
func (k *ExtendedKey) ParentFingerprint() uint32 { return k.parentFP }

// Child derives the index'th child of k. Per SLIP-0010's Ed25519 scheme,
// every child is hardened regardless of whether index is already at or
// above HardenedKeyStart.
func (k *ExtendedKey) Child(index uint32) (*ExtendedKey, error) {
	hardenedIndex := index
	if hardenedIndex < HardenedKeyStart {
		hardenedIndex += HardenedKeyStart
	}

	// data = 0x00 || ser256(k_par) || ser32(i), per SLIP-0010 hardened
	// derivation (the only kind this scheme defines).
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, k.key[:]...)
	data = append(data, byte(hardenedIndex>>24), byte(hardenedIndex>>16), byte(hardenedIndex>>8), byte(hardenedIndex))

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data)
	I := mac.Sum(nil)

	child := &ExtendedKey{
		isPrivate: true,
		depth:     k.depth + 1,
		childNum:  hardenedIndex,
		parentFP:  k.fingerprint(),
	}
	copy(child.key[:], I[:32])
	copy(child.chainCode[:], I[32:])
	return child, nil
}

// DerivePath walks successive Child derivations for each element of path,
// in order, starting from k.
func (k *ExtendedKey) DerivePath(path []uint32) (*ExtendedKey, error) {
	cur := k
	for i, index := range path {
		next, err := cur.Child(index)
		if err != nil {
			return nil, fmt.Errorf("hdkeychain: deriving path element %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// SigningKey returns the Ed25519 private key this node represents.
func (k *ExtendedKey) SigningKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.key[:])
}

// PublicKey returns the Ed25519 public key this node represents.
func (k *ExtendedKey) PublicKey() ed25519.PublicKey {
	return k.SigningKey().Public().(ed25519.PublicKey)
}

// fingerprint is the first 4 bytes of this key's identifier, used as the
// parent fingerprint of its children.
func (k *ExtendedKey) fingerprint() uint32 {
	pub := k.PublicKey()
	sum := sha512.Sum512_256(pub)
	return uint32(sum[0])<<24 | uint32(sum[1])<<16 | uint32(sum[2])<<8 | uint32(sum[3])
}
