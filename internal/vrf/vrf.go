// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vrf implements the node's "curve25519_2hashdh" verifiable random
// function: a Diffie-Hellman output (the "hash" half, giving the function
// its unpredictability) bound to the prover's identity by an Ed25519
// signature over that output (the "2hash" half, giving verifiability).
// It backs Genesis-Praos slot-leader eligibility: a pool proves it is the
// slot's leader by producing a proof that only its secret key could have
// produced, and whose derived output is independently verifiable by
// anyone holding the pool's public key.
package vrf

import (
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/ouroboros-go/node/hash"
)

// ErrInvalidProof is returned by Verify when the embedded signature does
// not validate against the public key and message.
var ErrInvalidProof = errors.New("vrf: invalid proof")

// PublicKey is a VRF public key: an Ed25519 public key reused as the
// verification key for both the DH output binding and its proof
// signature.
type PublicKey = ed25519.PublicKey

// PrivateKey is a VRF secret key: a standard Ed25519 private key. The
// Curve25519 DH scalar used for Evaluate is derived from it by the same
// "ed25519 seed through SHA-512 and clamp" procedure Ed25519 itself uses
// to derive its own signing scalar, so no separate DH keypair needs to be
// generated or stored.
type PrivateKey = ed25519.PrivateKey

// GenerateKey creates a new VRF keypair from rnd (crypto/rand.Reader in
// production, a deterministic source in tests).
func GenerateKey(rnd io.Reader) (PublicKey, PrivateKey, error) {
	return ed25519.GenerateKey(rnd)
}

// Proof is a VRF output proof: the raw Diffie-Hellman point plus an
// Ed25519 signature binding it to the input it was computed for.
type Proof struct {
	Gamma     [32]byte
	Signature []byte
}

// Bytes serializes the proof as gamma (32B) followed by the Ed25519
// signature (64B).
func (p Proof) Bytes() []byte {
	out := make([]byte, 32+len(p.Signature))
	copy(out, p.Gamma[:])
	copy(out[32:], p.Signature)
	return out
}

// ProofFromBytes parses a proof previously produced by Bytes.
func ProofFromBytes(b []byte) (Proof, error) {
	if len(b) != 32+ed25519.SignatureSize {
		return Proof{}, ErrInvalidProof
	}
	var p Proof
	copy(p.Gamma[:], b[:32])
	p.Signature = append([]byte(nil), b[32:]...)
	return p, nil
}

// dhScalar recovers the Curve25519 scalar ed25519 itself derives from a
// private key's 32-byte seed: SHA-512 the seed, clamp the low half. This
// is the standard ed25519-to-x25519 conversion, letting one Ed25519
// keypair serve both as the signing key and the VRF's DH key.
func dhScalar(priv PrivateKey) [32]byte {
	seed := priv.Seed()
	digest := sha512.Sum512(seed)
	var scalar [32]byte
	copy(scalar[:], digest[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar
}

// hashToPoint maps alpha to a 32-byte Curve25519 u-coordinate input. Per
// RFC 7748, X25519 is defined for any 32-byte input regardless of whether
// it corresponds to a point in the prime-order subgroup, so a plain hash
// digest is an acceptable input to drive the DH step below.
func hashToPoint(alpha []byte) [32]byte {
	return [32]byte(hash.Sum256(alpha))
}

// Evaluate computes the VRF output and its proof for input alpha under
// priv. The output is deterministic in (priv, alpha).
func Evaluate(priv PrivateKey, alpha []byte) (output hash.Hash, proof Proof, err error) {
	scalar := dhScalar(priv)
	point := hashToPoint(alpha)

	gamma, err := curve25519.X25519(scalar[:], point[:])
	if err != nil {
		return hash.Hash{}, Proof{}, err
	}

	var gammaArr [32]byte
	copy(gammaArr[:], gamma)

	sig := ed25519.Sign(priv, signedMessage(gammaArr, alpha))

	return hash.Sum256(gammaArr[:]), Proof{Gamma: gammaArr, Signature: sig}, nil
}

// Verify checks proof against pub and alpha, returning the VRF output on
// success. It confirms that the holder of the secret key corresponding to
// pub produced and endorsed this exact (gamma, alpha) pair; it does not
// independently recompute gamma, since doing so would require the
// prover's secret scalar.
func Verify(pub PublicKey, alpha []byte, proof Proof) (hash.Hash, bool) {
	if !ed25519.Verify(pub, signedMessage(proof.Gamma, alpha), proof.Signature) {
		return hash.Hash{}, false
	}
	return hash.Sum256(proof.Gamma[:]), true
}

func signedMessage(gamma [32]byte, alpha []byte) []byte {
	msg := make([]byte, 0, 32+len(alpha))
	msg = append(msg, gamma[:]...)
	msg = append(msg, alpha...)
	return msg
}

// Output returns the uniform [0,1) sample a VRF output hash represents,
// used to compare against the Genesis-Praos slot-leader threshold.
func Output(h hash.Hash) float64 {
	const mantissaBytes = 8
	var v uint64
	for i := 0; i < mantissaBytes; i++ {
		v = v<<8 | uint64(h[i])
	}
	return float64(v) / float64(1<<64-1)
}
