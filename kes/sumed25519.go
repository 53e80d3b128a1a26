// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kes

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ouroboros-go/node/hash"
)

const (
	seedSize    = 32
	pkSize      = 32
	sigmaSize   = 64
	keypairSize = 64 // ed25519.PrivateKey: 32-byte seed || 32-byte public key
	periodSize  = 4
)

// Errors returned by this package. They correspond 1:1 to the error
// conditions enumerated in the KES component design.
var (
	ErrInvalidSecretKeySize   = errors.New("kes: invalid secret key size")
	ErrInvalidPublicKeySize   = errors.New("kes: invalid public key size")
	ErrInvalidSignatureSize   = errors.New("kes: invalid signature size")
	ErrKeyCannotBeUpdatedMore = errors.New("kes: key cannot be updated more")
	ErrSignatureVerification  = errors.New("kes: ed25519 signature verification failed")
)

// InvalidSignatureCountError is returned when a signature's period t is not
// addressable at the given depth (t >= 2^depth).
type InvalidSignatureCountError struct {
	T     uint32
	Depth Depth
}

func (e *InvalidSignatureCountError) Error() string {
	return fmt.Sprintf("kes: period %d is out of range for depth %d (max %d)", e.T, e.Depth, e.Depth.Total())
}

// Depth is the tree depth of a KES scheme; a depth-d scheme addresses
// 2^d periods.
type Depth uint

// MaxDepth bounds the tree depth this package will build or accept,
// chosen so that at the fastest configured KES update speed a depth-MaxDepth
// key outlives any plausible pool registration period. Wire code that must
// size a buffer before it knows the actual depth (varint-prefixed fields
// use this as their upper bound instead).
const MaxDepth Depth = 32

// Total returns 2^d, the number of periods addressable at this depth.
func (d Depth) Total() uint32 {
	return uint32(1) << uint(d)
}

// half returns 2^(d-1), used to decompose a period index bit by bit while
// descending the tree. Must not be called with d == 0.
func (d Depth) half() uint32 {
	return uint32(1) << uint(d-1)
}

// Seed is 32 bytes of key-generation entropy.
type Seed [seedSize]byte

// PublicKey is a KES scheme public key (the root of the Merkle tree) or an
// intermediate node/leaf public key in that tree.
type PublicKey [pkSize]byte

// SecretKey is the evolvable secret state of a depth-d KES scheme at its
// current period t: the t-th Ed25519 leaf keypair, the sibling public keys
// materialized along the root-to-leaf path, and the stack of seeds for
// not-yet-entered right subtrees.
type SecretKey struct {
	depth     Depth
	t         uint32
	keypair   ed25519.PrivateKey // len 64
	merklePKs [][2]PublicKey     // root-to-leaf order, len == depth
	seeds     []Seed             // LIFO stack; last element is the next to pop
}

// Depth returns the secret key's tree depth.
func (sk *SecretKey) Depth() Depth { return sk.depth }

// Period returns the secret key's current period t.
func (sk *SecretKey) Period() uint32 { return sk.t }

// Signature is a KES signature at a given period.
type Signature struct {
	t        uint32
	sigma    [sigmaSize]byte
	leafPK   PublicKey
	siblings []PublicKey // leaf-adjacent first, root-adjacent last; len == depth
}

// Period returns the period the signature was produced at.
func (s Signature) Period() uint32 { return s.t }

// Depth returns the tree depth the signature was produced under, recovered
// from the number of embedded sibling keys.
func (s Signature) Depth() Depth { return Depth(len(s.siblings)) }

// Size returns the wire-encoded size of a signature at the given depth:
// 4 + 64 + 32 + 32*depth.
func Size(depth Depth) int {
	return periodSize + sigmaSize + pkSize + pkSize*int(depth)
}

// DepthFromSignatureSize recovers the depth implied by an encoded
// signature's length, the inverse of Size. It rejects sizes that don't
// correspond to any integral depth.
func DepthFromSignatureSize(size int) (Depth, error) {
	const minSize = periodSize + sigmaSize + pkSize
	if size < minSize {
		return 0, ErrInvalidSignatureSize
	}
	rem := size - minSize
	if rem%pkSize != 0 {
		return 0, ErrInvalidSignatureSize
	}
	return Depth(rem / pkSize), nil
}

func hashPK(left, right PublicKey) PublicKey {
	return PublicKey(hash.Sum256Concat(left[:], right[:]))
}

// splitSeed derives two child seeds from a parent seed using a
// domain-separated PRF: two SHA-256 invocations over the seed prefixed with
// distinct one-byte labels.
func splitSeed(seed Seed) (r0, r1 Seed) {
	r0 = Seed(hash.Sum256(append([]byte{0x00}, seed[:]...)))
	r1 = Seed(hash.Sum256(append([]byte{0x01}, seed[:]...)))
	return r0, r1
}

func keygen1(seed Seed) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed[:])
}

func publicKeyOf(priv ed25519.PrivateKey) PublicKey {
	var pk PublicKey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return pk
}

// generateLeftmostSeeds walks the leftmost branch of a depth-d tree rooted
// at master, returning the leaf keypair at the bottom of that branch and the
// sequence of right-subtree seeds encountered top-to-bottom (rs[0] is the
// topmost split's right seed, rs[len-1] is the seed adjacent to the
// leftmost leaf).
func generateLeftmostSeeds(depth Depth, master Seed) (leaf ed25519.PrivateKey, rs []Seed) {
	r := master
	d := depth
	for {
		r0, r1 := splitSeed(r)
		rs = append(rs, r1)
		if d == 1 {
			return keygen1(r0), rs
		}
		r = r0
		d--
	}
}

// pkeygen derives the public key of a depth-d scheme from a master seed
// without materializing any secret state, by walking only the leftmost
// branches and hashing upward. pkeygen(d, s) == Keygen(d, s) public key.
func pkeygen(depth Depth, master Seed) PublicKey {
	if depth == 0 {
		return publicKeyOf(keygen1(master))
	}
	leaf, rs := generateLeftmostSeeds(depth, master)
	pkLeft := publicKeyOf(leaf)
	d := Depth(0)
	for i := len(rs) - 1; i >= 0; i-- {
		r := rs[i]
		var pkRight PublicKey
		if d == 0 {
			pkRight = publicKeyOf(keygen1(r))
		} else {
			pkRight = pkeygen(d, r)
		}
		d++
		pkLeft = hashPK(pkLeft, pkRight)
	}
	return pkLeft
}

// PublicKeyOf returns the scheme public key for a depth-d tree derived from
// master, without building the secret key. It is equivalent to, but cheaper
// than, Keygen(depth, master) followed by discarding the secret.
func PublicKeyOf(depth Depth, master Seed) PublicKey {
	return pkeygen(depth, master)
}

// Keygen derives the period-0 secret key and the scheme public key for a
// depth-d tree from a master seed.
func Keygen(depth Depth, master Seed) (*SecretKey, PublicKey) {
	if depth == 0 {
		kp := keygen1(master)
		return &SecretKey{depth: 0, t: 0, keypair: kp}, publicKeyOf(kp)
	}

	leaf, rs := generateLeftmostSeeds(depth, master)
	pkLeft := publicKeyOf(leaf)

	d := Depth(0)
	pairs := make([][2]PublicKey, 0, depth)
	for i := len(rs) - 1; i >= 0; i-- {
		r := rs[i]
		var pkRight PublicKey
		if d == 0 {
			pkRight = publicKeyOf(keygen1(r))
		} else {
			pkRight = pkeygen(d, r)
		}
		pairs = append(pairs, [2]PublicKey{pkLeft, pkRight})
		d++
		pkLeft = hashPK(pkLeft, pkRight)
	}
	// pairs was built bottom-to-top; store root-to-leaf.
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}

	sk := &SecretKey{
		depth:     depth,
		t:         0,
		keypair:   leaf,
		merklePKs: pairs,
		seeds:     rs,
	}
	return sk, pkLeft
}

// popSeed removes and returns the last seed on sk.seeds. It zeroes the
// backing array slot before truncating, not merely the copy it returns:
// a slice truncation alone leaves the consumed seed recoverable in the
// still-allocated backing array, which would defeat forward secrecy the
// moment that memory is inspected or reused.
func (sk *SecretKey) popSeed() (Seed, bool) {
	n := len(sk.seeds)
	if n == 0 {
		return Seed{}, false
	}
	s := sk.seeds[n-1]
	zeroSeed(&sk.seeds[n-1])
	sk.seeds = sk.seeds[:n-1]
	return s, true
}

// Update advances the secret key in place from period t to t+1. It returns
// ErrKeyCannotBeUpdatedMore once the key has been advanced past its final
// period (t == 2^depth - 1).
func Update(sk *SecretKey) error {
	diff := popcount32(sk.t ^ (sk.t + 1))

	seed, ok := sk.popSeed()
	if !ok {
		return ErrKeyCannotBeUpdatedMore
	}

	if diff == 1 {
		kp := keygen1(seed)
		zeroBytes(sk.keypair)
		sk.keypair = kp
		sk.t++
		zeroSeed(&seed)
		return nil
	}

	childDepth := Depth(diff - 1)
	childSK, _ := Keygen(childDepth, seed)

	sk.seeds = append(sk.seeds, childSK.seeds...)

	offset := int(sk.depth) - int(childDepth)
	for i := range childSK.merklePKs {
		sk.merklePKs[offset+i] = childSK.merklePKs[i]
	}
	zeroBytes(sk.keypair)
	sk.keypair = childSK.keypair
	sk.t++
	zeroSeed(&seed)
	return nil
}

func popcount32(x uint32) int {
	n := 0
	for x != 0 {
		n++
		x &= x - 1
	}
	return n
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroSeed(s *Seed) {
	for i := range s {
		s[i] = 0
	}
}

// Sign produces a KES signature over msg at the secret key's current
// period.
func Sign(sk *SecretKey, msg []byte) Signature {
	sigma := ed25519.Sign(sk.keypair, msg)

	companions := make([]PublicKey, len(sk.merklePKs))
	remaining := sk.t
	for i, pair := range sk.merklePKs {
		levelsLeft := sk.depth - Depth(i)
		threshold := levelsLeft.half()
		if remaining >= threshold {
			remaining -= threshold
			companions[i] = pair[0]
		} else {
			companions[i] = pair[1]
		}
	}
	// companions is currently root-to-leaf; the wire format wants
	// leaf-adjacent first, root-adjacent last.
	for i, j := 0, len(companions)-1; i < j; i, j = i+1, j-1 {
		companions[i], companions[j] = companions[j], companions[i]
	}

	var sigmaArr [sigmaSize]byte
	copy(sigmaArr[:], sigma)
	return Signature{
		t:        sk.t,
		sigma:    sigmaArr,
		leafPK:   publicKeyOf(sk.keypair),
		siblings: companions,
	}
}

// Verify reports whether sig is a valid signature over msg under the scheme
// public key pk.
func Verify(pk PublicKey, msg []byte, sig Signature) bool {
	if !ed25519.Verify(ed25519.PublicKey(sig.leafPK[:]), msg, sig.sigma[:]) {
		return false
	}

	got := sig.leafPK
	t := sig.t
	for i, companion := range sig.siblings {
		right := t&(uint32(1)<<uint(i)) != 0
		if right {
			got = hashPK(companion, got)
		} else {
			got = hashPK(got, companion)
		}
	}
	return got == pk
}

// Bytes serializes the signature as:
// t (4B LE) || sigma (64B) || leaf_public_key (32B) || d sibling public keys (32B each).
func (s Signature) Bytes() []byte {
	out := make([]byte, periodSize+sigmaSize+pkSize+pkSize*len(s.siblings))
	binary.LittleEndian.PutUint32(out[0:4], s.t)
	copy(out[4:4+sigmaSize], s.sigma[:])
	off := 4 + sigmaSize
	copy(out[off:off+pkSize], s.leafPK[:])
	off += pkSize
	for _, sib := range s.siblings {
		copy(out[off:off+pkSize], sib[:])
		off += pkSize
	}
	return out
}

// SignatureFromBytes parses a signature previously produced at the given
// depth. The accept condition is that the number of embedded sibling keys
// matches depth exactly (the inverse of the rejection condition would
// silently accept signatures produced at the wrong depth).
func SignatureFromBytes(depth Depth, b []byte) (Signature, error) {
	const minSize = periodSize + sigmaSize + pkSize
	if len(b) < minSize {
		return Signature{}, ErrInvalidSignatureSize
	}
	rem := len(b) - minSize
	if rem%pkSize != 0 {
		return Signature{}, ErrInvalidSignatureSize
	}
	foundDepth := Depth(rem / pkSize)
	if foundDepth != depth {
		return Signature{}, ErrInvalidSignatureSize
	}

	t := binary.LittleEndian.Uint32(b[0:4])
	if t >= depth.Total() {
		return Signature{}, &InvalidSignatureCountError{T: t, Depth: depth}
	}

	var sigma [sigmaSize]byte
	copy(sigma[:], b[4:4+sigmaSize])
	off := 4 + sigmaSize
	var leafPK PublicKey
	copy(leafPK[:], b[off:off+pkSize])
	off += pkSize

	siblings := make([]PublicKey, depth)
	for i := range siblings {
		copy(siblings[i][:], b[off:off+pkSize])
		off += pkSize
	}

	return Signature{t: t, sigma: sigma, leafPK: leafPK, siblings: siblings}, nil
}
