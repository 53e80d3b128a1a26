// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hash defines the 32-byte opaque digest type used throughout the
// node for block IDs, fragment IDs, seeds, and public keys.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Size is the number of bytes in a Hash.
const Size = 32

// Hash is a 32-byte opaque digest. The zero value is a valid, all-zero hash
// and is used as the parent hash of block0.
type Hash [Size]byte

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the little-endian display convention used elsewhere in
// this family of chains.
func (h Hash) String() string {
	hex := make([]byte, hex.EncodedLen(Size))
	encodeReversed(hex, h[:])
	return string(hex)
}

func encodeReversed(dst, src []byte) {
	var reversed [Size]byte
	for i, b := range src {
		reversed[Size-1-i] = b
	}
	hex.Encode(dst, reversed[:])
}

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// NewHash returns a new Hash from a byte slice. An error is returned if the
// slice is not exactly Size bytes.
func NewHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("hash: invalid length %d, expected %d", len(b), Size)
	}
	copy(h[:], b)
	return h, nil
}

// NewHashFromStr parses a hex-encoded, byte-reversed hash string, the
// inverse of Hash.String.
func NewHashFromStr(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != Size {
		return h, fmt.Errorf("hash: invalid hex length %d, expected %d", len(raw), Size)
	}
	for i, b := range raw {
		h[Size-1-i] = b
	}
	return h, nil
}

// MarshalYAML renders the hash the same way String does, so config files
// reference hashes in the same byte-reversed hex convention used in logs
// and RPC responses.
func (h Hash) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// UnmarshalYAML parses a hash from the hex string String produces.
func (h *Hash) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := NewHashFromStr(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Sum256 returns the SHA-256 digest of data as a Hash. This is the hash
// function used throughout the node for content hashing: block header
// hashes, fragment IDs, and the KES Merkle tree.
func Sum256(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// Sum256Concat hashes the concatenation of the given byte slices without an
// intermediate allocation, used by the KES Merkle-node function
// H(left_pk || right_pk).
func Sum256Concat(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
