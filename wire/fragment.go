// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/ouroboros-go/node/hash"
)

// FragmentKind tags the ledger transition a Fragment represents.
type FragmentKind uint8

// The fragment kinds named by the ledger's data model. The ledger itself
// treats every fragment as an opaque payload after admission; these tags
// exist so the fragment pool, block builder, and wire codec can route and
// size fragments without understanding their contents.
const (
	FragmentTransfer FragmentKind = iota
	FragmentStakeDelegationFull
	FragmentStakeDelegationRatio
	FragmentStakeDelegationOwnerSelf
	FragmentPoolRegistration
	FragmentPoolUpdate
	FragmentPoolRetirement
	FragmentVotePlan
	FragmentVoteCastPublic
	FragmentVoteCastPrivate
	FragmentVoteTallyPublic
	FragmentVoteTallyPrivate
	FragmentUpdateProposal
	FragmentUpdateVote
	FragmentMintToken
)

func (k FragmentKind) String() string {
	names := [...]string{
		"Transfer", "StakeDelegationFull", "StakeDelegationRatio",
		"StakeDelegationOwnerSelf", "PoolRegistration", "PoolUpdate",
		"PoolRetirement", "VotePlan", "VoteCastPublic", "VoteCastPrivate",
		"VoteTallyPublic", "VoteTallyPrivate", "UpdateProposal",
		"UpdateVote", "MintToken",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// FragmentID is the 32-byte hash of a fragment's canonical serialization.
type FragmentID = hash.Hash

// Fragment is a single ledger transition carried inside a block's contents.
// Payload is the fragment's canonical, kind-specific serialization; the
// ledger applier is the only component that interprets it.
type Fragment struct {
	Kind    FragmentKind
	Payload []byte

	// ValidUntil is the block date after which the ledger must reject this
	// fragment as expired, used by vote casts and ordinary transfers that
	// carry an expiry (see "Fragment TTL" in the testable properties).
	ValidUntil BlockDate
}

// ID returns the fragment's content-addressed identifier.
func (f *Fragment) ID() FragmentID {
	return hash.Sum256(f.canonicalBytes())
}

func (f *Fragment) canonicalBytes() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(f.Kind))
	_ = writeUint32(&buf, f.ValidUntil.Epoch)
	_ = writeUint32(&buf, f.ValidUntil.Slot)
	buf.Write(f.Payload)
	return buf.Bytes()
}

// EncodedLen returns the exact number of bytes Encode would write, without
// performing the write: 1 kind byte, 8 bytes of ValidUntil, a 4-byte
// length prefix, and the payload itself.
func (f *Fragment) EncodedLen() int {
	return 1 + 4 + 4 + 4 + len(f.Payload)
}

// Encode writes the fragment's wire representation to w.
func (f *Fragment) Encode(w io.Writer) error {
	if _, err := w.Write([]byte{byte(f.Kind)}); err != nil {
		return err
	}
	if err := f.ValidUntil.encodeTo(w); err != nil {
		return err
	}
	return writeVarBytes(w, MaxFragmentPayloadSize, f.Payload)
}

// DecodeFragment reads a fragment previously written by Encode.
func DecodeFragment(r io.Reader) (*Fragment, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return nil, err
	}
	date, err := decodeBlockDate(r)
	if err != nil {
		return nil, err
	}
	payload, err := readVarBytes(r, MaxFragmentPayloadSize)
	if err != nil {
		return nil, err
	}
	return &Fragment{Kind: FragmentKind(kindBuf[0]), Payload: payload, ValidUntil: date}, nil
}

func (d BlockDate) encodeTo(w io.Writer) error {
	if err := writeUint32(w, d.Epoch); err != nil {
		return err
	}
	return writeUint32(w, d.Slot)
}

func decodeBlockDate(r io.Reader) (BlockDate, error) {
	epoch, err := readUint32(r)
	if err != nil {
		return BlockDate{}, err
	}
	slot, err := readUint32(r)
	if err != nil {
		return BlockDate{}, err
	}
	return BlockDate{Epoch: epoch, Slot: slot}, nil
}
