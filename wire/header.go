// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/kes"
)

// LeaderEvidenceKind tags which of the three consensus modes produced a
// header: unsigned (block0/genesis), BFT round-robin, or Genesis-Praos.
type LeaderEvidenceKind uint8

const (
	EvidenceUnsigned LeaderEvidenceKind = iota
	EvidenceBFT
	EvidenceGenesisPraos
)

// LeaderEvidence carries the leader-specific proof attached to a header.
// Exactly the fields relevant to Kind are populated; the rest are zero.
type LeaderEvidence struct {
	Kind LeaderEvidenceKind

	// EvidenceBFT
	BFTLeaderID  hash.Hash
	BFTSignature [ed25519.SignatureSize]byte

	// EvidenceGenesisPraos
	PoolID       hash.Hash
	VRFProof     []byte
	KESSignature kes.Signature
}

func (e LeaderEvidence) encode(w io.Writer) error {
	if _, err := w.Write([]byte{byte(e.Kind)}); err != nil {
		return err
	}
	switch e.Kind {
	case EvidenceUnsigned:
		return nil
	case EvidenceBFT:
		if err := writeHash(w, e.BFTLeaderID); err != nil {
			return err
		}
		_, err := w.Write(e.BFTSignature[:])
		return err
	case EvidenceGenesisPraos:
		if err := writeHash(w, e.PoolID); err != nil {
			return err
		}
		if err := writeVarBytes(w, 256, e.VRFProof); err != nil {
			return err
		}
		return writeVarBytes(w, kes.Size(kes.MaxDepth), e.KESSignature.Bytes())
	default:
		return messageError("LeaderEvidence.encode", "unknown evidence kind")
	}
}

func decodeLeaderEvidence(r io.Reader) (LeaderEvidence, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return LeaderEvidence{}, err
	}
	e := LeaderEvidence{Kind: LeaderEvidenceKind(kindBuf[0])}
	switch e.Kind {
	case EvidenceUnsigned:
		return e, nil
	case EvidenceBFT:
		leaderID, err := readHash(r)
		if err != nil {
			return LeaderEvidence{}, err
		}
		e.BFTLeaderID = leaderID
		if _, err := io.ReadFull(r, e.BFTSignature[:]); err != nil {
			return LeaderEvidence{}, err
		}
		return e, nil
	case EvidenceGenesisPraos:
		poolID, err := readHash(r)
		if err != nil {
			return LeaderEvidence{}, err
		}
		e.PoolID = poolID
		proof, err := readVarBytes(r, 256)
		if err != nil {
			return LeaderEvidence{}, err
		}
		e.VRFProof = proof
		sigBytes, err := readVarBytes(r, kes.Size(kes.MaxDepth))
		if err != nil {
			return LeaderEvidence{}, err
		}
		depth, err := kes.DepthFromSignatureSize(len(sigBytes))
		if err != nil {
			return LeaderEvidence{}, err
		}
		sig, err := kes.SignatureFromBytes(depth, sigBytes)
		if err != nil {
			return LeaderEvidence{}, err
		}
		e.KESSignature = sig
		return e, nil
	default:
		return LeaderEvidence{}, messageError("decodeLeaderEvidence", "unknown evidence kind")
	}
}

// Header is a block header: everything needed to validate and order a
// block without its contents.
type Header struct {
	ParentHash  hash.Hash
	Date        BlockDate
	ChainLength ChainLength
	ContentHash hash.Hash
	Evidence    LeaderEvidence
}

// preImage returns the canonical byte encoding of the header used both for
// header-hash computation and as the message signed by BFT/Genesis-Praos
// leader evidence. Per the header-hash definition, the encoding includes
// the (variable-width) evidence signature envelope.
func (h *Header) preImage() []byte {
	var buf bytes.Buffer
	_ = writeHash(&buf, h.ParentHash)
	_ = h.Date.encodeTo(&buf)
	_ = writeUint32(&buf, uint32(h.ChainLength))
	_ = writeHash(&buf, h.ContentHash)
	_ = h.Evidence.encode(&buf)
	return buf.Bytes()
}

// UnsignedPreImage returns the bytes a BFT or Genesis-Praos leader signs:
// the header with its Evidence signature fields held at their zero value.
// Callers fill in ParentHash/Date/ChainLength/ContentHash and the
// evidence's identifying fields (BFTLeaderID / PoolID+VRFProof) before
// calling this, then attach the returned signature to build the final
// Header.
func (h *Header) UnsignedPreImage() []byte {
	unsigned := *h
	unsigned.Evidence.BFTSignature = [ed25519.SignatureSize]byte{}
	unsigned.Evidence.KESSignature = kes.Signature{}
	return unsigned.preImage()
}

// Hash returns the header's content-addressed identifier.
func (h *Header) Hash() hash.Hash {
	return hash.Sum256(h.preImage())
}

// Encode writes the header's wire representation to w.
func (h *Header) Encode(w io.Writer) error {
	_, err := w.Write(h.preImage())
	return err
}

// DecodeHeader reads a header previously written by Encode.
func DecodeHeader(r io.Reader) (*Header, error) {
	parentHash, err := readHash(r)
	if err != nil {
		return nil, err
	}
	date, err := decodeBlockDate(r)
	if err != nil {
		return nil, err
	}
	chainLength, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	contentHash, err := readHash(r)
	if err != nil {
		return nil, err
	}
	evidence, err := decodeLeaderEvidence(r)
	if err != nil {
		return nil, err
	}
	return &Header{
		ParentHash:  parentHash,
		Date:        date,
		ChainLength: ChainLength(chainLength),
		ContentHash: contentHash,
		Evidence:    evidence,
	}, nil
}
