// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package enclave holds this node's signing key material behind an opaque
// boundary: callers ask it to finalize a header or report what it is
// scheduled to lead, but never see raw BFT, KES, or VRF secret bytes. This
// mirrors the "never expose raw key bytes past the boundary" discipline
// the teacher's certificate-generation tooling applies to TLS keys,
// carried here to the node's consensus identities.
package enclave

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/vrf"
	"github.com/ouroboros-go/node/kes"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

// ErrNoBFTIdentity is returned by FinalizeBFT when the enclave holds no
// BFT leader key.
var ErrNoBFTIdentity = errors.New("enclave: no BFT identity loaded")

// ErrUnknownPool is returned when an operation names a pool ID the
// enclave holds no key material for.
var ErrUnknownPool = errors.New("enclave: unknown pool")

// bftIdentity is this node's BFT round-robin leader key, if any.
type bftIdentity struct {
	id   hash.Hash
	priv ed25519.PrivateKey
}

// poolIdentity is a stake pool's Genesis-Praos key material: a KES key
// for signing blocks and a VRF key for proving slot eligibility.
type poolIdentity struct {
	poolID hash.Hash
	kesSK  *kes.SecretKey
	vrfSK  vrf.PrivateKey
	vrfPK  vrf.PublicKey
}

// Enclave is this node's private key store. The zero value is not usable;
// construct with New.
type Enclave struct {
	mu   sync.Mutex
	bft  *bftIdentity
	pools map[hash.Hash]*poolIdentity
}

// New creates an empty Enclave.
func New() *Enclave {
	return &Enclave{pools: make(map[hash.Hash]*poolIdentity)}
}

// LoadBFTIdentity installs this node's BFT leader key.
func (e *Enclave) LoadBFTIdentity(id hash.Hash, priv ed25519.PrivateKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bft = &bftIdentity{id: id, priv: priv}
}

// LoadPool installs a stake pool's Genesis-Praos key material.
func (e *Enclave) LoadPool(poolID hash.Hash, kesSK *kes.SecretKey, vrfSK vrf.PrivateKey, vrfPK vrf.PublicKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pools[poolID] = &poolIdentity{poolID: poolID, kesSK: kesSK, vrfSK: vrfSK, vrfPK: vrfPK}
}

// PoolIDs returns the IDs of every pool this enclave holds keys for.
func (e *Enclave) PoolIDs() []hash.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]hash.Hash, 0, len(e.pools))
	for id := range e.pools {
		ids = append(ids, id)
	}
	return ids
}

// BFTLeaderID returns this node's BFT identity, if loaded.
func (e *Enclave) BFTLeaderID() (hash.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bft == nil {
		return hash.Hash{}, false
	}
	return e.bft.id, true
}

// vrfEvaluator adapts this enclave's loaded pool VRF keys to
// ledger.VRFEvaluator, so a Leadership schedule can ask "would this pool
// be eligible here" without the enclave handing out raw key material.
type vrfEvaluator struct{ e *Enclave }

func (v vrfEvaluator) Evaluate(poolID hash.Hash, slot uint64) ([]byte, float64) {
	v.e.mu.Lock()
	pool, ok := v.e.pools[poolID]
	v.e.mu.Unlock()
	if !ok {
		return nil, 1 // output 1.0 never beats a sub-1 threshold: ineligible
	}
	alpha := vrfAlpha(poolID, slot)
	output, proof, err := vrf.Evaluate(pool.vrfSK, alpha)
	if err != nil {
		return nil, 1
	}
	return proof.Bytes(), vrf.Output(output)
}

func vrfAlpha(poolID hash.Hash, slot uint64) []byte {
	out := make([]byte, 0, hash.Size+8)
	out = append(out, poolID[:]...)
	for i := 7; i >= 0; i-- {
		out = append(out, byte(slot>>(8*uint(i))))
	}
	return out
}

// Schedule returns every slot in [slotStart, slotStart+nbSlots) within
// era's current epoch that this enclave's identities are entitled to
// lead, per leadership.
func (e *Enclave) Schedule(leadership ledger.Leadership, era wire.Era, slotStart, nbSlots uint64) []ledger.LeaderEvent {
	bftID, _ := e.BFTLeaderID()
	return leadership.EventsInRange(era, slotStart, nbSlots, bftID, e.PoolIDs(), vrfEvaluator{e})
}

// FinalizeBFT signs unsigned (whose Evidence.Kind must already be
// EvidenceBFT and BFTLeaderID set to this node's identity) with this
// node's BFT key, returning the completed header.
func (e *Enclave) FinalizeBFT(unsigned *wire.Header) (*wire.Header, error) {
	e.mu.Lock()
	bft := e.bft
	e.mu.Unlock()
	if bft == nil {
		return nil, ErrNoBFTIdentity
	}
	if unsigned.Evidence.BFTLeaderID != bft.id {
		return nil, fmt.Errorf("enclave: header evidence leader %v does not match loaded identity %v", unsigned.Evidence.BFTLeaderID, bft.id)
	}

	signed := *unsigned
	sig := ed25519.Sign(bft.priv, unsigned.UnsignedPreImage())
	copy(signed.Evidence.BFTSignature[:], sig)
	return &signed, nil
}

// FinalizeGenesisPraos signs unsigned (whose Evidence.Kind must already be
// EvidenceGenesisPraos with PoolID and VRFProof set) with the named pool's
// current KES period key, returning the completed header.
func (e *Enclave) FinalizeGenesisPraos(unsigned *wire.Header) (*wire.Header, error) {
	e.mu.Lock()
	pool, ok := e.pools[unsigned.Evidence.PoolID]
	e.mu.Unlock()
	if !ok {
		return nil, ErrUnknownPool
	}

	signed := *unsigned
	signed.Evidence.KESSignature = kes.Sign(pool.kesSK, unsigned.UnsignedPreImage())
	return &signed, nil
}

// AdvanceKES evolves the named pool's KES secret key to its next period,
// called once per period boundary (the cadence ledger.Settings.KESUpdateSpeed
// names) by the leadership loop. It returns kes.ErrKeyCannotBeUpdatedMore
// once the key has reached the final period its depth supports, at which
// point the pool needs a freshly re-registered KES key to keep leading.
func (e *Enclave) AdvanceKES(poolID hash.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, ok := e.pools[poolID]
	if !ok {
		return ErrUnknownPool
	}
	return kes.Update(pool.kesSK)
}
