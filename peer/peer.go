// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

// Direction records which side of a connection this node played.
type Direction int

const (
	DirectionClient Direction = iota // we dialed out
	DirectionServer                 // the peer dialed in
)

// BlockStreamMsg is one of the three message kinds multiplexed onto a
// peer's single block_subscription stream.
type BlockStreamMsg struct {
	Announce *wire.Header // non-nil for an Announce message
	Solicit  []hash.Hash  // non-nil (possibly empty) for a Solicit message

	MissingFrom []hash.Hash // both set for a Missing message
	MissingTo   hash.Hash
}

// Stats tracks simple per-peer counters surfaced over RPC diagnostics.
type Stats struct {
	mu             sync.Mutex
	BlocksSent     uint64
	BlocksReceived uint64
	LastActivity   time.Time
}

func (s *Stats) touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// Peer is one connection's subscription streams and identity.
type Peer struct {
	NodeID    hash.Hash
	Direction Direction
	Stats     Stats

	BlockStream    *CommHandle[BlockStreamMsg]
	FragmentStream *CommHandle[*wire.Fragment]
	ChainPull      *CommHandle[[]hash.Hash]
	Gossip         *CommHandle[[]hash.Hash]
	PeerGossip     *CommHandle[hash.Hash]
}

// New creates a Peer with all five subscription streams in the
// NotSubscribed state.
func New(nodeID hash.Hash, dir Direction) *Peer {
	return &Peer{
		NodeID:         nodeID,
		Direction:      dir,
		BlockStream:    NewCommHandle[BlockStreamMsg](),
		FragmentStream: NewCommHandle[*wire.Fragment](),
		ChainPull:      NewCommHandle[[]hash.Hash](),
		Gossip:         NewCommHandle[[]hash.Hash](),
		PeerGossip:     NewCommHandle[hash.Hash](),
	}
}

// AnnounceBlock delivers a header announcement on the block stream,
// bumping Stats on success.
func (p *Peer) AnnounceBlock(h wire.Header) error {
	err := p.BlockStream.Send(BlockStreamMsg{Announce: &h})
	if err == nil {
		p.Stats.touch()
		p.Stats.mu.Lock()
		p.Stats.BlocksSent++
		p.Stats.mu.Unlock()
	}
	return err
}

// ErrNonceMismatch is returned when a handshake signature does not
// verify against the server's issued nonce.
var ErrNonceMismatch = errors.New("peer: handshake signature does not verify")

// ServerNonce generates a fresh 32-byte handshake nonce. Called once per
// inbound connection before the remote side authenticates.
func ServerNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("peer: generating handshake nonce: %w", err)
	}
	return nonce, nil
}

// ClientHandshakeResponse signs nonce under the node's long-term identity
// key, producing the response the server's Handshake RPC expects.
func ClientHandshakeResponse(priv ed25519.PrivateKey, nonce [32]byte) []byte {
	return ed25519.Sign(priv, nonce[:])
}

// VerifyHandshake checks that signature is a valid signature by pub over
// nonce, binding the connection to pub's derived NodeId on success.
func VerifyHandshake(pub ed25519.PublicKey, nonce [32]byte, signature []byte) error {
	if !ed25519.Verify(pub, nonce[:], signature) {
		return ErrNonceMismatch
	}
	return nil
}
