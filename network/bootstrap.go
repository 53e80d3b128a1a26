// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package network drives initial block download against a trusted peer
// and the steady-state propagation of new blocks and fragments to
// connected peers. It is transport-agnostic: callers supply a
// RemoteClient, typically backed by the rpc package's client, so this
// package contains no wire-format or dialing code of its own.
package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ouroboros-go/node/blockchain"
	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/wire"
)

var log = logging.Logger(logging.SubsystemNetwork)

// headerChunkSize/blockChunkSize bound how many items incremental chain
// pull requests at a time, so a single request cannot force this node or
// its peer to hold an unbounded batch in memory.
const (
	headerChunkSize = 32
	blockChunkSize  = 32
)

// BootstrapRetryWait is how long BootstrapFromPeer waits before retrying
// after a transient failure talking to the bootstrap peer.
const BootstrapRetryWait = 5 * time.Second

// ErrNoBlocksReceived is returned by BootstrapFromPeer when the peer's
// stream produced nothing beyond block0, which normally only happens if
// this node is already caught up.
var ErrNoBlocksReceived = errors.New("network: bootstrap stream produced no new blocks")

// ErrBootstrapAttemptsExceeded is returned by RunBootstrapLoop once
// maxAttempts failed attempts have been made without success.
var ErrBootstrapAttemptsExceeded = errors.New("network: exhausted max_bootstrap_attempts against trusted peer")

// RemoteClient is the subset of peer protocol operations the bootstrap
// and chain-pull logic needs. A concrete implementation dials a peer and
// speaks the wire protocol; this package only orchestrates the sequence
// of calls.
type RemoteClient interface {
	// Tip returns the peer's current best header.
	Tip(ctx context.Context) (wire.Header, error)
	// PullBlocksToTip streams every block the peer has from the closest
	// common ancestor of checkpoints up to its own tip, in chain order.
	PullBlocksToTip(ctx context.Context, checkpoints []hash.Hash) (BlockStream, error)
}

// BlockStream yields blocks one at a time until it is exhausted or
// returns an error. Next returns (nil, nil) to signal a clean end of
// stream.
type BlockStream interface {
	Next(ctx context.Context) (*wire.Block, error)
}

// BootstrapFromPeer pulls every block the peer has beyond this chain's
// current checkpoints and applies them in order, advancing the tip as it
// goes. It returns once the peer's stream is exhausted.
func BootstrapFromPeer(ctx context.Context, chain *blockchain.Chain, client RemoteClient, block0Hash hash.Hash) error {
	checkpoints := chain.Checkpoints()
	log.Infof("bootstrap: pulling blocks from checkpoints %v", checkpoints)

	stream, err := client.PullBlocksToTip(ctx, checkpoints)
	if err != nil {
		return fmt.Errorf("network: requesting bootstrap stream: %w", err)
	}

	applied := 0
	for {
		block, err := stream.Next(ctx)
		if err != nil {
			return fmt.Errorf("network: bootstrap stream: %w", err)
		}
		if block == nil {
			break
		}
		if block.Hash() == block0Hash {
			continue
		}

		if _, err := chain.ApplyAndStoreBlock(block, time.Now()); err != nil {
			if errors.Is(err, blockchain.ErrParentUnknown) {
				return fmt.Errorf("network: received block %v not connected to the chain: %w", block.Hash(), err)
			}
			return fmt.Errorf("network: applying bootstrap block %v: %w", block.Hash(), err)
		}
		applied++
	}

	if applied == 0 {
		log.Infof("bootstrap: already caught up with peer")
	} else {
		log.Infof("bootstrap: applied %d blocks, tip now %v", applied, chain.Tip().Current().Hash)
	}
	return nil
}

// RunBootstrapLoop repeatedly calls BootstrapFromPeer until it succeeds,
// ctx is cancelled, or maxAttempts failed attempts have been made,
// waiting BootstrapRetryWait between attempts. maxAttempts <= 0 means
// retry without limit. This is the node's initial block download driver:
// it runs once at startup against a configured trusted peer before the
// steady-state propagation loop takes over.
func RunBootstrapLoop(ctx context.Context, chain *blockchain.Chain, client RemoteClient, block0Hash hash.Hash, maxAttempts int) error {
	for attempt := 1; ; attempt++ {
		err := BootstrapFromPeer(ctx, chain, client, block0Hash)
		if err == nil {
			return nil
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return fmt.Errorf("%w: last error: %v", ErrBootstrapAttemptsExceeded, err)
		}
		log.Warnf("bootstrap attempt %d failed, retrying in %v: %v", attempt, BootstrapRetryWait, err)

		timer := time.NewTimer(BootstrapRetryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
