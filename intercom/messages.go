// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package intercom

import (
	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

// TransactionMsg is a request addressed to the fragment pool task.
type TransactionMsg interface{ isTransactionMsg() }

// ProposeTransaction asks whether each fragment id would currently be
// accepted, without inserting anything.
type ProposeTransaction struct {
	IDs   []wire.FragmentID
	Reply ReplyHandle[[]bool]
}

func (ProposeTransaction) isTransactionMsg() {}

// SendTransaction asks the pool to insert fragments, fire-and-forget.
type SendTransaction struct {
	Fragments []*wire.Fragment
}

func (SendTransaction) isTransactionMsg() {}

// GetTransactions streams back the fragments matching ids that the pool
// currently holds.
type GetTransactions struct {
	IDs   []wire.FragmentID
	Reply ReplyStreamHandle[*wire.Fragment]
}

func (GetTransactions) isTransactionMsg() {}

// ClientMsg is a request from a connected peer for chain data, routed to
// the task that owns the blockchain store.
type ClientMsg interface{ isClientMsg() }

// GetBlockTip asks for this node's current tip header.
type GetBlockTip struct {
	Reply ReplyHandle[wire.Header]
}

func (GetBlockTip) isClientMsg() {}

// GetHeaders streams headers for the requested hashes.
type GetHeaders struct {
	IDs   []hash.Hash
	Reply ReplyStreamHandle[wire.Header]
}

func (GetHeaders) isClientMsg() {}

// GetHeadersRange returns the header chain from one of the checkpoint
// hashes in From up to and including To.
type GetHeadersRange struct {
	From  []hash.Hash
	To    hash.Hash
	Reply ReplyHandle[[]wire.Header]
}

func (GetHeadersRange) isClientMsg() {}

// GetBlocks streams full blocks for the requested hashes.
type GetBlocks struct {
	IDs   []hash.Hash
	Reply ReplyStreamHandle[*wire.Block]
}

func (GetBlocks) isClientMsg() {}

// GetBlocksRange streams the block chain from From to To.
type GetBlocksRange struct {
	From  hash.Hash
	To    hash.Hash
	Reply ReplyStreamHandle[*wire.Block]
}

func (GetBlocksRange) isClientMsg() {}

// PullBlocksToTip streams every block from the closest common ancestor
// of From up to this node's current tip.
type PullBlocksToTip struct {
	From  []hash.Hash
	Reply ReplyStreamHandle[*wire.Block]
}

func (PullBlocksToTip) isClientMsg() {}

// BlockMsg is a block-related event routed to the task that owns the
// blockchain store.
type BlockMsg interface{ isBlockMsg() }

// LeadershipBlock is a block this node itself produced and has already
// validated.
type LeadershipBlock struct{ Block *wire.Block }

func (LeadershipBlock) isBlockMsg() {}

// LeadershipExpectEndOfEpoch notifies the chain task that the leadership
// worker is about to roll over to a new epoch.
type LeadershipExpectEndOfEpoch struct{}

func (LeadershipExpectEndOfEpoch) isBlockMsg() {}

// NetworkBlock is a full block received from a peer, not yet validated.
type NetworkBlock struct{ Block *wire.Block }

func (NetworkBlock) isBlockMsg() {}

// AnnouncedBlock is a header received from a peer announcing a new tip,
// without the block body.
type AnnouncedBlock struct {
	Header wire.Header
	From   hash.Hash // the announcing peer's node id
}

func (AnnouncedBlock) isBlockMsg() {}

// PropagateMsg is something the network task should gossip to peers.
type PropagateMsg interface{ isPropagateMsg() }

// PropagateBlock gossips a header announcing a new tip.
type PropagateBlock struct{ Header wire.Header }

func (PropagateBlock) isPropagateMsg() {}

// PropagateFragment gossips a fragment accepted into the pool.
type PropagateFragment struct{ Fragment *wire.Fragment }

func (PropagateFragment) isPropagateMsg() {}

// NetworkMsg is a request addressed to the network task.
type NetworkMsg interface{ isNetworkMsg() }

// Propagate asks the network task to gossip msg to suitable peers.
type Propagate struct{ Msg PropagateMsg }

func (Propagate) isNetworkMsg() {}

// FetchBlocks asks the network task to pull the given block hashes from
// peer id.
type FetchBlocks struct {
	Peer hash.Hash
	IDs  []hash.Hash
}

func (FetchBlocks) isNetworkMsg() {}
