// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer holds the per-connection state machine and identity
// bookkeeping for a single peer connection: the CommHandle subscription
// streams a peer's block/fragment/topology/watch feeds are delivered
// through, and the handshake that establishes a connection's identity.
package peer

import (
	"errors"
	"sync"
)

// ErrNotSubscribed is returned by Send when the handle has no channel
// and no pending slot has been claimed yet.
var ErrNotSubscribed = errors.New("peer: not subscribed")

// ErrStreamOverflow is returned by Send when the subscribed channel is
// full; the caller should demote the peer entry for eviction.
var ErrStreamOverflow = errors.New("peer: stream overflow")

// ErrSubscriptionClosed is returned by Send when the subscribed channel
// has been closed; the caller should remove the peer entry.
var ErrSubscriptionClosed = errors.New("peer: subscription closed")

type commState int

const (
	stateNotSubscribed commState = iota
	statePending
	stateSubscribed
)

// CommHandle is a single subscription stream to a peer: at most one item
// may be buffered before a subscriber attaches (Pending coalesces,
// keeping only the newest item), and once Subscribe has been called,
// delivery goes through a bounded channel.
type CommHandle[T any] struct {
	mu      sync.Mutex
	state   commState
	pending T
	ch      chan T
	closed  bool
}

// NewCommHandle returns a handle with no subscriber and no pending item.
func NewCommHandle[T any]() *CommHandle[T] {
	return &CommHandle[T]{state: stateNotSubscribed}
}

// Send delivers item per the three-state rule: NotSubscribed drops the
// item and returns ErrNotSubscribed; Pending coalesces (replacing any
// previously buffered item); Subscribed forwards to the channel
// non-blockingly, returning ErrStreamOverflow if full or
// ErrSubscriptionClosed if the subscriber has gone away.
func (h *CommHandle[T]) Send(item T) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateNotSubscribed:
		return ErrNotSubscribed
	case statePending:
		h.pending = item
		return nil
	case stateSubscribed:
		if h.closed {
			return ErrSubscriptionClosed
		}
		select {
		case h.ch <- item:
			return nil
		default:
			return ErrStreamOverflow
		}
	default:
		return ErrNotSubscribed
	}
}

// Claim moves the handle from NotSubscribed to Pending, reserving the
// one-item buffer ahead of an eventual Subscribe. It is a no-op if the
// handle is already Pending or Subscribed.
func (h *CommHandle[T]) Claim() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateNotSubscribed {
		h.state = statePending
	}
}

// Subscribe transitions the handle to Subscribed with the given buffer
// depth, forwarding any item buffered while Pending onto the new
// channel before returning it.
func (h *CommHandle[T]) Subscribe(bufferDepth int) <-chan T {
	h.mu.Lock()
	defer h.mu.Unlock()

	hadPending := h.state == statePending
	pendingItem := h.pending

	ch := make(chan T, bufferDepth)
	h.ch = ch
	h.state = stateSubscribed
	h.closed = false

	if hadPending {
		ch <- pendingItem
		var zero T
		h.pending = zero
	}
	return ch
}

// Close transitions the handle back to NotSubscribed, closing the
// channel if one was subscribed. Future Sends return ErrNotSubscribed
// until Claim/Subscribe is called again.
func (h *CommHandle[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateSubscribed && !h.closed {
		close(h.ch)
		h.closed = true
	}
	h.state = stateNotSubscribed
	h.ch = nil
}

// TakeOverFrom transfers a buffered Pending item from old onto h,
// forwarding it once on h's (already-subscribed) channel, per the
// reconnect-race rule: the newer connection's state takes over, but a
// Pending item buffered on the old client-direction handle is delivered
// once more on the new one.
func (h *CommHandle[T]) TakeOverFrom(old *CommHandle[T]) {
	old.mu.Lock()
	hadPending := old.state == statePending
	item := old.pending
	old.mu.Unlock()

	if hadPending {
		_ = h.Send(item)
	}
}
