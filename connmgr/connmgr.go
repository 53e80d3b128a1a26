// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr manages outbound dialing retry/backoff and the
// established-connection map keyed by NodeId, including eviction once
// the map is at capacity.
package connmgr

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/decred/go-socks/socks"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/peer"
)

// ErrAlreadyConnected is returned by Add when NodeId already has an
// established entry.
var ErrAlreadyConnected = errors.New("connmgr: already connected to this node id")

// ErrAtCapacity is returned by Add when the connection map is full and no
// inactive client-direction entry could be evicted to make room.
var ErrAtCapacity = errors.New("connmgr: connection map at capacity")

// Dialer abstracts the network dial, so a SOCKS/Tor proxy can be swapped
// in for a direct net.Dialer.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// Config configures retry timing, capacity, and dialing.
type Config struct {
	Dial        Dialer
	MaxInbound  int
	MaxOutbound int

	RetryWait    time.Duration // base backoff between dial attempts
	MaxRetryWait time.Duration
}

// NewSOCKSDialer returns a Dialer that connects through the SOCKS5/Tor
// proxy at proxyAddr, using the teacher's go-socks dependency.
func NewSOCKSDialer(proxyAddr string) Dialer {
	return &socks.Proxy{Addr: proxyAddr}
}

type entry struct {
	p          *peer.Peer
	lastActive time.Time
}

// Manager tracks established connections and retry state for outbound
// dials.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	entries map[hash.Hash]*entry
}

// New creates a Manager. If cfg.Dial is nil, a plain net.Dialer is used.
func New(cfg Config) *Manager {
	if cfg.Dial == nil {
		cfg.Dial = &net.Dialer{Timeout: 10 * time.Second}
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 5 * time.Second
	}
	if cfg.MaxRetryWait == 0 {
		cfg.MaxRetryWait = 5 * time.Minute
	}
	return &Manager{cfg: cfg, entries: make(map[hash.Hash]*entry)}
}

// Add registers p as an established connection, evicting the oldest
// inactive client-direction entry if the map is at MaxInbound+MaxOutbound
// capacity and no room is otherwise available.
func (m *Manager) Add(p *peer.Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[p.NodeID]; ok {
		return ErrAlreadyConnected
	}

	capacity := m.cfg.MaxInbound + m.cfg.MaxOutbound
	if capacity > 0 && len(m.entries) >= capacity {
		if !m.evictOldestInactiveClientLocked() {
			return ErrAtCapacity
		}
	}

	m.entries[p.NodeID] = &entry{p: p, lastActive: time.Now()}
	return nil
}

// Remove drops id's established entry, if any.
func (m *Manager) Remove(id hash.Hash) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

// Get returns id's established Peer, if connected.
func (m *Manager) Get(id hash.Hash) (*peer.Peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.p, true
}

// Len returns the number of established connections.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) evictOldestInactiveClientLocked() bool {
	var oldestID hash.Hash
	var oldestTime time.Time
	found := false

	for id, e := range m.entries {
		if e.p.Direction != peer.DirectionClient {
			continue
		}
		if !found || e.lastActive.Before(oldestTime) {
			oldestID, oldestTime, found = id, e.lastActive, true
		}
	}
	if !found {
		return false
	}
	delete(m.entries, oldestID)
	return true
}

// DialWithBackoff dials addr, retrying with exponential backoff
// (RetryWait, doubling up to MaxRetryWait) until it succeeds or ctx is
// done.
func (m *Manager) DialWithBackoff(ctx context.Context, addr string) (net.Conn, error) {
	wait := m.cfg.RetryWait
	for {
		conn, err := m.cfg.Dial.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > m.cfg.MaxRetryWait {
			wait = m.cfg.MaxRetryWait
		}
	}
}
