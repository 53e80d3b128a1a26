// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fragmentpool is the node's mempool: a bounded holding area for
// fragments awaiting inclusion in a block, plus a bounded log of their
// eventual disposition (included in a block, or rejected and why).
package fragmentpool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrick/logrotate/rotator"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

var log = logging.Logger(logging.SubsystemFragmentPool)

// ErrDuplicateFragment is returned by Insert for a fragment ID already
// known to the pool, whether still pending or already resolved.
var ErrDuplicateFragment = errors.New("fragmentpool: duplicate fragment")

// ErrPoolFull is returned by Insert when the pool already holds
// pool_max_entries pending fragments.
var ErrPoolFull = errors.New("fragmentpool: pool is full")

// Status is a fragment's disposition within the pool.
type Status int

const (
	StatusPending Status = iota
	StatusInABlock
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInABlock:
		return "InABlock"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// entry is the pool's bookkeeping record for one fragment.
type entry struct {
	fragment   *wire.Fragment
	status     Status
	receivedAt time.Time

	// StatusInABlock
	blockID hash.Hash
	date    wire.BlockDate

	// StatusRejected
	reason string
}

// Pool is a bounded fragment mempool. pool_max_entries bounds the number
// of simultaneously Pending fragments; log_max_entries bounds how many
// resolved (InABlock/Rejected) fragments are retained for diagnostics,
// oldest evicted first.
type Pool struct {
	mu sync.Mutex

	maxPending int
	maxLog     int

	entries      map[hash.Hash]*entry
	pendingOrder []hash.Hash // insertion order, for OldestFirst selection
	logOrder     []hash.Hash // insertion order of resolved entries

	persistentLog *rotator.Rotator
}

// New creates an empty Pool. Persistence to a rotating file log is off
// until EnablePersistentLog is called.
func New(maxPending, maxLog int) *Pool {
	return &Pool{
		maxPending: maxPending,
		maxLog:     maxLog,
		entries:    make(map[hash.Hash]*entry),
	}
}

// EnablePersistentLog opens a rotating file log under dir and begins
// appending a line for every admitted fragment to it before Insert
// returns success to the submitter, the mempool's optional
// "persistent_log" feature. Rolling over at 10 MiB and keeping the 3
// most recent rolls matches the node-wide log rotator's own policy.
func (p *Pool) EnablePersistentLog(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("fragmentpool: creating persistent log directory: %w", err)
	}
	r, err := rotator.New(filepath.Join(dir, "mempool.log"), 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("fragmentpool: opening persistent log: %w", err)
	}
	p.mu.Lock()
	p.persistentLog = r
	p.mu.Unlock()
	return nil
}

// Close releases the persistent log's file handle, if EnablePersistentLog
// was ever called.
func (p *Pool) Close() error {
	p.mu.Lock()
	r := p.persistentLog
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Close()
}

// Insert admits a newly received fragment as Pending.
func (p *Pool) Insert(f *wire.Fragment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := f.ID()
	if _, exists := p.entries[id]; exists {
		return ErrDuplicateFragment
	}
	if len(p.pendingOrder) >= p.maxPending {
		return ErrPoolFull
	}

	p.entries[id] = &entry{fragment: f, status: StatusPending, receivedAt: time.Now()}
	p.pendingOrder = append(p.pendingOrder, id)
	if p.persistentLog != nil {
		p.persistentLog.Write([]byte(fmt.Sprintf("%s admitted %v kind=%s size=%d\n",
			time.Now().UTC().Format(time.RFC3339), id, f.Kind, f.EncodedLen())))
	}
	log.Tracef("accepted fragment %v, %d pending", id, len(p.pendingOrder))
	return nil
}

// Status reports a fragment's current disposition.
func (p *Pool) Status(id hash.Hash) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return 0, false
	}
	return e.status, true
}

// Len returns the number of currently Pending fragments.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pendingOrder)
}

// resolve moves id out of pendingOrder into the resolved log, evicting
// the oldest logged entry if that would exceed maxLog. Caller holds mu.
func (p *Pool) resolve(id hash.Hash) {
	for i, pid := range p.pendingOrder {
		if pid == id {
			p.pendingOrder = append(p.pendingOrder[:i], p.pendingOrder[i+1:]...)
			break
		}
	}
	p.logOrder = append(p.logOrder, id)
	for len(p.logOrder) > p.maxLog {
		evictID := p.logOrder[0]
		p.logOrder = p.logOrder[1:]
		delete(p.entries, evictID)
	}
}

// Deadlines carries the soft and hard timer channels SelectTransactions
// races the selection loop against.
type Deadlines struct {
	Soft <-chan time.Time
	Hard <-chan time.Time
}

// SelectTransactions implements the OldestFirst fragment-selection
// algorithm: walk pending fragments in arrival order, trial-applying each
// to working on top of base, keeping it in contents on success and
// marking it Rejected (and dropping it from the pool) on ledger
// rejection. The walk stops early if the soft deadline fires, yielding
// whatever was gathered so far (aborted is false), or if the hard
// deadline fires, in which case the build is abandoned entirely and
// aborted is true — a partially-built block is worse than no block for
// that slot, so callers must check aborted rather than inferring it from
// an empty contents slice (a legitimately empty block is also possible).
// It also stops, without aborting, once the next fragment would push the
// accumulated content size past base's BlockContentMaxSize: a full block
// is a normal stop condition, not a failure.
func (p *Pool) SelectTransactions(base ledger.State, now wire.BlockDate, d Deadlines) (contents []*wire.Fragment, result ledger.State, aborted bool) {
	p.mu.Lock()
	pending := append([]hash.Hash(nil), p.pendingOrder...)
	p.mu.Unlock()

	working := base
	maxSize := uint64(base.Settings().BlockContentMaxSize)
	var size uint64

	for _, id := range pending {
		select {
		case <-d.Hard:
			return nil, base, true
		case <-d.Soft:
			return contents, working, false
		default:
		}

		p.mu.Lock()
		e, ok := p.entries[id]
		p.mu.Unlock()
		if !ok || e.status != StatusPending {
			continue
		}

		fragmentSize := uint64(e.fragment.EncodedLen())
		if maxSize > 0 && size+fragmentSize > maxSize {
			break
		}

		trial := &wire.Block{Contents: []*wire.Fragment{e.fragment}}
		next, err := working.Apply(trial, now)
		if err != nil {
			p.MarkRejected(id, err.Error())
			continue
		}
		working = next
		size += fragmentSize
		contents = append(contents, e.fragment)
	}

	return contents, working, false
}

// MarkInABlock records that id was included in blockID at date,
// resolving it out of the pending set.
func (p *Pool) MarkInABlock(id hash.Hash, blockID hash.Hash, date wire.BlockDate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || e.status != StatusPending {
		return
	}
	e.status = StatusInABlock
	e.blockID = blockID
	e.date = date
	p.resolve(id)
}

// MarkRejected records that id was rejected with reason, resolving it out
// of the pending set.
func (p *Pool) MarkRejected(id hash.Hash, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || e.status != StatusPending {
		return
	}
	e.status = StatusRejected
	e.reason = reason
	p.resolve(id)
}
