// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leadership drives the Schedule/Wait/Act/Build/Sign/Propagate
// loop: for every slot this node's enclave identities are entitled to
// lead, assemble a block from the fragment pool against the current tip,
// finalize it with the matching signature, and hand it to the chain.
package leadership

import (
	"context"
	"sync"
	"time"

	"github.com/ouroboros-go/node/blockchain"
	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/enclave"
	"github.com/ouroboros-go/node/internal/fragmentpool"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

var log = logging.Logger(logging.SubsystemLeadership)

// Outcome tags a logged leadership event's final disposition.
type Outcome int

const (
	OutcomeScheduled Outcome = iota
	OutcomeMissedDeadline
	OutcomeRejected
	OutcomeBlock
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScheduled:
		return "Scheduled"
	case OutcomeMissedDeadline:
		return "MissedDeadline"
	case OutcomeRejected:
		return "Rejected"
	case OutcomeBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// LogEntry is one record in the LogRing: what this node did, or tried to
// do, about a scheduled leadership event.
type LogEntry struct {
	Date    wire.BlockDate
	Outcome Outcome
	Reason  string    // OutcomeRejected
	BlockID hash.Hash // OutcomeBlock
	At      time.Time
}

// LogRing is a fixed-capacity ring buffer of LogEntry, the leadership
// module's equivalent of the chain's known-bad cache: a bounded window
// onto recent scheduling decisions for diagnostics, sized by
// leadership.logs_capacity.
type LogRing struct {
	mu      sync.Mutex
	entries []LogEntry
	cap     int
	next    int
	size    int
}

// NewLogRing creates a LogRing holding at most capacity entries.
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &LogRing{entries: make([]LogEntry, capacity), cap: capacity}
}

// Push appends e, evicting the oldest entry once the ring is full.
func (r *LogRing) Push(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % r.cap
	if r.size < r.cap {
		r.size++
	}
}

// Snapshot returns the ring's contents, oldest first.
func (r *LogRing) Snapshot() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, 0, r.size)
	start := r.next - r.size
	for i := 0; i < r.size; i++ {
		idx := ((start+i)%r.cap + r.cap) % r.cap
		out = append(out, r.entries[idx])
	}
	return out
}

// Worker runs the per-epoch leadership loop against one enclave, fragment
// pool, and chain.
type Worker struct {
	enclave *enclave.Enclave
	chain   *blockchain.Chain
	pool    *fragmentpool.Pool
	tf      wire.TimeFrame
	era     wire.Era

	// HardDeadlineSlots is block_hard_deadline from the node configuration:
	// how many slots past the soft deadline the builder is allowed before
	// it must abort the slot outright.
	HardDeadlineSlots uint64

	Log *LogRing

	kesMu          sync.Mutex
	nextKESAdvance map[hash.Hash]time.Time
}

// New constructs a Worker. logsCapacity is leadership.logs_capacity.
func New(e *enclave.Enclave, chain *blockchain.Chain, pool *fragmentpool.Pool, tf wire.TimeFrame, era wire.Era, hardDeadlineSlots uint64, logsCapacity int) *Worker {
	return &Worker{
		enclave:           e,
		chain:             chain,
		pool:              pool,
		tf:                tf,
		era:               era,
		HardDeadlineSlots: hardDeadlineSlots,
		Log:               NewLogRing(logsCapacity),
		nextKESAdvance:    make(map[hash.Hash]time.Time),
	}
}

// Run schedules and acts on leadership events for every epoch starting at
// startEpoch until ctx is canceled. It returns ctx.Err() on cancellation,
// matching the node's "first task to fail, or ctx canceled, causes
// orderly shutdown" propagation policy.
func (w *Worker) Run(ctx context.Context, startEpoch uint32) error {
	epoch := startEpoch
	for {
		if err := w.runEpoch(ctx, epoch); err != nil {
			return err
		}
		epoch++
	}
}

// runEpoch schedules every event in one epoch and waits/acts on each in
// order, returning early with ctx.Err() if ctx is canceled.
func (w *Worker) runEpoch(ctx context.Context, epoch uint32) error {
	events, err := w.schedule(epoch)
	if err != nil {
		return nil // no leadership schedule yet (e.g. ledger not ready): try next epoch
	}
	for _, ev := range events {
		w.Log.Push(LogEntry{Date: ev.Date, Outcome: OutcomeScheduled, At: w.tf.TimeOfSlot(w.era.AbsoluteSlot(ev.Date.Epoch, ev.Date.Slot))})
		if err := w.wait(ctx, ev.Date); err != nil {
			return err
		}
		w.act(ev)
	}
	return nil
}

// schedule asks the enclave for every event this node's identities may
// lead within epoch, against the chain tip's current leadership schedule.
func (w *Worker) schedule(epoch uint32) ([]ledger.LeaderEvent, error) {
	tip := w.chain.Tip().Current()
	leadership, err := tip.Ledger.LeadershipScheduleForEpoch(epoch)
	if err != nil {
		return nil, err
	}
	slotStart := w.era.FirstSlotOf(epoch)
	return w.enclave.Schedule(leadership, w.era, slotStart, uint64(w.era.SlotsPerEpoch)), nil
}

// wait blocks until ev's slot begins, or ctx is canceled.
func (w *Worker) wait(ctx context.Context, date wire.BlockDate) error {
	absSlot := w.era.AbsoluteSlot(date.Epoch, date.Slot)
	deadline := w.tf.TimeOfSlot(absSlot)
	d := time.Until(deadline)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// act runs the Act/Build/Sign/Propagate steps for one event, after Wait
// has returned at the event's slot.
func (w *Worker) act(ev ledger.LeaderEvent) {
	absSlot := w.era.AbsoluteSlot(ev.Date.Epoch, ev.Date.Slot)
	slotDeadline := w.tf.TimeOfSlot(absSlot + 1)
	if time.Now().After(slotDeadline) {
		log.Warnf("missed leadership deadline for %v", ev.Date)
		w.Log.Push(LogEntry{Date: ev.Date, Outcome: OutcomeMissedDeadline, At: time.Now()})
		return
	}

	tip := w.chain.Tip().Current()
	if !tip.Date.Before(ev.Date) {
		w.reject(ev, "invalid state against network")
		return
	}

	block, err := w.build(ev, tip, slotDeadline, absSlot)
	if err != nil {
		w.reject(ev, err.Error())
		return
	}
	if block == nil {
		w.reject(ev, "build aborted at hard deadline")
		return
	}

	ref, err := w.chain.ApplyAndStoreBlock(block, time.Now())
	if err != nil {
		w.reject(ev, err.Error())
		return
	}
	log.Infof("produced block %v at %v", ref.Hash, ev.Date)
	w.Log.Push(LogEntry{Date: ev.Date, Outcome: OutcomeBlock, BlockID: ref.Hash, At: time.Now()})

	if ev.Output.Kind == ledger.LeaderGenesisPraos {
		w.advanceKESIfDue(ev.Output.PoolID, tip.Ledger.Settings().KESUpdateSpeed)
	}
}

// advanceKESIfDue evolves the named pool's KES key once updateSpeed has
// elapsed since its last evolution, keeping the key moving forward at the
// cadence block0 names regardless of how many blocks this pool actually
// signs within that window.
func (w *Worker) advanceKESIfDue(poolID hash.Hash, updateSpeed time.Duration) {
	now := time.Now()

	w.kesMu.Lock()
	due, scheduled := w.nextKESAdvance[poolID]
	if scheduled && now.Before(due) {
		w.kesMu.Unlock()
		return
	}
	w.nextKESAdvance[poolID] = now.Add(updateSpeed)
	w.kesMu.Unlock()

	if err := w.enclave.AdvanceKES(poolID); err != nil {
		log.Warnf("advancing KES key for pool %v: %v", poolID, err)
	}
}

func (w *Worker) reject(ev ledger.LeaderEvent, reason string) {
	log.Debugf("rejected leadership event at %v: %s", ev.Date, reason)
	w.Log.Push(LogEntry{Date: ev.Date, Outcome: OutcomeRejected, Reason: reason, At: time.Now()})
}

// build selects fragments under the soft/hard deadline pair, then signs
// the resulting block with the identity named in ev.Output.
func (w *Worker) build(ev ledger.LeaderEvent, tip *blockchain.Ref, softDeadline time.Time, absSlot uint64) (*wire.Block, error) {
	hardDeadline := w.tf.TimeOfSlot(absSlot + 1 + w.HardDeadlineSlots)

	soft := time.NewTimer(time.Until(softDeadline))
	defer soft.Stop()
	hard := time.NewTimer(time.Until(hardDeadline))
	defer hard.Stop()

	contents, _, aborted := w.pool.SelectTransactions(tip.Ledger, ev.Date, fragmentpool.Deadlines{Soft: soft.C, Hard: hard.C})
	if aborted {
		return nil, nil
	}

	unsigned := &wire.Block{
		Header: wire.Header{
			ParentHash:  tip.Hash,
			Date:        ev.Date,
			ChainLength: tip.ChainLength.Next(),
		},
		Contents: contents,
	}
	unsigned.Header.ContentHash = unsigned.ComputeContentHash()

	switch ev.Output.Kind {
	case ledger.LeaderBFT:
		unsigned.Header.Evidence = wire.LeaderEvidence{Kind: wire.EvidenceBFT, BFTLeaderID: ev.Output.LeaderID}
		signed, err := w.enclave.FinalizeBFT(&unsigned.Header)
		if err != nil {
			return nil, err
		}
		unsigned.Header = *signed
	case ledger.LeaderGenesisPraos:
		unsigned.Header.Evidence = wire.LeaderEvidence{Kind: wire.EvidenceGenesisPraos, PoolID: ev.Output.PoolID, VRFProof: ev.Output.VRFProof}
		signed, err := w.enclave.FinalizeGenesisPraos(&unsigned.Header)
		if err != nil {
			return nil, err
		}
		unsigned.Header = *signed
	}

	return unsigned, nil
}
