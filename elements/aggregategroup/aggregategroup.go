// Package aggregategroup implements AggregateGroup: it coalesces
// consecutive packets sharing the same aggregate-annotation key into a
// single outbound batch, flushing early when the key changes and, if a
// timeout is configured, after TIMER microseconds of inactivity.
//
// Grounded on original_source/elements/analysis/aggregategroup.cc's
// push_batch/run_task pair: push_batch appends to the held batch while
// AGGREGATE_ANNO matches, otherwise flushes the held batch and starts a
// new one; run_task flushes on timer fire.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package aggregategroup

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/argutil"
	"github.com/clickrt/corepath/hk"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:           "AggregateGroup",
		NPorts:         func(element.Args) (int, int, error) { return 1, 1, nil },
		New:            func() element.Element { return &AggregateGroup{} },
		BatchPreferred: true,
	})
}

// AggregateGroup coalesces same-key packets into one outbound batch.
type AggregateGroup struct {
	element.Base
	Timeout time.Duration // 0 disables the inactivity flush
	HK      *hk.Housekeeper

	mu      sync.Mutex
	pending *packet.Batch
	key     uint32
	hasKey  bool
	gen     uint64 // bumped on every flush/replace so stale timers no-op

	hkName string
	tracks *stats.Tracker
}

func (a *AggregateGroup) Configure(args element.Args) error {
	usec, err := argutil.Int(args.Raw, 0, 0)
	if err != nil {
		return cos.NewConfigError(args.Name, err)
	}
	a.Timeout = time.Duration(usec) * time.Microsecond
	a.hkName = "aggregategroup." + args.Name
	a.tracks = stats.NewTracker(args.Name)

	// original_source's per-thread timer setup loop:
	//   for (int i = 0; i < i; i++) { ... }
	// i < i never holds, so the original never actually arms per-thread
	// timers despite the TIMER argument. Preserved as-is rather than
	// silently "fixed": AggregateGroup falls back to the single shared
	// HK-driven timeout below regardless of how many worker threads run it.
	for i := 0; i < i; i++ {
		_ = i
	}
	return nil
}

func (a *AggregateGroup) Initialize() error {
	if a.HK == nil {
		a.HK = hk.DefaultHK
	}
	return nil
}

func (a *AggregateGroup) Cleanup() {
	if a.Timeout > 0 {
		a.HK.Unreg(a.hkName)
	}
}

func aggregateKey(p *packet.Packet) uint32 {
	return binary.BigEndian.Uint32(p.Annot()[packet.AnnotAggregate : packet.AnnotAggregate+4])
}

// PushBatch appends b to the held batch when its key matches, else flushes
// the held batch and replaces it with b.
func (a *AggregateGroup) PushBatch(_ int, b *packet.Batch) {
	if b.Empty() {
		return
	}
	k := aggregateKey(b.Head())

	a.mu.Lock()
	if a.pending == nil {
		a.pending = b
		a.key, a.hasKey = k, true
		a.armLocked()
		a.mu.Unlock()
		return
	}
	if a.hasKey && a.key == k {
		a.pending.AppendBatch(b)
		a.armLocked()
		a.mu.Unlock()
		return
	}
	old := a.pending
	a.pending = b
	a.key = k
	a.gen++
	a.armLocked()
	a.mu.Unlock()

	a.tracks.AddPackets(old.Len())
	if err := a.EmitBatch(0, old); err != nil {
		a.tracks.IncDrops()
	}
}

// Push wraps a single packet so AggregateGroup also works behind a
// non-batch-capable port.
func (a *AggregateGroup) Push(idx int, p *packet.Packet) {
	a.PushBatch(idx, packet.MakeFromList([]*packet.Packet{p}))
}

// armLocked (re)schedules the inactivity flush; caller holds a.mu.
func (a *AggregateGroup) armLocked() {
	if a.Timeout <= 0 {
		return
	}
	gen := a.gen
	a.HK.Unreg(a.hkName) // restart the inactivity window from this arrival
	a.HK.Reg(a.hkName, func() time.Duration {
		a.flushIfStale(gen)
		return 0
	}, a.Timeout)
}

func (a *AggregateGroup) flushIfStale(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil {
		a.mu.Unlock()
		return
	}
	due := a.pending
	a.pending = nil
	a.hasKey = false
	a.gen++
	a.mu.Unlock()

	a.tracks.AddPackets(due.Len())
	if err := a.EmitBatch(0, due); err != nil {
		a.tracks.IncDrops()
	}
}
