// Pool is the per-classifier free list FCBs are allocated from and
// returned to.
// Grounded on core/lom.go's object-metadata free-on-last-unlock path,
// generalized to a bounded slab of fixed-size bodies instead of a
// filesystem-backed struct.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package fcb

import (
	"sync"
	"time"

	"github.com/clickrt/corepath/flow"
)

// ErrExhausted is returned by Alloc when the pool has hit its configured
// ceiling and has no free FCBs to reuse.
type ErrExhausted struct{}

func (ErrExhausted) Error() string { return "fcb pool exhausted" }

// Pool owns a Layout (fixed once Finalize'd) and a free list of FCB
// bodies sized to that layout, plus a list of release callbacks invoked
// in declaration order when any FCB it manages hits zero refs.
type Pool struct {
	layout   *Layout
	max      int
	mu       sync.Mutex
	free     []*FCB
	live     map[*FCB]time.Time // FCB -> last-touched, for the idle sweeper
	releases []namedRelease
}

type namedRelease struct {
	name string
	fn   ReleaseFunc
}

// NewPool returns a pool bounded to max live FCBs (0 means unbounded).
func NewPool(layout *Layout, max int) *Pool {
	return &Pool{layout: layout, max: max, live: make(map[*FCB]time.Time, 256)}
}

// OnRelease registers a callback invoked, in registration order, whenever
// any FCB from this pool is released.
func (p *Pool) OnRelease(name string, fn ReleaseFunc) {
	p.mu.Lock()
	p.releases = append(p.releases, namedRelease{name, fn})
	p.mu.Unlock()
}

// Alloc returns a zero-initialized FCB for leaf, reusing a free body if
// one is available, else allocating a new one (up to max live) or
// returning ErrExhausted.
func (p *Pool) Alloc(leaf *flow.Node) (*FCB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var f *FCB
	if n := len(p.free); n > 0 {
		f = p.free[n-1]
		p.free = p.free[:n-1]
		for i := range f.body {
			f.body[i] = 0
		}
	} else {
		if p.max > 0 && len(p.live) >= p.max {
			return nil, ErrExhausted{}
		}
		f = &FCB{body: make([]byte, p.layout.Size()), pool: p}
	}
	f.leaf = leaf
	f.refs.Store(1) // the allocating packet's implicit reference
	p.live[f] = time.Now()
	return f, nil
}

// onZero runs release callbacks then returns the body to the free list:
// first invoke each interested element's release(fcb) callback, then
// return the FCB memory to its pool.
func (p *Pool) onZero(f *FCB) {
	p.mu.Lock()
	releases := make([]namedRelease, len(p.releases))
	copy(releases, p.releases)
	p.mu.Unlock()

	for _, r := range releases {
		r.fn(f)
	}

	p.mu.Lock()
	delete(p.live, f)
	f.leaf = nil
	p.free = append(p.free, f)
	p.mu.Unlock()
}

// touch refreshes an FCB's idle clock; elements that process a packet
// against an FCB should call this so the sweeper doesn't reclaim an
// active flow.
func (p *Pool) touch(f *FCB) {
	p.mu.Lock()
	p.live[f] = time.Now()
	p.mu.Unlock()
}

func (f *FCB) Touch() { f.pool.touch(f) }

// LiveCount returns the number of FCBs currently allocated (not free).
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// SweepIdle forcibly releases every FCB whose last Touch is older than
// maxIdle, running their normal release path.
func (p *Pool) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	p.mu.Lock()
	var stale []*FCB
	for f, t := range p.live {
		if t.Before(cutoff) {
			stale = append(stale, f)
		}
	}
	p.mu.Unlock()

	for _, f := range stale {
		f.refs.Store(0)
		p.onZero(f)
	}
	return len(stale)
}
