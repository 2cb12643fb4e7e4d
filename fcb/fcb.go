// Package fcb implements Flow Control Block lifecycle: layout,
// allocation, reference counting, release callbacks, and idle sweeping
//. Grounded on core/lom.go's refcounted
// Local Object Metadata (atomic refcount, Lock/Unlock, a free-on-zero
// path) generalized from "one metadata struct per on-disk object" to "one
// byte-sliced struct per live flow with per-element offset layout".
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package fcb

import (
	"errors"
	"sync"

	"github.com/clickrt/corepath/cmn/atomic"
	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/flow"
)

var errLayoutFinalized = errors.New("fcb layout already finalized, cannot reserve more slices")

// ReleaseFunc is invoked, in declaration order, when an FCB's refcount
// reaches zero.
type ReleaseFunc func(*FCB)

// Layout assigns a fixed byte offset to every participating element's
// requested slice, once, at graph-initialize time. Safe for concurrent Reserve calls during graph construction:
// Reserve and Finalize both take the layout's mutex.
type Layout struct {
	mu        sync.Mutex
	once      sync.Once
	finalized bool
	total     int
	slices    map[string]slice
	order     []string
}

type slice struct {
	offset, size, align int
}

func NewLayout() *Layout { return &Layout{slices: make(map[string]slice, 16)} }

// Reserve requests a slice of size bytes (rounded up to align) for the
// named element. Must be called before Finalize; once the layout is
// finalized, Reserve returns a *ConfigError and the layout stays as it
// was (this is what keeps live FCBs from seeing a layout change).
func (l *Layout) Reserve(elem string, size, align int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalized {
		return 0, cos.NewConfigError(elem, errLayoutFinalized)
	}
	if align <= 0 {
		align = 1
	}
	off := roundUp(l.total, align)
	l.slices[elem] = slice{offset: off, size: size, align: align}
	l.order = append(l.order, elem)
	l.total = off + size
	return off, nil
}

func roundUp(n, align int) int {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// Finalize fixes the total FCB size; subsequent Reserve calls fail. Safe
// to call multiple times (idempotent via sync.Once).
func (l *Layout) Finalize() {
	l.once.Do(func() {
		l.mu.Lock()
		l.finalized = true
		l.mu.Unlock()
	})
}

func (l *Layout) Size() int { return l.total }

func (l *Layout) Offset(elem string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slices[elem]
	return s.offset, ok
}

// FCB is the per-flow state block: a fixed-size body sliced up per Layout,
// a refcount, the tree leaf that produced it, and a lock opt-in for
// elements that need cross-thread access.
type FCB struct {
	body  []byte
	leaf  *flow.Node
	refs  atomic.Int32
	pool  *Pool
	mu    sync.Mutex // opt-in per-FCB lock
}

func (f *FCB) Slice(layout *Layout, elem string) []byte {
	off, ok := layout.Offset(elem)
	if !ok {
		return nil
	}
	s := layout.slices[elem]
	return f.body[off : off+s.size]
}

func (f *FCB) Leaf() *flow.Node { return f.leaf }

// Acquire takes an extra reference beyond the implicit per-packet one.
func (f *FCB) Acquire() { f.refs.Inc() }

// Release drops one reference; at zero it runs the pool's release
// callbacks (in declaration order) and returns the FCB to its pool.
func (f *FCB) Release() {
	if f.refs.Dec() > 0 {
		return
	}
	f.pool.onZero(f)
}

// Lock/Unlock guard the FCB body for elements that opted into per-FCB
// locking instead of relying on flow-to-thread affinity.
func (f *FCB) Lock()   { f.mu.Lock() }
func (f *FCB) Unlock() { f.mu.Unlock() }
