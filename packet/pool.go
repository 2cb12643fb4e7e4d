// Package packet implements the owned byte-buffer packet abstraction and
// its singly-linked batch, with headroom/tailroom discipline, annotation
// storage, and copy-on-write sharing.
//
// Sizing and the slab-pool shape are grounded on the memsys.MMSA allocator
// referenced throughout aistore's transport package (memsys.DefaultBufSize,
// memsys.PageSize, memsys.MaxPageSlabSize) - the pool below plays the role
// memsys itself would have played had its implementation survived retrieval.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package packet

import "sync"

const (
	// DefaultHeadroom reserves room for elements that prepend headers
	// (Ethernet/IP/UDP encaps) without forcing a reallocation.
	DefaultHeadroom = 128
	// DefaultTailroom reserves room for trailers (FCS, padding) similarly.
	DefaultTailroom = 64

	// size classes, named after memsys' own slab tiers
	DefaultBufSize  = 4 * 1024
	PageSize        = 4 * 1024
	MaxPageSlabSize = 128 * 1024
)

// class is one size-classed free list.
type class struct {
	mu   sync.Mutex
	free [][]byte
	size int
}

func newClass(size int) *class { return &class{size: size} }

func (c *class) alloc() []byte {
	c.mu.Lock()
	n := len(c.free)
	if n == 0 {
		c.mu.Unlock()
		return make([]byte, c.size)
	}
	b := c.free[n-1]
	c.free = c.free[:n-1]
	c.mu.Unlock()
	return b[:c.size]
}

func (c *class) free_(b []byte) {
	if cap(b) < c.size {
		return
	}
	c.mu.Lock()
	c.free = append(c.free, b[:c.size])
	c.mu.Unlock()
}

// Pool is a size-classed slab allocator for packet buffers. It never fails
// allocation (it falls back to make(), same as an exhausted memsys slab
// does) - the only failure path is an explicit allocation error, which
// in Go terms reduces to out-of-memory and is reported by the
// runtime, not by Pool.
type Pool struct {
	classes []*class
}

// NewPool returns a pool with size classes (small, medium, large) rounded
// up from DefaultBufSize/PageSize/MaxPageSlabSize.
func NewPool() *Pool {
	return &Pool{classes: []*class{
		newClass(DefaultBufSize),
		newClass(PageSize * 4),
		newClass(MaxPageSlabSize),
	}}
}

// DefaultPool is the process-wide pool used when callers don't construct
// their own (mirrors memsys.DefaultPageMM-style package-level default).
var DefaultPool = NewPool()

func (p *Pool) classFor(size int) *class {
	for _, c := range p.classes {
		if size <= c.size {
			return c
		}
	}
	return nil
}

// Alloc returns a buffer of at least size bytes (capacity may be larger;
// callers must slice to len).
func (p *Pool) Alloc(size int) []byte {
	if c := p.classFor(size); c != nil {
		return c.alloc()[:size]
	}
	return make([]byte, size)
}

// Grow returns a new buffer of at least size bytes, copying over old's
// contents. Packet.Push/Put do not call it; they reallocate through
// Packet.realloc.
func (p *Pool) Grow(old []byte, size int) []byte {
	b := p.Alloc(size)
	copy(b, old)
	return b
}

// Free returns b to its size class, if any.
func (p *Pool) Free(b []byte) {
	if c := p.classFor(cap(b)); c != nil && c.size == cap(b) {
		c.free_(b)
	}
}
