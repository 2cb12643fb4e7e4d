// Package packet - the Packet type.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package packet

import (
	"github.com/clickrt/corepath/cmn/atomic"
	"github.com/clickrt/corepath/cmn/debug"
)

// AnnotSize is the fixed-size annotation scratch area carried by every
// packet: timestamp(16) + paint(1) + aggregate(4) +
// dst-IP(4) + content-offset(2) + scratch, rounded up past the 48B floor.
const AnnotSize = 64

// named annotation offsets
const (
	AnnotTimestamp = 0  // 16B monotonic/wall nanosecond pair
	AnnotPaint     = 16 // 1B
	AnnotAggregate = 17 // 4B
	AnnotDstIP     = 21 // 4B
	AnnotContentOff = 25 // 2B
	AnnotScratch   = 27 // remaining bytes
)

// UnsetOffset marks a header offset field ("MAC/network/transport") as not
// present on this packet.
const UnsetOffset = -1

// DtorKind selects how a packet's backing buffer is released once the last
// reference drops.
type DtorKind int

const (
	DtorPool     DtorKind = iota // return to a packet.Pool
	DtorExternal                 // device-owned buffer return callback
	DtorNone                     // externally-owned, no-op
)

type dtor struct {
	kind DtorKind
	pool *Pool
	cb   func([]byte)
}

// shared is the per-buffer share-count cell; every clone of a packet points
// at the same shared cell so Clone/Uniqueify can agree on ownership.
type shared struct {
	count atomic.Int32 // 1 == unique; >1 == shared
}

// Packet owns a contiguous byte buffer with headroom | data | tailroom.
// All mutating operations require uniqueness.
type Packet struct {
	buf  []byte // full backing buffer
	head int    // start of valid data within buf
	tail int    // end of valid data within buf (exclusive)

	macOff, netOff, xportOff int32

	annot [AnnotSize]byte

	next *Packet // batch linkage only

	dtor   dtor
	shared *shared

	pool *Pool
}

// Make returns a unique packet with ln bytes of data, unspecified contents,
// at least DefaultHeadroom headroom and DefaultTailroom tailroom.
func Make(ln int, pool *Pool) *Packet {
	if pool == nil {
		pool = DefaultPool
	}
	buf := pool.Alloc(DefaultHeadroom + ln + DefaultTailroom)
	p := &Packet{
		buf:      buf,
		head:     DefaultHeadroom,
		tail:     DefaultHeadroom + ln,
		macOff:   UnsetOffset,
		netOff:   UnsetOffset,
		xportOff: UnsetOffset,
		dtor:     dtor{kind: DtorPool, pool: pool},
		shared:   &shared{},
		pool:     pool,
	}
	p.shared.count.Store(1)
	return p
}

// MakeExternal wraps an externally-owned buffer (e.g. a device RX
// descriptor) with a caller-supplied release callback, or none at all.
func MakeExternal(buf []byte, release func([]byte)) *Packet {
	p := &Packet{
		buf:      buf,
		head:     0,
		tail:     len(buf),
		macOff:   UnsetOffset,
		netOff:   UnsetOffset,
		xportOff: UnsetOffset,
		shared:   &shared{},
	}
	p.shared.count.Store(1)
	if release != nil {
		p.dtor = dtor{kind: DtorExternal, cb: release}
	} else {
		p.dtor = dtor{kind: DtorNone}
	}
	return p
}

func (p *Packet) Len() int        { return p.tail - p.head }
func (p *Packet) Headroom() int   { return p.head }
func (p *Packet) Tailroom() int   { return len(p.buf) - p.tail }
func (p *Packet) Data() []byte    { return p.buf[p.head:p.tail] }
func (p *Packet) IsUnique() bool  { return p.shared.count.Load() == 1 }
func (p *Packet) ShareCount() int32 { return p.shared.count.Load() }

func (p *Packet) MAC() int32       { return p.macOff }
func (p *Packet) Network() int32   { return p.netOff }
func (p *Packet) Transport() int32 { return p.xportOff }

func (p *Packet) SetMAC(off int32) {
	debug.Assert(p.IsUnique(), "SetMAC requires a unique packet")
	p.macOff = off
}
func (p *Packet) SetNetwork(off int32) {
	debug.Assert(p.IsUnique(), "SetNetwork requires a unique packet")
	p.netOff = off
}
func (p *Packet) SetTransport(off int32) {
	debug.Assert(p.IsUnique(), "SetTransport requires a unique packet")
	p.xportOff = off
}

// Annot returns the fixed-size annotation area. Reads are always
// permitted; writes must be done via WriteAnnot, which asserts uniqueness.
func (p *Packet) Annot() *[AnnotSize]byte { return &p.annot }

func (p *Packet) WriteAnnot(off int, b []byte) {
	debug.Assert(p.IsUnique(), "annotation writes require a unique packet")
	copy(p.annot[off:], b)
}

// Push grows data backward into headroom by n bytes, O(1) if room allows,
// else reallocates. Requires uniqueness.
func (p *Packet) Push(n int) {
	debug.Assert(p.IsUnique(), "Push requires a unique packet")
	debug.Assert(n >= 0)
	if p.head >= n {
		p.head -= n
		return
	}
	p.realloc(n, 0)
	p.head -= n
}

// Pull advances the data pointer forward by n bytes (shrink, always O(1)).
// Permitted on shared packets (a view-narrowing read op); n must not
// exceed the current data length.
func (p *Packet) Pull(n int) {
	debug.Assert(n <= p.Len(), "Pull(n) beyond data length")
	p.head += n
}

// Put grows data forward into tailroom by n bytes, symmetric to Push.
func (p *Packet) Put(n int) {
	debug.Assert(p.IsUnique(), "Put requires a unique packet")
	debug.Assert(n >= 0)
	if len(p.buf)-p.tail >= n {
		p.tail += n
		return
	}
	p.realloc(0, n)
	p.tail += n
}

// Take shrinks from the tail by n bytes, symmetric to Pull.
func (p *Packet) Take(n int) {
	debug.Assert(n <= p.Len(), "Take(n) beyond data length")
	p.tail -= n
}

func (p *Packet) realloc(needHead, needTail int) {
	pool := p.pool
	if pool == nil {
		pool = DefaultPool
	}
	newLen := len(p.buf) + needHead + needTail
	nb := pool.Alloc(newLen)
	newHead := p.head + needHead
	copy(nb[newHead:newHead+p.Len()], p.Data())
	old := p.buf
	p.buf = nb
	p.tail = newHead + p.Len()
	p.head = newHead
	if p.dtor.kind == DtorPool && p.dtor.pool != nil {
		p.dtor.pool.Free(old)
	}
	p.dtor = dtor{kind: DtorPool, pool: pool}
	p.pool = pool
}

// Clone returns a shared, read-only view of the same buffer in O(1).
func (p *Packet) Clone() *Packet {
	p.shared.count.Inc()
	c := *p
	c.next = nil
	return &c
}

// Uniqueify returns a packet the caller may freely mutate: identity if
// already unique, else a private copy of data + annotations.
func (p *Packet) Uniqueify() *Packet {
	if p.IsUnique() {
		return p
	}
	u := p.Duplicate()
	p.shared.count.Dec()
	return u
}

// Duplicate always returns an independent unique copy of data + annotations.
func (p *Packet) Duplicate() *Packet {
	pool := p.pool
	if pool == nil {
		pool = DefaultPool
	}
	nb := pool.Alloc(len(p.buf))
	copy(nb, p.buf)
	u := &Packet{
		buf:      nb,
		head:     p.head,
		tail:     p.tail,
		macOff:   p.macOff,
		netOff:   p.netOff,
		xportOff: p.xportOff,
		annot:    p.annot,
		dtor:     dtor{kind: DtorPool, pool: pool},
		shared:   &shared{},
		pool:     pool,
	}
	u.shared.count.Store(1)
	return u
}

// Free releases the packet's reference; when the last reference drops it
// invokes the registered destructor exactly once.
func (p *Packet) Free() {
	if p.shared.count.Dec() > 0 {
		return
	}
	switch p.dtor.kind {
	case DtorPool:
		if p.dtor.pool != nil {
			p.dtor.pool.Free(p.buf)
		}
	case DtorExternal:
		if p.dtor.cb != nil {
			p.dtor.cb(p.buf)
		}
	case DtorNone:
		// externally owned, nothing to do
	}
}

// Next returns the batch-list successor (nil outside a batch, or at tail).
func (p *Packet) Next() *Packet { return p.next }
