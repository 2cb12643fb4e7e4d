// Package flow implements FlowNode classification trees: a
// decision tree that maps a packet's header fields to a leaf, in O(tree
// depth) comparisons without backtracking. aistore has no packet
// classifier of its own to draw on, so this is grounded directly on
// original_source/elements/flow/*.cc's per-field dispatch idiom and its
// node-kind enumeration, using
// github.com/OneOfOne/xxhash for the Hash node kind and
// golang.org/x/crypto/blake2b as an alternate digest for wide keys (e.g.
// IPv6 5-tuples) where xxhash's 64-bit output collides too often at scale.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package flow

import (
	"golang.org/x/crypto/blake2b"

	"github.com/OneOfOne/xxhash"
)

// Level describes which bits of the packet a node inspects: a byte offset
// relative to the current inspection origin, plus a bit mask and width.
type Level struct {
	Offset int
	Mask   uint64
	Width  int // bytes
}

// Kind selects a node's matching strategy.
type Kind int

const (
	KindExact Kind = iota
	KindHash
	KindArray
	KindRange
	KindDefault
)

// Digest selects the hash function a Hash node uses.
type Digest int

const (
	DigestXXHash Digest = iota
	DigestBlake2b
)

// Node is one FlowNode: a level to inspect, children keyed by matched
// value, an optional default child, and - at a leaf - a terminal payload
// (an FCB template reference, opaque to this package).
type Node struct {
	Level   Level
	Kind    Kind
	Digest  Digest
	Payload any // *fcb.Template or similar, set only on leaves

	exact   map[uint64]*Node
	arr     []*Node // dense table, KindArray
	ranges  []rangeChild
	byHash  map[uint64]*Node
	def     *Node
}

type rangeChild struct {
	lo, hi uint64 // inclusive
	child  *Node
}

func NewNode(level Level, kind Kind) *Node {
	n := &Node{Level: level, Kind: kind}
	switch kind {
	case KindExact:
		n.exact = make(map[uint64]*Node)
	case KindHash:
		n.byHash = make(map[uint64]*Node)
	case KindArray:
		n.arr = make([]*Node, 1<<uint(level.Width*8))
	}
	return n
}

// Leaf marks n as terminal with the given payload.
func (n *Node) Leaf(payload any) *Node {
	n.Payload = payload
	return n
}

// AddExact installs a labelled child for KindExact/KindHash nodes.
func (n *Node) AddExact(value uint64, child *Node) *Node {
	switch n.Kind {
	case KindExact:
		n.exact[value] = child
	case KindHash:
		n.byHash[n.hash(value)] = child
	}
	return n
}

// AddArrayIndex installs a child at a dense index for KindArray nodes.
func (n *Node) AddArrayIndex(idx int, child *Node) *Node {
	if idx >= 0 && idx < len(n.arr) {
		n.arr[idx] = child
	}
	return n
}

// AddRange installs an ordered [lo, hi] child for KindRange nodes.
func (n *Node) AddRange(lo, hi uint64, child *Node) *Node {
	n.ranges = append(n.ranges, rangeChild{lo, hi, child})
	return n
}

// SetDefault installs the fallthrough child used when nothing else matches.
func (n *Node) SetDefault(child *Node) *Node {
	n.def = child
	return n
}

func (n *Node) hash(value uint64) uint64 {
	if n.Digest == DigestBlake2b {
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(value >> (8 * i))
		}
		sum := blake2b.Sum256(buf[:])
		var h uint64
		for i := 0; i < 8; i++ {
			h = h<<8 | uint64(sum[i])
		}
		return h
	}
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	return xxhash.Checksum64(buf[:])
}

// ErrNoMatch signals lookup failure with no default present.
type ErrNoMatch struct{}

func (ErrNoMatch) Error() string { return "no matching flow" }

// Lookup extracts the field described by n.Level from data (measured from
// origin, the current inspection offset) and walks to the matching leaf,
// recursing through child nodes until a Payload is set. It never
// backtracks.
func Lookup(n *Node, data []byte, origin int) (*Node, error) {
	for n.Payload == nil {
		next, err := n.step(data, origin)
		if err != nil {
			return nil, err
		}
		n = next
	}
	return n, nil
}

func (n *Node) step(data []byte, origin int) (*Node, error) {
	off := origin + n.Level.Offset
	if off < 0 || off+n.Level.Width > len(data) {
		if n.def != nil {
			return n.def, nil
		}
		return nil, ErrNoMatch{}
	}
	v := extract(data[off:off+n.Level.Width], n.Level.Mask)

	var child *Node
	switch n.Kind {
	case KindExact:
		child = n.exact[v]
	case KindHash:
		child = n.byHash[n.hash(v)]
	case KindArray:
		if int(v) < len(n.arr) {
			child = n.arr[int(v)]
		}
	case KindRange:
		for _, rc := range n.ranges {
			if v >= rc.lo && v <= rc.hi {
				child = rc.child
				break
			}
		}
	case KindDefault:
		child = n.def
	}
	if child == nil {
		child = n.def
	}
	if child == nil {
		return nil, ErrNoMatch{}
	}
	return child, nil
}

func extract(b []byte, mask uint64) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	if mask != 0 {
		v &= mask
	}
	return v
}
