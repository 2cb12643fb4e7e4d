// Package classify implements FlowClassifier: the element that sits at a
// chosen point in the graph, walks a flow.Node tree to classify each
// packet, and finds (allocating on first sight, reusing thereafter) the
// packet's FCB. Classify returns that FCB to its caller; the element has
// no Push method and does not forward packets itself. It does not build
// its tree either: Initialize only finalizes the FCB layout, and Tree is
// assigned by the program that embeds the classifier (nothing here visits
// the downstream subgraph or Combines sub-trees). The shape mirrors
// original_source/elements/flow/flowsimpleloadbalancer.hh's
// get_table()/Combine()-driven setup and flowcounter.cc's
// push_batch(port, *fcb, batch) per-flow-context callback shape,
// generalized from a single hand-written field accessor to the FCB
// slice/offset mechanism in package fcb.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package classify

import (
	"sync"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/flow"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:   "FlowClassifier",
		NPorts: func(element.Args) (int, int, error) { return 1, 1, nil },
		New:    func() element.Element { return &FlowClassifier{} },
	})
}

// FlowClassifier owns the classification tree, the FCB layout its
// downstream context elements have reserved into, and the pool FCBs are
// drawn from.
type FlowClassifier struct {
	element.Base

	Tree   *flow.Node // assigned by the embedding program; not built by router.Build
	Layout *fcb.Layout
	Pool   *fcb.Pool

	Filter *flow.MembershipFilter // optional; new flow keys are admitted, Classify never queries it

	mu      sync.Mutex
	byLeaf  map[*flow.Node]map[uint64]*fcb.FCB // leaf -> flow key -> FCB
	tracks  *stats.Tracker
}

func (c *FlowClassifier) Configure(args element.Args) error {
	c.byLeaf = make(map[*flow.Node]map[uint64]*fcb.FCB)
	c.tracks = stats.NewTracker(args.Name)
	return nil
}

func (c *FlowClassifier) Initialize() error {
	if c.Layout != nil {
		c.Layout.Finalize()
	}
	return nil
}

// SetFCBLayout installs the layout the router finalized once every
// context element downstream had a chance to reserve its slice.
func (c *FlowClassifier) SetFCBLayout(l *fcb.Layout) { c.Layout = l }

// SetFCBPool installs the pool the router built against that layout.
func (c *FlowClassifier) SetFCBPool(p *fcb.Pool) { c.Pool = p }

// Classify extracts a packet's flow key (its tree leaf plus a caller-given
// 64-bit key, typically a hash of the n-tuple the leaf terminates on),
// finds or allocates the matching FCB, and returns it; forwarding the
// packet into the context region is left to the caller.
func (c *FlowClassifier) Classify(p *packet.Packet, origin int, key uint64) (*fcb.FCB, error) {
	leaf, err := flow.Lookup(c.Tree, p.Data(), origin)
	if err != nil {
		c.tracks.IncDrops()
		return nil, err
	}

	c.mu.Lock()
	byKey, ok := c.byLeaf[leaf]
	if !ok {
		byKey = make(map[uint64]*fcb.FCB)
		c.byLeaf[leaf] = byKey
	}
	f, ok := byKey[key]
	c.mu.Unlock()
	if ok {
		f.Acquire()
		f.Touch()
		c.tracks.IncPackets()
		return f, nil
	}

	nf, err := c.Pool.Alloc(leaf)
	if err != nil {
		c.tracks.IncPoolExhausted()
		return nil, err
	}

	c.mu.Lock()
	if existing, raced := byKey[key]; raced {
		c.mu.Unlock()
		nf.Release() // lost the race, give back the spare FCB
		existing.Acquire()
		c.tracks.IncPackets()
		return existing, nil
	}
	byKey[key] = nf
	c.mu.Unlock()

	if c.Filter != nil {
		c.Filter.Admit(key)
	}
	nf.Acquire() // second reference: one for the packet, one for byLeaf's index
	c.tracks.IncPackets()
	return nf, nil
}

// Forget removes a released FCB's index entry; call from a release
// callback registered on Pool so byLeaf doesn't accumulate dead entries.
func (c *FlowClassifier) Forget(f *fcb.FCB, key uint64) {
	c.mu.Lock()
	if byKey, ok := c.byLeaf[f.Leaf()]; ok {
		delete(byKey, key)
	}
	c.mu.Unlock()
	if c.Filter != nil {
		c.Filter.Forget(key)
	}
}
