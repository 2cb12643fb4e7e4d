// Package ctxcounter implements CTXCounter: a downstream context element
// that accumulates total bytes seen per flow into its reserved FCB slice,
// then forwards the packet unchanged. Context elements read and write
// their own private slice of a flow's FCB using compile-time offsets.
// Grounded on original_source/elements/ctx/ctxcounter.cc's
// push_flow(port, *fcb, flow): *fcb += flow->length(); output_push_batch.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package ctxcounter

import (
	"encoding/binary"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:   "CTXCounter",
		NPorts: func(element.Args) (int, int, error) { return 1, 1, nil },
		New:    func() element.Element { return &CTXCounter{} },
	})
}

// SliceSize is the 8-byte FCB context slot this element reserves for its
// running byte total.
const SliceSize = 8

type CTXCounter struct {
	element.Base
	Layout *fcb.Layout
	tracks *stats.Tracker
}

func (c *CTXCounter) Configure(args element.Args) error {
	c.tracks = stats.NewTracker(args.Name)
	return nil
}

func (c *CTXCounter) Initialize() error { return nil }

// FCBSlice reports the size/alignment the router must reserve for this
// element in the graph's shared FCB layout.
func (c *CTXCounter) FCBSlice() (size, align int) { return SliceSize, 8 }

// SetFCBLayout installs the layout the router finalized once every
// context element had a chance to reserve its slice.
func (c *CTXCounter) SetFCBLayout(l *fcb.Layout) { c.Layout = l }

// PushFlow adds p's length to f's running total and forwards p downstream.
func (c *CTXCounter) PushFlow(f *fcb.FCB, elemName string, p *packet.Packet) {
	slot := f.Slice(c.Layout, elemName)
	total := binary.BigEndian.Uint64(slot) + uint64(p.Len())
	binary.BigEndian.PutUint64(slot, total)
	c.tracks.IncPackets()
	if err := c.Emit(0, p); err != nil {
		c.tracks.IncDrops()
	}
}

// Total reads f's accumulated byte count without mutating it.
func (c *CTXCounter) Total(f *fcb.FCB, elemName string) uint64 {
	return binary.BigEndian.Uint64(f.Slice(c.Layout, elemName))
}
