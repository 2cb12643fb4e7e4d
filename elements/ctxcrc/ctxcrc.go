// Package ctxcrc implements CTXCRC: a downstream context element that
// maintains a running CRC-32 over each flow's payload across packets,
// stored in the flow's FCB slice so the checksum survives across
// multiple packets of the same flow.
//
// Grounded on original_source/elements/ctx/ctxcrc.cc's process_data,
// which carries (crc, remain, remainder) state forward call to call;
// here that reduces to hash/crc32's IEEE table plus a running uint32,
// since Go's crc32 package already supports exactly this incremental
// update via crc32.Update. No third-party CRC-32 implementation appears
// anywhere in the retrieval pack, so this one component stays on the
// standard library rather than inventing a dependency with no grounding.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package ctxcrc

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:   "CTXCRC",
		NPorts: func(element.Args) (int, int, error) { return 1, 1, nil },
		New:    func() element.Element { return &CTXCRC{} },
	})
}

// SliceSize is the 4-byte FCB slot holding the running CRC-32.
const SliceSize = 4

type CTXCRC struct {
	element.Base
	Layout *fcb.Layout
	table  *crc32.Table
	tracks *stats.Tracker
}

func (c *CTXCRC) Configure(args element.Args) error {
	c.table = crc32.IEEETable
	c.tracks = stats.NewTracker(args.Name)
	return nil
}

func (c *CTXCRC) Initialize() error { return nil }

// FCBSlice reports the size/alignment the router must reserve for this
// element in the graph's shared FCB layout.
func (c *CTXCRC) FCBSlice() (size, align int) { return SliceSize, 4 }

// SetFCBLayout installs the layout the router finalized once every
// context element had a chance to reserve its slice.
func (c *CTXCRC) SetFCBLayout(l *fcb.Layout) { c.Layout = l }

func (c *CTXCRC) PushFlow(f *fcb.FCB, elemName string, p *packet.Packet) {
	slot := f.Slice(c.Layout, elemName)
	running := binary.BigEndian.Uint32(slot)
	running = crc32.Update(running, c.table, p.Data())
	binary.BigEndian.PutUint32(slot, running)
	c.tracks.IncPackets()
	if err := c.Emit(0, p); err != nil {
		c.tracks.IncDrops()
	}
}

func (c *CTXCRC) Current(f *fcb.FCB, elemName string) uint32 {
	return binary.BigEndian.Uint32(f.Slice(c.Layout, elemName))
}
