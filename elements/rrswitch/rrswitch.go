// Package rrswitch implements RoundRobinSwitch: a single-input,
// N-output element that assigns each arriving flow to the next output
// port in round-robin order and sticks with that assignment for the rest
// of the flow's lifetime - new flows advance the counter, packets of an
// already-assigned flow reuse its recorded output.
//
// Grounded on original_source/elements/flow/flowrrswitch.cc's
// push_flow(port, rr, batch): *rr == 0 means "unassigned", in which case
// it claims (_rr++ % noutputs) + 1 and remembers it; every other call for
// the same flow just replays *rr. Here the per-flow *rr slot is an FCB
// context slice instead of a raw int* the caller threads
// through, since this module's FCB already is that per-flow memory.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package rrswitch

import (
	"encoding/binary"

	"github.com/clickrt/corepath/cmn/atomic"
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/argutil"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name: "RoundRobinSwitch",
		NPorts: func(args element.Args) (int, int, error) {
			n, err := argutil.RequireInt(args.Raw, 0)
			if err != nil {
				return 0, 0, err
			}
			return 1, n, nil
		},
		New: func() element.Element { return &RoundRobinSwitch{} },
	})
}

// SliceSize is the 4-byte FCB context slot this element claims to record
// a flow's assigned output port (0 means "unassigned").
const SliceSize = 4

type RoundRobinSwitch struct {
	element.Base
	rr     atomic.Uint32
	tracks *stats.Tracker
}

func (r *RoundRobinSwitch) Configure(args element.Args) error {
	r.tracks = stats.NewTracker(args.Name)
	return nil
}

func (r *RoundRobinSwitch) Initialize() error { return nil }

// Assign resolves (and if unset, claims) the output port for f, returning
// a 0-based output index.
func (r *RoundRobinSwitch) Assign(f *fcb.FCB, layout *fcb.Layout, elemName string) int {
	slot := f.Slice(layout, elemName)
	if slot == nil {
		return int(r.rr.Add(1)-1) % r.NOutputs()
	}
	v := binary.BigEndian.Uint32(slot)
	if v == 0 {
		v = r.rr.Add(1)
		binary.BigEndian.PutUint32(slot, v)
	}
	return int(v-1) % r.NOutputs()
}

// PushFlow routes p to the port assigned to f.
func (r *RoundRobinSwitch) PushFlow(f *fcb.FCB, layout *fcb.Layout, elemName string, p *packet.Packet) {
	out := r.Assign(f, layout, elemName)
	if err := r.Emit(out, p); err != nil {
		r.tracks.IncDrops()
	} else {
		r.tracks.IncPackets()
	}
}
