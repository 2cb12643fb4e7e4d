// Package strip implements StripBytes/UnstripBytes: StripBytes pulls n
// bytes off the front of every packet (e.g. to discard a header once a
// classifier has consumed it); UnstripBytes pushes n bytes back,
// restoring an equivalent region of headroom (e.g. before re-emitting a
// packet that a downstream element expects un-stripped).
//
// Grounded on original_source/elements/flow/flowunstrip.cc's
// push(nbytes)-per-packet simple_action_batch, and flowstrip.cc's
// symmetric pull(nbytes); the "not enough headroom" warning path in the
// original becomes an explicit uniqueify-then-push here since
// packet.Packet.Push already reallocates when headroom is insufficient.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package strip

import (
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/argutil"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:           "StripBytes",
		BatchPreferred: true,
		NPorts:         func(element.Args) (int, int, error) { return 1, 1, nil },
		New:            func() element.Element { return &Strip{} },
	})
	element.Register(&element.Class{
		Name:           "UnstripBytes",
		BatchPreferred: true,
		NPorts:         func(element.Args) (int, int, error) { return 1, 1, nil },
		New:            func() element.Element { return &Unstrip{} },
	})
}

// Strip pulls N bytes from the front of every packet it sees.
type Strip struct {
	element.Base
	n      int
	tracks *stats.Tracker
}

func (s *Strip) Configure(args element.Args) error {
	n, err := argutil.RequireInt(args.Raw, 0)
	if err != nil {
		return err
	}
	s.n = n
	s.tracks = stats.NewTracker(args.Name)
	return nil
}

func (s *Strip) Initialize() error { return nil }

func (s *Strip) Push(inPort int, p *packet.Packet) {
	s.tracks.IncPackets()
	p.Pull(s.n)
	if err := s.Emit(0, p); err != nil {
		s.tracks.IncDrops()
	}
}

func (s *Strip) PushBatch(inPort int, b *packet.Batch) {
	for p := b.PopHead(); p != nil; p = b.PopHead() {
		s.Push(inPort, p)
	}
}

// Unstrip pushes N bytes back onto the front of every packet, restoring
// headroom that a prior Strip consumed.
type Unstrip struct {
	element.Base
	n      int
	tracks *stats.Tracker
}

func (u *Unstrip) Configure(args element.Args) error {
	n, err := argutil.RequireInt(args.Raw, 0)
	if err != nil {
		return err
	}
	u.n = n
	u.tracks = stats.NewTracker(args.Name)
	return nil
}

func (u *Unstrip) Initialize() error { return nil }

func (u *Unstrip) Push(inPort int, p *packet.Packet) {
	u.tracks.IncPackets()
	p = p.Uniqueify()
	p.Push(u.n)
	if err := u.Emit(0, p); err != nil {
		u.tracks.IncDrops()
	}
}

func (u *Unstrip) PushBatch(inPort int, b *packet.Batch) {
	for p := b.PopHead(); p != nil; p = b.PopHead() {
		u.Push(inPort, p)
	}
}
