// Package source implements InfiniteSource: a pull-mode, zero-input,
// single-output generator element driven as a sched.Task - each Run call
// produces up to a configured burst of packets and pushes them downstream,
// matching aistore's device-RX polling convention (a dedicated
// goroutine pulling a ring buffer) generalized to a cooperative task that
// reports progress so package sched knows whether to keep it hot or let
// it idle.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/argutil"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:           "InfiniteSource",
		BatchPreferred: true,
		NPorts:         func(element.Args) (int, int, error) { return 0, 1, nil },
		New:            func() element.Element { return &InfiniteSource{} },
	})
}

// Generator produces one packet's worth of payload, or nil when nothing
// is available (e.g. an exhausted fixture for tests).
type Generator func() []byte

// InfiniteSource emits packets built from Gen (or zero-filled packets of
// Length if Gen is nil) until Limit is reached (0 means unbounded).
type InfiniteSource struct {
	element.Base
	Gen    Generator
	Length int
	Burst  int
	Limit  int64

	emitted int64
	tracks  *stats.Tracker
}

func (s *InfiniteSource) Configure(args element.Args) error {
	length, err := argutil.Int(args.Raw, 0, 64)
	if err != nil {
		return err
	}
	burst, err := argutil.Int(args.Raw, 1, 32)
	if err != nil {
		return err
	}
	limit, err := argutil.Int(args.Raw, 2, 0)
	if err != nil {
		return err
	}
	s.Length = length
	s.Burst = burst
	s.Limit = int64(limit)
	s.tracks = stats.NewTracker(args.Name)
	return nil
}

func (s *InfiniteSource) Initialize() error { return nil }

// Run implements sched.Task: emits up to Burst packets per call, false
// once Limit is reached.
func (s *InfiniteSource) Run() bool {
	if s.Limit > 0 && s.emitted >= s.Limit {
		return false
	}
	progressed := false
	for i := 0; i < s.Burst; i++ {
		if s.Limit > 0 && s.emitted >= s.Limit {
			break
		}
		p := s.next()
		if p == nil {
			break
		}
		if err := s.Emit(0, p); err != nil {
			s.tracks.IncDrops()
		} else {
			s.tracks.IncPackets()
		}
		s.emitted++
		progressed = true
	}
	return progressed
}

func (s *InfiniteSource) next() *packet.Packet {
	if s.Gen != nil {
		data := s.Gen()
		if data == nil {
			return nil
		}
		p := packet.Make(len(data), nil)
		copy(p.Data(), data)
		return p
	}
	return packet.Make(s.Length, nil)
}

func (s *InfiniteSource) Emitted() int64 { return s.emitted }
