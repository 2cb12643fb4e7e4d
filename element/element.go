// Package element defines the Element interface and its lifecycle:
// unconfigured -> configured -> initialized ->
// running -> cleaned, mirroring aistore's xact.Base state machine
// (init -> start -> run -> finish/abort) but generalized from a single
// long-running job to an arbitrary packet-processing node wired into a
// router graph.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package element

import (
	"errors"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/cmn/debug"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

var errNoSuchPort = errors.New("output port not connected")

// Stage is the lifecycle position of an Element.
type Stage int32

const (
	StageUnconfigured Stage = iota
	StageConfigured
	StageInitialized
	StageRunning
	StageCleaned
)

func (s Stage) String() string {
	switch s {
	case StageConfigured:
		return "configured"
	case StageInitialized:
		return "initialized"
	case StageRunning:
		return "running"
	case StageCleaned:
		return "cleaned"
	default:
		return "unconfigured"
	}
}

// Args carries the per-instance configuration handed to Configure: the
// element's string arguments as written in the graph description, plus its
// name for diagnostics.
type Args struct {
	Name string
	Raw  []string
}

// Class is the static descriptor every element type registers with the
// Registry: its name, how many input/output ports it wants, and a factory.
// Grounded on xreg.Renewable's New/Kind shape, generalized from "one
// singleton xaction kind" to "possibly many instances of the same element
// class in one graph".
type Class struct {
	Name     string
	NPorts   func(args Args) (nin, nout int, err error)
	New      func() Element
	BatchPreferred bool // hints the router to prefer batch delivery
}

// Element is implemented by every processing node. Most elements embed
// Base and only implement the push/pull callbacks they care about.
type Element interface {
	Name() string
	Stage() Stage

	// Configure parses Raw arguments and records port counts; may not
	// touch other elements or the router.
	Configure(args Args) error

	// Initialize acquires runtime resources (pool reservations, peer
	// lookups) once the full graph is wired; failures here trigger
	// router rollback.
	Initialize() error

	// Cleanup releases resources acquired in Initialize, in all cases
	// (success or partial-init rollback).
	Cleanup()

	// SetPort binds output port idx to the given Port (router wiring).
	SetPort(idx int, p *port.Port)
	Port(idx int) *port.Port

	NInputs() int
	NOutputs() int
}

// Pusher is implemented by elements that accept packets on an input port
// (push-mode agnostic protocol side).
type Pusher interface {
	Push(inPort int, p *packet.Packet)
	PushBatch(inPort int, b *packet.Batch)
}

// Puller is implemented by elements whose output port is polled.
type Puller interface {
	Pull(outPort int) *packet.Packet
	PullBatch(outPort int, max int) *packet.Batch
}

// FlowContext is implemented by elements that keep private, per-flow
// state in a shared FCB (package fcb) instead of in the element itself:
// CTXCounter, CTXCRC, and similar context elements. The router builds one
// shared Layout per graph, reserves each implementor's slice before
// Finalize, then calls SetFCBLayout so the element can address its slot.
type FlowContext interface {
	Element
	FCBSlice() (size, align int)
	SetFCBLayout(*fcb.Layout)
}

// FlowClassifierHost is implemented by the one element per graph that
// owns the shared FCB pool (FlowClassifier). The router wires in the
// finalized Layout and a freshly built Pool once every FlowContext
// element has reserved its slice.
type FlowClassifierHost interface {
	Element
	SetFCBLayout(*fcb.Layout)
	SetFCBPool(*fcb.Pool)
}

// Base is embedded by concrete elements; it tracks lifecycle stage and
// port wiring so the element body only needs to implement its processing
// logic (same embedding idiom as aistore's xact.Base).
type Base struct {
	name  string
	id    string
	stage Stage
	ports []*port.Port
	nin   int
}

func (b *Base) Init(name string, nin, nout int) {
	b.name = name
	b.id = cos.GenUUID()
	b.nin = nin
	b.ports = make([]*port.Port, nout)
}

func (b *Base) Name() string { return b.name }

// ID returns the opaque instance ID assigned at Init, for diagnostics
// (logs, the control RPC surface) that need to disambiguate two elements
// sharing a class or, after a config reload, a name.
func (b *Base) ID() string    { return b.id }
func (b *Base) Stage() Stage  { return b.stage }
func (b *Base) NInputs() int  { return b.nin }
func (b *Base) NOutputs() int { return len(b.ports) }

func (b *Base) SetStage(s Stage) { b.stage = s }

func (b *Base) SetPort(idx int, p *port.Port) {
	debug.Assert(idx >= 0 && idx < len(b.ports), "output port index out of range")
	b.ports[idx] = p
}

func (b *Base) Port(idx int) *port.Port {
	if idx < 0 || idx >= len(b.ports) {
		return nil
	}
	return b.ports[idx]
}

// Emit pushes p out output port idx, dropping (and freeing) it if the port
// is unset or rejects it, counted by the caller via Stats.
func (b *Base) Emit(idx int, p *packet.Packet) error {
	out := b.Port(idx)
	if out == nil {
		p.Free()
		return cos.NewInitError(b.name, errNoSuchPort)
	}
	return out.Push(p)
}

func (b *Base) EmitBatch(idx int, bt *packet.Batch) error {
	out := b.Port(idx)
	if out == nil {
		bt.Free()
		return cos.NewInitError(b.name, errNoSuchPort)
	}
	return out.PushBatch(bt)
}

// Cleanup is a no-op default; elements that acquire resources in
// Initialize override it.
func (b *Base) Cleanup() {}
