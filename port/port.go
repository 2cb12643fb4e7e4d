// Package port implements the push/pull dual protocol between connected
// element ports, plus the Notifier/signal mechanism a pull-side consumer
// uses to be woken when data becomes available.
//
// The ownership shape is loosely grounded on aistore's transport.ObjSentCB
// and Extra.Callback convention (transport/api.go): a port, like a stream,
// takes ownership of what's handed to it. Unlike a stream, it reports
// failure synchronously through Push's error return, not a callback.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package port

import (
	"errors"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/packet"
)

var (
	errPortNotPush = errors.New("port is not in push mode")
)

// Protocol identifies which half of the push/pull dual an element's port
// implements. A Port's protocol is fixed by its constructor; ProtoAgnostic
// is named here but no code resolves an agnostic port to push or pull.
type Protocol int

const (
	ProtoUnknown Protocol = iota
	ProtoPush
	ProtoPull
	ProtoAgnostic
)

func (p Protocol) String() string {
	switch p {
	case ProtoPush:
		return "push"
	case ProtoPull:
		return "pull"
	case ProtoAgnostic:
		return "agnostic"
	default:
		return "unknown"
	}
}

// Pusher is implemented by a port that accepts packets pushed into it.
type Pusher interface {
	Push(p *packet.Packet) error
	PushBatch(b *packet.Batch) error
}

// Puller is implemented by a port that yields a packet (or batch) on
// demand, returning nil when nothing is currently available.
type Puller interface {
	Pull() *packet.Packet
	PullBatch(max int) *packet.Batch
}

// Notifier lets a pull-side producer tell a scheduled consumer "data is now
// available" without the consumer having to poll. A Notifier's Signal must be safe to call from
// any thread.
type Notifier interface {
	Signal()
}

// NotifyFunc adapts a plain function to the Notifier interface.
type NotifyFunc func()

func (f NotifyFunc) Signal() { f() }

// Port is one endpoint of a connection between two elements. The same type
// serves both ends: an output port wraps a Pusher (push) or is polled by
// the downstream element (pull); an input port is the symmetric opposite.
// Exactly one of Push/Pull is active on a given Port depending on the
// negotiated Protocol.
type Port struct {
	proto Protocol

	pusher Pusher
	puller Puller

	notifier Notifier

	// PeerElem/PeerIdx name the element/port-index pair on the far side,
	// for diagnostics; the router does not fill them in.
	PeerElem string
	PeerIdx  int
}

// NewPushPort returns a port bound to a push-mode downstream.
func NewPushPort(p Pusher) *Port { return &Port{proto: ProtoPush, pusher: p} }

// NewPullPort returns a port bound to a pull-mode upstream.
func NewPullPort(p Puller) *Port { return &Port{proto: ProtoPull, puller: p} }

func (p *Port) Protocol() Protocol { return p.proto }

// SetNotifier installs a push-available signal the port's producer invokes
// after enqueuing data; pull-mode consumers scheduled as tasks (package
// sched) use this to avoid busy-polling an empty port.
func (p *Port) SetNotifier(n Notifier) { p.notifier = n }

func (p *Port) Signal() {
	if p.notifier != nil {
		p.notifier.Signal()
	}
}

// Push delivers a single packet through a push-mode port; on any other
// port it frees the packet and returns an error.
func (p *Port) Push(pk *packet.Packet) error {
	if p.proto != ProtoPush || p.pusher == nil {
		pk.Free()
		return cos.NewInitError(p.String(), errPortNotPush)
	}
	return p.pusher.Push(pk)
}

// PushBatch delivers a batch through a push-mode port; on any other port
// it frees the batch and returns an error.
func (p *Port) PushBatch(b *packet.Batch) error {
	if p.proto != ProtoPush || p.pusher == nil {
		b.Free()
		return cos.NewInitError(p.String(), errPortNotPush)
	}
	return p.pusher.PushBatch(b)
}

// Pull retrieves a single packet from a pull-mode port, or nil if none is
// currently available.
func (p *Port) Pull() *packet.Packet {
	if p.proto != ProtoPull || p.puller == nil {
		return nil
	}
	return p.puller.Pull()
}

// PullBatch retrieves up to max packets from a pull-mode port.
func (p *Port) PullBatch(max int) *packet.Batch {
	if p.proto != ProtoPull || p.puller == nil {
		return nil
	}
	return p.puller.PullBatch(max)
}

func (p *Port) String() string { return "port[" + p.proto.String() + "]" }
