// Transport adapters used once Graph.Schedule has assigned threads: a
// same-thread link calls straight into its destination's Push/PushBatch; a
// cross-thread link goes through a port.Queue drained by a pump task on the
// destination's worker - the one sanctioned hand-off between threads.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package router

import (
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

// pushAdapter turns an element.Pusher plus its input port index into a
// port.Pusher so the router can bind it as a peer's output port.
type pushAdapter struct {
	dst  element.Pusher
	port int
}

func (a *pushAdapter) Push(p *packet.Packet) error {
	a.dst.Push(a.port, p)
	return nil
}

func (a *pushAdapter) PushBatch(b *packet.Batch) error {
	a.dst.PushBatch(a.port, b)
	return nil
}

// pumpBurst bounds how many packets a pump task moves per Run, so one pump
// can't starve its worker's other tasks in a single round.
const pumpBurst = 64

// pump drains a cross-thread link's queue into its destination, scheduled as
// a sched.Task on the destination's worker. Run reports whether it moved at
// least one packet: package sched descheds it once Run returns false, and
// the queue's Notifier - set to this task's Handle in Graph.Schedule - wakes
// it again the next time a producer pushes.
type pump struct {
	q    *port.Queue
	dst  element.Pusher
	port int
}

func (pp *pump) Run() bool {
	moved := false
	for i := 0; i < pumpBurst; i++ {
		p := pp.q.Pull()
		if p == nil {
			break
		}
		pp.dst.Push(pp.port, p)
		moved = true
	}
	return moved
}
