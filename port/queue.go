// Queue is the bounded FIFO adapter most element-to-element connections
// actually use: a push-mode producer enqueues, a pull-mode (or scheduled
// push) consumer dequeues, and a Notifier fires on the producer side so a
// sleeping consumer task wakes up. Grounded on aistore's workCh/cmplCh pairing in
// transport's sendLoop (transport/api.go NewObjStream).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package port

import (
	"errors"
	"sync"

	"github.com/clickrt/corepath/packet"
)

var errQueueFull = errors.New("port queue full")

// Queue is a bounded ring buffer of single packets, safe for one producer
// and one consumer.
type Queue struct {
	mu       sync.Mutex
	buf      []*packet.Packet
	head     int
	n        int
	notifier Notifier
	dropped  int64
}

// NewQueue returns a queue with the given capacity (must be > 0).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{buf: make([]*packet.Packet, capacity)}
}

func (q *Queue) SetNotifier(n Notifier) { q.notifier = n }

// Push enqueues p, dropping and freeing it if the queue is full.
func (q *Queue) Push(p *packet.Packet) error {
	q.mu.Lock()
	if q.n == len(q.buf) {
		q.mu.Unlock()
		q.dropped++
		p.Free()
		return errQueueFull
	}
	tail := (q.head + q.n) % len(q.buf)
	q.buf[tail] = p
	q.n++
	q.mu.Unlock()
	if q.notifier != nil {
		q.notifier.Signal()
	}
	return nil
}

// PushBatch enqueues each packet of b individually; any that don't fit are
// dropped and freed, the rest delivered.
func (q *Queue) PushBatch(b *packet.Batch) error {
	var errOut error
	for p := b.PopHead(); p != nil; p = b.PopHead() {
		if err := q.Push(p); err != nil {
			errOut = err
		}
	}
	return errOut
}

// Pull dequeues one packet, or returns nil if empty.
func (q *Queue) Pull() *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return nil
	}
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return p
}

// PullBatch dequeues up to max packets (fewer if the queue has less).
func (q *Queue) PullBatch(max int) *packet.Batch {
	b := packet.NewBatch()
	for i := 0; i < max; i++ {
		p := q.Pull()
		if p == nil {
			break
		}
		b.Append(p)
	}
	return b
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
