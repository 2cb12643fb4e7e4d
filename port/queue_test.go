/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package port

import (
	"testing"

	"github.com/clickrt/corepath/packet"
)

func TestQueuePushPullFIFO(t *testing.T) {
	q := NewQueue(4)
	a := packet.Make(4, nil)
	b := packet.Make(4, nil)
	if err := q.Push(a); err != nil {
		t.Fatalf("Push(a): %v", err)
	}
	if err := q.Push(b); err != nil {
		t.Fatalf("Push(b): %v", err)
	}
	if got := q.Pull(); got != a {
		t.Fatal("Pull() did not return packets in FIFO order")
	}
	if got := q.Pull(); got != b {
		t.Fatal("Pull() did not return second packet")
	}
	if q.Pull() != nil {
		t.Fatal("Pull() on empty queue must return nil")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Push(packet.Make(4, nil))
	q.Push(packet.Make(4, nil))
	if err := q.Push(packet.Make(4, nil)); err == nil {
		t.Fatal("Push into a full queue must return an error")
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestQueueNotifierFiresOnPush(t *testing.T) {
	q := NewQueue(4)
	fired := false
	q.SetNotifier(NotifyFunc(func() { fired = true }))
	q.Push(packet.Make(4, nil))
	if !fired {
		t.Fatal("notifier must fire on successful Push")
	}
}

func TestQueuePullBatchRespectsLimit(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		q.Push(packet.Make(4, nil))
	}
	b := q.PullBatch(3)
	if b.Len() != 3 {
		t.Fatalf("PullBatch(3).Len() = %d, want 3", b.Len())
	}
	if q.Len() != 2 {
		t.Fatalf("remaining queue Len() = %d, want 2", q.Len())
	}
}
