/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package aggregategroup_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/aggregategroup"
	"github.com/clickrt/corepath/hk"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

func withKey(p *packet.Packet, key uint32) *packet.Packet {
	binary.BigEndian.PutUint32(p.Annot()[packet.AnnotAggregate:packet.AnnotAggregate+4], key)
	return p
}

func newGroup(t *testing.T, usec string) (*aggregategroup.AggregateGroup, *port.Queue) {
	t.Helper()
	a := &aggregategroup.AggregateGroup{}
	a.Init("aggr0", 1, 1)
	args := element.Args{Name: "aggr0"}
	if usec != "" {
		args.Raw = []string{usec}
	}
	if err := a.Configure(args); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	q := port.NewQueue(16)
	a.SetPort(0, port.NewPushPort(q))
	return a, q
}

func TestPushBatchCoalescesSameKey(t *testing.T) {
	a, q := newGroup(t, "")
	defer a.Cleanup()

	a.PushBatch(0, packet.MakeFromList([]*packet.Packet{withKey(packet.Make(8, nil), 7)}))
	a.PushBatch(0, packet.MakeFromList([]*packet.Packet{withKey(packet.Make(8, nil), 7)}))

	if q.Len() != 0 {
		t.Fatalf("queue Len() = %d, want 0 (still held pending same-key arrival)", q.Len())
	}

	a.PushBatch(0, packet.MakeFromList([]*packet.Packet{withKey(packet.Make(8, nil), 9)}))

	if q.Len() != 2 {
		t.Fatalf("queue Len() = %d, want 2 (flushed the two key-7 packets)", q.Len())
	}
}

func TestPushWrapsSinglePacket(t *testing.T) {
	a, q := newGroup(t, "")
	defer a.Cleanup()

	a.Push(0, withKey(packet.Make(8, nil), 1))
	a.Push(0, withKey(packet.Make(8, nil), 2))

	if q.Len() != 1 {
		t.Fatalf("queue Len() = %d, want 1 (key-1 packet flushed on key change)", q.Len())
	}
}

func TestTimeoutFlushesPendingBatch(t *testing.T) {
	a, q := newGroup(t, "2000")
	defer a.Cleanup()
	a.HK = hk.New() // the timeout only fires while a housekeeper runs
	go a.HK.Run()
	defer a.HK.Stop()

	a.PushBatch(0, packet.MakeFromList([]*packet.Packet{withKey(packet.Make(8, nil), 3)}))
	if q.Len() != 0 {
		t.Fatalf("queue Len() = %d, want 0 before timeout fires", q.Len())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && q.Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	if q.Len() != 1 {
		t.Fatalf("queue Len() = %d, want 1 after inactivity timeout", q.Len())
	}
}
