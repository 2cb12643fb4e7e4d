/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package rrswitch_test

import (
	"testing"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/rrswitch"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

func TestNewFlowsDistributeRoundRobin(t *testing.T) {
	r := &rrswitch.RoundRobinSwitch{}
	r.Init("rr0", 1, 3)
	if err := r.Configure(element.Args{Name: "rr0", Raw: []string{"3"}}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		q := port.NewQueue(4)
		r.SetPort(i, port.NewPushPort(q))
	}

	layout := fcb.NewLayout()
	layout.Reserve("rr0", rrswitch.SliceSize, 4)
	layout.Finalize()
	pool := fcb.NewPool(layout, 0)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		f, _ := pool.Alloc(nil)
		r.PushFlow(f, layout, "rr0", packet.Make(4, nil))
		out := r.Assign(f, layout, "rr0")
		seen[out] = true
	}
	if len(seen) != 3 {
		t.Fatalf("3 distinct flows must spread across all 3 outputs, saw %d", len(seen))
	}
}

func TestSameFlowStaysOnAssignedPort(t *testing.T) {
	r := &rrswitch.RoundRobinSwitch{}
	r.Init("rr1", 1, 2)
	r.Configure(element.Args{Name: "rr1", Raw: []string{"2"}})
	for i := 0; i < 2; i++ {
		r.SetPort(i, port.NewPushPort(port.NewQueue(4)))
	}

	layout := fcb.NewLayout()
	layout.Reserve("rr1", rrswitch.SliceSize, 4)
	layout.Finalize()
	pool := fcb.NewPool(layout, 0)

	f, _ := pool.Alloc(nil)
	first := r.Assign(f, layout, "rr1")
	for i := 0; i < 5; i++ {
		if got := r.Assign(f, layout, "rr1"); got != first {
			t.Fatalf("assignment drifted: got %d, want %d", got, first)
		}
	}
}
