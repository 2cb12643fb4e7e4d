/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package flow_test

import (
	"testing"

	"github.com/clickrt/corepath/flow"
)

func TestExactLookupTerminates(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindExact)
	leafA := (&flow.Node{}).Leaf("A")
	leafB := (&flow.Node{}).Leaf("B")
	root.AddExact(1, leafA).AddExact(2, leafB)

	data := []byte{1, 0, 0, 0}
	got, err := flow.Lookup(root, data, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Payload != "A" {
		t.Fatalf("Payload = %v, want A", got.Payload)
	}

	data[0] = 2
	got, err = flow.Lookup(root, data, 0)
	if err != nil || got.Payload != "B" {
		t.Fatalf("Lookup(2) = %v, %v, want B, nil", got, err)
	}
}

func TestNoMatchWithoutDefault(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindExact)
	root.AddExact(1, (&flow.Node{}).Leaf("A"))
	_, err := flow.Lookup(root, []byte{9}, 0)
	if err == nil {
		t.Fatal("Lookup must fail when nothing matches and there's no default")
	}
}

func TestDefaultFallthrough(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindExact)
	root.AddExact(1, (&flow.Node{}).Leaf("A")).SetDefault((&flow.Node{}).Leaf("wild"))
	got, err := flow.Lookup(root, []byte{9}, 0)
	if err != nil || got.Payload != "wild" {
		t.Fatalf("Lookup via default = %v, %v, want wild, nil", got, err)
	}
}

func TestArrayLookup(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindArray)
	root.AddArrayIndex(5, (&flow.Node{}).Leaf("five"))
	got, err := flow.Lookup(root, []byte{5}, 0)
	if err != nil || got.Payload != "five" {
		t.Fatalf("array lookup = %v, %v, want five, nil", got, err)
	}
}

func TestRangeLookup(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 2}, flow.KindRange)
	root.AddRange(0, 1023, (&flow.Node{}).Leaf("low")).
		AddRange(1024, 65535, (&flow.Node{}).Leaf("high"))
	got, _ := flow.Lookup(root, []byte{0x00, 0x50}, 0) // 80
	if got.Payload != "low" {
		t.Fatalf("Payload = %v, want low", got.Payload)
	}
	got, _ = flow.Lookup(root, []byte{0x1F, 0x90}, 0) // 8080
	if got.Payload != "high" {
		t.Fatalf("Payload = %v, want high", got.Payload)
	}
}

func TestStableClassificationForIdenticalFields(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindHash)
	root.AddExact(7, (&flow.Node{}).Leaf("seven"))
	a, errA := flow.Lookup(root, []byte{7}, 0)
	b, errB := flow.Lookup(root, []byte{7}, 0)
	if errA != nil || errB != nil || a.Payload != b.Payload {
		t.Fatal("identical fields must classify to the same leaf every time")
	}
}

func TestCombineIdempotent(t *testing.T) {
	root := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindExact)
	root.AddExact(1, (&flow.Node{}).Leaf("A"))
	combined := flow.Combine(root, root)
	if combined != root {
		t.Fatal("Combine(x, x) must be a no-op (same pointer)")
	}
}

func TestCombineUnionOfLeaves(t *testing.T) {
	a := flow.NewNode(flow.Level{Offset: 0, Width: 1}, flow.KindExact)
	a.AddExact(1, (&flow.Node{}).Leaf("A"))
	b := flow.NewNode(flow.Level{Offset: 1, Width: 1}, flow.KindExact)
	b.AddExact(2, (&flow.Node{}).Leaf("B"))

	merged := flow.Combine(a, b)
	got, err := flow.Lookup(merged, []byte{1, 2}, 0)
	if err != nil {
		t.Fatalf("Lookup after Combine: %v", err)
	}
	if got.Payload != "B" {
		t.Fatalf("Payload after nested combine = %v, want B", got.Payload)
	}
}

func TestMembershipFilterAdmitContains(t *testing.T) {
	f := flow.NewMembershipFilter(1024)
	if f.Contains(42) {
		t.Fatal("filter must not contain an unadmitted key")
	}
	if !f.Admit(42) {
		t.Fatal("Admit must succeed on a fresh filter")
	}
	if !f.Contains(42) {
		t.Fatal("filter must contain a key after Admit")
	}
	if !f.Forget(42) {
		t.Fatal("Forget must succeed for a previously-admitted key")
	}
}
