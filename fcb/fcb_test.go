/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package fcb_test

import (
	"testing"
	"time"

	"github.com/clickrt/corepath/fcb"
)

func newLayout(t *testing.T) *fcb.Layout {
	t.Helper()
	l := fcb.NewLayout()
	if _, err := l.Reserve("counter", 8, 8); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reserve("crc", 4, 4); err != nil {
		t.Fatal(err)
	}
	l.Finalize()
	return l
}

func TestLayoutReserveAfterFinalizeFails(t *testing.T) {
	l := newLayout(t)
	if _, err := l.Reserve("late", 4, 4); err == nil {
		t.Fatal("Reserve after Finalize must fail")
	}
}

func TestAllocZeroInitialized(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 0)
	f, err := p.Alloc(nil)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	s := f.Slice(l, "counter")
	for _, b := range s {
		if b != 0 {
			t.Fatal("Alloc must zero-initialize slices")
		}
	}
}

func TestReleaseCallbacksFireInOrderThenFree(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 0)
	var order []string
	p.OnRelease("first", func(*fcb.FCB) { order = append(order, "first") })
	p.OnRelease("second", func(*fcb.FCB) { order = append(order, "second") })

	f, _ := p.Alloc(nil)
	f.Release()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("release order = %v, want [first second]", order)
	}
	if p.LiveCount() != 0 {
		t.Fatalf("LiveCount() = %d, want 0 after release", p.LiveCount())
	}
}

func TestAcquireExtendsLifetime(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 0)
	released := false
	p.OnRelease("r", func(*fcb.FCB) { released = true })

	f, _ := p.Alloc(nil)
	f.Acquire() // refs now 2
	f.Release() // refs now 1, must not release yet
	if released {
		t.Fatal("Release must not fire callbacks while a reference remains")
	}
	f.Release() // refs now 0
	if !released {
		t.Fatal("Release must fire callbacks at zero refs")
	}
}

func TestPoolExhaustionReturnsError(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 1)
	if _, err := p.Alloc(nil); err != nil {
		t.Fatalf("first Alloc: %v", err)
	}
	if _, err := p.Alloc(nil); err == nil {
		t.Fatal("second Alloc must fail once the pool is exhausted")
	}
}

func TestSweepIdleForcesRelease(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 0)
	released := false
	p.OnRelease("r", func(*fcb.FCB) { released = true })

	f, _ := p.Alloc(nil)
	f.Acquire() // hold an extra ref so natural refcounting wouldn't release it
	_ = f

	time.Sleep(5 * time.Millisecond)
	n := p.SweepIdle(time.Millisecond)
	if n != 1 {
		t.Fatalf("SweepIdle swept %d FCBs, want 1", n)
	}
	if !released {
		t.Fatal("SweepIdle must force the release path even with outstanding refs")
	}
}

func TestFreedBodyReusedOnNextAlloc(t *testing.T) {
	l := newLayout(t)
	p := fcb.NewPool(l, 1)
	f, _ := p.Alloc(nil)
	f.Release()
	f2, err := p.Alloc(nil)
	if err != nil {
		t.Fatalf("Alloc after release: %v", err)
	}
	if p.LiveCount() != 1 {
		t.Fatalf("LiveCount() = %d, want 1", p.LiveCount())
	}
	if f2 != f {
		t.Fatal("Alloc after Release must reuse the freed FCB")
	}
}
