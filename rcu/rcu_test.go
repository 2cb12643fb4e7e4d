/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package rcu_test

import (
	"sync"
	"testing"

	"github.com/clickrt/corepath/rcu"
)

func TestPerThreadSlotsIndependent(t *testing.T) {
	pt := rcu.NewPerThread[int](4)
	*pt.Get(0) = 10
	*pt.Get(1) = 20
	if *pt.Get(0) != 10 || *pt.Get(1) != 20 {
		t.Fatal("per-thread slots must not interfere")
	}
}

func TestFastRCULoadStore(t *testing.T) {
	type cfg struct{ n int }
	r := rcu.NewFastRCU(&cfg{n: 1})
	if r.Load().n != 1 {
		t.Fatalf("Load().n = %d, want 1", r.Load().n)
	}
	old := r.Swap(&cfg{n: 2})
	if old.n != 1 {
		t.Fatalf("Swap returned %d, want old value 1", old.n)
	}
	if r.Load().n != 2 {
		t.Fatalf("Load().n after Swap = %d, want 2", r.Load().n)
	}
}

func TestSeqlockReadWrite(t *testing.T) {
	sl := rcu.NewSeqlock(7)
	if sl.Read() != 7 {
		t.Fatalf("Read() = %d, want 7", sl.Read())
	}
	sl.Write(42)
	if sl.Read() != 42 {
		t.Fatalf("Read() after Write = %d, want 42", sl.Read())
	}
}

func TestSeqlockConcurrentReadersDuringWrites(t *testing.T) {
	sl := rcu.NewSeqlock(0)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			sl.Write(i)
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = sl.Read() // must never panic or corrupt
			}
		}
	}()

	wg.Wait()
	if sl.Read() != 1000 {
		t.Fatalf("final Read() = %d, want 1000", sl.Read())
	}
}
