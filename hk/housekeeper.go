// Package hk provides a periodic-timer facility: callers register named
// functions that fire on an interval (or once, by returning 0) and get a
// callback-driven reschedule hook, same as a per-worker timer heap in a
// cooperative scheduler. Grounded on the shape
// implied by xact/xreg.go's hk.Reg/RegWithHK call sites and aistore's
// own housekeeper_suite_test.go (hk.TestInit/hk.DefaultHK.Run/hk.WaitStarted).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"container/heap"
	"sync"
	"time"

	"github.com/clickrt/corepath/cmn/mono"
)

// NameSuffix is an empty suffix reserved for disambiguating registration
// names; no registration in this module appends it.
const NameSuffix = ""

// F is a housekeeping callback; its return value is the delay until the
// next firing, or 0 to unregister.
type F func() time.Duration

type item struct {
	name  string
	f     F
	at    int64 // mono.NanoTime() deadline
	index int
}

type pq []*item

func (q pq) Len() int            { return len(q) }
func (q pq) Less(i, j int) bool  { return q[i].at < q[j].at }
func (q pq) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pq) Push(x any)         { it := x.(*item); it.index = len(*q); *q = append(*q, it) }
func (q *pq) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// Housekeeper runs a single timer heap on its own goroutine. Packages that
// need per-thread timers (package sched) embed one per worker instead of
// sharing the process-wide DefaultHK.
type Housekeeper struct {
	mu      sync.Mutex
	q       pq
	byName  map[string]*item
	wake    chan struct{}
	started chan struct{}
	once    sync.Once
	stopCh  chan struct{}
}

func New() *Housekeeper {
	return &Housekeeper{
		byName:  make(map[string]*item, 16),
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

// DefaultHK is the process-wide housekeeper used by packages (like xreg's
// registry-cleanup analogue) that don't own a dedicated worker thread.
var DefaultHK = New()

// TestInit resets DefaultHK for test isolation.
func TestInit() { DefaultHK = New() }

// Reg registers f to first fire after initialDelay (immediately if 0).
func Reg(name string, f F, initialDelay time.Duration) { DefaultHK.Reg(name, f, initialDelay) }

func (h *Housekeeper) Reg(name string, f F, initialDelay time.Duration) {
	h.mu.Lock()
	it := &item{name: name, f: f, at: mono.NanoTime() + int64(initialDelay)}
	h.byName[name] = it
	heap.Push(&h.q, it)
	h.mu.Unlock()
	h.poke()
}

// Unreg removes a registration before it fires again.
func Unreg(name string) { DefaultHK.Unreg(name) }

func (h *Housekeeper) Unreg(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	it, ok := h.byName[name]
	if !ok {
		return
	}
	delete(h.byName, name)
	heap.Remove(&h.q, it.index)
}

func (h *Housekeeper) poke() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run drives the timer loop until Stop is called; intended to run on its
// own goroutine (DefaultHK) or be polled cooperatively via Tick (per-thread
// use inside package sched, whose Worker.Run calls Tick from its own loop
// instead of running a separate timer goroutine).
func (h *Housekeeper) Run() {
	h.once.Do(func() { close(h.started) })
	for {
		d := h.next()
		select {
		case <-h.stopCh:
			return
		case <-h.wake:
		case <-time.After(d):
			h.fireDue()
		}
	}
}

// Tick fires any due timers and returns the duration until the next one
// (or a large value if none are pending); used by a cooperative scheduler
// worker that cannot block in a select.
func (h *Housekeeper) Tick() time.Duration {
	h.fireDue()
	return h.next()
}

func (h *Housekeeper) next() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.q) == 0 {
		return time.Hour
	}
	d := time.Duration(h.q[0].at - mono.NanoTime())
	if d < 0 {
		return 0
	}
	return d
}

func (h *Housekeeper) fireDue() {
	now := mono.NanoTime()
	for {
		h.mu.Lock()
		if len(h.q) == 0 || h.q[0].at > now {
			h.mu.Unlock()
			return
		}
		it := heap.Pop(&h.q).(*item)
		delete(h.byName, it.name)
		h.mu.Unlock()

		next := it.f()
		if next > 0 {
			h.Reg(it.name, it.f, next)
		}
	}
}

func (h *Housekeeper) Stop() { close(h.stopCh) }

// WaitStarted blocks until DefaultHK.Run has entered its loop at least once.
func WaitStarted() { <-DefaultHK.started }
