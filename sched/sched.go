// Package sched implements N cooperative worker threads with no work
// stealing: each Worker owns a private ready queue and a private timer
// heap, and tasks cooperatively yield control only at their own return
// boundary - descheduled until something signals them back in.
//
// Grounded on aistore's xaction run-loop convention (one goroutine per
// xaction, a blocking receive on a work channel, periodic housekeeping via
// package hk) generalized from "one goroutine per job" to "one goroutine
// per worker thread running many short Tasks to completion in turn", and
// on hk.Housekeeper's own Tick method - built for exactly this "driven
// synchronously inside a loop that can't block in a select" use.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/clickrt/corepath/cmn/nlog"
	"github.com/clickrt/corepath/hk"
)

// Task is one schedulable unit of work. Run is invoked repeatedly by its
// owning Worker; it must do a bounded amount of work per call and return
// promptly so the worker can service other tasks and its timer heap.
//
// A Task returns true if it did useful work (reschedule immediately), false
// if it found nothing to do (deschedule until its Handle is Signaled).
type Task interface {
	Run() bool
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func() bool

func (f TaskFunc) Run() bool { return f() }

// Handle is the scheduler's view of one added Task: the home worker it runs
// on, and the reschedule/fast/cancel state the worker's dispatch loop
// checks around each call to Run. A caller that kept the Handle returned by
// Add may call Fast to ask for front-of-queue placement next time the task
// reports progress, or Cancel to drop it for good. Handle also implements
// port.Notifier, so a producer on another port can wake a descheduled
// consumer task without polling it.
type Handle struct {
	w    *Worker
	task Task

	fast      atomic.Bool
	cancelled atomic.Bool
	scheduled atomic.Bool // true while queued: in active, on addCh, or on wakeCh
}

// Fast asks that, the next time this task reports progress, it goes to the
// front of its worker's ready queue instead of the back - used by pull
// sources to amortize their own scheduling cost.
func (h *Handle) Fast() { h.fast.Store(true) }

// Cancel marks the task for removal; the worker checks this before every
// dispatch and, once set, never runs the task again.
func (h *Handle) Cancel() { h.cancelled.Store(true) }

// Signal implements port.Notifier: re-admits a descheduled task to its
// worker's ready queue. A no-op if the task is already scheduled (still
// active, or an earlier Signal is already in flight) - Run will see
// whatever the signaling producer left for it on its next call regardless.
func (h *Handle) Signal() {
	if !h.scheduled.CompareAndSwap(false, true) {
		return
	}
	select {
	case h.w.wakeCh <- h:
	default:
		h.w.mu.Lock()
		h.w.overflow = append(h.w.overflow, h)
		h.w.mu.Unlock()
	}
}

// Worker is one cooperative scheduling thread: a private ready queue plus a
// private timer heap (package hk), with no cross-worker stealing - a task
// always re-runs on the worker it was added to.
type Worker struct {
	id     int
	hk     *hk.Housekeeper
	active []*Handle // ready to run now, FIFO

	mu       sync.Mutex
	overflow []*Handle // spillover from addCh/wakeCh when full; drained each round

	addCh  chan *Handle
	wakeCh chan *Handle
	stop   chan struct{}
	done   chan struct{}
	idle   time.Duration // max sleep when the ready queue is empty and no timer is due sooner
}

// NewWorker returns a worker with its own ready queue and timer heap.
func NewWorker(id int) *Worker {
	return &Worker{
		id:     id,
		hk:     hk.New(),
		addCh:  make(chan *Handle, 64),
		wakeCh: make(chan *Handle, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		idle:   time.Millisecond,
	}
}

func (w *Worker) ID() int { return w.id }

// HK returns the worker's private timer heap, for elements/tasks that need
// to register periodic callbacks pinned to this worker.
func (w *Worker) HK() *hk.Housekeeper { return w.hk }

// Add admits t to this worker's ready queue and returns its Handle. Safe to
// call from any goroutine (e.g. the router during graph scheduling, before
// Run starts), but after Run has started, a task added this way is only
// picked up between dispatch rounds.
func (w *Worker) Add(t Task) *Handle {
	h := &Handle{w: w, task: t}
	h.scheduled.Store(true)
	select {
	case w.addCh <- h:
	default:
		w.mu.Lock()
		w.overflow = append(w.overflow, h)
		w.mu.Unlock()
	}
	return h
}

// Run drains newly-added and newly-signaled tasks into the ready queue and
// dispatches it FIFO, each Task's Run() call gated by its cancel flag and
// followed by front-of-queue or back-of-queue re-admission per its fast
// flag, until Stop is called. Between dispatches it drives the worker's
// private timer heap with Tick rather than a separate goroutine, so a timer
// callback never runs concurrently with this worker's task dispatch. No
// work stealing: only this goroutine ever touches w.active during Run.
func (w *Worker) Run() {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return
		default:
		}
		w.drain()

		if len(w.active) == 0 {
			wait := w.idle
			if due := w.hk.Tick(); due > 0 && due < wait {
				wait = due
			}
			select {
			case <-w.stop:
				return
			case h := <-w.addCh:
				w.active = append(w.active, h)
			case h := <-w.wakeCh:
				w.active = append(w.active, h)
			case <-time.After(wait):
			}
			continue
		}

		w.hk.Tick()
		h := w.active[0]
		w.active = w.active[1:]
		if h.cancelled.Load() {
			continue
		}
		if h.task.Run() {
			if h.fast.Swap(false) {
				w.active = append([]*Handle{h}, w.active...)
			} else {
				w.active = append(w.active, h)
			}
		} else {
			h.scheduled.Store(false)
		}
	}
}

// drain moves every task queued via Add or Signal (including anything that
// overflowed a full channel) into the ready queue, without blocking.
func (w *Worker) drain() {
	for {
		select {
		case h := <-w.addCh:
			w.active = append(w.active, h)
			continue
		case h := <-w.wakeCh:
			w.active = append(w.active, h)
			continue
		default:
		}
		break
	}
	if len(w.overflow) == 0 {
		return
	}
	w.mu.Lock()
	w.active = append(w.active, w.overflow...)
	w.overflow = w.overflow[:0]
	w.mu.Unlock()
}

func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

// Pool is a fixed set of Workers, one per requested thread (N set at
// construction, not grown or shrunk at runtime).
type Pool struct {
	workers []*Worker
}

// NewPool creates n workers without starting them; Start or StartPinned
// then runs each on its own goroutine.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{workers: make([]*Worker, n)}
	for i := range p.workers {
		p.workers[i] = NewWorker(i)
	}
	return p
}

// Start launches every worker's Run loop.
func (p *Pool) Start() {
	for _, w := range p.workers {
		go w.Run()
	}
	nlog.Infof("sched: started %d worker(s)", len(p.workers))
}

// StartPinned is like Start but locks worker i's OS thread to CPU i.
func (p *Pool) StartPinned() {
	for i, w := range p.workers {
		go w.RunPinned(i)
	}
	nlog.Infof("sched: started %d pinned worker(s)", len(p.workers))
}

// Stop halts every worker, waiting for each Run loop to return; tasks
// still queued are not run.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}

func (p *Pool) Worker(i int) *Worker { return p.workers[i%len(p.workers)] }
func (p *Pool) NumWorkers() int      { return len(p.workers) }
