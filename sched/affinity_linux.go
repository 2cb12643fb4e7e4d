//go:build linux

// Optional CPU-pinning for a worker's OS thread, matching dataplane
// frameworks' practice of nailing each polling thread to a dedicated core
// to keep the per-thread state in package rcu cache-hot. aistore's own
// xactions aren't latency-sensitive pollers and don't pin threads; this
// is grounded directly on golang.org/x/sys/unix's SchedSetaffinity, the
// idiomatic way a Go program expresses the same thing.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sched

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/clickrt/corepath/cmn/nlog"
)

// Pin locks the calling goroutine to its current OS thread and restricts
// that thread to the given CPU. Call it as the first statement of a
// Worker's Run loop (via a wrapper) when CPU affinity is requested in
// config.
func Pin(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

// RunPinned is like (*Worker).Run but locks the OS thread to cpu first.
func (w *Worker) RunPinned(cpu int) {
	if err := Pin(cpu); err != nil {
		nlog.Warningf("sched: worker %d failed to pin to cpu %d: %v", w.id, cpu, err)
	}
	w.Run()
}
