/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clickrt/corepath/stats"
)

func TestTrackerIncrementsCounters(t *testing.T) {
	tr := stats.NewTracker("test-elem-a")
	tr.IncPackets()
	tr.AddPackets(4)
	tr.IncDrops()
	tr.IncPoolExhausted()

	if v := testutil.ToFloat64(tr.Custom("widgets")); v != 0 {
		t.Fatalf("fresh custom counter = %v, want 0", v)
	}
	tr.Custom("widgets").Inc()
	if v := testutil.ToFloat64(tr.Custom("widgets")); v != 1 {
		t.Fatalf("custom counter after Inc = %v, want 1", v)
	}
}

func TestCustomCounterIsMemoized(t *testing.T) {
	tr := stats.NewTracker("test-elem-b")
	a := tr.Custom("x")
	b := tr.Custom("x")
	if a != b {
		t.Fatal("Custom must return the same counter instance for the same name")
	}
}
