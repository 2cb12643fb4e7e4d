/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package source_test

import (
	"testing"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/elements/source"
	"github.com/clickrt/corepath/port"
)

func TestSourceEmitsUpToBurst(t *testing.T) {
	s := &source.InfiniteSource{}
	s.Init("src0", 0, 1)
	if err := s.Configure(element.Args{Name: "src0", Raw: []string{"32", "3"}}); err != nil {
		t.Fatal(err)
	}
	q := port.NewQueue(16)
	s.SetPort(0, port.NewPushPort(q))

	if !s.Run() {
		t.Fatal("Run must report progress when it emits packets")
	}
	if q.Len() != 3 {
		t.Fatalf("queue Len() = %d, want 3 (burst)", q.Len())
	}
}

func TestSourceStopsAtLimit(t *testing.T) {
	s := &source.InfiniteSource{}
	s.Init("src1", 0, 1)
	if err := s.Configure(element.Args{Name: "src1", Raw: []string{"8", "10", "2"}}); err != nil {
		t.Fatal(err)
	}
	q := port.NewQueue(16)
	s.SetPort(0, port.NewPushPort(q))

	s.Run()
	if s.Emitted() != 2 {
		t.Fatalf("Emitted() = %d, want 2 (limit)", s.Emitted())
	}
	if s.Run() {
		t.Fatal("Run must report no progress once the limit is reached")
	}
}
