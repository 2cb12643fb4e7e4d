/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package element_test

import (
	"testing"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

type echoElem struct {
	element.Base
}

func (e *echoElem) Configure(element.Args) error { e.SetStage(element.StageConfigured); return nil }
func (e *echoElem) Initialize() error            { e.SetStage(element.StageInitialized); return nil }

func TestBaseLifecycleStages(t *testing.T) {
	e := &echoElem{}
	e.Init("echo0", 1, 1)
	if e.Stage() != element.StageUnconfigured {
		t.Fatalf("initial stage = %v, want unconfigured", e.Stage())
	}
	if err := e.Configure(element.Args{Name: "echo0"}); err != nil {
		t.Fatal(err)
	}
	if e.Stage() != element.StageConfigured {
		t.Fatalf("stage after Configure = %v, want configured", e.Stage())
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if e.Stage() != element.StageInitialized {
		t.Fatalf("stage after Initialize = %v, want initialized", e.Stage())
	}
}

func TestEmitDropsOnUnsetPort(t *testing.T) {
	e := &echoElem{}
	e.Init("echo1", 1, 1)
	p := packet.Make(8, nil)
	if err := e.Emit(0, p); err == nil {
		t.Fatal("Emit on an unconnected port must return an error")
	}
}

func TestEmitDeliversThroughConnectedPort(t *testing.T) {
	e := &echoElem{}
	e.Init("echo2", 1, 1)
	q := port.NewQueue(4)
	e.SetPort(0, port.NewPushPort(q))
	p := packet.Make(8, nil)
	if err := e.Emit(0, p); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue Len() = %d, want 1", q.Len())
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Register must panic on duplicate class name")
		}
	}()
	r := element.NewRegistry()
	c := &element.Class{Name: "dup", New: func() element.Element { return &echoElem{} }}
	r.Register(c)
	r.Register(c)
}

func TestRegistryLookup(t *testing.T) {
	r := element.NewRegistry()
	r.Register(&element.Class{Name: "echo", New: func() element.Element { return &echoElem{} }})
	c, ok := r.Lookup("echo")
	if !ok || c.Name != "echo" {
		t.Fatal("Lookup must find a registered class")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("Lookup must report false for unregistered names")
	}
}
