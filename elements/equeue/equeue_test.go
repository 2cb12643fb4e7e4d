/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package equeue

import (
	"bytes"
	"testing"
	"time"

	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/port"
)

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	want := Frame{SID: "node-a", Opcode: 7, Key: 0xdeadbeef, Payload: []byte("hello world")}

	var buf bytes.Buffer
	if err := encodeFrame(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := decodeFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.SID != want.SID || got.Opcode != want.Opcode || got.Key != want.Key || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("decodeFrame() = %+v, want %+v", got, want)
	}
}

func TestPushDeliversToListenerAndReinjects(t *testing.T) {
	rx := &EQueue{}
	rx.Init("rx", 1, 1)
	if err := rx.Configure(element.Args{Name: "rx", Raw: []string{"", "127.0.0.1:0"}}); err != nil {
		t.Fatal(err)
	}
	if err := rx.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer rx.Cleanup()

	q := port.NewQueue(4)
	rx.SetPort(0, port.NewPushPort(q))

	addr := rx.ln.Addr().String()

	tx := &EQueue{}
	tx.Init("tx", 1, 1)
	if err := tx.Configure(element.Args{Name: "tx", Raw: []string{"http://" + addr + "/"}}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Initialize(); err != nil {
		t.Fatal(err)
	}

	payload := []byte("round trip payload")
	p := packet.Make(len(payload), nil)
	copy(p.Data(), payload)
	tx.Push(0, p)

	deadline := time.Now().Add(2 * time.Second)
	for q.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Len() != 1 {
		t.Fatalf("queue Len() = %d, want 1 (remote frame delivered and reinjected)", q.Len())
	}
	got := q.Pull()
	if string(got.Data()) != string(payload) {
		t.Fatalf("reinjected payload = %q, want %q", got.Data(), payload)
	}
}
