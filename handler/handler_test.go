/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package handler_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/clickrt/corepath/handler"
)

func startServer(t *testing.T) (*handler.Registry, string) {
	t.Helper()
	reg := handler.NewRegistry()
	srv := handler.NewServer(reg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	go srv.Serve(addr)
	time.Sleep(20 * time.Millisecond)
	t.Cleanup(func() { srv.Close() })
	return reg, addr
}

func roundTrip(t *testing.T, addr, req string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.Write([]byte(req + "\n"))
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		t.Fatal("no response")
	}
	return sc.Text()
}

func TestReadHandlerRoundTrip(t *testing.T) {
	reg, addr := startServer(t)
	reg.RegisterRead("counter", "count", func(string) (string, error) { return "42", nil })

	got := roundTrip(t, addr, "READ counter.count")
	if got != "OK 42" {
		t.Fatalf("response = %q, want %q", got, "OK 42")
	}
}

func TestWriteHandlerRoundTrip(t *testing.T) {
	reg, addr := startServer(t)
	var applied string
	reg.RegisterWrite("switch", "mode", func(v string) error { applied = v; return nil })

	got := roundTrip(t, addr, "WRITE switch.mode active")
	if got != "OK" {
		t.Fatalf("response = %q, want OK", got)
	}
	if applied != "active" {
		t.Fatalf("applied = %q, want active", applied)
	}
}

func TestUnknownHandlerReturnsErr(t *testing.T) {
	_, addr := startServer(t)
	got := roundTrip(t, addr, "READ missing.thing")
	if got[:4] != "ERR " {
		t.Fatalf("response = %q, want an ERR", got)
	}
}
