/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package config_test

import (
	"strings"
	"testing"

	"github.com/clickrt/corepath/config"
)

const sample = `{
	"nodes": [
		{"name": "src", "class": "source"},
		{"name": "snk", "class": "sink"}
	],
	"links": [
		{"src": "src", "src_port": 0, "dst": "snk", "dst_port": 0}
	],
	"workers": 2
}`

func TestLoadDecodesGraph(t *testing.T) {
	g, err := config.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Links) != 1 {
		t.Fatalf("decoded %d nodes, %d links, want 2, 1", len(g.Nodes), len(g.Links))
	}
	if g.Workers != 2 {
		t.Fatalf("Workers = %d, want 2", g.Workers)
	}
}

func TestLoadRejectsEmptyNodes(t *testing.T) {
	_, err := config.Load(strings.NewReader(`{"nodes": []}`))
	if err == nil {
		t.Fatal("Load must reject a graph with no nodes")
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	dup := `{"nodes": [{"name": "a", "class": "x"}, {"name": "a", "class": "y"}]}`
	_, err := config.Load(strings.NewReader(dup))
	if err == nil {
		t.Fatal("Load must reject duplicate element names")
	}
}

func TestValidateDefaultsWorkersToOne(t *testing.T) {
	g, err := config.Load(strings.NewReader(`{"nodes": [{"name": "a", "class": "x"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Workers != 1 {
		t.Fatalf("Workers = %d, want default 1", g.Workers)
	}
}

func TestRouterNodesAndLinksConvert(t *testing.T) {
	g, err := config.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	rn := g.RouterNodes()
	rl := g.RouterLinks()
	if len(rn) != 2 || len(rl) != 1 {
		t.Fatal("RouterNodes/RouterLinks must preserve counts")
	}
	if rn[0].Name != "src" || rl[0].Dst != "snk" {
		t.Fatal("RouterNodes/RouterLinks must preserve field values")
	}
}

func TestRouterNodesConvertsThreadAndRequires(t *testing.T) {
	const withHints = `{
		"nodes": [
			{"name": "a", "class": "x"},
			{"name": "b", "class": "y", "thread": 2, "requires": ["a"]}
		]
	}`
	g, err := config.Load(strings.NewReader(withHints))
	if err != nil {
		t.Fatal(err)
	}
	rn := g.RouterNodes()
	if rn[0].ThreadHint != nil {
		t.Fatalf("unhinted node got ThreadHint = %v, want nil", rn[0].ThreadHint)
	}
	if rn[1].ThreadHint == nil || *rn[1].ThreadHint != 1 {
		t.Fatalf("node with thread=2 must convert to 0-based ThreadHint 1, got %v", rn[1].ThreadHint)
	}
	if len(rn[1].Requires) != 1 || rn[1].Requires[0] != "a" {
		t.Fatalf("Requires must convert through, got %v", rn[1].Requires)
	}
}
