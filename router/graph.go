// Package router builds a graph of Elements connected by Ports from a
// parsed configuration, validates that every link's destination actually
// accepts pushed input, assigns elements to worker threads, and drives the
// two-phase Configure/Initialize lifecycle with rollback on failure.
//
// Grounded on xact/xreg/xreg.go's registry-driven construction (New/Start)
// and core/meta/bck.go's validate-then-commit shape.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package router

import (
	"fmt"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/cmn/nlog"
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/fcb"
	"github.com/clickrt/corepath/port"
	"github.com/clickrt/corepath/sched"
)

// Link describes one graph edge from a config description: element Src,
// output port SrcPort, connected to element Dst, input port DstPort.
type Link struct {
	Src, Dst         string
	SrcPort, DstPort int
	Capacity         int // queue depth for a cross-thread link; 0 means use DefaultQueueCapacity
}

// DefaultQueueCapacity is used for a cross-thread Link with Capacity == 0.
const DefaultQueueCapacity = 1024

// NodeSpec is one element instance from a config description.
type NodeSpec struct {
	Name  string
	Class string
	Args  []string

	// Requires names elements that must finish Initialize before this one
	// does; Graph.Init initializes in an order honoring this relation
	// instead of plain declaration order.
	Requires []string

	// ThreadHint pins this element to worker thread ThreadHint (0-based).
	// Nil leaves the assignment to Init's round-robin default.
	ThreadHint *int
}

// Graph is a built (but not necessarily initialized) set of elements and
// their port connections.
type Graph struct {
	nodes map[string]element.Element
	order []string // declaration order, used for deterministic iteration
	links []Link

	requires   map[string][]string
	threadHint map[string]int // present only for nodes with an explicit hint
	threadOf   map[string]int // filled in by Init

	initOrder []string // requires-order from the last successful Init, for Cleanup
}

// Build instantiates one Element per NodeSpec from registry, configures
// each, wires every Link's metadata (validating port ranges and that each
// link's destination is push-capable), and records thread-affinity/requires
// hints for Init. It does not bind ports or call Initialize - those are
// later phases so a caller can inspect the built graph (e.g. for dry-run
// validation) before committing runtime resources.
func Build(nodes []NodeSpec, links []Link, reg *element.Registry) (*Graph, error) {
	if reg == nil {
		reg = element.DefaultRegistry
	}
	g := &Graph{
		nodes:      make(map[string]element.Element, len(nodes)),
		links:      links,
		requires:   make(map[string][]string, len(nodes)),
		threadHint: make(map[string]int, len(nodes)),
	}

	for _, n := range nodes {
		class, ok := reg.Lookup(n.Class)
		if !ok {
			return nil, cos.NewConfigError(n.Name, fmt.Errorf("unknown element class %q", n.Class))
		}
		nin, nout := 1, 1
		if class.NPorts != nil {
			var err error
			nin, nout, err = class.NPorts(element.Args{Name: n.Name, Raw: n.Args})
			if err != nil {
				return nil, cos.NewConfigError(n.Name, err)
			}
		}
		e := class.New()
		if base, ok := e.(interface {
			Init(name string, nin, nout int)
		}); ok {
			base.Init(n.Name, nin, nout)
		}
		if err := e.Configure(element.Args{Name: n.Name, Raw: n.Args}); err != nil {
			return nil, cos.NewConfigError(n.Name, err)
		}
		g.nodes[n.Name] = e
		g.order = append(g.order, n.Name)
		g.requires[n.Name] = n.Requires
		if n.ThreadHint != nil {
			g.threadHint[n.Name] = *n.ThreadHint
		}
	}

	g.wireFCBLayout()

	for _, l := range links {
		src, ok := g.nodes[l.Src]
		if !ok {
			return nil, cos.NewConfigError(l.Src, fmt.Errorf("link references unknown element %q", l.Src))
		}
		dst, ok := g.nodes[l.Dst]
		if !ok {
			return nil, cos.NewConfigError(l.Dst, fmt.Errorf("link references unknown element %q", l.Dst))
		}
		if l.SrcPort < 0 || l.SrcPort >= src.NOutputs() {
			return nil, cos.NewConfigError(l.Src, fmt.Errorf("output port %d out of range (has %d)", l.SrcPort, src.NOutputs()))
		}
		if l.DstPort < 0 || l.DstPort >= dst.NInputs() {
			return nil, cos.NewConfigError(l.Dst, fmt.Errorf("input port %d out of range (has %d)", l.DstPort, dst.NInputs()))
		}
		// Agnostic-port resolution (spec step 4) degenerates to this single
		// check in the current element set: nothing here implements a
		// pull-consuming input or declares an explicit protocol, so the
		// only concrete protocol any link can resolve to is push, and the
		// sole thing left to validate is that the destination actually
		// speaks it.
		if _, ok := dst.(element.Pusher); !ok {
			return nil, cos.NewConfigError(l.Dst, fmt.Errorf("element does not accept pushed input on port %d", l.DstPort))
		}
	}

	return g, nil
}

// wireFCBLayout builds one shared FCB Layout for the graph: every
// FlowContext element (CTXCounter, CTXCRC, ...) reserves its slice in
// declaration order, then the finalized layout and a pool built against
// it are handed to the single FlowClassifierHost element, if any. A graph
// with no FlowContext elements and no host leaves every element's Layout
// untouched (nil), same as before this pass ran.
func (g *Graph) wireFCBLayout() {
	var (
		layout *fcb.Layout
		host   element.FlowClassifierHost
	)
	for _, name := range g.order {
		if fc, ok := g.nodes[name].(element.FlowContext); ok {
			if layout == nil {
				layout = fcb.NewLayout()
			}
			size, align := fc.FCBSlice()
			if _, err := layout.Reserve(name, size, align); err != nil {
				nlog.Errorf("element %q: reserve FCB slice: %v", name, err)
				continue
			}
			fc.SetFCBLayout(layout)
		}
		if h, ok := g.nodes[name].(element.FlowClassifierHost); ok {
			host = h
		}
	}
	if layout == nil && host == nil {
		return
	}
	if layout == nil {
		layout = fcb.NewLayout()
	}
	layout.Finalize()
	if host != nil {
		host.SetFCBLayout(layout)
		host.SetFCBPool(fcb.NewPool(layout, 0))
	}
}

// Elements returns the graph's elements in declaration order.
func (g *Graph) Elements() []element.Element {
	out := make([]element.Element, len(g.order))
	for i, n := range g.order {
		out[i] = g.nodes[n]
	}
	return out
}

func (g *Graph) Element(name string) (element.Element, bool) {
	e, ok := g.nodes[name]
	return e, ok
}

// ThreadID returns the worker thread name was assigned to by Init, or -1
// if Init hasn't run (or name doesn't exist).
func (g *Graph) ThreadID(name string) int {
	if g.threadOf == nil {
		return -1
	}
	id, ok := g.threadOf[name]
	if !ok {
		return -1
	}
	return id
}

// Init assigns every element to one of threads worker threads (an explicit
// ThreadHint if given, round-robin otherwise), then runs Configure-complete
// elements' Initialize in an order honoring the Requires relation (a
// topological sort; a cycle is a configuration error). On the first
// Initialize failure it Cleanups every element already initialized, in
// reverse order, and returns the failure.
func (g *Graph) Init(threads int) error {
	if threads <= 0 {
		threads = 1
	}
	if err := g.assignThreads(threads); err != nil {
		return err
	}
	order, err := g.initOrderOf()
	if err != nil {
		return err
	}

	done := make([]element.Element, 0, len(order))
	for _, name := range order {
		e := g.nodes[name]
		if err := e.Initialize(); err != nil {
			nlog.Errorf("element %q (id %s) failed to initialize: %v", name, instanceID(e), err)
			for i := len(done) - 1; i >= 0; i-- {
				done[i].Cleanup()
			}
			return cos.NewInitError(name, err)
		}
		done = append(done, e)
	}
	g.initOrder = order
	return nil
}

func (g *Graph) assignThreads(threads int) error {
	g.threadOf = make(map[string]int, len(g.order))
	next := 0
	for _, name := range g.order {
		if hint, ok := g.threadHint[name]; ok {
			if hint < 0 || hint >= threads {
				return cos.NewConfigError(name, fmt.Errorf("thread hint %d out of range (have %d worker thread(s))", hint, threads))
			}
			g.threadOf[name] = hint
			continue
		}
		g.threadOf[name] = next % threads
		next++
	}
	return nil
}

// initOrderOf topologically sorts g.order over the Requires relation
// (Kahn's algorithm), preserving declaration order among nodes that become
// ready at the same time so the result is deterministic.
func (g *Graph) initOrderOf() ([]string, error) {
	indeg := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		indeg[name] = 0
	}
	for _, name := range g.order {
		for _, dep := range g.requires[name] {
			if _, ok := g.nodes[dep]; !ok {
				return nil, cos.NewConfigError(name, fmt.Errorf("requires unknown element %q", dep))
			}
			indeg[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if indeg[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dep := range dependents[name] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if len(order) != len(g.order) {
		return nil, cos.NewConfigError("graph", fmt.Errorf("requires relation has a cycle"))
	}
	return order, nil
}

// Schedule finishes wiring the graph against a concrete worker pool, after
// Init has assigned threads: every element that drives itself as a
// sched.Task (pull sources, generators, ...) is added to its assigned
// worker, and every link is bound to actually move packets - directly, if
// source and destination share a worker, or through a port.Queue drained by
// a pump task on the destination's worker otherwise, the one hand-off
// between threads this graph permits. Call after Init and before
// pool.Start()/StartPinned().
func (g *Graph) Schedule(pool *sched.Pool) error {
	for _, name := range g.order {
		if t, ok := g.nodes[name].(sched.Task); ok {
			pool.Worker(g.threadOf[name]).Add(t)
		}
	}
	for _, l := range g.links {
		src := g.nodes[l.Src]
		dst := g.nodes[l.Dst]
		pusher := dst.(element.Pusher) // Build already rejected non-Pushers

		if g.threadOf[l.Src] == g.threadOf[l.Dst] {
			src.SetPort(l.SrcPort, port.NewPushPort(&pushAdapter{dst: pusher, port: l.DstPort}))
			continue
		}

		qcap := l.Capacity
		if qcap == 0 {
			qcap = DefaultQueueCapacity
		}
		q := port.NewQueue(qcap)
		src.SetPort(l.SrcPort, port.NewPushPort(q))
		pp := &pump{q: q, dst: pusher, port: l.DstPort}
		h := pool.Worker(g.threadOf[l.Dst]).Add(pp)
		q.SetNotifier(h)
	}
	return nil
}

// Cleanup runs Cleanup on every element in reverse order - the order Init
// last initialized in, if Init ran; declaration order otherwise.
func (g *Graph) Cleanup() {
	order := g.order
	if g.initOrder != nil {
		order = g.initOrder
	}
	for i := len(order) - 1; i >= 0; i-- {
		g.nodes[order[i]].Cleanup()
	}
}

func instanceID(e element.Element) string {
	if ider, ok := e.(interface{ ID() string }); ok {
		return ider.ID()
	}
	return "?"
}
