// Registry of Class descriptors, one per element type name, looked up by
// the graph builder when instantiating a graph description. Grounded on xact/xreg/xreg.go's registry type, reduced
// from "renew-or-reuse running xactions" to "look up a class by name" since
// elements are graph-construction-time objects, not renewable jobs.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package element

import (
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class, 64)}
}

// DefaultRegistry is populated by each elements/* package's init().
var DefaultRegistry = NewRegistry()

func Register(c *Class) { DefaultRegistry.Register(c) }

func (r *Registry) Register(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.classes[c.Name]; dup {
		panic(fmt.Sprintf("element class %q registered twice", c.Name))
	}
	r.classes[c.Name] = c
}

func Lookup(name string) (*Class, bool) { return DefaultRegistry.Lookup(name) }

func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Names returns all registered class names, sorted, for diagnostics and
// config validation error messages.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
