// Package stats provides the per-element runtime counters, exported as
// Prometheus counters. No code registers them as package handler READ
// handlers, so they are not readable over the handler protocol. Grounded on
// the shape of aistore's stats.Tracker interface (Inc/Add/Get,
// filtered out of the retrieval pack but referenced throughout the
// dropped stats/{proxy,target}_stats.go files) re-pointed at
// github.com/prometheus/client_golang instead of aistore's
// StatsD/Graphite backend, since this module carries no equivalent of
// aistore's cluster-wide metrics fan-out.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tracker is the counter surface each element keeps in its own field: named
// monotonic counters for drops, packets, and pool exhaustion, each also
// exported as a Prometheus counter labeled by element name.
type Tracker struct {
	elem string

	packets        prometheus.Counter
	drops          prometheus.Counter
	poolExhausted  prometheus.Counter
	custom         map[string]prometheus.Counter
}

var (
	packetsVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corepath_element_packets_total",
		Help: "Packets processed by an element.",
	}, []string{"element"})
	dropsVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corepath_element_drops_total",
		Help: "Packets dropped by an element.",
	}, []string{"element"})
	poolExhaustedVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corepath_fcb_pool_exhausted_total",
		Help: "FCB pool allocation failures due to exhaustion.",
	}, []string{"element"})
)

func init() {
	prometheus.MustRegister(packetsVec, dropsVec, poolExhaustedVec)
}

// NewTracker returns a Tracker bound to elem's label value.
func NewTracker(elem string) *Tracker {
	return &Tracker{
		elem:          elem,
		packets:       packetsVec.WithLabelValues(elem),
		drops:         dropsVec.WithLabelValues(elem),
		poolExhausted: poolExhaustedVec.WithLabelValues(elem),
		custom:        make(map[string]prometheus.Counter),
	}
}

func (t *Tracker) IncPackets()       { t.packets.Inc() }
func (t *Tracker) AddPackets(n int)  { t.packets.Add(float64(n)) }
func (t *Tracker) IncDrops()         { t.drops.Inc() }
func (t *Tracker) IncPoolExhausted() { t.poolExhausted.Inc() }

// Custom lazily registers and returns a named counter local to this
// element, for domain-specific counts.
func (t *Tracker) Custom(name string) prometheus.Counter {
	if c, ok := t.custom[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "corepath_element_custom_total",
		Help:        "Element-defined counter.",
		ConstLabels: prometheus.Labels{"element": t.elem, "name": name},
	})
	prometheus.MustRegister(c)
	t.custom[name] = c
	return c
}
