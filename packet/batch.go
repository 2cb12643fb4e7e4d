// Package packet - Batch: a singly-linked run of packets pushed and pulled
// together by batch-capable elements.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package packet

// Batch is a FIFO run of packets chained through Packet.next. Elements that
// prefer batch mode receive and emit Batches instead of single packets;
// push/pull adapters fall back to per-packet delivery when a downstream
// port doesn't support batches.
type Batch struct {
	head, tail *Packet
	count      int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// MakeFromList builds a batch out of an ordered slice of packets, chaining
// them via Packet.next and clearing any pre-existing next pointers.
func MakeFromList(pkts []*Packet) *Batch {
	b := &Batch{}
	for _, p := range pkts {
		b.Append(p)
	}
	return b
}

func (b *Batch) Len() int      { return b.count }
func (b *Batch) Empty() bool   { return b.count == 0 }
func (b *Batch) Head() *Packet { return b.head }
func (b *Batch) Tail() *Packet { return b.tail }

// Append adds a single packet to the tail of the batch, O(1).
func (b *Batch) Append(p *Packet) {
	p.next = nil
	if b.tail == nil {
		b.head, b.tail = p, p
	} else {
		b.tail.next = p
		b.tail = p
	}
	b.count++
}

// PopHead detaches and returns the head packet, or nil if empty, O(1).
func (b *Batch) PopHead() *Packet {
	if b.head == nil {
		return nil
	}
	p := b.head
	b.head = p.next
	if b.head == nil {
		b.tail = nil
	}
	p.next = nil
	b.count--
	return p
}

// AppendBatch concatenates other onto b in O(1) and empties other.
func (b *Batch) AppendBatch(other *Batch) {
	if other == nil || other.head == nil {
		return
	}
	if b.tail == nil {
		b.head = other.head
	} else {
		b.tail.next = other.head
	}
	b.tail = other.tail
	b.count += other.count
	other.head, other.tail, other.count = nil, nil, 0
}

// Split partitions the batch into up to K sub-batches using fn(p) to pick
// an index in [0, K) per packet, preserving relative order within each
// output batch. Used by classifying/switching elements operating in batch
// mode.
func (b *Batch) Split(fn func(*Packet) int, k int) []*Batch {
	out := make([]*Batch, k)
	for i := range out {
		out[i] = &Batch{}
	}
	for p := b.PopHead(); p != nil; p = b.PopHead() {
		idx := fn(p)
		if idx < 0 || idx >= k {
			p.Free()
			continue
		}
		out[idx].Append(p)
	}
	return out
}

// Each calls fn for every packet in order without detaching them.
func (b *Batch) Each(fn func(*Packet)) {
	for p := b.head; p != nil; p = p.next {
		fn(p)
	}
}

// Free releases every packet's reference and empties the batch.
func (b *Batch) Free() {
	for p := b.PopHead(); p != nil; p = b.PopHead() {
		p.Free()
	}
}
