/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package packet

import "testing"

func makeN(n int) []*Packet {
	pkts := make([]*Packet, n)
	for i := range pkts {
		pkts[i] = Make(4, nil)
	}
	return pkts
}

func TestBatchAppendOrderAndCount(t *testing.T) {
	b := NewBatch()
	pkts := makeN(5)
	for _, p := range pkts {
		b.Append(p)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
	i := 0
	b.Each(func(p *Packet) {
		if p != pkts[i] {
			t.Fatalf("order mismatch at %d", i)
		}
		i++
	})
	if i != 5 {
		t.Fatalf("Each visited %d packets, want 5", i)
	}
	b.Free()
	if b.Len() != 0 {
		t.Fatal("Free() must empty the batch")
	}
}

func TestBatchPopHeadFIFO(t *testing.T) {
	b := MakeFromList(makeN(3))
	first := b.PopHead()
	second := b.PopHead()
	if first == second {
		t.Fatal("PopHead must return distinct packets")
	}
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
	first.Free()
	second.Free()
	b.Free()
}

func TestAppendBatchConcatenates(t *testing.T) {
	a := MakeFromList(makeN(2))
	b := MakeFromList(makeN(3))
	a.AppendBatch(b)
	if a.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", a.Len())
	}
	if b.Len() != 0 {
		t.Fatal("AppendBatch must empty the source batch")
	}
	a.Free()
}

func TestSplitPreservesOrderPerBucket(t *testing.T) {
	b := MakeFromList(makeN(6))
	i := 0
	idxs := []int{0, 1, 0, 1, 0, 1}
	out := b.Split(func(*Packet) int {
		v := idxs[i]
		i++
		return v
	}, 2)
	if len(out) != 2 {
		t.Fatalf("Split returned %d batches, want 2", len(out))
	}
	if out[0].Len() != 3 || out[1].Len() != 3 {
		t.Fatalf("bucket sizes = %d/%d, want 3/3", out[0].Len(), out[1].Len())
	}
	out[0].Free()
	out[1].Free()
}

func TestSplitDropsOutOfRangeIndex(t *testing.T) {
	b := MakeFromList(makeN(3))
	out := b.Split(func(*Packet) int { return 9 }, 2)
	total := out[0].Len() + out[1].Len()
	if total != 0 {
		t.Fatalf("out-of-range index must drop the packet, got total=%d", total)
	}
}
