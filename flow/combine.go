// Combine merges two FlowNode trees into their union: every leaf of the result describes every reachable
// downstream context. Conflicting level definitions at the same tree
// depth are resolved by nesting the deeper/more-specific level inside the
// broader/coarser one. Combine is associative and idempotent and never
// mutates either input in place: it returns a new merged node, or one of
// the inputs unchanged when the other is nil or both are the same node.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package flow

// specificity orders Kinds from coarsest to most specific so Combine can
// decide which level should nest inside the other when two subtrees
// disagree on what to inspect at the same point.
func specificity(k Kind) int {
	switch k {
	case KindDefault:
		return 0
	case KindRange:
		return 1
	case KindArray:
		return 2
	case KindHash:
		return 3
	case KindExact:
		return 4
	default:
		return 0
	}
}

// Combine merges a and b into a single tree. If both are leaves, the
// result is a copy of a and b's payload is discarded (idempotent:
// combining a tree with itself does not change it). If one is a leaf and the other isn't, the
// leaf is folded in as that subtree's default child, so every path through
// the non-leaf side still terminates. If both are internal, the coarser
// level is kept as the outer node and the finer one is combined into every
// one of its children (including default), nesting the more specific kind
// inside the coarser one.
func Combine(a, b *Node) *Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a == b {
		return a // idempotent: combining with self is a no-op
	}

	aLeaf, bLeaf := a.Payload != nil && a.exact == nil && a.byHash == nil && a.arr == nil && len(a.ranges) == 0 && a.def == nil,
		b.Payload != nil && b.exact == nil && b.byHash == nil && b.arr == nil && len(b.ranges) == 0 && b.def == nil

	switch {
	case aLeaf && bLeaf:
		out := *a
		return &out
	case aLeaf && !bLeaf:
		return foldLeafIntoTree(b, a)
	case !aLeaf && bLeaf:
		return foldLeafIntoTree(a, b)
	}

	if specificity(a.Kind) <= specificity(b.Kind) {
		return nestInto(a, b)
	}
	return nestInto(b, a)
}

// foldLeafIntoTree returns a copy of tree whose top-level default child
// resolves to leaf (combined with tree's existing default, if any), so a
// packet that misses every explicit child of tree still reaches leaf.
// Defaults of deeper children are left as they are.
func foldLeafIntoTree(tree, leaf *Node) *Node {
	out := shallowCopy(tree)
	if out.def != nil {
		out.def = Combine(out.def, leaf)
	} else {
		out.def = leaf
	}
	return out
}

// nestInto rebuilds outer with every child (and its default) combined
// with inner, so a packet that reaches any outer leaf continues
// classification through inner before terminating.
func nestInto(outer, inner *Node) *Node {
	out := shallowCopy(outer)
	switch out.Kind {
	case KindExact:
		out.exact = make(map[uint64]*Node, len(outer.exact))
		for k, c := range outer.exact {
			out.exact[k] = Combine(c, inner)
		}
	case KindHash:
		out.byHash = make(map[uint64]*Node, len(outer.byHash))
		for k, c := range outer.byHash {
			out.byHash[k] = Combine(c, inner)
		}
	case KindArray:
		out.arr = make([]*Node, len(outer.arr))
		for i, c := range outer.arr {
			if c != nil {
				out.arr[i] = Combine(c, inner)
			}
		}
	case KindRange:
		out.ranges = make([]rangeChild, len(outer.ranges))
		for i, rc := range outer.ranges {
			out.ranges[i] = rangeChild{rc.lo, rc.hi, Combine(rc.child, inner)}
		}
	}
	if outer.def != nil {
		out.def = Combine(outer.def, inner)
	} else {
		out.def = inner
	}
	return out
}

func shallowCopy(n *Node) *Node {
	out := *n
	return &out
}
