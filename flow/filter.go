// Membership pre-filter: a classifier may keep a cuckoo filter of flow
// keys it has already admitted, letting the fast path skip straight to
// "definitely new flow, must walk the tree and allocate" vs "maybe
// already classified, check the FCB table first" without touching the
// tree at all for the common case of a flow seen many times in a row.
// FastClick itself relies on its own flow IP-manager hash maps rather
// than a probabilistic filter; wired in here as a pre-lookup membership
// check using github.com/seiflotfy/cuckoofilter.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package flow

import (
	"encoding/binary"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// MembershipFilter wraps a cuckoo filter keyed by the classified flow's
// 64-bit key (the value extracted at the leaf-deciding node).
type MembershipFilter struct {
	cf *cuckoo.Filter
}

func NewMembershipFilter(capacity uint) *MembershipFilter {
	return &MembershipFilter{cf: cuckoo.NewFilter(capacity)}
}

func keyBytes(key uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return b[:]
}

// Admit records key as seen; returns false if key was (probably) already
// present, or if the filter was full and could not insert it.
func (m *MembershipFilter) Admit(key uint64) bool { return m.cf.InsertUnique(keyBytes(key)) }

// Contains reports whether key was (probably) previously admitted.
func (m *MembershipFilter) Contains(key uint64) bool { return m.cf.Lookup(keyBytes(key)) }

// Forget removes key, e.g. when its FCB is released by the sweeper.
func (m *MembershipFilter) Forget(key uint64) bool { return m.cf.Delete(keyBytes(key)) }

func (m *MembershipFilter) Count() uint { return m.cf.Count() }
