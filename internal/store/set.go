// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"sort"

	"code.hybscloud.com/kvember/internal/buf"
)

// Set is an unordered collection of distinct byte ranges, hashed by
// content. Go's built-in map range order is deliberately randomized per
// iteration, which cannot serve SMEMBERS/SPOP's requirement that
// iteration order be a deterministic function of the set's current
// state: Set instead derives a stable snapshot order by sorting member
// keys lexicographically whenever one is needed, rather than tracking
// insertion order.
type Set struct {
	m map[string]buf.Frozen
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{m: make(map[string]buf.Frozen)}
}

// Len reports the number of distinct members.
func (s *Set) Len() int { return len(s.m) }

// Add inserts member if not already present. member must already be an
// owned Frozen range (the dispatcher materializes it before calling, per
// the store's insert-path copy invariant). Returns true if it was newly
// inserted.
func (s *Set) Add(member buf.Frozen) bool {
	k := string(member.Bytes())
	if _, ok := s.m[k]; ok {
		return false
	}
	s.m[k] = member
	return true
}

// Members returns every member in ascending byte order: a stable,
// deterministic snapshot of the set's current state.
func (s *Set) Members() []buf.Frozen {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]buf.Frozen, len(keys))
	for i, k := range keys {
		out[i] = s.m[k]
	}
	return out
}

// PopOne removes and returns the lexicographically smallest member: a
// total, deterministic function of the set's current state.
func (s *Set) PopOne() (buf.Frozen, bool) {
	if len(s.m) == 0 {
		return buf.Frozen{}, false
	}
	min := ""
	first := true
	for k := range s.m {
		if first || k < min {
			min = k
			first = false
		}
	}
	v := s.m[min]
	delete(s.m, min)
	return v, true
}
