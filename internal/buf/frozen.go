// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buf provides the byte-buffer abstraction the rest of kvember is
// built on: a growable read accumulator and the immutable, refcounted
// Frozen ranges carved out of it without copying.
//
// The accumulator never moves bytes within its own backing array. When it
// needs more room than its current capacity allows, it allocates a fresh
// backing array and copies only the unconsumed tail into it; the old array
// is left untouched and stays alive for as long as any Frozen range still
// references it. That single policy is what lets Frozen ranges split off
// on one read survive every later read, grow, or compaction on the same
// Accumulator with no coordination required between reader and holder.
package buf

import "sync/atomic"

// Frozen is an immutable, refcounted handle to a contiguous byte span.
// The zero value is not usable; construct one with NewFrozen or by
// splitting it off an Accumulator.
type Frozen struct {
	data []byte
	refs *int32
}

// NewFrozen copies p into a standalone Frozen range. Use this on the
// insert path (I3): the copy is the one point where a byte range stops
// depending on whoever produced p.
func NewFrozen(p []byte) Frozen {
	owned := make([]byte, len(p))
	copy(owned, p)
	n := int32(1)
	return Frozen{data: owned, refs: &n}
}

// frozenFrom wraps p without copying. Callers within this package only:
// p must not be mutated or shared with a growable buffer afterward.
func frozenFrom(p []byte) Frozen {
	n := int32(1)
	return Frozen{data: p, refs: &n}
}

// Bytes returns the span's contents. The returned slice must not be
// mutated by the caller.
func (f Frozen) Bytes() []byte { return f.data }

// Len reports the span length in bytes.
func (f Frozen) Len() int { return len(f.data) }

// Clone bumps the refcount and returns a handle sharing the same backing
// array. O(1), no copy.
func (f Frozen) Clone() Frozen {
	if f.refs != nil {
		atomic.AddInt32(f.refs, 1)
	}
	return f
}

// Release decrements the refcount. kvember relies on the Go garbage
// collector for the backing array's actual lifetime; Release exists so
// callers can account for outstanding references the way a non-GC'd
// implementation of this design would have to, and so a future
// allocator-aware build can reclaim pooled backing arrays eagerly.
func (f Frozen) Release() {
	if f.refs != nil {
		atomic.AddInt32(f.refs, -1)
	}
}

// Sub returns the half-open subrange [lo:hi) as a new Frozen sharing the
// same backing array. O(1), no copy, preserves sharing.
func (f Frozen) Sub(lo, hi int) Frozen {
	sub := f.data[lo:hi:hi]
	if f.refs != nil {
		atomic.AddInt32(f.refs, 1)
	}
	return Frozen{data: sub, refs: f.refs}
}

// Equal reports byte-for-byte equality, independent of sharing.
func (f Frozen) Equal(g Frozen) bool {
	if len(f.data) != len(g.data) {
		return false
	}
	for i := range f.data {
		if f.data[i] != g.data[i] {
			return false
		}
	}
	return true
}
