// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import "code.hybscloud.com/kvember/internal/buf"

// Deque is a double-ended queue of buf.Frozen elements backed by a
// power-of-two ring buffer, the same slot-indexing scheme used for
// single-ended ring buffers elsewhere in the corpus, generalized here to
// grow on demand and to push/pop at either end. It is not safe for
// concurrent use: a List value is only ever touched by the one
// connection goroutine that owns its Store.
type Deque struct {
	slots []buf.Frozen
	mask  int
	head  int
	n     int
}

const minDequeCap = 8

// NewDeque returns an empty Deque.
func NewDeque() *Deque {
	return &Deque{slots: make([]buf.Frozen, minDequeCap), mask: minDequeCap - 1}
}

// Len reports the number of elements currently held.
func (d *Deque) Len() int { return d.n }

func (d *Deque) grow() {
	newCap := len(d.slots) * 2
	fresh := make([]buf.Frozen, newCap)
	for i := 0; i < d.n; i++ {
		fresh[i] = d.slots[(d.head+i)&d.mask]
	}
	d.slots = fresh
	d.mask = newCap - 1
	d.head = 0
}

// PushFront prepends v, making it the new head element.
func (d *Deque) PushFront(v buf.Frozen) {
	if d.n == len(d.slots) {
		d.grow()
	}
	d.head = (d.head - 1) & d.mask
	d.slots[d.head] = v
	d.n++
}

// PushBack appends v, making it the new tail element.
func (d *Deque) PushBack(v buf.Frozen) {
	if d.n == len(d.slots) {
		d.grow()
	}
	idx := (d.head + d.n) & d.mask
	d.slots[idx] = v
	d.n++
}

// PopFront removes and returns the head element.
func (d *Deque) PopFront() (buf.Frozen, bool) {
	if d.n == 0 {
		return buf.Frozen{}, false
	}
	v := d.slots[d.head]
	d.slots[d.head] = buf.Frozen{}
	d.head = (d.head + 1) & d.mask
	d.n--
	return v, true
}

// PopBack removes and returns the tail element.
func (d *Deque) PopBack() (buf.Frozen, bool) {
	if d.n == 0 {
		return buf.Frozen{}, false
	}
	idx := (d.head + d.n - 1) & d.mask
	v := d.slots[idx]
	d.slots[idx] = buf.Frozen{}
	d.n--
	return v, true
}

// At returns the i'th element counting from the head, 0-indexed.
// The caller must ensure 0 <= i < Len().
func (d *Deque) At(i int) buf.Frozen {
	return d.slots[(d.head+i)&d.mask]
}

// Slice materializes the half-open range [start, stop), counting from the
// head, into a freshly allocated slice. Callers are expected to have
// already clamped start/stop to [0, Len()]. This is the only place an
// LRANGE-style query allocates: the Deque itself never materializes its
// full contents just to serve a subrange.
func (d *Deque) Slice(start, stop int) []buf.Frozen {
	if start >= stop {
		return nil
	}
	out := make([]buf.Frozen, stop-start)
	for i := start; i < stop; i++ {
		out[i-start] = d.At(i)
	}
	return out
}
