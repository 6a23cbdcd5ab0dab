// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buf

import "io"

const defaultCap = 4096

// Accumulator is a growable, appendable read buffer. The reader goroutine
// owns one per connection: sockets are read into it, and the RESP framer
// carves Frozen ranges out of the unconsumed region without copying.
type Accumulator struct {
	data []byte
	r, w int // valid unconsumed bytes are data[r:w]
	max  int // hard cap on backing-array size; 0 means unbounded
}

// NewAccumulator returns an Accumulator with the given initial capacity.
// max, if nonzero, bounds how large the backing array is allowed to grow;
// ReadFrom returns ErrTooLarge rather than exceeding it.
func NewAccumulator(initialCap, max int) *Accumulator {
	if initialCap <= 0 {
		initialCap = defaultCap
	}
	return &Accumulator{data: make([]byte, initialCap), max: max}
}

// ErrTooLarge is returned when growing the accumulator would exceed its
// configured maximum capacity.
var ErrTooLarge = errTooLarge{}

type errTooLarge struct{}

func (errTooLarge) Error() string { return "buf: accumulator exceeds configured maximum" }

// Len reports the number of unconsumed bytes currently buffered.
func (a *Accumulator) Len() int { return a.w - a.r }

// Bytes peeks at the unconsumed region without consuming it.
func (a *Accumulator) Bytes() []byte { return a.data[a.r:a.w] }

// ReadFrom reads once from r, appending into the accumulator, growing the
// backing array as needed. It returns the number of bytes appended.
//
// Growth never mutates bytes already exposed as a Frozen range: when more
// room is required than the current backing array holds, a fresh array is
// allocated and only the unconsumed tail data[r:w] is copied into it. The
// old array, and anything still Sub'd out of it, is left exactly as it was.
func (a *Accumulator) ReadFrom(r io.Reader) (int, error) {
	if err := a.ensureSpace(defaultCap); err != nil {
		return 0, err
	}
	n, err := r.Read(a.data[a.w:])
	a.w += n
	return n, err
}

// Grow ensures at least n more bytes of write room are available after w,
// compacting or reallocating as needed. It never overwrites bytes held by
// an outstanding Frozen range split off this Accumulator.
func (a *Accumulator) Grow(n int) error {
	return a.ensureSpace(n)
}

func (a *Accumulator) ensureSpace(n int) error {
	if len(a.data)-a.w >= n {
		return nil
	}
	unconsumed := a.w - a.r
	need := unconsumed + n
	if a.max > 0 && need > a.max {
		return ErrTooLarge
	}
	newCap := len(a.data)
	if newCap == 0 {
		newCap = defaultCap
	}
	for newCap < need {
		newCap *= 2
	}
	if a.max > 0 && newCap > a.max {
		newCap = a.max
	}
	fresh := make([]byte, newCap)
	copy(fresh, a.data[a.r:a.w])
	a.data = fresh
	a.w = unconsumed
	a.r = 0
	return nil
}

// Peek returns the n bytes starting at the unconsumed cursor without
// advancing it. The caller must not retain the slice past the next
// mutating call on this Accumulator; use Split to take ownership.
func (a *Accumulator) Peek(n int) []byte {
	if a.r+n > a.w {
		return nil
	}
	return a.data[a.r : a.r+n]
}

// Split carves off the first n unconsumed bytes as a Frozen range and
// advances the read cursor past them. The returned range shares the
// backing array (O(1), no copy) but is capped so appends elsewhere on
// this Accumulator can never grow into it.
func (a *Accumulator) Split(n int) Frozen {
	if n < 0 || a.r+n > a.w {
		panic("buf: Split out of range")
	}
	f := frozenFrom(a.data[a.r : a.r+n : a.r+n])
	a.r += n
	return f
}

// Discard advances the read cursor by n bytes without materializing a
// Frozen range, for bytes the framer has already classified as noise
// (e.g. a skipped CRLF).
func (a *Accumulator) Discard(n int) {
	if a.r+n > a.w {
		panic("buf: Discard out of range")
	}
	a.r += n
}

// Compact drops already-consumed bytes from the front of the buffer.
// Like Grow, it reallocates instead of sliding within the existing array,
// so it never corrupts a Frozen range a caller is still holding.
func (a *Accumulator) Compact() {
	if a.r == 0 {
		return
	}
	if a.r == a.w {
		a.data = make([]byte, len(a.data))
		a.r, a.w = 0, 0
		return
	}
	unconsumed := a.w - a.r
	fresh := make([]byte, len(a.data))
	copy(fresh, a.data[a.r:a.w])
	a.data = fresh
	a.w = unconsumed
	a.r = 0
}
