// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store is the in-memory key-value engine: a single-owner mapping
// from key to a tagged {String, List, Set} value, with the operation
// semantics the dispatcher translates RESP frames into. There is no
// locking here because, per the connection pipeline's concurrency model,
// exactly one goroutine ever calls into a given Store.
package store

import (
	"errors"

	"code.hybscloud.com/kvember/internal/buf"
)

// Kind discriminates the value variant held at a key.
type Kind uint8

const (
	KindString Kind = iota
	KindList
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	default:
		return "none"
	}
}

// ErrWrongType is returned when an operation targets a key holding a
// variant other than the one the operation requires. The store is left
// unmutated whenever this error is returned: the check always happens
// before any write step (I1).
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

type entry struct {
	kind Kind
	str  buf.Frozen
	list *Deque
	set  *Set
}

// Store is the single-owner key-value mapping for one connection.
type Store struct {
	data map[string]*entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]*entry)}
}

// Get returns the String value at key. ok is false if the key is absent.
// err is ErrWrongType if key holds a List or Set.
func (s *Store) Get(key []byte) (val buf.Frozen, ok bool, err error) {
	e, present := s.data[string(key)]
	if !present {
		return buf.Frozen{}, false, nil
	}
	if e.kind != KindString {
		return buf.Frozen{}, false, ErrWrongType
	}
	return e.str, true, nil
}

// Set overwrites key with String(val), replacing any existing variant.
// val must already be an owned Frozen range (I3).
func (s *Store) Set(key []byte, val buf.Frozen) {
	s.data[string(key)] = &entry{kind: KindString, str: val}
}

// Del removes every key present in keys, regardless of variant, and
// reports how many existed.
func (s *Store) Del(keys [][]byte) int64 {
	var n int64
	for _, k := range keys {
		if _, ok := s.data[string(k)]; ok {
			delete(s.data, string(k))
			n++
		}
	}
	return n
}

// Exists counts how many of keys are currently present.
func (s *Store) Exists(keys [][]byte) int64 {
	var n int64
	for _, k := range keys {
		if _, ok := s.data[string(k)]; ok {
			n++
		}
	}
	return n
}

// Type reports the variant name at key, or "none" if absent.
func (s *Store) Type(key []byte) string {
	e, ok := s.data[string(key)]
	if !ok {
		return "none"
	}
	return e.kind.String()
}

func (s *Store) listEntry(key []byte, createIfAbsent bool) (*entry, error) {
	k := string(key)
	e, ok := s.data[k]
	if !ok {
		if !createIfAbsent {
			return nil, nil
		}
		e = &entry{kind: KindList, list: NewDeque()}
		s.data[k] = e
		return e, nil
	}
	if e.kind != KindList {
		return nil, ErrWrongType
	}
	return e, nil
}

func (s *Store) setEntry(key []byte, createIfAbsent bool) (*entry, error) {
	k := string(key)
	e, ok := s.data[k]
	if !ok {
		if !createIfAbsent {
			return nil, nil
		}
		e = &entry{kind: KindSet, set: NewSet()}
		s.data[k] = e
		return e, nil
	}
	if e.kind != KindSet {
		return nil, ErrWrongType
	}
	return e, nil
}

// removeIfEmptyList deletes key's entry once its list has hit zero
// length (I2): an empty list is never observable.
func (s *Store) removeIfEmptyList(key []byte, e *entry) {
	if e.list.Len() == 0 {
		delete(s.data, string(key))
	}
}

func (s *Store) removeIfEmptySet(key []byte, e *entry) {
	if e.set.Len() == 0 {
		delete(s.data, string(key))
	}
}

// LPush prepends vals in the given order (so the last argument ends up
// at the head) and returns the resulting length.
func (s *Store) LPush(key []byte, vals []buf.Frozen) (int64, error) {
	e, err := s.listEntry(key, true)
	if err != nil {
		return 0, err
	}
	for _, v := range vals {
		e.list.PushFront(v)
	}
	return int64(e.list.Len()), nil
}

// RPush appends vals in the given order (so the last argument ends up at
// the tail) and returns the resulting length.
func (s *Store) RPush(key []byte, vals []buf.Frozen) (int64, error) {
	e, err := s.listEntry(key, true)
	if err != nil {
		return 0, err
	}
	for _, v := range vals {
		e.list.PushBack(v)
	}
	return int64(e.list.Len()), nil
}

// LPop removes and returns the head element, deleting key if the list
// becomes empty.
func (s *Store) LPop(key []byte) (buf.Frozen, bool, error) {
	e, err := s.listEntry(key, false)
	if err != nil {
		return buf.Frozen{}, false, err
	}
	if e == nil {
		return buf.Frozen{}, false, nil
	}
	v, ok := e.list.PopFront()
	if !ok {
		return buf.Frozen{}, false, nil
	}
	s.removeIfEmptyList(key, e)
	return v, true, nil
}

// RPop removes and returns the tail element, deleting key if the list
// becomes empty.
func (s *Store) RPop(key []byte) (buf.Frozen, bool, error) {
	e, err := s.listEntry(key, false)
	if err != nil {
		return buf.Frozen{}, false, err
	}
	if e == nil {
		return buf.Frozen{}, false, nil
	}
	v, ok := e.list.PopBack()
	if !ok {
		return buf.Frozen{}, false, nil
	}
	s.removeIfEmptyList(key, e)
	return v, true, nil
}

// LRange returns the inclusive [start, stop] subrange after negative-
// offset normalization and clamping. Absent keys and empty results both
// yield an empty, non-nil slice rather than an error.
func (s *Store) LRange(key []byte, start, stop int64) ([]buf.Frozen, error) {
	e, err := s.listEntry(key, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []buf.Frozen{}, nil
	}
	n := int64(e.list.Len())
	start, stop = normalizeRange(start, stop, n)
	if start > stop {
		return []buf.Frozen{}, nil
	}
	out := e.list.Slice(int(start), int(stop+1))
	if out == nil {
		out = []buf.Frozen{}
	}
	return out, nil
}

// normalizeRange applies the LRANGE negative-offset and clamping rule:
// negative indices count from the end (-1 is last), then start clamps up
// to 0 and stop clamps down to n-1.
func normalizeRange(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop > n-1 {
		stop = n - 1
	}
	return start, stop
}

// LLen reports the length of the list at key, or 0 if absent.
func (s *Store) LLen(key []byte) (int64, error) {
	e, err := s.listEntry(key, false)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return int64(e.list.Len()), nil
}

// SAdd inserts members into the set at key, creating it if absent, and
// returns the count of members that were not already present.
func (s *Store) SAdd(key []byte, members []buf.Frozen) (int64, error) {
	e, err := s.setEntry(key, true)
	if err != nil {
		return 0, err
	}
	var added int64
	for _, m := range members {
		if e.set.Add(m) {
			added++
		}
	}
	return added, nil
}

// SPop removes and returns one deterministically chosen member, deleting
// key if the set becomes empty.
func (s *Store) SPop(key []byte) (buf.Frozen, bool, error) {
	e, err := s.setEntry(key, false)
	if err != nil {
		return buf.Frozen{}, false, err
	}
	if e == nil {
		return buf.Frozen{}, false, nil
	}
	v, ok := e.set.PopOne()
	if !ok {
		return buf.Frozen{}, false, nil
	}
	s.removeIfEmptySet(key, e)
	return v, true, nil
}

// SMembers returns every member of the set at key in deterministic
// order, or an empty slice if absent.
func (s *Store) SMembers(key []byte) ([]buf.Frozen, error) {
	e, err := s.setEntry(key, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []buf.Frozen{}, nil
	}
	return e.set.Members(), nil
}

// SCard reports the cardinality of the set at key, or 0 if absent.
func (s *Store) SCard(key []byte) (int64, error) {
	e, err := s.setEntry(key, false)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return int64(e.set.Len()), nil
}
