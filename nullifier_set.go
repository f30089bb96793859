// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"bytes"
	"sort"
)

// NullifierSet is a bounded, append-only set of spent nullifiers kept as a
// sorted array.
type NullifierSet struct {
	capacity uint32
	entries  []Digest
}

func NewNullifierSet(capacity uint32) *NullifierSet {
	return &NullifierSet{capacity: capacity}
}

func (s *NullifierSet) Len() int { return len(s.entries) }

func (s *NullifierSet) Capacity() uint32 { return s.capacity }

func (s *NullifierSet) IsFull() bool { return uint64(len(s.entries)) >= uint64(s.capacity) }

func (s *NullifierSet) search(n Digest) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return bytes.Compare(s.entries[i][:], n[:]) >= 0
	})
}

// Check reports whether n has been spent.
func (s *NullifierSet) Check(n Digest) bool {
	i := s.search(n)
	return i < len(s.entries) && s.entries[i] == n
}

// Mark records n as spent.
func (s *NullifierSet) Mark(n Digest) error {
	i := s.search(n)
	if i < len(s.entries) && s.entries[i] == n {
		return ErrAlreadySpent
	}
	if s.IsFull() {
		return ErrNullifierSetFull
	}
	s.entries = append(s.entries, Digest{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = n
	return nil
}

// Entries returns a copy of the spent nullifiers in ascending order.
func (s *NullifierSet) Entries() []Digest {
	out := make([]Digest, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *NullifierSet) Copy() *NullifierSet {
	return &NullifierSet{
		capacity: s.capacity,
		entries:  s.Entries(),
	}
}
