// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxNullifierCapacity bounds the nullifier region of a pool account.
const MaxNullifierCapacity = 1 << 20

const (
	headerSize = 16
	// header | root | leaf_count | nullifier_count
	fixedStateSize = headerSize + DigestSize + 8 + 8

	rootOffset           = headerSize
	leafCountOffset      = rootOffset + DigestSize
	nullifierCountOffset = leafCountOffset + 8
	frontierOffset       = nullifierCountOffset + 8
)

var stateDiscriminator = [8]byte{'t', 'u', 'm', 'b', 'l', 'e', 'r', 0x01}

// StateSize is the number of bytes a pool account needs.
func StateSize(depth uint8, capacity uint32) int {
	return fixedStateSize + DigestSize*(int(depth)+int(capacity))
}

// StateHeader describes the shape of a persisted pool.
type StateHeader struct {
	Depth             uint8
	HashType          HashType
	NullifierCapacity uint32
}

// ReadHeader decodes the header of an initialized pool account.
func ReadHeader(buf []byte) (*StateHeader, error) {
	if len(buf) < headerSize {
		return nil, errors.Wrapf(ErrInvalidAccountData, "buffer of %d bytes has no header", len(buf))
	}
	if !bytes.Equal(buf[:8], stateDiscriminator[:]) {
		return nil, errors.Wrap(ErrInvalidAccountData, "bad discriminator")
	}
	return &StateHeader{
		Depth:             buf[8],
		HashType:          HashType(buf[9]),
		NullifierCapacity: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// PoolState is the single persisted entity of a pool: the accumulator and
// the spent nullifiers.
type PoolState struct {
	Tree       *Accumulator
	Nullifiers *NullifierSet
}

func (s *PoolState) Root() Digest { return s.Tree.Root() }

func (s *PoolState) LeafCount() uint64 { return s.Tree.LeafCount() }

// StateStore encodes and decodes pool state for one pool shape.
type StateStore struct {
	hasher    *Hasher
	nilHashes *nilHashes
	hashType  HashType
	depth     uint8
	capacity  uint32
}

func NewStateStore(hasher *Hasher, hashType HashType, depth uint8, capacity uint32) (*StateStore, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	if capacity == 0 || capacity > MaxNullifierCapacity {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d, max %d", capacity, MaxNullifierCapacity)
	}
	if _, err := hashType.Factory(); err != nil {
		return nil, err
	}
	return &StateStore{
		hasher:    hasher,
		nilHashes: newNilHashes(hasher, depth),
		hashType:  hashType,
		depth:     depth,
		capacity:  capacity,
	}, nil
}

func (s *StateStore) Size() int { return StateSize(s.depth, s.capacity) }

func (s *StateStore) Depth() uint8 { return s.depth }

func (s *StateStore) NullifierCapacity() uint32 { return s.capacity }

func (s *StateStore) HashType() HashType { return s.hashType }

// NewState returns the state of a freshly initialized pool.
func (s *StateStore) NewState() *PoolState {
	return &PoolState{
		Tree:       newAccumulator(s.hasher, s.nilHashes, s.depth),
		Nullifiers: NewNullifierSet(s.capacity),
	}
}

// Initialize writes an empty pool into buf.
func (s *StateStore) Initialize(buf []byte) (*PoolState, error) {
	if len(buf) < s.Size() {
		return nil, errors.Wrapf(ErrStorageTooSmall, "need %d bytes, have %d", s.Size(), len(buf))
	}
	if bytes.Equal(buf[:8], stateDiscriminator[:]) {
		return nil, ErrAlreadyInitialized
	}
	state := s.NewState()
	if err := s.Save(state, buf); err != nil {
		return nil, err
	}
	return state, nil
}

// Load decodes and validates the pool state held in buf.
func (s *StateStore) Load(buf []byte) (*PoolState, error) {
	if len(buf) < s.Size() {
		return nil, errors.Wrapf(ErrInvalidAccountData, "need %d bytes, have %d", s.Size(), len(buf))
	}
	header, err := ReadHeader(buf)
	if err != nil {
		return nil, err
	}
	if header.Depth != s.depth || header.HashType != s.hashType || header.NullifierCapacity != s.capacity {
		return nil, errors.Wrapf(ErrInvalidAccountData,
			"pool shape depth=%d hash=%s capacity=%d, expected depth=%d hash=%s capacity=%d",
			header.Depth, header.HashType, header.NullifierCapacity, s.depth, s.hashType, s.capacity)
	}

	tree := newAccumulator(s.hasher, s.nilHashes, s.depth)
	copy(tree.root[:], buf[rootOffset:])
	tree.leafCount = binary.LittleEndian.Uint64(buf[leafCountOffset:])
	if tree.leafCount > tree.Capacity() {
		return nil, errors.Wrapf(ErrInvalidAccountData, "leaf count %d exceeds capacity", tree.leafCount)
	}
	offset := frontierOffset
	for i := range tree.frontier {
		copy(tree.frontier[i][:], buf[offset:])
		offset += DigestSize
	}

	count := binary.LittleEndian.Uint64(buf[nullifierCountOffset:])
	if count > uint64(s.capacity) {
		return nil, errors.Wrapf(ErrInvalidAccountData, "nullifier count %d exceeds capacity", count)
	}
	nullifiers := NewNullifierSet(s.capacity)
	nullifiers.entries = make([]Digest, count)
	for i := range nullifiers.entries {
		copy(nullifiers.entries[i][:], buf[offset:])
		if i > 0 && bytes.Compare(nullifiers.entries[i-1][:], nullifiers.entries[i][:]) >= 0 {
			return nil, errors.Wrap(ErrInvalidAccountData, "nullifier region is not strictly ascending")
		}
		offset += DigestSize
	}
	return &PoolState{Tree: tree, Nullifiers: nullifiers}, nil
}

// Save encodes state into buf. buf is left untouched on failure. Only the
// used part of the nullifier region is written, plus any entries a previous
// save left beyond it, so the cost does not grow with the capacity.
func (s *StateStore) Save(state *PoolState, buf []byte) error {
	if len(buf) < s.Size() {
		return errors.Wrapf(ErrStorageTooSmall, "need %d bytes, have %d", s.Size(), len(buf))
	}
	if state.Tree.depth != s.depth || state.Nullifiers.capacity != s.capacity {
		return errors.Wrap(ErrInvalidAccountData, "state shape does not match store")
	}
	// entries beyond the new count that may hold stale data
	stale := uint64(s.capacity)
	if bytes.Equal(buf[:8], stateDiscriminator[:]) {
		stale = binary.LittleEndian.Uint64(buf[nullifierCountOffset:])
		if stale > uint64(s.capacity) {
			stale = uint64(s.capacity)
		}
	}

	// nothing below can fail, so buf is written in place
	copy(buf, stateDiscriminator[:])
	buf[8] = s.depth
	buf[9] = byte(s.hashType)
	buf[10], buf[11] = 0, 0
	binary.LittleEndian.PutUint32(buf[12:16], s.capacity)
	copy(buf[rootOffset:], state.Tree.root[:])
	binary.LittleEndian.PutUint64(buf[leafCountOffset:], state.Tree.leafCount)
	binary.LittleEndian.PutUint64(buf[nullifierCountOffset:], uint64(len(state.Nullifiers.entries)))
	offset := frontierOffset
	for i := range state.Tree.frontier {
		copy(buf[offset:], state.Tree.frontier[i][:])
		offset += DigestSize
	}
	for i := range state.Nullifiers.entries {
		copy(buf[offset:], state.Nullifiers.entries[i][:])
		offset += DigestSize
	}
	if used := uint64(len(state.Nullifiers.entries)); stale > used {
		clear(buf[offset : offset+int(stale-used)*DigestSize])
	}
	return nil
}
