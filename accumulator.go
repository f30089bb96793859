// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"github.com/pkg/errors"
)

// MaxDepth bounds the tree so that every leaf index fits in 32 bits.
const MaxDepth = 32

// nilHashes holds the root of an empty subtree for every level, from the
// empty leaf at level 0 up to the empty tree at level depth.
type nilHashes struct {
	hashes []Digest
}

func newNilHashes(hasher *Hasher, depth uint8) *nilHashes {
	hashes := make([]Digest, depth+1)
	for i := 1; i <= int(depth); i++ {
		hashes[i] = HashNode(hasher, hashes[i-1], hashes[i-1])
	}
	return &nilHashes{hashes: hashes}
}

func (h *nilHashes) Get(level uint8) Digest {
	return h.hashes[level]
}

func checkDepth(depth uint8) error {
	if depth == 0 || depth > MaxDepth {
		return errors.Wrapf(ErrInvalidDepth, "got %d", depth)
	}
	return nil
}

// Accumulator is a fixed-depth append-only Merkle tree. It keeps only the
// frontier of filled left subtrees, so inserts cost depth hashes and the
// leaves themselves live elsewhere.
type Accumulator struct {
	hasher    *Hasher
	nilHashes *nilHashes
	depth     uint8
	root      Digest
	leafCount uint64
	frontier  []Digest
}

// NewAccumulator returns an empty tree of the given depth.
func NewAccumulator(hasher *Hasher, depth uint8) (*Accumulator, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	return newAccumulator(hasher, newNilHashes(hasher, depth), depth), nil
}

func newAccumulator(hasher *Hasher, nils *nilHashes, depth uint8) *Accumulator {
	return &Accumulator{
		hasher:    hasher,
		nilHashes: nils,
		depth:     depth,
		root:      nils.Get(depth),
		frontier:  make([]Digest, depth),
	}
}

func (a *Accumulator) Depth() uint8 { return a.depth }

func (a *Accumulator) Root() Digest { return a.root }

func (a *Accumulator) LeafCount() uint64 { return a.leafCount }

// Capacity is 2^depth.
func (a *Accumulator) Capacity() uint64 { return 1 << a.depth }

func (a *Accumulator) IsFull() bool { return a.leafCount == a.Capacity() }

// EmptyRoot is the root of the tree with no leaves.
func (a *Accumulator) EmptyRoot() Digest { return a.nilHashes.Get(a.depth) }

func (a *Accumulator) Copy() *Accumulator {
	copied := *a
	copied.frontier = make([]Digest, len(a.frontier))
	copy(copied.frontier, a.frontier)
	return &copied
}

// Recompute builds the root of leaves from scratch with this tree's hash
// and depth.
func (a *Accumulator) Recompute(leaves []Digest) (Digest, error) {
	return ComputeRoot(a.hasher, a.depth, leaves)
}

// Insert appends leaf at index LeafCount and updates the root. A full tree
// is left untouched.
func (a *Accumulator) Insert(leaf Digest) (uint64, error) {
	if a.IsFull() {
		return 0, ErrPoolFull
	}
	index := a.leafCount
	current := leaf
	for level := uint8(0); level < a.depth; level++ {
		if (index>>level)&1 == 0 {
			a.frontier[level] = current
			current = HashNode(a.hasher, current, a.nilHashes.Get(level))
		} else {
			current = HashNode(a.hasher, a.frontier[level], current)
		}
	}
	a.root = current
	a.leafCount++
	return index, nil
}

// GenerateProof rebuilds the authentication path of the leaf at index
// against the current root. Leaves are read from the given source; cache
// may be nil. The path is checked before it is returned, so a source that
// disagrees with the tree yields ErrLeafLogMismatch.
func (a *Accumulator) GenerateProof(index uint64, leaves LeafSource, cache NodeCache) (*Proof, error) {
	if index >= a.leafCount {
		return nil, errors.Wrapf(ErrInvalidIndex, "index %d, leaf count %d", index, a.leafCount)
	}
	leaf, err := leaves.Leaf(index)
	if err != nil {
		return nil, errors.Wrapf(err, "read leaf %d", index)
	}
	proof := &Proof{
		LeafIndex: index,
		Siblings:  make([]Digest, a.depth),
	}
	for level := uint8(0); level < a.depth; level++ {
		sibling, err := a.subtreeRoot(level, (index>>level)^1, leaves, cache)
		if err != nil {
			return nil, err
		}
		proof.Siblings[level] = sibling
	}
	if !NewProofVerifier(a.hasher, a.depth).Verify(a.root, leaf, proof) {
		return nil, errors.Wrapf(ErrLeafLogMismatch, "proof for leaf %d", index)
	}
	return proof, nil
}

// subtreeRoot returns the node at (level, position) for the first leafCount
// leaves. Nodes whose leaves are all present never change again and are the
// only ones cached.
func (a *Accumulator) subtreeRoot(level uint8, position uint64, leaves LeafSource, cache NodeCache) (Digest, error) {
	start := position << level
	if start >= a.leafCount {
		return a.nilHashes.Get(level), nil
	}
	if level == 0 {
		leaf, err := leaves.Leaf(position)
		if err != nil {
			return Digest{}, errors.Wrapf(err, "read leaf %d", position)
		}
		return leaf, nil
	}
	complete := start+(uint64(1)<<level) <= a.leafCount
	if complete && cache != nil {
		if node, ok := cache.Get(level, position); ok {
			return node, nil
		}
	}
	left, err := a.subtreeRoot(level-1, position<<1, leaves, cache)
	if err != nil {
		return Digest{}, err
	}
	right, err := a.subtreeRoot(level-1, position<<1|1, leaves, cache)
	if err != nil {
		return Digest{}, err
	}
	node := HashNode(a.hasher, left, right)
	if complete && cache != nil {
		cache.Add(level, position, node)
	}
	return node, nil
}

// ComputeRoot recomputes the root of a depth-deep tree holding leaves from
// scratch, treating every later slot as empty.
func ComputeRoot(hasher *Hasher, depth uint8, leaves []Digest) (Digest, error) {
	if err := checkDepth(depth); err != nil {
		return Digest{}, err
	}
	if uint64(len(leaves)) > uint64(1)<<depth {
		return Digest{}, ErrPoolFull
	}
	nils := newNilHashes(hasher, depth)
	nodes := make([]Digest, len(leaves))
	copy(nodes, leaves)
	for level := uint8(0); level < depth; level++ {
		if len(nodes) == 0 {
			break
		}
		next := make([]Digest, (len(nodes)+1)/2)
		for i := range next {
			right := nils.Get(level)
			if 2*i+1 < len(nodes) {
				right = nodes[2*i+1]
			}
			next[i] = HashNode(hasher, nodes[2*i], right)
		}
		nodes = next
	}
	if len(nodes) == 0 {
		return nils.Get(depth), nil
	}
	return nodes[0], nil
}
