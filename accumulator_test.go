package tumbler

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeKey struct {
	level    uint8
	position uint64
}

type mapCache struct {
	nodes map[nodeKey]Digest
	hits  int
}

func newMapCache() *mapCache {
	return &mapCache{nodes: make(map[nodeKey]Digest)}
}

func (c *mapCache) Get(level uint8, position uint64) (Digest, bool) {
	node, ok := c.nodes[nodeKey{level, position}]
	if ok {
		c.hits++
	}
	return node, ok
}

func (c *mapCache) Add(level uint8, position uint64, node Digest) {
	c.nodes[nodeKey{level, position}] = node
}

func testLeaves(hasher *Hasher, n int) []Digest {
	leaves := make([]Digest, n)
	for i := range leaves {
		var secret Secret
		binary.LittleEndian.PutUint64(secret[:], uint64(i)+1)
		leaves[i] = Commit(hasher, uint64(i)*10, secret)
	}
	return leaves
}

func TestNewAccumulator_Depth(t *testing.T) {
	hasher := testHasher(t)
	for _, depth := range []uint8{0, 33, 255} {
		_, err := NewAccumulator(hasher, depth)
		require.ErrorIs(t, err, ErrInvalidDepth)
	}
	acc, err := NewAccumulator(hasher, 32)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<32, acc.Capacity())
}

func TestAccumulator_EmptyRoot(t *testing.T) {
	hasher := testHasher(t)
	acc, err := NewAccumulator(hasher, 3)
	require.NoError(t, err)

	z1 := HashNode(hasher, Digest{}, Digest{})
	z2 := HashNode(hasher, z1, z1)
	z3 := HashNode(hasher, z2, z2)
	require.Equal(t, z3, acc.Root())
	require.Equal(t, z3, acc.EmptyRoot())

	root, err := ComputeRoot(hasher, 3, nil)
	require.NoError(t, err)
	require.Equal(t, z3, root)
}

func TestAccumulator_RootEquivalence(t *testing.T) {
	hasher := testHasher(t)
	for _, depth := range []uint8{1, 2, 4, 5} {
		acc, err := NewAccumulator(hasher, depth)
		require.NoError(t, err)
		leaves := testLeaves(hasher, 1<<depth)
		for i, leaf := range leaves {
			index, err := acc.Insert(leaf)
			require.NoError(t, err)
			require.Equal(t, uint64(i), index)

			expected, err := ComputeRoot(hasher, depth, leaves[:i+1])
			require.NoError(t, err)
			require.Equal(t, expected, acc.Root(), "depth %d after %d leaves", depth, i+1)
		}
	}
}

func TestAccumulator_TwoLeafRoot(t *testing.T) {
	hasher := testHasher(t)
	acc, err := NewAccumulator(hasher, 1)
	require.NoError(t, err)
	leaves := testLeaves(hasher, 2)

	_, err = acc.Insert(leaves[0])
	require.NoError(t, err)
	require.Equal(t, HashNode(hasher, leaves[0], Digest{}), acc.Root())

	_, err = acc.Insert(leaves[1])
	require.NoError(t, err)
	require.Equal(t, HashNode(hasher, leaves[0], leaves[1]), acc.Root())
}

func TestAccumulator_Completeness(t *testing.T) {
	hasher := testHasher(t)
	const depth = 5
	acc, err := NewAccumulator(hasher, depth)
	require.NoError(t, err)
	verifier := NewProofVerifier(hasher, depth)

	leaves := testLeaves(hasher, 21)
	cache := newMapCache()
	for n, leaf := range leaves {
		_, err := acc.Insert(leaf)
		require.NoError(t, err)
		for i := 0; i <= n; i++ {
			proof, err := acc.GenerateProof(uint64(i), LeafSlice(leaves[:n+1]), nil)
			require.NoError(t, err)
			require.Len(t, proof.Siblings, depth)
			assert.True(t, verifier.Verify(acc.Root(), leaves[i], proof), "leaf %d of %d", i, n+1)

			cached, err := acc.GenerateProof(uint64(i), LeafSlice(leaves[:n+1]), cache)
			require.NoError(t, err)
			require.Equal(t, proof, cached)
		}
	}
	require.NotZero(t, cache.hits)
}

func TestAccumulator_GenerateProofErrors(t *testing.T) {
	hasher := testHasher(t)
	acc, err := NewAccumulator(hasher, 3)
	require.NoError(t, err)
	leaves := testLeaves(hasher, 3)
	for _, leaf := range leaves {
		_, err := acc.Insert(leaf)
		require.NoError(t, err)
	}

	_, err = acc.GenerateProof(3, LeafSlice(leaves), nil)
	require.ErrorIs(t, err, ErrInvalidIndex)

	_, err = acc.GenerateProof(2, LeafSlice(leaves[:2]), nil)
	require.ErrorIs(t, err, ErrInvalidIndex)

	tampered := append([]Digest(nil), leaves...)
	tampered[1][0] ^= 0xff
	_, err = acc.GenerateProof(0, LeafSlice(tampered), nil)
	require.ErrorIs(t, err, ErrLeafLogMismatch)
}

func TestAccumulator_PoolFull(t *testing.T) {
	hasher := testHasher(t)
	acc, err := NewAccumulator(hasher, 2)
	require.NoError(t, err)
	for _, leaf := range testLeaves(hasher, 4) {
		_, err := acc.Insert(leaf)
		require.NoError(t, err)
	}
	require.True(t, acc.IsFull())

	before := acc.Copy()
	_, err = acc.Insert(Digest{1})
	require.ErrorIs(t, err, ErrPoolFull)
	require.Equal(t, before.Root(), acc.Root())
	require.Equal(t, before.LeafCount(), acc.LeafCount())
	require.Equal(t, before.frontier, acc.frontier)

	_, err = ComputeRoot(hasher, 2, testLeaves(hasher, 5))
	require.ErrorIs(t, err, ErrPoolFull)
}

func TestAccumulator_Copy(t *testing.T) {
	hasher := testHasher(t)
	acc, err := NewAccumulator(hasher, 4)
	require.NoError(t, err)
	_, err = acc.Insert(Digest{1})
	require.NoError(t, err)

	copied := acc.Copy()
	_, err = copied.Insert(Digest{2})
	require.NoError(t, err)
	require.Equal(t, uint64(1), acc.LeafCount())
	require.NotEqual(t, acc.Root(), copied.Root())
	require.Equal(t, Digest{1}, acc.frontier[0])
	require.Equal(t, Digest{1}, copied.frontier[0])
}
