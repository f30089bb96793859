package tumbler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func secretOf(b byte) Secret {
	var s Secret
	for i := range s {
		s[i] = b
	}
	return s
}

func TestCommit_Deterministic(t *testing.T) {
	hasher := testHasher(t)
	secret := secretOf(7)

	c1 := Commit(hasher, 1000, secret)
	c2 := Commit(hasher, 1000, secret)
	require.Equal(t, c1, c2)

	require.NotEqual(t, c1, Commit(hasher, 1001, secret))
	require.NotEqual(t, c1, Commit(hasher, 1000, secretOf(8)))
}

func TestCommit_DomainSeparation(t *testing.T) {
	hasher := testHasher(t)
	secret := secretOf(1)
	commitment := Commit(hasher, 0, secret)

	// the same bytes hashed under the node and nullifier tags give
	// different digests
	var left, right Digest
	copy(right[:], secret[:])
	require.NotEqual(t, commitment, HashNode(hasher, left, right))
	require.NotEqual(t, commitment, DeriveNullifier(hasher, secret, 0, Digest{}))

	raw := hasher.digest(make([]byte, 8), secret[:])
	require.NotEqual(t, commitment, raw)
}

func TestDeriveNullifier_BoundToLeaf(t *testing.T) {
	hasher := testHasher(t)
	secret := secretOf(3)
	commitment := Commit(hasher, 50, secret)

	n := DeriveNullifier(hasher, secret, 4, commitment)
	require.Equal(t, n, DeriveNullifier(hasher, secret, 4, commitment))
	require.NotEqual(t, n, DeriveNullifier(hasher, secret, 5, commitment))
	require.NotEqual(t, n, DeriveNullifier(hasher, secretOf(4), 4, commitment))
	require.NotEqual(t, n, DeriveNullifier(hasher, secret, 4, Commit(hasher, 51, secret)))
}

func TestNewSecret(t *testing.T) {
	s1, err := NewSecret()
	require.NoError(t, err)
	s2, err := NewSecret()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	parsed, err := HexToSecret(s1.String())
	require.NoError(t, err)
	require.Equal(t, s1, parsed)
}
