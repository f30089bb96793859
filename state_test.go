package tumbler

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, depth uint8, capacity uint32) *StateStore {
	t.Helper()
	store, err := NewStateStore(testHasher(t), SHA256, depth, capacity)
	require.NoError(t, err)
	return store
}

func TestStateSize(t *testing.T) {
	require.Equal(t, 64+32*(4+8), StateSize(4, 8))
	require.Equal(t, 64+32*(32+1), StateSize(32, 1))
	require.Equal(t, StateSize(4, 8), testStore(t, 4, 8).Size())
}

func TestNewStateStore_Validation(t *testing.T) {
	hasher := testHasher(t)
	_, err := NewStateStore(hasher, SHA256, 0, 8)
	require.ErrorIs(t, err, ErrInvalidDepth)
	_, err = NewStateStore(hasher, SHA256, 4, 0)
	require.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = NewStateStore(hasher, SHA256, 4, MaxNullifierCapacity+1)
	require.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = NewStateStore(hasher, HashType(0), 4, 8)
	require.ErrorIs(t, err, ErrUnknownHashType)
}

func TestStateStore_Initialize(t *testing.T) {
	store := testStore(t, 4, 8)

	_, err := store.Initialize(make([]byte, store.Size()-1))
	require.ErrorIs(t, err, ErrStorageTooSmall)

	buf := make([]byte, store.Size())
	state, err := store.Initialize(buf)
	require.NoError(t, err)
	require.Equal(t, state.Tree.EmptyRoot(), state.Root())
	require.Zero(t, state.LeafCount())
	require.Zero(t, state.Nullifiers.Len())

	_, err = store.Initialize(buf)
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	header, err := ReadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, &StateHeader{Depth: 4, HashType: SHA256, NullifierCapacity: 8}, header)
}

func TestStateStore_RoundTrip(t *testing.T) {
	store := testStore(t, 4, 8)
	buf := make([]byte, store.Size()+10)
	state, err := store.Initialize(buf)
	require.NoError(t, err)

	for _, leaf := range testLeaves(store.hasher, 5) {
		_, err := state.Tree.Insert(leaf)
		require.NoError(t, err)
	}
	require.NoError(t, state.Nullifiers.Mark(Digest{9}))
	require.NoError(t, state.Nullifiers.Mark(Digest{2}))
	require.NoError(t, store.Save(state, buf))

	loaded, err := store.Load(buf)
	require.NoError(t, err)
	require.Equal(t, state.Root(), loaded.Root())
	require.Equal(t, state.LeafCount(), loaded.LeafCount())
	require.Equal(t, state.Tree.frontier, loaded.Tree.frontier)
	require.Equal(t, state.Nullifiers.Entries(), loaded.Nullifiers.Entries())

	// the restored frontier keeps extending the same tree
	next := testLeaves(store.hasher, 6)
	_, err = loaded.Tree.Insert(next[5])
	require.NoError(t, err)
	expected, err := ComputeRoot(store.hasher, 4, next)
	require.NoError(t, err)
	require.Equal(t, expected, loaded.Root())
}

func TestStateStore_LoadRejects(t *testing.T) {
	store := testStore(t, 4, 8)
	valid := make([]byte, store.Size())
	state, err := store.Initialize(valid)
	require.NoError(t, err)
	require.NoError(t, state.Nullifiers.Mark(Digest{1}))
	require.NoError(t, state.Nullifiers.Mark(Digest{2}))
	require.NoError(t, store.Save(state, valid))

	corrupt := func(f func(buf []byte)) []byte {
		buf := bytes.Clone(valid)
		f(buf)
		return buf
	}
	tests := []struct {
		name string
		buf  []byte
	}{
		{"short buffer", valid[:len(valid)-1]},
		{"uninitialized", make([]byte, store.Size())},
		{"bad discriminator", corrupt(func(buf []byte) { buf[0] = 'x' })},
		{"depth mismatch", corrupt(func(buf []byte) { buf[8] = 5 })},
		{"hash mismatch", corrupt(func(buf []byte) { buf[9] = byte(Keccak256) })},
		{"capacity mismatch", corrupt(func(buf []byte) { binary.LittleEndian.PutUint32(buf[12:], 9) })},
		{"leaf count overflow", corrupt(func(buf []byte) { binary.LittleEndian.PutUint64(buf[leafCountOffset:], 17) })},
		{"nullifier count overflow", corrupt(func(buf []byte) { binary.LittleEndian.PutUint64(buf[nullifierCountOffset:], 9) })},
		{"unsorted nullifiers", corrupt(func(buf []byte) {
			region := frontierOffset + 4*DigestSize
			buf[region] = 3
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Load(tt.buf)
			require.ErrorIs(t, err, ErrInvalidAccountData)
		})
	}

	_, err = store.Load(valid)
	require.NoError(t, err)
}

func TestStateStore_SaveTooSmall(t *testing.T) {
	store := testStore(t, 4, 8)
	state := store.NewState()
	_, err := state.Tree.Insert(Digest{1})
	require.NoError(t, err)

	buf := make([]byte, store.Size()-32)
	err = store.Save(state, buf)
	require.ErrorIs(t, err, ErrStorageTooSmall)
	require.Equal(t, make([]byte, len(buf)), buf)

	other := testStore(t, 5, 8)
	require.ErrorIs(t, other.Save(state, make([]byte, other.Size())), ErrInvalidAccountData)
}

func TestStateStore_SaveClearsStaleNullifiers(t *testing.T) {
	store := testStore(t, 4, 8)
	buf := make([]byte, store.Size())
	state, err := store.Initialize(buf)
	require.NoError(t, err)
	require.NoError(t, state.Nullifiers.Mark(Digest{1}))
	require.NoError(t, state.Nullifiers.Mark(Digest{2}))
	require.NoError(t, state.Nullifiers.Mark(Digest{3}))
	require.NoError(t, store.Save(state, buf))

	smaller := store.NewState()
	require.NoError(t, smaller.Nullifiers.Mark(Digest{5}))
	require.NoError(t, store.Save(smaller, buf))

	region := frontierOffset + 4*DigestSize
	require.Equal(t, Digest{5}, Digest(buf[region:region+DigestSize]))
	require.Equal(t, make([]byte, 7*DigestSize), buf[region+DigestSize:])

	loaded, err := store.Load(buf)
	require.NoError(t, err)
	require.Equal(t, []Digest{{5}}, loaded.Nullifiers.Entries())
}

func TestStateStore_InitializeClearsGarbage(t *testing.T) {
	store := testStore(t, 4, 8)
	buf := bytes.Repeat([]byte{0xab}, store.Size())
	state, err := store.Initialize(buf)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 8*DigestSize), buf[frontierOffset+4*DigestSize:])
	require.Equal(t, []byte{0, 0}, buf[10:12])

	loaded, err := store.Load(buf)
	require.NoError(t, err)
	require.Equal(t, state.Root(), loaded.Root())
}

func TestStateStore_SaveDoesNotAllocate(t *testing.T) {
	store := testStore(t, 4, MaxNullifierCapacity)
	buf := make([]byte, store.Size())
	state, err := store.Initialize(buf)
	require.NoError(t, err)
	require.NoError(t, state.Nullifiers.Mark(Digest{1}))

	allocs := testing.AllocsPerRun(10, func() {
		if err := store.Save(state, buf); err != nil {
			t.Fatal(err)
		}
	})
	require.Zero(t, allocs)
}
