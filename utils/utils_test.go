package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKey(t *testing.T) {
	key := []byte("leaf")
	require.Equal(t, []byte("pool:leaf"), WrapKey([]byte("pool"), key))

	plain := WrapKey(nil, key)
	require.Equal(t, key, plain)
	plain[0] = 'x'
	require.Equal(t, []byte("leaf"), key)
}

func TestUint64Bytes(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, Uint64ToBytes(258))
	require.Equal(t, uint64(258), BytesToUint64(Uint64ToBytes(258)))
	require.Zero(t, BytesToUint64([]byte{1}))
}

func TestStringBytes(t *testing.T) {
	require.Equal(t, "abc", BytesToString([]byte("abc")))
	require.Equal(t, []byte("abc"), StringToBytes("abc"))
	require.Equal(t, "", BytesToString(nil))
	require.Empty(t, StringToBytes(""))
	require.Nil(t, CopyBytes(nil))
	require.Equal(t, []byte("k1:k2"), JoinKey([]byte("k1"), []byte("k2")))
}
