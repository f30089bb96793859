package utils

import (
	"bytes"
	"encoding/binary"
	"unsafe"
)

var keySeparator = []byte(":")

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)

	return
}

// WrapKey joins namespace and key with a colon. The result never aliases
// key.
func WrapKey(namespace, key []byte) []byte {
	if len(namespace) > 0 {
		return bytes.Join([][]byte{namespace, key}, keySeparator)
	}
	return CopyBytes(key)
}

// JoinKey builds a colon separated key from its parts.
func JoinKey(parts ...[]byte) []byte {
	return bytes.Join(parts, keySeparator)
}

// Uint64ToBytes encodes n big-endian so that keys sort by number.
func Uint64ToBytes(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return buf[:]
}

// BytesToUint64 is the inverse of Uint64ToBytes. Short input decodes as 0.
func BytesToUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// BytesToString converts without copying. b must not be modified afterwards.
func BytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts without copying. The result must not be modified.
func StringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
