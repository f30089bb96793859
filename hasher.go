// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"crypto/sha256"
	"hash"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// DigestSize is the byte length of every commitment, nullifier and tree node.
const DigestSize = 32

// Digest is the output of the pool hash function.
type Digest [DigestSize]byte

func (d Digest) Bytes() []byte {
	return d[:]
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(input []byte) error {
	parsed, err := HexToDigest(string(input))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// BytesToDigest converts a 32-byte slice into a Digest.
func BytesToDigest(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, errors.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// HexToDigest parses a hex string, with or without the 0x prefix.
func HexToDigest(s string) (Digest, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return Digest{}, errors.Wrap(err, "decode hex digest")
	}
	return BytesToDigest(b)
}

// HashType selects the hash primitive a pool is built on. It is recorded in
// the pool state header.
type HashType uint8

const (
	SHA256 HashType = iota + 1
	Keccak256
)

func (t HashType) String() string {
	switch t {
	case SHA256:
		return "sha256"
	case Keccak256:
		return "keccak256"
	}
	return "unknown"
}

// ParseHashType is the inverse of HashType.String.
func ParseHashType(s string) (HashType, error) {
	switch strings.ToLower(s) {
	case "sha256", "sha-256":
		return SHA256, nil
	case "keccak256", "keccak-256", "keccak":
		return Keccak256, nil
	}
	return 0, errors.Wrapf(ErrUnknownHashType, "%q", s)
}

// Factory returns a constructor for the underlying hash.Hash.
func (t HashType) Factory() (func() hash.Hash, error) {
	switch t {
	case SHA256:
		return sha256.New, nil
	case Keccak256:
		return func() hash.Hash { return crypto.NewKeccakState() }, nil
	}
	return nil, errors.Wrapf(ErrUnknownHashType, "id %d", uint8(t))
}

// NewHasher returns a pooled Hasher for the given hash type.
func NewHasher(t HashType) (*Hasher, error) {
	factory, err := t.Factory()
	if err != nil {
		return nil, err
	}
	return NewHasherPool(factory), nil
}

// NewHasherPool builds a Hasher that is safe for concurrent use. init must
// produce a hash with a 32-byte output.
func NewHasherPool(init func() hash.Hash) *Hasher {
	return &Hasher{
		pool: &sync.Pool{
			New: func() interface{} {
				return init()
			},
		},
	}
}

type Hasher struct {
	pool *sync.Pool
}

func (h *Hasher) Hash(inputs ...[]byte) []byte {
	hasher := h.pool.Get().(hash.Hash)
	defer h.pool.Put(hasher)

	hasher.Reset()
	for i := range inputs {
		hasher.Write(inputs[i])
	}
	return hasher.Sum(nil)
}

func (h *Hasher) digest(inputs ...[]byte) Digest {
	var d Digest
	copy(d[:], h.Hash(inputs...))
	return d
}
