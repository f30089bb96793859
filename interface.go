// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

type (
	// Transferer moves value between two accounts. A failed transfer fails the
	// whole enclosing operation, and the host discards every effect of it.
	Transferer interface {
		Transfer(from, to string, amount uint64) error
	}

	// LeafSource gives read access to the pool's leaf sequence, which lives
	// outside the pool state.
	LeafSource interface {
		Leaf(index uint64) (Digest, error)
	}

	// NodeCache memoizes subtree roots that can no longer change.
	NodeCache interface {
		Get(level uint8, position uint64) (Digest, bool)
		Add(level uint8, position uint64, node Digest)
	}

	// Accounts is everything an instruction touches on the host side.
	Accounts struct {
		Payer     string
		Pool      string
		Recipient string
		// PoolData is the pool account's fixed-size storage, updated in place.
		PoolData []byte
		Bank     Transferer
	}

	Receipt struct {
		Op         Opcode
		Amount     uint64
		LeafIndex  uint64
		Commitment Digest
		Nullifier  Digest
		Root       Digest
		LeafCount  uint64
	}
)

// LeafSlice serves leaves from memory.
type LeafSlice []Digest

func (s LeafSlice) Leaf(index uint64) (Digest, error) {
	if index >= uint64(len(s)) {
		return Digest{}, ErrInvalidIndex
	}
	return s[index], nil
}
