// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidInstructionData = errors.New("invalid instruction data")

	ErrPoolFull = errors.New("pool is full")

	ErrAlreadySpent = errors.New("nullifier already spent")

	ErrProofInvalid = errors.New("merkle proof is invalid")

	ErrInvalidAccountData = errors.New("invalid account data")

	ErrStorageTooSmall = errors.New("account storage too small")

	ErrAlreadyInitialized = errors.New("pool state already initialized")

	ErrNullifierSetFull = errors.New("nullifier set is full")

	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrInvalidDepth = errors.New("depth must be between 1 and 32")

	ErrInvalidCapacity = errors.New("nullifier capacity out of range")

	ErrInvalidIndex = errors.New("leaf index out of range")

	ErrLeafLogMismatch = errors.New("leaf log does not match pool root")

	ErrUnknownHashType = errors.New("unknown hash type")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidInstructionData, "InvalidInstructionData"},
	{ErrPoolFull, "PoolFull"},
	{ErrAlreadySpent, "AlreadySpent"},
	{ErrProofInvalid, "ProofInvalid"},
	{ErrInvalidAccountData, "InvalidAccountData"},
	{ErrStorageTooSmall, "StorageTooSmall"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrNullifierSetFull, "NullifierSetFull"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrInvalidDepth, "InvalidDepth"},
	{ErrInvalidCapacity, "InvalidCapacity"},
	{ErrInvalidIndex, "InvalidIndex"},
	{ErrLeafLogMismatch, "LeafLogMismatch"},
	{ErrUnknownHashType, "UnknownHashType"},
}

// Kind returns the stable name of the pool error wrapped by err, or "Internal"
// for anything else. A nil error has the empty kind.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
