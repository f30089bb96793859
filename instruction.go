// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type Opcode uint8

const (
	OpDeposit Opcode = iota
	OpWithdraw
)

func (op Opcode) String() string {
	switch op {
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	}
	return "unknown"
}

const (
	// opcode | amount | secret
	depositDataSize = 1 + 8 + SecretSize
	// leaf_index | amount | secret
	openingSize = 8 + 8 + SecretSize
	// opcode | nullifier | opening, with the proof in between
	minWithdrawDataSize = 1 + DigestSize + openingSize
)

type (
	DepositArgs struct {
		Amount uint64
		Secret Secret
	}

	// WithdrawArgs carries the nullifier, the path of the claimed leaf and the
	// opening (index, amount, secret) the nullifier is bound to.
	WithdrawArgs struct {
		Nullifier Digest
		Proof     []Digest
		LeafIndex uint64
		Amount    uint64
		Secret    Secret
	}

	Instruction struct {
		Op       Opcode
		Deposit  *DepositArgs
		Withdraw *WithdrawArgs
	}
)

// NewDepositInstruction builds the payload of a deposit.
func NewDepositInstruction(amount uint64, secret Secret) []byte {
	return (&Instruction{Op: OpDeposit, Deposit: &DepositArgs{Amount: amount, Secret: secret}}).Encode()
}

// NewWithdrawInstruction builds the payload of a withdraw for the leaf that
// proof authenticates. The payload carries the amount and secret in the
// clear and does not bind the recipient, so whoever sees it before it lands
// can resubmit it paying a different recipient.
func NewWithdrawInstruction(nullifier Digest, proof *Proof, amount uint64, secret Secret) []byte {
	return (&Instruction{Op: OpWithdraw, Withdraw: &WithdrawArgs{
		Nullifier: nullifier,
		Proof:     proof.Siblings,
		LeafIndex: proof.LeafIndex,
		Amount:    amount,
		Secret:    secret,
	}}).Encode()
}

// DecodeInstruction parses an instruction payload. The proof length is not
// checked against any depth here.
func DecodeInstruction(data []byte) (*Instruction, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrInvalidInstructionData, "empty payload")
	}
	switch Opcode(data[0]) {
	case OpDeposit:
		if len(data) != depositDataSize {
			return nil, errors.Wrapf(ErrInvalidInstructionData, "deposit payload is %d bytes, want %d", len(data), depositDataSize)
		}
		args := &DepositArgs{Amount: binary.LittleEndian.Uint64(data[1:9])}
		copy(args.Secret[:], data[9:depositDataSize])
		return &Instruction{Op: OpDeposit, Deposit: args}, nil

	case OpWithdraw:
		if len(data) < minWithdrawDataSize || (len(data)-minWithdrawDataSize)%DigestSize != 0 {
			return nil, errors.Wrapf(ErrInvalidInstructionData, "withdraw payload of %d bytes", len(data))
		}
		args := &WithdrawArgs{}
		copy(args.Nullifier[:], data[1:33])
		proofEnd := len(data) - openingSize
		args.Proof = make([]Digest, (proofEnd-33)/DigestSize)
		for i := range args.Proof {
			copy(args.Proof[i][:], data[33+i*DigestSize:])
		}
		opening := data[proofEnd:]
		args.LeafIndex = binary.LittleEndian.Uint64(opening[0:8])
		args.Amount = binary.LittleEndian.Uint64(opening[8:16])
		copy(args.Secret[:], opening[16:])
		return &Instruction{Op: OpWithdraw, Withdraw: args}, nil
	}
	return nil, errors.Wrapf(ErrInvalidInstructionData, "unknown opcode %d", data[0])
}

// Encode is the inverse of DecodeInstruction.
func (ix *Instruction) Encode() []byte {
	switch {
	case ix.Op == OpDeposit && ix.Deposit != nil:
		buf := make([]byte, depositDataSize)
		buf[0] = byte(OpDeposit)
		binary.LittleEndian.PutUint64(buf[1:9], ix.Deposit.Amount)
		copy(buf[9:], ix.Deposit.Secret[:])
		return buf

	case ix.Op == OpWithdraw && ix.Withdraw != nil:
		w := ix.Withdraw
		buf := make([]byte, 0, minWithdrawDataSize+len(w.Proof)*DigestSize)
		buf = append(buf, byte(OpWithdraw))
		buf = append(buf, w.Nullifier[:]...)
		for i := range w.Proof {
			buf = append(buf, w.Proof[i][:]...)
		}
		buf = binary.LittleEndian.AppendUint64(buf, w.LeafIndex)
		buf = binary.LittleEndian.AppendUint64(buf, w.Amount)
		return append(buf, w.Secret[:]...)
	}
	return []byte{byte(ix.Op)}
}
