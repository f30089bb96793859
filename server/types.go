package server

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
)

type CreatePoolRequest struct {
	Pool string `json:"pool"`
}

type FundRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

type InstructionRequest struct {
	Pool      string        `json:"pool"`
	Payer     string        `json:"payer"`
	Recipient string        `json:"recipient"`
	Data      hexutil.Bytes `json:"data"`
}

type ReceiptResponse struct {
	Op         string          `json:"op"`
	Amount     uint64          `json:"amount"`
	LeafIndex  uint64          `json:"leafIndex"`
	Commitment tumbler.Digest  `json:"commitment"`
	Nullifier  *tumbler.Digest `json:"nullifier,omitempty"`
	Root       tumbler.Digest  `json:"root"`
	LeafCount  uint64          `json:"leafCount"`
}

func newReceiptResponse(r *tumbler.Receipt) *ReceiptResponse {
	resp := &ReceiptResponse{
		Op:         r.Op.String(),
		Amount:     r.Amount,
		LeafIndex:  r.LeafIndex,
		Commitment: r.Commitment,
		Root:       r.Root,
		LeafCount:  r.LeafCount,
	}
	if r.Op == tumbler.OpWithdraw {
		nullifier := r.Nullifier
		resp.Nullifier = &nullifier
	}
	return resp
}

type PoolResponse struct {
	Pool              string           `json:"pool"`
	Depth             uint8            `json:"depth"`
	HashType          string           `json:"hashType"`
	NullifierCapacity uint32           `json:"nullifierCapacity"`
	Root              tumbler.Digest   `json:"root"`
	LeafCount         uint64           `json:"leafCount"`
	Balance           uint64           `json:"balance"`
	Nullifiers        []tumbler.Digest `json:"nullifiers"`
}

type ProofResponse struct {
	Pool  string         `json:"pool"`
	Root  tumbler.Digest `json:"root"`
	Leaf  tumbler.Digest `json:"leaf"`
	Proof *tumbler.Proof `json:"proof"`
}

type AccountResponse struct {
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
