// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package tumbler

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bnb-chain/zkbnb-tumbler/metrics"
)

// Processor executes pool instructions against a pool account. It holds no
// locks: the host must serialize instructions that touch the same account,
// and must discard every effect of an instruction that returns an error.
type Processor struct {
	hashType HashType
	hasher   *Hasher
	store    *StateStore
	verifier *ProofVerifier
	metrics  metrics.Metrics
	logger   *zap.Logger
}

func NewProcessor(depth uint8, capacity uint32, opts ...Option) (*Processor, error) {
	p := &Processor{
		hashType: SHA256,
		metrics:  metrics.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.hasher == nil {
		hasher, err := NewHasher(p.hashType)
		if err != nil {
			return nil, err
		}
		p.hasher = hasher
	}
	store, err := NewStateStore(p.hasher, p.hashType, depth, capacity)
	if err != nil {
		return nil, err
	}
	p.store = store
	p.verifier = NewProofVerifier(p.hasher, depth)
	return p, nil
}

func (p *Processor) Hasher() *Hasher { return p.hasher }

func (p *Processor) Store() *StateStore { return p.store }

func (p *Processor) Verifier() *ProofVerifier { return p.verifier }

// Initialize writes an empty pool into the account buffer.
func (p *Processor) Initialize(buf []byte) (*PoolState, error) {
	state, err := p.store.Initialize(buf)
	if err != nil {
		return nil, err
	}
	p.logger.Sugar().Infow("pool initialized",
		"depth", p.store.depth,
		"nullifierCapacity", p.store.capacity,
		"hash", p.hashType.String(),
		"root", state.Root().String(),
	)
	return state, nil
}

// Process decodes and executes one instruction.
func (p *Processor) Process(accounts *Accounts, data []byte) (*Receipt, error) {
	ix, err := DecodeInstruction(data)
	if err != nil {
		op := "unknown"
		if len(data) > 0 {
			op = Opcode(data[0]).String()
		}
		p.reject(op, err)
		return nil, err
	}
	switch ix.Op {
	case OpDeposit:
		return p.Deposit(accounts, ix.Deposit.Amount, ix.Deposit.Secret)
	default:
		return p.Withdraw(accounts, ix.Withdraw)
	}
}

// Deposit commits amount under secret: the commitment is computed, the value
// moves from payer to pool, and the commitment is appended to the tree.
func (p *Processor) Deposit(accounts *Accounts, amount uint64, secret Secret) (receipt *Receipt, err error) {
	defer func() {
		if err != nil {
			p.reject(OpDeposit.String(), err)
		}
	}()

	state, err := p.store.Load(accounts.PoolData)
	if err != nil {
		return nil, err
	}
	commitment := Commit(p.hasher, amount, secret)
	if err := p.transfer(accounts, accounts.Payer, accounts.Pool, amount); err != nil {
		return nil, err
	}
	index, err := state.Tree.Insert(commitment)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(state, accounts.PoolData); err != nil {
		return nil, err
	}

	p.metrics.Deposit(amount)
	p.metrics.LeafCount(state.LeafCount())
	p.logger.Sugar().Debugw("deposit accepted",
		"pool", accounts.Pool,
		"index", index,
		"commitment", commitment.String(),
		"root", state.Root().String(),
	)
	return &Receipt{
		Op:         OpDeposit,
		Amount:     amount,
		LeafIndex:  index,
		Commitment: commitment,
		Root:       state.Root(),
		LeafCount:  state.LeafCount(),
	}, nil
}

// Withdraw spends the leaf opened by args. The nullifier is checked, the
// path and the nullifier binding are verified, the nullifier is marked and
// the state saved before any value leaves the pool.
func (p *Processor) Withdraw(accounts *Accounts, args *WithdrawArgs) (receipt *Receipt, err error) {
	defer func() {
		if err != nil {
			p.reject(OpWithdraw.String(), err)
		}
	}()

	if args == nil {
		return nil, ErrInvalidInstructionData
	}
	state, err := p.store.Load(accounts.PoolData)
	if err != nil {
		return nil, err
	}
	if state.Nullifiers.Check(args.Nullifier) {
		return nil, ErrAlreadySpent
	}
	commitment, err := p.verify(state, args)
	if err != nil {
		return nil, err
	}
	if err := state.Nullifiers.Mark(args.Nullifier); err != nil {
		return nil, err
	}
	if err := p.store.Save(state, accounts.PoolData); err != nil {
		return nil, err
	}
	if err := p.transfer(accounts, accounts.Pool, accounts.Recipient, args.Amount); err != nil {
		return nil, err
	}

	p.metrics.Withdraw(args.Amount)
	p.metrics.NullifierCount(uint64(state.Nullifiers.Len()))
	p.logger.Sugar().Debugw("withdraw accepted",
		"pool", accounts.Pool,
		"nullifier", args.Nullifier.String(),
		"spent", state.Nullifiers.Len(),
	)
	return &Receipt{
		Op:         OpWithdraw,
		Amount:     args.Amount,
		LeafIndex:  args.LeafIndex,
		Commitment: commitment,
		Nullifier:  args.Nullifier,
		Root:       state.Root(),
		LeafCount:  state.LeafCount(),
	}, nil
}

// verify checks the path length first, so a malformed proof costs no
// hashing, then the nullifier binding, then the path itself.
func (p *Processor) verify(state *PoolState, args *WithdrawArgs) (Digest, error) {
	if len(args.Proof) != int(p.store.depth) {
		return Digest{}, errors.Wrapf(ErrProofInvalid, "proof has %d siblings, tree depth is %d", len(args.Proof), p.store.depth)
	}
	commitment := Commit(p.hasher, args.Amount, args.Secret)
	if DeriveNullifier(p.hasher, args.Secret, args.LeafIndex, commitment) != args.Nullifier {
		return Digest{}, errors.Wrap(ErrProofInvalid, "nullifier is not bound to the opened leaf")
	}
	proof := &Proof{LeafIndex: args.LeafIndex, Siblings: args.Proof}
	if !p.verifier.Verify(state.Root(), commitment, proof) {
		return Digest{}, errors.Wrap(ErrProofInvalid, "path does not resolve to the pool root")
	}
	return commitment, nil
}

func (p *Processor) transfer(accounts *Accounts, from, to string, amount uint64) error {
	if accounts.Bank == nil {
		return errors.New("no transfer facility")
	}
	if err := accounts.Bank.Transfer(from, to, amount); err != nil {
		return errors.Wrapf(err, "transfer %d from %s to %s", amount, from, to)
	}
	return nil
}

func (p *Processor) reject(op string, err error) {
	kind := Kind(err)
	p.metrics.Rejected(op, kind)
	p.logger.Sugar().Debugw("instruction rejected", "op", op, "kind", kind, "error", err)
}
