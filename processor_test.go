package tumbler

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type memBank struct {
	balances map[string]uint64
}

func (b *memBank) Transfer(from, to string, amount uint64) error {
	if b.balances[from] < amount {
		return ErrInsufficientFunds
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}

type recordingMetrics struct {
	leaves, nullifiers uint64
	deposits           []uint64
	withdraws          []uint64
	rejected           []string
}

func (m *recordingMetrics) LeafCount(n uint64) { m.leaves = n }
func (m *recordingMetrics) NullifierCount(n uint64) { m.nullifiers = n }
func (m *recordingMetrics) Deposit(amount uint64) { m.deposits = append(m.deposits, amount) }
func (m *recordingMetrics) Withdraw(amount uint64) { m.withdraws = append(m.withdraws, amount) }
func (m *recordingMetrics) Rejected(op, kind string) {
	m.rejected = append(m.rejected, op+":"+kind)
}

// pool simulates the host: each instruction runs against copies of the
// account data and balances, which are kept only when it succeeds.
type pool struct {
	t         *testing.T
	processor *Processor
	data      []byte
	bank      *memBank
	leaves    LeafSlice
}

func newPool(t *testing.T, depth uint8, capacity uint32, opts ...Option) *pool {
	processor, err := NewProcessor(depth, capacity, opts...)
	require.NoError(t, err)
	p := &pool{
		t:         t,
		processor: processor,
		data:      make([]byte, StateSize(depth, capacity)),
		bank:      &memBank{balances: map[string]uint64{"alice": 10_000, "bob": 0}},
	}
	_, err = processor.Initialize(p.data)
	require.NoError(t, err)
	return p
}

func (p *pool) execute(data []byte) (*Receipt, error) {
	scratch := bytes.Clone(p.data)
	balances := make(map[string]uint64, len(p.bank.balances))
	for k, v := range p.bank.balances {
		balances[k] = v
	}
	staged := &memBank{balances: balances}
	receipt, err := p.processor.Process(&Accounts{
		Payer:     "alice",
		Pool:      "pool",
		Recipient: "bob",
		PoolData:  scratch,
		Bank:      staged,
	}, data)
	if err != nil {
		return nil, err
	}
	p.data = scratch
	p.bank = staged
	if receipt.Op == OpDeposit {
		p.leaves = append(p.leaves, receipt.Commitment)
	}
	return receipt, nil
}

func (p *pool) deposit(amount uint64, secret Secret) *Receipt {
	receipt, err := p.execute(NewDepositInstruction(amount, secret))
	require.NoError(p.t, err)
	return receipt
}

func (p *pool) state() *PoolState {
	state, err := p.processor.Store().Load(p.data)
	require.NoError(p.t, err)
	return state
}

func (p *pool) withdrawData(index, amount uint64, secret Secret) []byte {
	proof, err := p.state().Tree.GenerateProof(index, p.leaves, nil)
	require.NoError(p.t, err)
	commitment := Commit(p.processor.Hasher(), amount, secret)
	nullifier := DeriveNullifier(p.processor.Hasher(), secret, index, commitment)
	return NewWithdrawInstruction(nullifier, proof, amount, secret)
}

func TestProcessor_EndToEnd(t *testing.T) {
	hasher, sums := newCountingHasher()
	const depth = 8
	p := newPool(t, depth, 16, WithHasher(hasher))
	secret := secretOf(0x5e)

	receipt := p.deposit(1000, secret)
	commitment := Commit(hasher, 1000, secret)
	require.Equal(t, uint64(0), receipt.LeafIndex)
	require.Equal(t, commitment, receipt.Commitment)
	r0, err := ComputeRoot(hasher, depth, []Digest{commitment})
	require.NoError(t, err)
	require.Equal(t, r0, receipt.Root)
	require.Equal(t, r0, p.state().Root())
	require.Equal(t, uint64(9000), p.bank.balances["alice"])
	require.Equal(t, uint64(1000), p.bank.balances["pool"])

	valid := p.withdrawData(0, 1000, secret)

	// a path one level short is rejected before any hashing
	ix, err := DecodeInstruction(valid)
	require.NoError(t, err)
	ix.Withdraw.Proof = ix.Withdraw.Proof[:depth-1]
	before := atomic.LoadInt64(sums)
	_, err = p.execute(ix.Encode())
	require.ErrorIs(t, err, ErrProofInvalid)
	require.Equal(t, before, atomic.LoadInt64(sums))

	receipt, err = p.execute(valid)
	require.NoError(t, err)
	require.Equal(t, OpWithdraw, receipt.Op)
	require.Equal(t, uint64(1000), p.bank.balances["bob"])
	require.Zero(t, p.bank.balances["pool"])
	require.True(t, p.state().Nullifiers.Check(receipt.Nullifier))

	_, err = p.execute(valid)
	require.ErrorIs(t, err, ErrAlreadySpent)
	require.Equal(t, uint64(1000), p.bank.balances["bob"])
}

func TestProcessor_DepositFailures(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newPool(t, 1, 4, EnableMetrics(metrics))
	p.deposit(1, secretOf(1))
	p.deposit(2, secretOf(2))
	require.Equal(t, uint64(2), metrics.leaves)
	require.Equal(t, []uint64{1, 2}, metrics.deposits)

	snapshot := bytes.Clone(p.data)
	_, err := p.execute(NewDepositInstruction(3, secretOf(3)))
	require.ErrorIs(t, err, ErrPoolFull)
	require.Equal(t, snapshot, p.data)
	require.Equal(t, uint64(2), p.state().LeafCount())
	require.Equal(t, uint64(9997), p.bank.balances["alice"])

	q := newPool(t, 4, 4)
	_, err = q.execute(NewDepositInstruction(20_000, secretOf(1)))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Zero(t, q.state().LeafCount())

	require.Equal(t, []string{"deposit:PoolFull"}, metrics.rejected)
}

func TestProcessor_WithdrawRejects(t *testing.T) {
	const depth = 4
	p := newPool(t, depth, 8)
	secret := secretOf(7)
	p.deposit(500, secret)
	p.deposit(600, secretOf(8))
	hasher := p.processor.Hasher()

	valid, err := DecodeInstruction(p.withdrawData(0, 500, secret))
	require.NoError(t, err)

	mutate := func(f func(w *WithdrawArgs)) []byte {
		w := *valid.Withdraw
		w.Proof = append([]Digest(nil), w.Proof...)
		f(&w)
		return (&Instruction{Op: OpWithdraw, Withdraw: &w}).Encode()
	}
	commitment := Commit(hasher, 500, secret)
	tests := []struct {
		name string
		data []byte
	}{
		{"altered sibling", mutate(func(w *WithdrawArgs) { w.Proof[2][0] ^= 1 })},
		{"long proof", mutate(func(w *WithdrawArgs) { w.Proof = append(w.Proof, Digest{}) })},
		{"wrong amount", mutate(func(w *WithdrawArgs) {
			w.Amount = 600
			w.Nullifier = DeriveNullifier(hasher, secret, 0, Commit(hasher, 600, secret))
		})},
		{"nullifier for another leaf", mutate(func(w *WithdrawArgs) {
			w.Nullifier = DeriveNullifier(hasher, secret, 1, commitment)
		})},
		{"moved index", mutate(func(w *WithdrawArgs) {
			w.LeafIndex = 1
			w.Nullifier = DeriveNullifier(hasher, secret, 1, commitment)
		})},
		{"foreign secret", mutate(func(w *WithdrawArgs) { w.Secret = secretOf(8) })},
	}
	snapshot := bytes.Clone(p.data)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.execute(tt.data)
			require.ErrorIs(t, err, ErrProofInvalid)
			require.Equal(t, snapshot, p.data)
		})
	}

	_, err = p.execute(valid.Encode())
	require.NoError(t, err)
}

func TestProcessor_WithdrawInsufficientPoolFunds(t *testing.T) {
	p := newPool(t, 4, 8)
	secret := secretOf(1)
	p.deposit(100, secret)
	p.bank.balances["pool"] = 50

	snapshot := bytes.Clone(p.data)
	_, err := p.execute(p.withdrawData(0, 100, secret))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, snapshot, p.data)
}

func TestProcessor_NullifierSetFull(t *testing.T) {
	p := newPool(t, 4, 1)
	p.deposit(10, secretOf(1))
	p.deposit(20, secretOf(2))

	_, err := p.execute(p.withdrawData(0, 10, secretOf(1)))
	require.NoError(t, err)
	_, err = p.execute(p.withdrawData(1, 20, secretOf(2)))
	require.ErrorIs(t, err, ErrNullifierSetFull)
	require.Equal(t, 1, p.state().Nullifiers.Len())
}

func TestProcessor_InvalidAccounts(t *testing.T) {
	processor, err := NewProcessor(4, 8)
	require.NoError(t, err)
	bank := &memBank{balances: map[string]uint64{"alice": 10}}

	_, err = processor.Process(&Accounts{Payer: "alice", Pool: "pool", PoolData: make([]byte, StateSize(4, 8)), Bank: bank},
		NewDepositInstruction(1, Secret{}))
	require.ErrorIs(t, err, ErrInvalidAccountData)

	_, err = processor.Process(&Accounts{Payer: "alice", Pool: "pool", PoolData: make([]byte, 10), Bank: bank},
		NewDepositInstruction(1, Secret{}))
	require.ErrorIs(t, err, ErrInvalidAccountData)
	require.Equal(t, uint64(10), bank.balances["alice"])

	keccak, err := NewProcessor(4, 8, WithHashType(Keccak256))
	require.NoError(t, err)
	data := make([]byte, StateSize(4, 8))
	_, err = keccak.Initialize(data)
	require.NoError(t, err)
	_, err = processor.Process(&Accounts{Payer: "alice", Pool: "pool", PoolData: data, Bank: bank},
		NewDepositInstruction(1, Secret{}))
	require.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestProcessor_InvalidInstruction(t *testing.T) {
	metrics := &recordingMetrics{}
	p := newPool(t, 4, 8, EnableMetrics(metrics))

	_, err := p.execute([]byte{9, 1, 2})
	require.ErrorIs(t, err, ErrInvalidInstructionData)
	_, err = p.execute(nil)
	require.ErrorIs(t, err, ErrInvalidInstructionData)
	require.Equal(t, []string{"unknown:InvalidInstructionData", "unknown:InvalidInstructionData"}, metrics.rejected)
}

func TestProcessor_Keccak(t *testing.T) {
	p := newPool(t, 6, 4, WithHashType(Keccak256))
	for i := byte(1); i <= 5; i++ {
		p.deposit(uint64(i)*100, secretOf(i))
	}
	_, err := p.execute(p.withdrawData(3, 400, secretOf(4)))
	require.NoError(t, err)
	require.Equal(t, uint64(400), p.bank.balances["bob"])
}

func TestKind(t *testing.T) {
	require.Equal(t, "", Kind(nil))
	require.Equal(t, "AlreadySpent", Kind(ErrAlreadySpent))
	require.Equal(t, "ProofInvalid", Kind(errors.Wrap(ErrProofInvalid, "context")))
	require.Equal(t, "InsufficientFunds", Kind(errors.Wrapf(ErrInsufficientFunds, "transfer %d", 1)))
	require.Equal(t, "Internal", Kind(errors.New("boom")))
}
