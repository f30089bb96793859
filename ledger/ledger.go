// Package ledger hosts pools on top of a key-value store. It plays the part
// of the runtime around the pool processor: it owns balances, keeps every
// pool account, runs each instruction against staged copies and commits the
// result together with the leaf log in a single batch.
package ledger

import (
	"bytes"
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/leaflog"
)

type Option func(*Ledger)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithProverOptions tunes the proof cache and the audit workers.
func WithProverOptions(opts ...leaflog.ProverOption) Option {
	return func(l *Ledger) {
		l.proverOpts = append(l.proverOpts, opts...)
	}
}

type Ledger struct {
	db         database.KVStore
	processor  *tumbler.Processor
	leaves     *leaflog.Log
	prover     *leaflog.Prover
	proverOpts []leaflog.ProverOption
	logger     *zap.Logger
	// every write touches balances that other pools may share, so writes
	// are serialized ledger wide
	mu sync.Mutex
}

func New(db database.KVStore, processor *tumbler.Processor, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		processor: processor,
		leaves:    leaflog.New(db),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	prover, err := leaflog.NewProver(l.leaves, append([]leaflog.ProverOption{leaflog.WithLogger(l.logger)}, l.proverOpts...)...)
	if err != nil {
		return nil, err
	}
	l.prover = prover
	return l, nil
}

func (l *Ledger) Processor() *tumbler.Processor { return l.processor }

func (l *Ledger) LeafLog() *leaflog.Log { return l.leaves }

// CreatePool allocates a pool account and writes an empty pool into it.
func (l *Ledger) CreatePool(pool string) (*tumbler.PoolState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := readAccount(l.db, pool)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		account = &Account{}
	case err != nil:
		return nil, err
	case account.IsPool():
		return nil, errors.Wrapf(ErrPoolExists, "%q", pool)
	}
	account.Data = make([]byte, l.processor.Store().Size())
	state, err := l.processor.Initialize(account.Data)
	if err != nil {
		return nil, err
	}
	if err := writeAccount(l.db, pool, account); err != nil {
		return nil, err
	}
	l.logger.Sugar().Infow("pool created", "pool", pool, "size", len(account.Data))
	return state, nil
}

// Fund credits amount to name, creating the account when needed.
func (l *Ledger) Fund(name string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t := newTxn(l.db)
	account, err := t.get(name)
	if err != nil {
		return 0, err
	}
	if account.Balance+amount < account.Balance {
		return 0, errors.Wrapf(ErrBalanceOverflow, "credit %d to %q", amount, name)
	}
	account.Balance += amount
	if err := writeAccount(l.db, name, account); err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Account returns the stored account of name.
func (l *Ledger) Account(name string) (*Account, error) {
	return readAccount(l.db, name)
}

// Balance returns the balance of name. Unknown accounts hold nothing.
func (l *Ledger) Balance(name string) (uint64, error) {
	account, err := readAccount(l.db, name)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (l *Ledger) poolAccount(pool string) (*Account, error) {
	account, err := readAccount(l.db, pool)
	if errors.Is(err, ErrAccountNotFound) || (err == nil && !account.IsPool()) {
		return nil, errors.Wrapf(ErrPoolNotFound, "%q", pool)
	}
	return account, err
}

// PoolState decodes the current state of pool.
func (l *Ledger) PoolState(pool string) (*tumbler.PoolState, error) {
	account, err := l.poolAccount(pool)
	if err != nil {
		return nil, err
	}
	return l.processor.Store().Load(account.Data)
}

// Execute runs one instruction against pool. The payer funds deposits and
// the recipient receives withdrawals. Either every account change and the
// leaf log entry are committed, or nothing is.
func (l *Ledger) Execute(ctx context.Context, pool, payer, recipient string, data []byte) (*tumbler.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.poolAccount(pool); err != nil {
		return nil, err
	}
	if err := l.checkParties(pool, payer, recipient, data); err != nil {
		return nil, err
	}
	t := newTxn(l.db)
	poolAccount, err := t.get(pool)
	if err != nil {
		return nil, err
	}
	scratch := bytes.Clone(poolAccount.Data)
	receipt, err := l.processor.Process(&tumbler.Accounts{
		Payer:     payer,
		Pool:      pool,
		Recipient: recipient,
		PoolData:  scratch,
		Bank:      t,
	}, data)
	if err != nil {
		return nil, err
	}
	poolAccount.Data = scratch

	batch := l.db.NewBatch()
	if err := t.commit(batch); err != nil {
		return nil, err
	}
	if receipt.Op == tumbler.OpDeposit {
		if err := l.leaves.Append(batch, pool, receipt.LeafIndex, receipt.Commitment, receipt.Root); err != nil {
			return nil, err
		}
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrapf(err, "commit %s on %q", receipt.Op, pool)
	}
	l.logger.Sugar().Infow("instruction executed",
		"pool", pool,
		"op", receipt.Op.String(),
		"amount", receipt.Amount,
		"leafCount", receipt.LeafCount,
	)
	return receipt, nil
}

// checkParties makes sure value only moves between pool and plain accounts.
// A deposit needs a payer and a withdraw a recipient; neither may be a pool.
// Payloads without a known opcode are left to the processor to reject.
func (l *Ledger) checkParties(pool, payer, recipient string, data []byte) error {
	if len(data) > 0 {
		switch tumbler.Opcode(data[0]) {
		case tumbler.OpDeposit:
			if payer == "" {
				return errors.Wrap(ErrInvalidParty, "deposit without payer")
			}
		case tumbler.OpWithdraw:
			if recipient == "" {
				return errors.Wrap(ErrInvalidParty, "withdraw without recipient")
			}
		}
	}
	for _, name := range []string{payer, recipient} {
		if name == "" {
			continue
		}
		if name == pool {
			return errors.Wrapf(ErrInvalidParty, "%q is the pool itself", name)
		}
		account, err := readAccount(l.db, name)
		if errors.Is(err, ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if account.IsPool() {
			return errors.Wrapf(ErrInvalidParty, "%q is a pool account", name)
		}
	}
	return nil
}

// Deposit is Execute with a deposit instruction.
func (l *Ledger) Deposit(ctx context.Context, pool, payer string, amount uint64, secret tumbler.Secret) (*tumbler.Receipt, error) {
	return l.Execute(ctx, pool, payer, "", tumbler.NewDepositInstruction(amount, secret))
}

// WithdrawInstruction builds the withdraw instruction that spends the leaf
// at index, which must have been deposited as amount under secret.
func (l *Ledger) WithdrawInstruction(pool string, index, amount uint64, secret tumbler.Secret) ([]byte, error) {
	proof, err := l.Proof(pool, index)
	if err != nil {
		return nil, err
	}
	hasher := l.processor.Hasher()
	commitment := tumbler.Commit(hasher, amount, secret)
	nullifier := tumbler.DeriveNullifier(hasher, secret, index, commitment)
	return tumbler.NewWithdrawInstruction(nullifier, proof, amount, secret), nil
}

// Withdraw spends the leaf at index and pays its amount to recipient.
func (l *Ledger) Withdraw(ctx context.Context, pool, recipient string, index, amount uint64, secret tumbler.Secret) (*tumbler.Receipt, error) {
	data, err := l.WithdrawInstruction(pool, index, amount, secret)
	if err != nil {
		return nil, err
	}
	return l.Execute(ctx, pool, "", recipient, data)
}

// Proof returns the membership proof of leaf index against the current root.
func (l *Ledger) Proof(pool string, index uint64) (*tumbler.Proof, error) {
	state, err := l.PoolState(pool)
	if err != nil {
		return nil, err
	}
	return l.prover.Proof(pool, state.Tree, index)
}

// Audit checks the leaf log of pool against its state.
func (l *Ledger) Audit(ctx context.Context, pool string) (*leaflog.AuditReport, error) {
	state, err := l.PoolState(pool)
	if err != nil {
		return nil, err
	}
	return l.prover.Audit(ctx, pool, state.Tree)
}
