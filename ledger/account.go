package ledger

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/database"
	"github.com/bnb-chain/zkbnb-tumbler/utils"
)

var accountPrefix = []byte("account")

func accountKey(name string) []byte {
	return utils.JoinKey(accountPrefix, []byte(name))
}

// Account is a named balance. Pool accounts also carry their state in Data.
type Account struct {
	Balance uint64
	Data    []byte
}

func (a *Account) IsPool() bool {
	return len(a.Data) > 0
}

func readAccount(db database.KeyValueReader, name string) (*Account, error) {
	buf, err := db.Get(accountKey(name))
	if database.IsNotFound(err) {
		return nil, errors.Wrapf(ErrAccountNotFound, "%q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read account %q", name)
	}
	account := &Account{}
	if err := rlp.DecodeBytes(buf, account); err != nil {
		return nil, errors.Wrapf(err, "decode account %q", name)
	}
	return account, nil
}

func writeAccount(db database.KeyValueWriter, name string, account *Account) error {
	buf, err := rlp.EncodeToBytes(account)
	if err != nil {
		return errors.Wrapf(err, "encode account %q", name)
	}
	return db.Set(accountKey(name), buf)
}

// txn stages account changes for one instruction. Nothing reaches the
// database until commit, so a failed instruction leaves no trace.
type txn struct {
	db       database.KeyValueReader
	accounts map[string]*Account
	order    []string
}

var _ tumbler.Transferer = (*txn)(nil)

func newTxn(db database.KeyValueReader) *txn {
	return &txn{db: db, accounts: make(map[string]*Account)}
}

// get returns the staged copy of name. Unknown accounts start empty.
func (t *txn) get(name string) (*Account, error) {
	if account, ok := t.accounts[name]; ok {
		return account, nil
	}
	account, err := readAccount(t.db, name)
	if errors.Is(err, ErrAccountNotFound) {
		account, err = &Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	t.accounts[name] = account
	t.order = append(t.order, name)
	return account, nil
}

func (t *txn) Transfer(from, to string, amount uint64) error {
	if from == to {
		return errors.Wrapf(ErrInvalidParty, "transfer from %q to itself", from)
	}
	src, err := t.get(from)
	if err != nil {
		return err
	}
	dst, err := t.get(to)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return errors.Wrapf(tumbler.ErrInsufficientFunds, "%q holds %d", from, src.Balance)
	}
	src.Balance -= amount
	if dst.Balance+amount < dst.Balance {
		src.Balance += amount
		return errors.Wrapf(ErrBalanceOverflow, "credit %d to %q", amount, to)
	}
	dst.Balance += amount
	return nil
}

func (t *txn) commit(batch database.Batcher) error {
	for _, name := range t.order {
		if err := writeAccount(batch, name, t.accounts[name]); err != nil {
			return err
		}
	}
	return nil
}
