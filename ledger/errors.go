package ledger

import "github.com/pkg/errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrPoolNotFound    = errors.New("pool not found")
	ErrPoolExists      = errors.New("pool already exists")
	ErrBalanceOverflow = errors.New("balance overflow")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidParty    = errors.New("invalid transfer party")
)
