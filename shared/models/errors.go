package models

import "errors"

// Expected business outcomes. Callers compare with errors.Is; anything else
// returned by the core is an infrastructure failure.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateOwner    = errors.New("account with this owner name already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrBalanceLimit      = errors.New("balance would exceed the maximum allowed")
)
