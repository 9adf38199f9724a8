package cqrs

import "github.com/eaglebank/ledger/shared/money"

type CreateAccountCommand struct {
	OwnerName      string
	InitialBalance money.Amount
}

type DepositCommand struct {
	AccountID int64
	Amount    money.Amount
}

type WithdrawCommand struct {
	AccountID int64
	Amount    money.Amount
}
