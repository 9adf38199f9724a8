package models

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	return t == TransactionDeposit || t == TransactionWithdrawal
}

type Account struct {
	ID        int64        `json:"id"`
	OwnerName string       `json:"owner_name"`
	Balance   money.Amount `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
	// Version counts balance updates; it orders read-model refreshes.
	Version   int64        `json:"-"`
}

type Transaction struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	Type      TransactionType `json:"type"`
	Amount    money.Amount    `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// LedgerTotals aggregates an account's transaction rows.
type LedgerTotals struct {
	Deposits     money.Amount
	Withdrawals  money.Amount
	Transactions int64
}

// Net is the balance the ledger rows account for.
func (t LedgerTotals) Net() money.Amount {
	return t.Deposits - t.Withdrawals
}
