package models

import "github.com/eaglebank/ledger/shared/money"

// BalanceView is the read-optimised projection served by balance lookups.
// It is what the Redis read model stores per account.
type BalanceView struct {
	AccountID int64        `json:"account_id"`
	OwnerName string       `json:"owner_name"`
	Balance   money.Amount `json:"balance"`
	Version   int64        `json:"-"`
}

// TransactionPage is one page of an account's history together with the
// total number of rows, independent of limit and offset.
type TransactionPage struct {
	AccountID    int64         `json:"account_id"`
	Transactions []Transaction `json:"transactions"`
	TotalCount   int64         `json:"total_count"`
}

func BalanceViewOf(a *Account) *BalanceView {
	return &BalanceView{AccountID: a.ID, OwnerName: a.OwnerName, Balance: a.Balance, Version: a.Version}
}
