package events

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// Event types
const (
	AccountCreated     = "account.created"
	TransactionCreated = "transaction.created"
	BalanceUpdated     = "balance.updated"
)

// Stream names
const (
	AccountEventsStream     = "ledger.account.events"
	TransactionEventsStream = "ledger.transaction.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID      int64        `json:"accountId"`
	OwnerName      string       `json:"ownerName"`
	InitialBalance money.Amount `json:"initialBalance"`
}

// Transaction events
type TransactionCreatedEvent struct {
	TransactionID int64        `json:"transactionId"`
	AccountID     int64        `json:"accountId"`
	Type          string       `json:"type"`
	Amount        money.Amount `json:"amount"`
}

// BalanceUpdatedEvent carries the signed change applied to the balance.
type BalanceUpdatedEvent struct {
	AccountID  int64        `json:"accountId"`
	NewBalance money.Amount `json:"newBalance"`
	Change     money.Amount `json:"change"`
}
