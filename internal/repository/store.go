package repository

import (
	"context"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

// LedgerTx is the write surface available inside one atomic unit. Everything
// done through it commits or rolls back together.
type LedgerTx interface {
	// InsertAccount stores a new account and fills in its generated ID.
	// A taken owner name yields models.ErrDuplicateOwner.
	InsertAccount(ctx context.Context, account *models.Account) error
	// GetAccount reads an account; with lock set the row stays locked until
	// the unit finishes.
	GetAccount(ctx context.Context, id int64, lock bool) (*models.Account, error)
	// UpdateBalance stores a new balance and returns the account's version
	// after the update. Versions only grow.
	UpdateBalance(ctx context.Context, id int64, balance money.Amount) (int64, error)
	// InsertTransaction appends a ledger row and fills in its generated ID.
	InsertTransaction(ctx context.Context, transaction *models.Transaction) error
}

// LedgerWriter runs fn as one atomic unit.
type LedgerWriter interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerReader serves every read path.
type LedgerReader interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByOwner(ctx context.Context, ownerName string) (*models.Account, error)
	GetBalance(ctx context.Context, id int64) (*models.BalanceView, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListTransactions(ctx context.Context, accountID int64, limit, offset int) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, accountID int64) (int64, error)
	LedgerTotals(ctx context.Context, accountID int64) (models.LedgerTotals, error)
	// CacheBalanceView refreshes the read model after a committed mutation.
	// A view older than the cached one is dropped.
	CacheBalanceView(ctx context.Context, view *models.BalanceView)
}
