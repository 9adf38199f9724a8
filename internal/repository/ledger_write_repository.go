package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

// LedgerWriteRepository handles all state-mutating operations.
// It operates exclusively against the PostgreSQL write store (source of truth).
type LedgerWriteRepository struct {
	db *sql.DB
}

func NewLedgerWriteRepository(db *sql.DB) *LedgerWriteRepository {
	return &LedgerWriteRepository{db: db}
}

// WithTx runs fn inside one database transaction. It commits when fn returns
// nil and rolls back on an error or a panic.
func (r *LedgerWriteRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()
	return fn(ctx, &ledgerTx{tx: tx})
}

type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) InsertAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (owner_name, balance_minor, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		account.OwnerName, int64(account.Balance), account.CreatedAt,
	).Scan(&account.ID)
	if err != nil {
		return mapWriteError("create account", err)
	}
	return nil
}

func (t *ledgerTx) GetAccount(ctx context.Context, id int64, lock bool) (*models.Account, error) {
	query := `
		SELECT id, owner_name, balance_minor, created_at, version
		FROM accounts
		WHERE id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}
	var account models.Account
	var balance int64
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.OwnerName, &balance, &account.CreatedAt, &account.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.Balance = money.Amount(balance)
	return &account, nil
}

// UpdateBalance stores a new balance and returns the account's new version.
func (t *ledgerTx) UpdateBalance(ctx context.Context, id int64, balance money.Amount) (int64, error) {
	query := `
		UPDATE accounts
		SET balance_minor = $2, version = version + 1
		WHERE id = $1
		RETURNING version
	`
	var version int64
	err := t.tx.QueryRowContext(ctx, query, id, int64(balance)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrAccountNotFound
	}
	if err != nil {
		return 0, mapWriteError("update balance", err)
	}
	return version, nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, transaction *models.Transaction) error {
	if transaction.Amount <= 0 {
		return models.ErrInvalidAmount
	}
	query := `
		INSERT INTO transactions (account_id, type, amount_minor, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		transaction.AccountID, string(transaction.Type),
		int64(transaction.Amount), transaction.Timestamp,
	).Scan(&transaction.ID)
	if err != nil {
		return mapWriteError("create transaction", err)
	}
	return nil
}
