package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const balanceViewKeyPrefix = "balance:view:"

// LedgerReadRepository handles all read operations. Balance lookups go to
// the Redis read model first when one is configured and fall back to
// PostgreSQL, warming the cache on every cold read. Cache entries carry the
// account version, so a slow cold read never replaces a newer commit.
type LedgerReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.BalanceView]
}

// NewLedgerReadRepository builds the read repository. A nil redisClient
// disables the balance cache.
func NewLedgerReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration, logger *zap.Logger) *LedgerReadRepository {
	r := &LedgerReadRepository{db: db}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.BalanceView](redisClient, ttl, logger)
	}
	return r
}

func balanceViewKey(id int64) string {
	return balanceViewKeyPrefix + strconv.FormatInt(id, 10)
}

const selectAccount = `
	SELECT id, owner_name, balance_minor, created_at, version
	FROM accounts
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var balance int64
	if err := row.Scan(&account.ID, &account.OwnerName, &balance, &account.CreatedAt, &account.Version); err != nil {
		return nil, err
	}
	account.Balance = money.Amount(balance)
	return &account, nil
}

func (r *LedgerReadRepository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByOwner matches the owner name exactly (case-sensitive).
func (r *LedgerReadRepository) GetAccountByOwner(ctx context.Context, ownerName string) (*models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE owner_name = $1`, ownerName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by owner: %w", err)
	}
	return account, nil
}

// GetBalance returns a BalanceView by attempting Redis first, then PostgreSQL.
func (r *LedgerReadRepository) GetBalance(ctx context.Context, id int64) (*models.BalanceView, error) {
	if r.cache != nil {
		if view, ok := r.cache.Get(ctx, balanceViewKey(id)); ok {
			return view, nil
		}
	}

	account, err := r.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.BalanceViewOf(account)
	r.CacheBalanceView(ctx, view)
	return view, nil
}

func (r *LedgerReadRepository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, selectAccount+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ListTransactions returns one page of history, most recent first.
func (r *LedgerReadRepository) ListTransactions(ctx context.Context, accountID int64, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount_minor, timestamp
		FROM transactions
		WHERE account_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var txType string
		var amount int64
		if err := rows.Scan(&t.ID, &t.AccountID, &txType, &amount, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Type = models.TransactionType(txType)
		t.Amount = money.Amount(amount)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (r *LedgerReadRepository) CountTransactions(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// LedgerTotals sums an account's ledger by transaction type.
func (r *LedgerReadRepository) LedgerTotals(ctx context.Context, accountID int64) (models.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_minor) FILTER (WHERE type = 'deposit'), 0),
			COALESCE(SUM(amount_minor) FILTER (WHERE type = 'withdrawal'), 0),
			COUNT(*)
		FROM transactions
		WHERE account_id = $1
	`
	var deposits, withdrawals, count int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&deposits, &withdrawals, &count); err != nil {
		return models.LedgerTotals{}, fmt.Errorf("failed to total ledger: %w", err)
	}
	return models.LedgerTotals{
		Deposits:     money.Amount(deposits),
		Withdrawals:  money.Amount(withdrawals),
		Transactions: count,
	}, nil
}

// CacheBalanceView stores or refreshes the Redis read model for an account.
// Called by the command service after every committed mutation.
func (r *LedgerReadRepository) CacheBalanceView(ctx context.Context, view *models.BalanceView) {
	if r.cache == nil {
		return
	}
	r.cache.SetIfNewer(ctx, balanceViewKey(view.AccountID), view.Version, view)
}
