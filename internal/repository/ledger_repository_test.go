package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*LedgerWriteRepository, *LedgerReadRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerWriteRepository(db), NewLedgerReadRepository(db, nil, 0, zap.NewNop()), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_name", "balance_minor", "created_at", "version"})
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	write, _, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs("Alice", int64(10000), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs(int64(7), "deposit", int64(10000), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	account := &models.Account{OwnerName: "Alice", Balance: money.MustParse("100"), CreatedAt: now}
	transaction := &models.Transaction{Type: models.TransactionDeposit, Amount: money.MustParse("100"), Timestamp: now}
	err := write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		transaction.AccountID = account.ID
		return tx.InsertTransaction(ctx, transaction)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.ID)
	assert.Equal(t, int64(1), transaction.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	write, _, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintOwnerUnique})
	mock.ExpectRollback()

	err := write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		return tx.InsertAccount(ctx, &models.Account{OwnerName: "Alice"})
	})
	assert.ErrorIs(t, err, models.ErrDuplicateOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	write, _, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockedReadAndBalanceUpdate(t *testing.T) {
	write, _, mock := newMockDB(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(accountRows().AddRow(3, "Alice", 5000, created, 4))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts")).
		WithArgs(int64(3), int64(2000)).
		WillReturnError(&pq.Error{Code: "23514", Constraint: constraintBalanceNonNeg})
	mock.ExpectRollback()

	err := write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		account, err := tx.GetAccount(ctx, 3, true)
		if err != nil {
			return err
		}
		assert.Equal(t, money.MustParse("50"), account.Balance)
		assert.Equal(t, int64(4), account.Version)
		_, err = tx.UpdateBalance(ctx, 3, money.MustParse("20"))
		return err
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalanceReturnsVersion(t *testing.T) {
	write, _, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SET balance_minor = $2, version = version + 1")).
		WithArgs(int64(3), int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
	mock.ExpectCommit()

	var version int64
	err := write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		var err error
		version, err = tx.UpdateBalance(ctx, 3, money.MustParse("20"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalanceMissingAccount(t *testing.T) {
	write, _, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	err := write.WithTx(context.Background(), func(ctx context.Context, tx LedgerTx) error {
		_, err := tx.UpdateBalance(ctx, 42, 100)
		return err
	})
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "owner unique", err: &pq.Error{Constraint: constraintOwnerUnique}, wantErr: models.ErrDuplicateOwner},
		{name: "balance check", err: &pq.Error{Constraint: constraintBalanceNonNeg}, wantErr: models.ErrInsufficientFunds},
		{name: "amount check", err: &pq.Error{Constraint: constraintAmountPositive}, wantErr: models.ErrInvalidAmount},
		{name: "foreign key", err: &pq.Error{Constraint: constraintTransactionFKey}, wantErr: models.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapWriteError("write", tt.err), tt.wantErr)
		})
	}

	other := errors.New("connection reset")
	wrapped := mapWriteError("update balance", other)
	assert.ErrorIs(t, wrapped, other)
	assert.Equal(t, "failed to update balance: connection reset", wrapped.Error())
}

func TestGetAccountNotFound(t *testing.T) {
	_, read, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
		WithArgs(int64(99)).
		WillReturnRows(accountRows())

	_, err := read.GetAccount(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactions(t *testing.T) {
	_, read, mock := newMockDB(t)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY timestamp DESC, id DESC")).
		WithArgs(int64(1), 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "type", "amount_minor", "timestamp"}).
			AddRow(2, 1, "withdrawal", 3000, ts.Add(time.Minute)).
			AddRow(1, 1, "deposit", 10000, ts))

	got, err := read.ListTransactions(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.TransactionWithdrawal, got[0].Type)
	assert.Equal(t, money.MustParse("30"), got[0].Amount)
	assert.Equal(t, models.TransactionDeposit, got[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndTotals(t *testing.T) {
	_, read, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE type = 'deposit')")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"deposits", "withdrawals", "count"}).AddRow(15000, 3000, 3))

	count, err := read.CountTransactions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	totals, err := read.LedgerTotals(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("120"), totals.Net())
	assert.Equal(t, int64(3), totals.Transactions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalanceUsesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	read := NewLedgerReadRepository(db, client, time.Minute, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
		WithArgs(int64(5)).
		WillReturnRows(accountRows().AddRow(5, "Alice", 12500, time.Now().UTC(), 0))

	ctx := context.Background()
	first, err := read.GetBalance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("125"), first.Balance)
	assert.True(t, mr.Exists("balance:view:5"))

	// Served from Redis; a second database query would fail the mock.
	second, err := read.GetBalance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	read.CacheBalanceView(ctx, &models.BalanceView{AccountID: 5, OwnerName: "Alice", Balance: money.MustParse("1"), Version: 1})
	third, err := read.GetBalance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("1"), third.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newCachedReadRepository(t *testing.T) (*LedgerReadRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLedgerReadRepository(db, client, time.Hour, zap.NewNop()), mock
}

func TestSlowColdReadDoesNotOverwriteCommittedBalance(t *testing.T) {
	read, mock := newCachedReadRepository(t)
	ctx := context.Background()

	// The cold read sees the row as it was before the deposit committed.
	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts")).
		WithArgs(int64(9)).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(accountRows().AddRow(9, "Alice", 10000, time.Now().UTC(), 3))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := read.GetBalance(ctx, 9)
		assert.NoError(t, err)
	}()

	// Let the cold read miss the cache and block in the query first.
	time.Sleep(50 * time.Millisecond)
	read.CacheBalanceView(ctx, &models.BalanceView{AccountID: 9, OwnerName: "Alice", Balance: money.MustParse("150"), Version: 4})
	wg.Wait()

	got, err := read.GetBalance(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("150"), got.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutOfOrderRefreshesKeepNewestBalance(t *testing.T) {
	read, mock := newCachedReadRepository(t)
	ctx := context.Background()

	read.CacheBalanceView(ctx, &models.BalanceView{AccountID: 2, OwnerName: "Bob", Balance: money.MustParse("80"), Version: 2})
	read.CacheBalanceView(ctx, &models.BalanceView{AccountID: 2, OwnerName: "Bob", Balance: money.MustParse("50"), Version: 1})

	got, err := read.GetBalance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("80"), got.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
