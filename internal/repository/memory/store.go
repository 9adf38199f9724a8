// Package memory is an in-process ledger store used by tests and by
// LEDGER_STORE=memory. It honours the same constraints as the PostgreSQL
// schema: unique owner names, non-negative balances and positive amounts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

// Store keeps accounts and transactions in maps guarded by mu. Units of work
// are serialised by writeMu and only touch committed state on success.
type Store struct {
	writeMu sync.Mutex

	mu           sync.RWMutex
	nextAccount  int64
	nextTx       int64
	accounts     map[int64]*models.Account
	owners       map[string]int64
	transactions []models.Transaction
}

var (
	_ repository.LedgerWriter = (*Store)(nil)
	_ repository.LedgerReader = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*models.Account),
		owners:   make(map[string]int64),
	}
}

// WithTx stages every write made through tx and applies them together when
// fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx := &memTx{store: s, updates: make(map[int64]balanceUpdate)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tx.accounts {
		a := tx.accounts[i]
		s.accounts[a.ID] = &a
		s.owners[a.OwnerName] = a.ID
	}
	for id, u := range tx.updates {
		s.accounts[id].Balance = u.balance
		s.accounts[id].Version = u.version
	}
	s.transactions = append(s.transactions, tx.transactions...)
	return nil
}

type balanceUpdate struct {
	balance money.Amount
	version int64
}

type memTx struct {
	store        *Store
	accounts     []models.Account
	updates      map[int64]balanceUpdate
	transactions []models.Transaction
}

func (t *memTx) overlay(a *models.Account) {
	if u, ok := t.updates[a.ID]; ok {
		a.Balance = u.balance
		a.Version = u.version
	}
}

func (t *memTx) lookup(id int64) (models.Account, bool) {
	for _, a := range t.accounts {
		if a.ID == id {
			t.overlay(&a)
			return a, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.accounts[id]
	if !ok {
		return models.Account{}, false
	}
	cp := *a
	t.overlay(&cp)
	return cp, true
}

func (t *memTx) InsertAccount(_ context.Context, account *models.Account) error {
	if account.Balance < 0 {
		return models.ErrInsufficientFunds
	}
	for _, a := range t.accounts {
		if a.OwnerName == account.OwnerName {
			return models.ErrDuplicateOwner
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, taken := t.store.owners[account.OwnerName]; taken {
		return models.ErrDuplicateOwner
	}
	t.store.nextAccount++
	account.ID = t.store.nextAccount
	t.accounts = append(t.accounts, *account)
	return nil
}

// GetAccount ignores lock: units of work never overlap in this store.
func (t *memTx) GetAccount(_ context.Context, id int64, _ bool) (*models.Account, error) {
	a, ok := t.lookup(id)
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) UpdateBalance(_ context.Context, id int64, balance money.Amount) (int64, error) {
	a, ok := t.lookup(id)
	if !ok {
		return 0, models.ErrAccountNotFound
	}
	if balance < 0 {
		return 0, models.ErrInsufficientFunds
	}
	t.updates[id] = balanceUpdate{balance: balance, version: a.Version + 1}
	return a.Version + 1, nil
}

func (t *memTx) InsertTransaction(_ context.Context, transaction *models.Transaction) error {
	if transaction.Amount <= 0 {
		return models.ErrInvalidAmount
	}
	if _, ok := t.lookup(transaction.AccountID); !ok {
		return models.ErrAccountNotFound
	}

	t.store.mu.Lock()
	t.store.nextTx++
	transaction.ID = t.store.nextTx
	t.store.mu.Unlock()

	t.transactions = append(t.transactions, *transaction)
	return nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByOwner(ctx context.Context, ownerName string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.owners[ownerName]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) GetBalance(ctx context.Context, id int64) (*models.BalanceView, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.BalanceViewOf(a), nil
}

func (s *Store) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID int64, limit, offset int) ([]models.Transaction, error) {
	s.mu.RLock()
	matched := make([]models.Transaction, 0)
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []models.Transaction{}, nil
	}
	matched = matched[offset:]
	if limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) CountTransactions(_ context.Context, accountID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *Store) LedgerTotals(_ context.Context, accountID int64) (models.LedgerTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var totals models.LedgerTotals
	for _, t := range s.transactions {
		if t.AccountID != accountID {
			continue
		}
		totals.Transactions++
		switch t.Type {
		case models.TransactionDeposit:
			totals.Deposits += t.Amount
		case models.TransactionWithdrawal:
			totals.Withdrawals += t.Amount
		}
	}
	return totals, nil
}

// CacheBalanceView is a no-op: reads always see committed state.
func (s *Store) CacheBalanceView(context.Context, *models.BalanceView) {}

// SetBalance overwrites a stored balance without a ledger row. It exists to
// simulate drift in reconciliation tests.
func (s *Store) SetBalance(id int64, balance money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.ErrAccountNotFound
	}
	a.Balance = balance
	return nil
}
