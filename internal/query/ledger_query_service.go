package query

import (
	"context"

	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
)

type LedgerQueryService struct {
	readRepo repository.LedgerReader
}

func NewLedgerQueryService(readRepo repository.LedgerReader) *LedgerQueryService {
	return &LedgerQueryService{readRepo: readRepo}
}

func (s *LedgerQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	return s.readRepo.GetAccount(ctx, q.AccountID)
}

func (s *LedgerQueryService) GetAccountByOwner(ctx context.Context, q cqrs.GetAccountByOwnerQuery) (*models.Account, error) {
	return s.readRepo.GetAccountByOwner(ctx, q.OwnerName)
}

func (s *LedgerQueryService) GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error) {
	return s.readRepo.GetBalance(ctx, q.AccountID)
}

// ListAllAccounts returns every account ordered by id.
func (s *LedgerQueryService) ListAllAccounts(ctx context.Context, _ cqrs.ListAccountsQuery) ([]models.Account, error) {
	return s.readRepo.ListAccounts(ctx)
}

// ListTransactions returns one page, most recent first. It does not check
// that the account exists; an unknown id yields an empty page.
func (s *LedgerQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	limit, offset := pageBounds(q.Limit, q.Offset)
	return s.readRepo.ListTransactions(ctx, q.AccountID, limit, offset)
}

func (s *LedgerQueryService) CountTransactions(ctx context.Context, q cqrs.CountTransactionsQuery) (int64, error) {
	return s.readRepo.CountTransactions(ctx, q.AccountID)
}

// TransactionHistory checks the account exists, then returns one page of its
// history together with the unpaginated total.
func (s *LedgerQueryService) TransactionHistory(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
	if _, err := s.readRepo.GetAccount(ctx, q.AccountID); err != nil {
		return nil, err
	}
	transactions, err := s.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.readRepo.CountTransactions(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	return &models.TransactionPage{
		AccountID:    q.AccountID,
		Transactions: transactions,
		TotalCount:   total,
	}, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = cqrs.DefaultTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
