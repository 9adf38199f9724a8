package command

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/eaglebank/ledger/internal/observability"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// LedgerCommandService owns every balance mutation. Each one writes the
// account row and its ledger row in a single unit of work, then refreshes the
// Redis balance view and publishes events.
type LedgerCommandService struct {
	writer    repository.LedgerWriter
	reader    repository.LedgerReader
	publisher EventPublisher
	logger    *zap.Logger
	locking   LockStrategy
	locks     *accountLocks
	now       func() time.Time
}

// NewLedgerCommandService wires the core. publisher may be nil when no event
// stream is configured.
func NewLedgerCommandService(
	writer repository.LedgerWriter,
	reader repository.LedgerReader,
	publisher EventPublisher,
	logger *zap.Logger,
	locking LockStrategy,
) *LedgerCommandService {
	if locking == "" {
		locking = LockNone
	}
	return &LedgerCommandService{
		writer:    writer,
		reader:    reader,
		publisher: publisher,
		logger:    logger,
		locking:   locking,
		locks:     newAccountLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	if cmd.InitialBalance < 0 {
		s.record("create_account", models.ErrInvalidAmount)
		return nil, models.ErrInvalidAmount
	}

	if _, err := s.reader.GetAccountByOwner(ctx, cmd.OwnerName); err == nil {
		s.record("create_account", models.ErrDuplicateOwner)
		return nil, models.ErrDuplicateOwner
	} else if !errors.Is(err, models.ErrAccountNotFound) {
		s.record("create_account", err)
		return nil, err
	}

	now := s.now()
	account := &models.Account{
		OwnerName: cmd.OwnerName,
		Balance:   cmd.InitialBalance,
		CreatedAt: now,
	}
	var opening *models.Transaction
	err := s.writer.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		if cmd.InitialBalance == 0 {
			return nil
		}
		opening = &models.Transaction{
			AccountID: account.ID,
			Type:      models.TransactionDeposit,
			Amount:    cmd.InitialBalance,
			Timestamp: now,
		}
		return tx.InsertTransaction(ctx, opening)
	})
	s.record("create_account", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.Int64("account_id", account.ID),
		zap.String("owner_name", utils.SanitizeInput(account.OwnerName)),
	)
	s.reader.CacheBalanceView(ctx, models.BalanceViewOf(account))
	s.publish(ctx, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:      account.ID,
		OwnerName:      account.OwnerName,
		InitialBalance: account.Balance,
	})
	if opening != nil {
		s.publishTransaction(ctx, opening, account.Balance)
	}
	return account, nil
}

// Deposit returns models.ErrBalanceLimit when the new balance would not fit
// in an Amount.
func (s *LedgerCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (*models.Account, error) {
	return s.apply(ctx, "deposit", cmd.AccountID, models.TransactionDeposit, cmd.Amount)
}

// Withdraw returns models.ErrInsufficientFunds without writing anything when
// the amount exceeds the balance.
func (s *LedgerCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (*models.Account, error) {
	return s.apply(ctx, "withdraw", cmd.AccountID, models.TransactionWithdrawal, cmd.Amount)
}

func (s *LedgerCommandService) apply(ctx context.Context, op string, accountID int64, txType models.TransactionType, amount money.Amount) (*models.Account, error) {
	if amount <= 0 {
		s.record(op, models.ErrInvalidAmount)
		return nil, models.ErrInvalidAmount
	}

	if s.locking == LockMutex {
		unlock := s.locks.lock(accountID)
		defer unlock()
	}

	var account *models.Account
	transaction := &models.Transaction{
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
	}
	err := s.writer.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		current, err := tx.GetAccount(ctx, accountID, s.locking == LockRow)
		if err != nil {
			return err
		}
		var balance money.Amount
		if txType == models.TransactionWithdrawal {
			if current.Balance < amount {
				return models.ErrInsufficientFunds
			}
			balance = current.Balance - amount
		} else {
			if amount > math.MaxInt64-current.Balance {
				return models.ErrBalanceLimit
			}
			balance = current.Balance + amount
		}
		version, err := tx.UpdateBalance(ctx, accountID, balance)
		if err != nil {
			return err
		}
		transaction.Timestamp = s.now()
		if err := tx.InsertTransaction(ctx, transaction); err != nil {
			return err
		}
		current.Balance = balance
		current.Version = version
		account = current
		return nil
	})
	s.record(op, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance updated",
		zap.String("operation", op),
		zap.Int64("account_id", accountID),
		zap.Int64("transaction_id", transaction.ID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", account.Balance.String()),
	)
	s.reader.CacheBalanceView(ctx, models.BalanceViewOf(account))
	s.publishTransaction(ctx, transaction, account.Balance)
	return account, nil
}

func (s *LedgerCommandService) publishTransaction(ctx context.Context, t *models.Transaction, newBalance money.Amount) {
	s.publish(ctx, events.TransactionEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Type:          string(t.Type),
		Amount:        t.Amount,
	})
	change := t.Amount
	if t.Type == models.TransactionWithdrawal {
		change = -change
	}
	s.publish(ctx, events.AccountEventsStream, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountID:  t.AccountID,
		NewBalance: newBalance,
		Change:     change,
	})
}

func (s *LedgerCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		observability.EventsPublishFailed.WithLabelValues(eventType).Inc()
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *LedgerCommandService) record(op string, err error) {
	result := observability.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrDuplicateOwner),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrBalanceLimit):
		result = observability.ResultRejected
	default:
		result = observability.ResultError
	}
	observability.LedgerOperations.WithLabelValues(op, result).Inc()
}
