// Package reconcile checks that every stored balance equals the sum of its
// ledger rows.
package reconcile

import (
	"context"
	"fmt"

	"github.com/eaglebank/ledger/internal/observability"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"go.uber.org/zap"
)

type Report struct {
	AccountID    int64        `json:"account_id"`
	OwnerName    string       `json:"owner_name"`
	Stored       money.Amount `json:"stored_balance"`
	Deposits     money.Amount `json:"deposits"`
	Withdrawals  money.Amount `json:"withdrawals"`
	Transactions int64        `json:"transactions"`
}

// Expected is the balance the ledger rows account for.
func (r Report) Expected() money.Amount {
	return r.Deposits - r.Withdrawals
}

func (r Report) Drift() money.Amount {
	return r.Stored - r.Expected()
}

func (r Report) Consistent() bool {
	return r.Drift() == 0
}

type Reconciler struct {
	reader repository.LedgerReader
	logger *zap.Logger
}

func NewReconciler(reader repository.LedgerReader, logger *zap.Logger) *Reconciler {
	return &Reconciler{reader: reader, logger: logger}
}

// Check reconciles one account.
func (r *Reconciler) Check(ctx context.Context, accountID int64) (Report, error) {
	account, err := r.reader.GetAccount(ctx, accountID)
	if err != nil {
		return Report{}, err
	}
	return r.check(ctx, account)
}

// CheckAll reconciles every account in id order.
func (r *Reconciler) CheckAll(ctx context.Context) ([]Report, error) {
	accounts, err := r.reader.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(accounts))
	for i := range accounts {
		report, err := r.check(ctx, &accounts[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Reconciler) check(ctx context.Context, account *models.Account) (Report, error) {
	totals, err := r.reader.LedgerTotals(ctx, account.ID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to reconcile account %d: %w", account.ID, err)
	}
	report := Report{
		AccountID:    account.ID,
		OwnerName:    account.OwnerName,
		Stored:       account.Balance,
		Deposits:     totals.Deposits,
		Withdrawals:  totals.Withdrawals,
		Transactions: totals.Transactions,
	}
	if !report.Consistent() {
		observability.ReconcileDrift.Inc()
		r.logger.Error("balance drift detected",
			zap.Int64("account_id", report.AccountID),
			zap.String("stored", report.Stored.String()),
			zap.String("expected", report.Expected().String()),
			zap.String("drift", report.Drift().String()),
		)
	}
	return report, nil
}

// HandleEvent is an events.Handler that reconciles the account named by a
// balance.updated event and ignores every other event type.
func (r *Reconciler) HandleEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.BalanceUpdated {
		return nil
	}
	var payload events.BalanceUpdatedEvent
	if err := events.Decode(event, &payload); err != nil {
		return err
	}
	_, err := r.Check(ctx, payload.AccountID)
	return err
}
