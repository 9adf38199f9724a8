package repository

import (
	"errors"
	"fmt"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/lib/pq"
)

// Constraint names declared in migrations/000001_create_ledger.up.sql.
const (
	constraintOwnerUnique     = "accounts_owner_name_key"
	constraintBalanceNonNeg   = "accounts_balance_minor_check"
	constraintAmountPositive  = "transactions_amount_minor_check"
	constraintTransactionFKey = "transactions_account_id_fkey"
)

// mapWriteError turns the constraint violations the ledger anticipates into
// sentinels and wraps everything else.
func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case constraintOwnerUnique:
			return models.ErrDuplicateOwner
		case constraintBalanceNonNeg:
			return models.ErrInsufficientFunds
		case constraintAmountPositive:
			return models.ErrInvalidAmount
		case constraintTransactionFKey:
			return models.ErrAccountNotFound
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
