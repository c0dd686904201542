package storage

import (
	"context"

	"github.com/openvest/payout-pipeline/pkg/models"
)

// AccountStore defines the row-locking read/update surface over accounts.
// Credit and debit are conditional single-row mutations keyed on the account
// version; a lost condition surfaces as ErrLockConflict, never a partial write.
type AccountStore interface {
	// GetAccount retrieves an account by its ID.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// CreditAccount adds amount to the account balance and appends an audit
	// ledger entry in the same atomic unit.
	CreditAccount(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error)

	// DebitAccount subtracts amount from the account balance, failing with
	// ErrInsufficientFunds if the balance would go negative, and appends an
	// audit ledger entry in the same atomic unit.
	DebitAccount(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error)
}
