package storage

import (
	"context"
	"time"

	"github.com/openvest/payout-pipeline/pkg/models"
)

// TransactionReader defines the interface for reading withdrawal rows.
type TransactionReader interface {
	// GetTransaction retrieves a withdrawal by its ID.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// ListTransactionsByAccount retrieves all withdrawals for an account.
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)

	// ListPendingWithdrawals retrieves the account's PENDING withdrawals.
	ListPendingWithdrawals(ctx context.Context, accountID string) ([]models.Transaction, error)

	// StuckWithdrawals retrieves PROCESSING withdrawals carrying a settlement
	// handle whose last update is older than maxAge.
	StuckWithdrawals(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error)

	// PendingWithdrawalsTotal sums the account's PENDING and PROCESSING
	// withdrawal amounts.
	PendingWithdrawalsTotal(ctx context.Context, accountID string) (int64, error)

	// TotalWithdrawnToday sums today's platform-wide withdrawal amounts
	// across all non-failed rows.
	TotalWithdrawnToday(ctx context.Context) (int64, error)
}

// TransactionManager defines the mutations of the withdrawal state machine.
// Every transition is a conditional write; a transition that finds no row in
// the required status reports ErrAlreadyProcessed.
type TransactionManager interface {
	// CreateWithdrawal atomically debits the account for the gross amount and
	// inserts the withdrawal row with the caller-decided initial status.
	// Returns ErrInsufficientFunds or ErrLockConflict without side effect.
	CreateWithdrawal(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// RefundWithdrawal re-credits the gross amount and marks the row FAILED.
	// The refund is applied at most once: rows already refunded or outside the
	// allowed statuses report ErrAlreadyProcessed.
	RefundWithdrawal(ctx context.Context, txID string, allowed []models.TransactionStatus, description string) error

	// MarkProcessing transitions PENDING or PROCESSING to PROCESSING and
	// records the settlement handle. Idempotent for the same handle; a row
	// that already carries a different handle reports ErrAlreadyProcessed.
	MarkProcessing(ctx context.Context, txID, externalRef string, feeRateOffered int64) error

	// ConfirmWithdrawal transitions PROCESSING to CONFIRMED.
	ConfirmWithdrawal(ctx context.Context, txID string) error

	// FreezeAccountWithdrawals moves the account's PENDING and PROCESSING
	// withdrawals to FROZEN without refunding, returning how many rows moved.
	FreezeAccountWithdrawals(ctx context.Context, accountID string) (int, error)
}

// TransactionStore combines the reader and manager interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionManager
}
