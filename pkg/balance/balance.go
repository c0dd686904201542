// Package balance wraps account balance mutations and fee math. All amounts
// are int64 minor units; fee-rate arithmetic uses decimals and floors the
// result back to minor units.
package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// ErrFeeUnavailable is returned when the fee rate is absent or malformed.
// Fee computation must fail loudly; a silent zero fee would pay out gross.
var ErrFeeUnavailable = errors.New("withdrawal fee rate unavailable")

var hundred = decimal.NewFromInt(100)

// Manager performs balance reads and mutations against the account store.
type Manager struct {
	Accounts     storage.AccountStore
	Transactions storage.TransactionReader
	Logger       *slog.Logger
}

// NewManager creates a balance manager.
func NewManager(accounts storage.AccountStore, transactions storage.TransactionReader, logger *slog.Logger) *Manager {
	return &Manager{Accounts: accounts, Transactions: transactions, Logger: logger}
}

// ComputeFee returns the service fee for a gross withdrawal amount, floored
// to minor units. A zero or negative rate is rejected rather than treated as
// free.
func ComputeFee(amount int64, feePercent decimal.Decimal) (int64, error) {
	if feePercent.LessThanOrEqual(decimal.Zero) || feePercent.GreaterThanOrEqual(hundred) {
		return 0, ErrFeeUnavailable
	}
	fee := decimal.NewFromInt(amount).Mul(feePercent).Div(hundred).Floor()
	return fee.IntPart(), nil
}

// Debit subtracts amount from the account under the row lock and records the
// ledger entry. ErrLockConflict and ErrInsufficientFunds pass through for the
// caller to handle.
func (m *Manager) Debit(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error) {
	account, err := m.Accounts.DebitAccount(ctx, accountID, amount, txID, description)
	if err != nil {
		return nil, err
	}
	m.Logger.Info("account debited",
		"account_id", accountID, "amount", amount, "transaction_id", txID, "balance", account.Balance)
	return account, nil
}

// Credit adds amount to the account under the row lock and records the
// ledger entry.
func (m *Manager) Credit(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error) {
	account, err := m.Accounts.CreditAccount(ctx, accountID, amount, txID, description)
	if err != nil {
		return nil, err
	}
	m.Logger.Info("account credited",
		"account_id", accountID, "amount", amount, "transaction_id", txID, "balance", account.Balance)
	return account, nil
}

// AvailableBalance returns the account's spendable balance. In-flight
// withdrawals have already been debited, so the row balance is authoritative.
func (m *Manager) AvailableBalance(ctx context.Context, accountID string) (int64, error) {
	account, err := m.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to load account: %w", err)
	}
	return account.Balance, nil
}

// PendingWithdrawalsTotal sums the account's in-flight withdrawal amounts.
func (m *Manager) PendingWithdrawalsTotal(ctx context.Context, accountID string) (int64, error) {
	return m.Transactions.PendingWithdrawalsTotal(ctx, accountID)
}
