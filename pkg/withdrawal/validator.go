package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// FraudChecker decides whether a withdrawal looks fraudulent. Implementations
// may block the account as a side effect, which is why the validator re-reads
// the account afterwards.
type FraudChecker interface {
	IsFraudRisk(ctx context.Context, account *models.Account, amount int64) (bool, error)
}

// RecoveryChecker reports whether an account-recovery process is in flight.
type RecoveryChecker interface {
	RecoveryActive(ctx context.Context, accountID string) (bool, error)
}

// Validator runs the ordered withdrawal admission chain. Checks are ordered
// cheapest and most catastrophic first, then external collaborators, then the
// balance read. The chain stops at the first failure.
type Validator struct {
	Accounts     storage.AccountStore
	Transactions storage.TransactionStore
	Fraud        FraudChecker
	Recovery     RecoveryChecker
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Validate returns nil when the request is admissible, or the first rejection
// hit. The returned error is reserved for infrastructure failures.
func (v *Validator) Validate(ctx context.Context, snap *config.Snapshot, account *models.Account, amount int64) (*Rejection, error) {
	if snap.EmergencyStopWithdrawals {
		return reject(RejectEmergencyStop, "withdrawals are temporarily disabled"), nil
	}

	if amount < snap.MinWithdrawalAmount {
		return reject(RejectBelowMinimum,
			fmt.Sprintf("amount is below the minimum of %d", snap.MinWithdrawalAmount)), nil
	}

	if rej := accountStatusRejection(account); rej != nil {
		return rej, nil
	}

	active, err := v.Recovery.RecoveryActive(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("recovery check failed: %w", err)
	}
	if active {
		// A racing recovery must not be usable to drain funds: fail the
		// account's other pending withdrawals before refusing this one.
		if err := v.failPendingWithdrawals(ctx, account.ID); err != nil {
			return nil, err
		}
		return reject(RejectRecoveryActive, "an account recovery is in progress"), nil
	}

	risk, err := v.Fraud.IsFraudRisk(ctx, account, amount)
	if err != nil {
		return nil, fmt.Errorf("fraud check failed: %w", err)
	}
	if risk {
		return reject(RejectFraudRisk, "withdrawal flagged for review"), nil
	}
	// The fraud collaborator may have blocked the account mid-check.
	account, err = v.Accounts.GetAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read account: %w", err)
	}
	if rej := accountStatusRejection(account); rej != nil {
		return rej, nil
	}

	if account.Balance < amount {
		return reject(RejectInsufficientBalance, "balance does not cover the requested amount"), nil
	}

	// Per-account daily limit is a policy hook kept open for now; the
	// platform-wide cap is part of auto-eligibility, not admission.
	return nil, nil
}

func accountStatusRejection(account *models.Account) *Rejection {
	if account.IsBanned {
		return reject(RejectAccountBanned, "account is banned")
	}
	if account.WithdrawalBlocked {
		return reject(RejectAccountBlocked, "withdrawals are blocked for this account")
	}
	return nil
}

// failPendingWithdrawals refunds and fails every PENDING withdrawal of the
// account. Rows another actor moved concurrently are skipped.
func (v *Validator) failPendingWithdrawals(ctx context.Context, accountID string) error {
	pending, err := v.Transactions.ListPendingWithdrawals(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	for _, tx := range pending {
		err := v.Transactions.RefundWithdrawal(ctx, tx.Id,
			[]models.TransactionStatus{models.PENDING}, "refund: account recovery in progress")
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyProcessed) {
				continue
			}
			return fmt.Errorf("failed to refund pending withdrawal %s: %w", tx.Id, err)
		}
		v.Metrics.ObserveRefund("recovery")
		v.Logger.Warn("pending withdrawal failed during recovery",
			"account_id", accountID, "transaction_id", tx.Id, "amount", tx.Amount)
	}
	return nil
}

// AutoEligible decides PENDING versus PROCESSING for an admitted request. It
// is evaluated only after acceptance and is never a rejection reason.
func (v *Validator) AutoEligible(ctx context.Context, snap *config.Snapshot, account *models.Account, amount int64) (bool, error) {
	if !snap.AutoWithdrawalEnabled {
		return false, nil
	}

	lifetime := decimal.NewFromInt(account.LifetimeWithdrawn + amount)
	ceiling := decimal.NewFromInt(account.LifetimeDeposited).Mul(snap.AutoPayoutMultiplier)
	if lifetime.GreaterThan(ceiling) {
		return false, nil
	}

	if snap.DailyWithdrawalCap > 0 {
		total, err := v.Transactions.TotalWithdrawnToday(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to compute daily withdrawal total: %w", err)
		}
		if total+amount > snap.DailyWithdrawalCap {
			return false, nil
		}
	}

	return true, nil
}
