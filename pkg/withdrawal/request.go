package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openvest/payout-pipeline/pkg/backoff"
	"github.com/openvest/payout-pipeline/pkg/balance"
	"github.com/openvest/payout-pipeline/pkg/clock"
	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/scheduler"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// RequestHandler admits withdrawal requests and opens their transactional
// unit: validate, compute fee, debit the gross amount and insert the row in
// one conditional write.
type RequestHandler struct {
	Store     storage.Storage
	Validator *Validator
	Scheduler scheduler.Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// RequestWithdrawal runs the admission chain and, on acceptance, creates the
// withdrawal. Exactly one Transaction row and one balance mutation per
// successful call; none on rejection. A lock conflict is retried a bounded
// number of times and then surfaced as a retryable system-busy rejection.
func (h *RequestHandler) RequestWithdrawal(ctx context.Context, snap *config.Snapshot, accountID string, amount int64) (*models.Transaction, *Rejection, error) {
	account, err := h.Store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load account: %w", err)
	}

	rejection, err := h.Validator.Validate(ctx, snap, account, amount)
	if err != nil {
		return nil, nil, err
	}
	if rejection != nil {
		h.Metrics.ObserveWithdrawalRequest("rejected")
		h.Metrics.ObserveWithdrawalRejected(string(rejection.Code))
		h.Logger.Info("withdrawal rejected",
			"account_id", accountID, "amount", amount, "code", rejection.Code)
		return nil, rejection, nil
	}

	fee, err := balance.ComputeFee(amount, snap.FeePercent)
	if err != nil {
		// Fatal for the request: never proceed with an assumed zero fee.
		return nil, nil, fmt.Errorf("fee computation failed: %w", err)
	}
	if fee >= amount {
		h.Metrics.ObserveWithdrawalRequest("rejected")
		h.Metrics.ObserveWithdrawalRejected(string(RejectFeeExceedsAmount))
		return nil, reject(RejectFeeExceedsAmount, "amount does not cover the service fee"), nil
	}

	auto, err := h.Validator.AutoEligible(ctx, snap, account, amount)
	if err != nil {
		return nil, nil, err
	}
	status := models.PENDING
	if auto {
		status = models.PROCESSING
	}

	tx := &models.Transaction{
		AccountID:          accountID,
		Amount:             amount,
		Fee:                fee,
		Status:             status,
		DestinationAddress: account.DestinationAddress,
	}

	policy := backoff.Policy{
		MaxAttempts: snap.LockMaxAttempts,
		Base:        snap.LockBaseDelay,
		Jitter:      snap.LockBaseDelay,
	}
	var created *models.Transaction
	err = backoff.Retry(ctx, policy, func() error {
		var createErr error
		created, createErr = h.Store.CreateWithdrawal(ctx, tx)
		return createErr
	}, func(err error) bool {
		if errors.Is(err, storage.ErrLockConflict) {
			h.Metrics.ObserveLockConflictRetry()
			return true
		}
		return false
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrLockConflict):
			h.Metrics.ObserveWithdrawalRequest("busy")
			h.Logger.Warn("withdrawal request exhausted lock retries",
				"account_id", accountID, "amount", amount)
			return nil, &Rejection{
				Code:      RejectSystemBusy,
				Message:   "the system is busy, please try again shortly",
				Retryable: true,
			}, nil
		case errors.Is(err, storage.ErrInsufficientFunds):
			// The balance moved between validation and the write.
			h.Metrics.ObserveWithdrawalRequest("rejected")
			h.Metrics.ObserveWithdrawalRejected(string(RejectInsufficientBalance))
			return nil, reject(RejectInsufficientBalance, "balance does not cover the requested amount"), nil
		}
		return nil, nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	h.Metrics.ObserveWithdrawalRequest("accepted")
	h.Logger.Info("withdrawal created",
		"transaction_id", created.Id,
		"account_id", accountID,
		"amount", amount,
		"fee", fee,
		"status", created.Status)

	if auto {
		if err := h.Scheduler.ScheduleSettlement(ctx, created.Id, time.Duration(0)); err != nil {
			// The debit already happened and the row is PROCESSING; surface
			// loudly so operators can settle it manually.
			h.Logger.Error("failed to schedule settlement",
				"transaction_id", created.Id, "error", err)
		}
	}

	return created, nil, nil
}
