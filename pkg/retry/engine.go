// Package retry implements the settlement retry engine: failed sends are
// recorded once per settlement-unit set and re-attempted on an exponential
// schedule until they resolve or land in the dead letter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/openvest/payout-pipeline/pkg/backoff"
	"github.com/openvest/payout-pipeline/pkg/clock"
	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// dueBatchSize bounds how many records one wake-up processes.
const dueBatchSize = 25

// Engine drives settlement sends and their retries. Every send attempt,
// whether the first one, a scheduled retry, or a manual re-drive, goes
// through the same path and passes any previously produced settlement handle
// so the gateway can check before paying again.
type Engine struct {
	Store    storage.Storage
	Gateway  gateway.PaymentGateway
	Clock    clock.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	WorkerID string
}

// SettleWithdrawal attempts settlement of a single PROCESSING withdrawal.
// On success the row is confirmed; on failure a retry record is created and
// the schedule takes over. Rows in any other status are left alone.
func (e *Engine) SettleWithdrawal(ctx context.Context, snap *config.Snapshot, txID string) error {
	tx, err := e.Store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Status != models.PROCESSING {
		e.Logger.Info("skipping settlement, withdrawal not in processing",
			"transaction_id", txID, "status", tx.Status)
		return nil
	}

	prevHandle := ""
	if tx.ExternalRef != nil {
		prevHandle = *tx.ExternalRef
	}

	sendCtx, cancel := context.WithTimeout(ctx, snap.GatewayTimeout)
	defer cancel()
	result, err := e.Gateway.SendPayment(sendCtx, tx.DestinationAddress, tx.NetAmount(), prevHandle)
	if err != nil {
		e.Metrics.ObserveSettlementAttempt("error")
		return e.recordFailure(ctx, snap, tx, prevHandle, err.Error())
	}

	if result.Success {
		if err := e.confirmUnits(ctx, []string{tx.Id}, result.Handle, result.FeeRateOffered); err != nil {
			return err
		}
		e.Metrics.ObserveSettlementAttempt("success")
		e.Logger.Info("withdrawal settled",
			"transaction_id", tx.Id, "external_ref", result.Handle, "net_amount", tx.NetAmount())
		return nil
	}

	handle := prevHandle
	if result.Handle != "" {
		handle = result.Handle
	}
	e.Metrics.ObserveSettlementAttempt(string(result.Status))
	return e.recordFailure(ctx, snap, tx, handle, result.Error)
}

// recordFailure upserts the retry record for the withdrawal's unit set and
// schedules the first retry one base delay out.
func (e *Engine) recordFailure(ctx context.Context, snap *config.Snapshot, tx *models.Transaction, handle, reason string) error {
	rec := &models.RetryRecord{
		AccountID:          tx.AccountID,
		UnitIDs:            []string{tx.Id},
		UnitSetKey:         UnitSetKey([]string{tx.Id}),
		Amount:             tx.NetAmount(),
		DestinationAddress: tx.DestinationAddress,
		MaxRetries:         snap.MaxSettlementRetries,
		NextAttemptAt:      e.Clock.Now().Add(snap.BaseRetryDelay),
		LastError:          reason,
	}
	if handle != "" {
		rec.ExternalRef = &handle
	}

	saved, err := e.Store.UpsertRetryFailure(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to record settlement failure: %w", err)
	}
	e.Logger.Warn("settlement failed, retry scheduled",
		"transaction_id", tx.Id,
		"retry_id", saved.Id,
		"next_attempt_at", saved.NextAttemptAt,
		"reason", reason)
	return nil
}

// UnitSetKey derives the stable idempotency key for a settlement-unit set.
// The same set always yields the same key regardless of input order.
func UnitSetKey(unitIDs []string) string {
	ids := make([]string, len(unitIDs))
	copy(ids, unitIDs)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// ProcessDue runs one pass over due retry records. Each record is claimed
// with a lease before processing so concurrent workers never attempt the
// same unit set.
func (e *Engine) ProcessDue(ctx context.Context, snap *config.Snapshot) error {
	now := e.Clock.Now()
	due, err := e.Store.DueRetries(ctx, now, dueBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due retries: %w", err)
	}

	for _, rec := range due {
		if err := e.Store.ClaimRetry(ctx, rec.Id, e.WorkerID, now.Add(snap.RetryLeaseTTL)); err != nil {
			if errors.Is(err, storage.ErrRetryClaimed) {
				continue
			}
			return err
		}
		if err := e.processOne(ctx, snap, rec.Id); err != nil {
			e.Logger.Error("retry processing failed", "retry_id", rec.Id, "error", err)
		}
	}
	return nil
}

// processOne makes one send attempt for a claimed record.
func (e *Engine) processOne(ctx context.Context, snap *config.Snapshot, retryID string) error {
	rec, err := e.Store.IncrementRetryAttempt(ctx, retryID)
	if err != nil {
		return err
	}

	prevHandle := ""
	if rec.ExternalRef != nil {
		prevHandle = *rec.ExternalRef
	}

	sendCtx, cancel := context.WithTimeout(ctx, snap.GatewayTimeout)
	defer cancel()
	result, err := e.Gateway.SendPayment(sendCtx, rec.DestinationAddress, rec.Amount, prevHandle)
	if err != nil {
		e.Metrics.ObserveSettlementAttempt("error")
		return e.handleFailure(ctx, snap, rec, err.Error())
	}

	if result.Success {
		if err := e.Store.ResolveRetry(ctx, rec.Id, result.Handle); err != nil {
			return err
		}
		if err := e.confirmUnits(ctx, rec.UnitIDs, result.Handle, result.FeeRateOffered); err != nil {
			return err
		}
		e.Metrics.ObserveSettlementAttempt("success")
		e.Logger.Info("retry resolved",
			"retry_id", rec.Id, "attempt", rec.AttemptCount, "external_ref", result.Handle)
		return nil
	}

	// A pending result is a retryable failure, never success. The handle is
	// kept so the next attempt checks the prior send instead of paying again.
	if result.Status == gateway.SendPending && result.Handle != "" && result.Handle != prevHandle {
		if err := e.Store.SaveRetryHandle(ctx, rec.Id, result.Handle); err != nil {
			return err
		}
	}
	e.Metrics.ObserveSettlementAttempt(string(result.Status))
	return e.handleFailure(ctx, snap, rec, result.Error)
}

// handleFailure schedules the next attempt or moves the record to the dead
// letter once attempts are exhausted.
func (e *Engine) handleFailure(ctx context.Context, snap *config.Snapshot, rec *models.RetryRecord, reason string) error {
	if rec.AttemptCount >= rec.MaxRetries {
		if err := e.Store.MoveRetryToDeadLetter(ctx, rec.Id, reason); err != nil {
			return err
		}
		e.Metrics.ObserveDeadLetterMove()
		e.Logger.Error("retry moved to dead letter",
			"retry_id", rec.Id, "attempts", rec.AttemptCount, "reason", reason)
		return nil
	}

	policy := backoff.Policy{Base: snap.BaseRetryDelay}
	next := e.Clock.Now().Add(policy.Delay(rec.AttemptCount))
	if err := e.Store.ScheduleRetry(ctx, rec.Id, next, reason); err != nil {
		return err
	}
	e.Logger.Warn("retry rescheduled",
		"retry_id", rec.Id, "attempt", rec.AttemptCount, "next_attempt_at", next, "reason", reason)
	return nil
}

// confirmUnits records the settlement handle on each underlying withdrawal
// and confirms it. Rows that already carry the handle are fine; rows another
// actor confirmed concurrently are skipped.
func (e *Engine) confirmUnits(ctx context.Context, unitIDs []string, handle string, feeRateOffered int64) error {
	for _, txID := range unitIDs {
		err := e.Store.MarkProcessing(ctx, txID, handle, feeRateOffered)
		if err != nil && !errors.Is(err, storage.ErrAlreadyProcessed) {
			return fmt.Errorf("failed to record handle on %s: %w", txID, err)
		}
		if err := e.Store.ConfirmWithdrawal(ctx, txID); err != nil {
			if errors.Is(err, storage.ErrAlreadyProcessed) {
				continue
			}
			return fmt.Errorf("failed to confirm %s: %w", txID, err)
		}
	}
	return nil
}

// Redrive resets a dead-letter record so the next due pass re-attempts it
// through the same path as automatic retries.
func (e *Engine) Redrive(ctx context.Context, retryID string) error {
	if err := e.Store.RedriveRetry(ctx, retryID, e.Clock.Now()); err != nil {
		return err
	}
	e.Metrics.ObserveDeadLetterRedrive()
	e.Logger.Info("dead-letter record re-driven", "retry_id", retryID)
	return nil
}

// ListDeadLetter returns the records awaiting manual intervention.
func (e *Engine) ListDeadLetter(ctx context.Context) ([]models.RetryRecord, error) {
	records, err := e.Store.ListDeadLetter(ctx)
	if err != nil {
		return nil, err
	}
	e.Metrics.SetDeadLetterDepth(len(records))
	return records, nil
}
