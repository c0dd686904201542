// Package reconciler resolves stuck settlements by re-querying the external
// ledger. It only ever moves a withdrawal on an unambiguous answer; anything
// ambiguous is left for the next sweep or a human.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openvest/payout-pipeline/pkg/clock"
	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// Outcome classifies what a sweep did with one stuck withdrawal.
type Outcome string

const (
	OutcomeConfirmed   Outcome = "confirmed"
	OutcomeRefunded    Outcome = "refunded"
	OutcomeSpeedUp     Outcome = "speed_up_recommended"
	OutcomeStillSlow   Outcome = "still_pending"
	OutcomeNeedsRetry  Outcome = "needs_retry"
	OutcomeQueryFailed Outcome = "query_failed"
)

// Report summarizes one sweep for logs and operator tooling.
type Report struct {
	Swept    int
	Outcomes map[Outcome][]string
}

func (r *Report) add(outcome Outcome, txID string) {
	r.Outcomes[outcome] = append(r.Outcomes[outcome], txID)
}

// Reconciler sweeps PROCESSING withdrawals whose settlement went quiet.
type Reconciler struct {
	Store   storage.Storage
	Gateway gateway.PaymentGateway
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Sweep queries the external ledger for every PROCESSING withdrawal carrying
// a settlement handle that has gone unchanged longer than the staleness
// threshold, and applies the unambiguous outcomes.
func (r *Reconciler) Sweep(ctx context.Context, snap *config.Snapshot) (*Report, error) {
	stuck, err := r.Store.StuckWithdrawals(ctx, snap.StuckThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck withdrawals: %w", err)
	}

	report := &Report{Swept: len(stuck), Outcomes: map[Outcome][]string{}}
	for i := range stuck {
		tx := &stuck[i]
		outcome := r.reconcile(ctx, snap, tx)
		report.add(outcome, tx.Id)
		r.Metrics.ObserveReconcilerOutcome(string(outcome))
	}

	r.Logger.Info("reconciliation sweep complete",
		"swept", report.Swept,
		"confirmed", len(report.Outcomes[OutcomeConfirmed]),
		"refunded", len(report.Outcomes[OutcomeRefunded]),
		"speed_up", len(report.Outcomes[OutcomeSpeedUp]),
		"needs_retry", len(report.Outcomes[OutcomeNeedsRetry]),
		"query_failed", len(report.Outcomes[OutcomeQueryFailed]))
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, snap *config.Snapshot, tx *models.Transaction) Outcome {
	queryCtx, cancel := context.WithTimeout(ctx, snap.GatewayTimeout)
	defer cancel()

	status, err := r.Gateway.GetStatus(queryCtx, *tx.ExternalRef)
	if err != nil {
		// Transient by assumption; the next sweep retries.
		r.Logger.Warn("ledger status query failed",
			"transaction_id", tx.Id, "external_ref", *tx.ExternalRef, "error", err)
		return OutcomeQueryFailed
	}

	switch status.Status {
	case gateway.StatusConfirmed:
		if err := r.Store.ConfirmWithdrawal(ctx, tx.Id); err != nil {
			r.Logger.Error("failed to confirm reconciled withdrawal",
				"transaction_id", tx.Id, "error", err)
			return OutcomeQueryFailed
		}
		r.Logger.Info("stuck withdrawal confirmed",
			"transaction_id", tx.Id, "finality_block", status.FinalityBlock)
		return OutcomeConfirmed

	case gateway.StatusFailed:
		err := r.Store.RefundWithdrawal(ctx, tx.Id,
			[]models.TransactionStatus{models.PROCESSING}, "refund: settlement reverted on external ledger")
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyProcessed) {
				return OutcomeRefunded
			}
			r.Logger.Error("failed to refund reverted withdrawal",
				"transaction_id", tx.Id, "error", err)
			return OutcomeQueryFailed
		}
		r.Metrics.ObserveRefund("reverted")
		r.Logger.Warn("reverted withdrawal refunded",
			"transaction_id", tx.Id, "amount", tx.Amount)
		return OutcomeRefunded

	case gateway.StatusPending:
		return r.checkSpeedUp(ctx, tx, status)

	case gateway.StatusNotFound:
		// Ambiguous: the send may have been dropped or the query may have
		// missed. Never auto-refund; a human decides.
		r.Logger.Warn("settlement handle unknown to external ledger",
			"transaction_id", tx.Id, "external_ref", *tx.ExternalRef)
		return OutcomeNeedsRetry
	}

	r.Logger.Error("unexpected ledger status",
		"transaction_id", tx.Id, "status", status.Status)
	return OutcomeQueryFailed
}

// checkSpeedUp compares the fee rate offered at send time with the network's
// current rate. A higher current rate means the send is underpriced; the
// reconciler surfaces that but never rebroadcasts on its own.
func (r *Reconciler) checkSpeedUp(ctx context.Context, tx *models.Transaction, status *gateway.StatusResult) Outcome {
	current, err := r.Gateway.CurrentFeeRate(ctx)
	if err != nil {
		r.Logger.Warn("failed to query current fee rate",
			"transaction_id", tx.Id, "error", err)
		return OutcomeStillSlow
	}

	offered := tx.FeeRateOffered
	if offered == 0 && status.FeeRate > 0 {
		offered = status.FeeRate
	}
	if offered > 0 && current > offered {
		r.Metrics.ObserveSpeedUpRecommended()
		r.Logger.Warn("speed-up recommended for stuck settlement",
			"transaction_id", tx.Id,
			"external_ref", *tx.ExternalRef,
			"offered_rate", offered,
			"current_rate", current)
		return OutcomeSpeedUp
	}
	return OutcomeStillSlow
}
