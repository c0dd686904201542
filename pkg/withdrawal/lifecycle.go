package withdrawal

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

// ErrEscrowRequired is returned when a manual approval targets an amount at
// or above the dual-control threshold.
var ErrEscrowRequired = errors.New("amount requires dual-control escrow approval")

// ErrEscrowExpired is returned when an escrow action is resolved after its
// expiry window.
var ErrEscrowExpired = errors.New("escrow action expired")

// ErrNotOwner is returned when a cancel targets another account's withdrawal.
var ErrNotOwner = errors.New("withdrawal belongs to a different account")

// ErrSendFailed is returned when the gateway refused an escrow-approved send.
// The escrow approval stands; the caller retries the execution step, which is
// idempotent once a settlement handle exists.
var ErrSendFailed = errors.New("payment gateway send failed")

// LifecycleHandler drives the withdrawal state machine after creation:
// approval (manual and dual-control), rejection, cancellation, and the
// freeze/terminate flow for blocked accounts.
type LifecycleHandler struct {
	Store   storage.Storage
	Gateway gateway.PaymentGateway
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Approve transitions PENDING (or PROCESSING) to PROCESSING with the
// operator-supplied settlement handle. Idempotent for the same handle; a row
// already carrying a different handle reports ErrAlreadyProcessed. Amounts at
// or above the dual-control threshold must go through the escrow flow.
func (h *LifecycleHandler) Approve(ctx context.Context, snap *config.Snapshot, txID, externalRef string) error {
	tx, err := h.Store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Amount >= snap.DualControlThreshold {
		return ErrEscrowRequired
	}

	if err := h.Store.MarkProcessing(ctx, txID, externalRef, 0); err != nil {
		return err
	}
	h.Logger.Info("withdrawal approved",
		"transaction_id", txID, "external_ref", externalRef)
	return nil
}

// Reject refunds a PENDING withdrawal and marks it FAILED. A second
// invocation reports ErrAlreadyProcessed and performs no refund.
func (h *LifecycleHandler) Reject(ctx context.Context, txID string) error {
	err := h.Store.RefundWithdrawal(ctx, txID,
		[]models.TransactionStatus{models.PENDING}, "refund: withdrawal rejected")
	if err != nil {
		return err
	}
	h.Metrics.ObserveRefund("reject")
	h.Logger.Info("withdrawal rejected and refunded", "transaction_id", txID)
	return nil
}

// Cancel refunds a PENDING withdrawal on the account holder's request, under
// the same at-most-once guard as Reject.
func (h *LifecycleHandler) Cancel(ctx context.Context, accountID, txID string) error {
	tx, err := h.Store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.AccountID != accountID {
		return ErrNotOwner
	}

	err = h.Store.RefundWithdrawal(ctx, txID,
		[]models.TransactionStatus{models.PENDING}, "refund: withdrawal cancelled")
	if err != nil {
		return err
	}
	h.Metrics.ObserveRefund("cancel")
	h.Logger.Info("withdrawal cancelled and refunded",
		"transaction_id", txID, "account_id", accountID)
	return nil
}

// InitiateEscrow opens the dual-control flow: admin A records the intent to
// approve a large withdrawal, to be countersigned by a different admin.
func (h *LifecycleHandler) InitiateEscrow(ctx context.Context, snap *config.Snapshot, txID, adminID string) (*models.EscrowAction, error) {
	tx, err := h.Store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.PENDING {
		return nil, storage.ErrAlreadyProcessed
	}

	action, err := h.Store.CreateEscrow(ctx, &models.EscrowAction{
		InitiatorAdminID:   adminID,
		OperationType:      models.EscrowOpWithdrawalApproval,
		TransactionID:      txID,
		Amount:             tx.Amount,
		DestinationAddress: tx.DestinationAddress,
		ExpiresAt:          h.Clock.Now().Add(snap.EscrowExpiry),
	})
	if err != nil {
		return nil, err
	}

	h.Metrics.ObserveEscrowAction("created")
	h.Logger.Info("escrow action created",
		"escrow_id", action.Id, "transaction_id", txID, "initiator", adminID, "amount", tx.Amount)
	return action, nil
}

// ApproveEscrow countersigns an escrow action and executes it: the gateway is
// invoked with the net amount (the fee is never sent externally) and only a
// successful send moves the withdrawal to PROCESSING. The approver must
// differ from the initiator. Calling again after a failed send retries the
// execution step without re-approving; an existing settlement handle is
// passed back to the gateway so a retry never double-sends.
func (h *LifecycleHandler) ApproveEscrow(ctx context.Context, escrowID, approverID string) error {
	action, err := h.Store.GetEscrow(ctx, escrowID)
	if err != nil {
		return err
	}
	if action.InitiatorAdminID == approverID {
		return storage.ErrEscrowSelfApproval
	}

	switch action.Status {
	case models.EscrowPending:
		if h.Clock.Now().After(action.ExpiresAt) {
			return ErrEscrowExpired
		}
		action, err = h.Store.ApproveEscrow(ctx, escrowID, approverID)
		if err != nil {
			return err
		}
		h.Metrics.ObserveEscrowAction("approved")
	case models.EscrowApproved:
		// Execution retry after a failed send.
		if action.ApproverAdminID == nil || *action.ApproverAdminID != approverID {
			return storage.ErrEscrowNotPending
		}
	default:
		return storage.ErrEscrowNotPending
	}

	return h.executeApproved(ctx, action)
}

// executeApproved sends the net amount and records the settlement handle.
func (h *LifecycleHandler) executeApproved(ctx context.Context, action *models.EscrowAction) error {
	tx, err := h.Store.GetTransaction(ctx, action.TransactionID)
	if err != nil {
		return err
	}
	if tx.Status != models.PENDING && tx.Status != models.PROCESSING {
		return storage.ErrAlreadyProcessed
	}

	prevHandle := ""
	if tx.ExternalRef != nil {
		prevHandle = *tx.ExternalRef
	}

	result, err := h.Gateway.SendPayment(ctx, tx.DestinationAddress, tx.NetAmount(), prevHandle)
	if err != nil {
		return fmt.Errorf("gateway send failed: %w", err)
	}
	if !result.Success {
		h.Metrics.ObserveSettlementAttempt("failed")
		h.Logger.Error("escrow-approved send failed",
			"escrow_id", action.Id, "transaction_id", tx.Id, "gateway_error", result.Error)
		return fmt.Errorf("%w: %s", ErrSendFailed, result.Error)
	}

	if err := h.Store.MarkProcessing(ctx, tx.Id, result.Handle, result.FeeRateOffered); err != nil {
		return err
	}
	h.Metrics.ObserveSettlementAttempt("sent")
	h.Logger.Info("escrow-approved withdrawal sent",
		"escrow_id", action.Id,
		"transaction_id", tx.Id,
		"net_amount", tx.NetAmount(),
		"external_ref", result.Handle)
	return nil
}

// RejectEscrow closes a pending escrow action and refunds the underlying
// withdrawal, which is still PENDING on this path.
func (h *LifecycleHandler) RejectEscrow(ctx context.Context, escrowID, adminID string) error {
	action, err := h.Store.RejectEscrow(ctx, escrowID, adminID)
	if err != nil {
		return err
	}
	h.Metrics.ObserveEscrowAction("rejected")

	err = h.Store.RefundWithdrawal(ctx, action.TransactionID,
		[]models.TransactionStatus{models.PENDING}, "refund: escrow approval rejected")
	if err != nil && !errors.Is(err, storage.ErrAlreadyProcessed) {
		return err
	}
	if err == nil {
		h.Metrics.ObserveRefund("reject")
	}

	h.Logger.Info("escrow action rejected",
		"escrow_id", escrowID, "transaction_id", action.TransactionID, "admin_id", adminID)
	return nil
}

// FreezeAccountWithdrawals moves the account's in-flight withdrawals to
// FROZEN without refunding. Invoked when the account is blocked mid-flight.
func (h *LifecycleHandler) FreezeAccountWithdrawals(ctx context.Context, accountID string) (int, error) {
	frozen, err := h.Store.FreezeAccountWithdrawals(ctx, accountID)
	if err != nil {
		return 0, err
	}
	h.Logger.Warn("account withdrawals frozen", "account_id", accountID, "count", frozen)
	return frozen, nil
}

// TerminateFrozen resolves a FROZEN withdrawal after the account's
// termination event: the gross amount is refunded once and the row fails.
func (h *LifecycleHandler) TerminateFrozen(ctx context.Context, txID string) error {
	err := h.Store.RefundWithdrawal(ctx, txID,
		[]models.TransactionStatus{models.FROZEN}, "refund: frozen withdrawal terminated")
	if err != nil {
		return err
	}
	h.Metrics.ObserveRefund("terminated")
	h.Logger.Info("frozen withdrawal terminated and refunded", "transaction_id", txID)
	return nil
}
