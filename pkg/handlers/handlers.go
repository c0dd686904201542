package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/openvest/payout-pipeline/pkg/api"
	"github.com/openvest/payout-pipeline/pkg/balance"
	"github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/mapping"
	"github.com/openvest/payout-pipeline/pkg/retry"
	"github.com/openvest/payout-pipeline/pkg/storage"
	"github.com/openvest/payout-pipeline/pkg/withdrawal"
)

// ledger listing default when no limit is supplied.
const defaultLedgerLimit int32 = 50

// ApiHandler implements the server interface. It holds the application's
// dependencies: the storage layer, the withdrawal services and the retry
// engine's admin surface.
type ApiHandler struct {
	Store     storage.Storage
	Request   *withdrawal.RequestHandler
	Lifecycle *withdrawal.LifecycleHandler
	Retry     *retry.Engine
	Balances  *balance.Manager
	// Snapshot returns the configuration view for one invocation. Every
	// request threads a single snapshot through validation and execution.
	Snapshot func() *config.Snapshot
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// adminID extracts the operator identity or refuses the request.
func adminID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(api.AdminIDHeader)
	if id == "" {
		http.Error(w, fmt.Sprintf("Missing %s header", api.AdminIDHeader), http.StatusUnauthorized)
		return "", false
	}
	return id, true
}

// RequestWithdrawal handles the logic for creating a new withdrawal.
func (h *ApiHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request, accountId string) {
	var body api.NewWithdrawal
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if body.Amount <= 0 {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	tx, rejection, err := h.Request.RequestWithdrawal(r.Context(), h.Snapshot(), accountId, body.Amount)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to request withdrawal: %v", err), http.StatusInternalServerError)
		return
	}
	if rejection != nil {
		respondJSON(w, http.StatusUnprocessableEntity, mapping.ToApiRejection(rejection))
		return
	}

	respondJSON(w, http.StatusCreated, mapping.ToApiWithdrawal(tx))
}

// ListWithdrawals handles the logic for listing an account's withdrawals.
func (h *ApiHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request, accountId string) {
	txs, err := h.Store.ListTransactionsByAccount(r.Context(), accountId)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list withdrawals: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiWithdrawals(txs))
}

// GetAccountBalance returns the account's spendable balance alongside its
// in-flight withdrawal total.
func (h *ApiHandler) GetAccountBalance(w http.ResponseWriter, r *http.Request, accountId string) {
	available, err := h.Balances.AvailableBalance(r.Context(), accountId)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to load balance: %v", err), http.StatusInternalServerError)
		return
	}
	pending, err := h.Balances.PendingWithdrawalsTotal(r.Context(), accountId)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load pending total: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, api.Balance{
		AccountId:               accountId,
		Balance:                 available,
		PendingWithdrawalsTotal: pending,
	})
}

// CancelWithdrawal handles the account holder's cancel request.
func (h *ApiHandler) CancelWithdrawal(w http.ResponseWriter, r *http.Request, accountId string, transactionId openapi_types.UUID) {
	err := h.Lifecycle.Cancel(r.Context(), accountId, transactionId.String())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionNotFound):
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, withdrawal.ErrNotOwner):
			http.Error(w, "Withdrawal belongs to a different account", http.StatusForbidden)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal already processed", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to cancel withdrawal: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetWithdrawalById handles the logic for retrieving a withdrawal by its ID.
func (h *ApiHandler) GetWithdrawalById(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID) {
	tx, err := h.Store.GetTransaction(r.Context(), transactionId.String())
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to retrieve withdrawal: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiWithdrawal(tx))
}

// ApproveWithdrawal handles a manual approval with an operator-supplied
// settlement handle.
func (h *ApiHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	var body api.ApproveWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if body.ExternalRef == "" {
		http.Error(w, "external_ref is required", http.StatusBadRequest)
		return
	}

	err := h.Lifecycle.Approve(r.Context(), h.Snapshot(), transactionId.String(), body.ExternalRef)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionNotFound):
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, withdrawal.ErrEscrowRequired):
			http.Error(w, "Amount requires dual-control escrow approval", http.StatusUnprocessableEntity)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal already processed", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to approve withdrawal: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectWithdrawal handles an admin rejection with refund.
func (h *ApiHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	err := h.Lifecycle.Reject(r.Context(), transactionId.String())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionNotFound):
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal already processed", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to reject withdrawal: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TerminateWithdrawal refunds and fails a frozen withdrawal after the
// account's termination event.
func (h *ApiHandler) TerminateWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	err := h.Lifecycle.TerminateFrozen(r.Context(), transactionId.String())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionNotFound):
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal is not frozen", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to terminate withdrawal: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FreezeAccountWithdrawals moves an account's in-flight withdrawals to
// FROZEN when the account is blocked.
func (h *ApiHandler) FreezeAccountWithdrawals(w http.ResponseWriter, r *http.Request, accountId string) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	frozen, err := h.Lifecycle.FreezeAccountWithdrawals(r.Context(), accountId)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to freeze withdrawals: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, api.FreezeResult{AccountId: accountId, Frozen: frozen})
}

// InitiateEscrow opens the dual-control flow for a large withdrawal.
func (h *ApiHandler) InitiateEscrow(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminID(w, r)
	if !ok {
		return
	}
	var body api.NewEscrow
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	action, err := h.Lifecycle.InitiateEscrow(r.Context(), h.Snapshot(), body.TransactionId.String(), admin)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionNotFound):
			http.Error(w, "Withdrawal not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal already processed", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to create escrow: %v", err), http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusCreated, mapping.ToApiEscrow(action))
}

// ListPendingEscrows lists escrow actions awaiting a second admin.
func (h *ApiHandler) ListPendingEscrows(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	actions, err := h.Store.ListPendingEscrows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list escrows: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiEscrows(actions))
}

// ApproveEscrow countersigns an escrow action and executes the send.
func (h *ApiHandler) ApproveEscrow(w http.ResponseWriter, r *http.Request, escrowId openapi_types.UUID) {
	admin, ok := adminID(w, r)
	if !ok {
		return
	}
	err := h.Lifecycle.ApproveEscrow(r.Context(), escrowId.String(), admin)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEscrowNotFound):
			http.Error(w, "Escrow not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrEscrowSelfApproval):
			http.Error(w, "Escrow cannot be approved by its initiator", http.StatusForbidden)
		case errors.Is(err, withdrawal.ErrEscrowExpired):
			http.Error(w, "Escrow action expired", http.StatusConflict)
		case errors.Is(err, storage.ErrEscrowNotPending):
			http.Error(w, "Escrow already resolved", http.StatusConflict)
		case errors.Is(err, storage.ErrAlreadyProcessed):
			http.Error(w, "Withdrawal already processed", http.StatusConflict)
		case errors.Is(err, withdrawal.ErrSendFailed):
			http.Error(w, fmt.Sprintf("Payment send failed, retry the approval: %v", err), http.StatusBadGateway)
		default:
			http.Error(w, fmt.Sprintf("Failed to approve escrow: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectEscrow rejects an escrow action and refunds the withdrawal.
func (h *ApiHandler) RejectEscrow(w http.ResponseWriter, r *http.Request, escrowId openapi_types.UUID) {
	admin, ok := adminID(w, r)
	if !ok {
		return
	}
	err := h.Lifecycle.RejectEscrow(r.Context(), escrowId.String(), admin)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEscrowNotFound):
			http.Error(w, "Escrow not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrEscrowNotPending):
			http.Error(w, "Escrow already resolved", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to reject escrow: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeadLetter lists retry records awaiting manual intervention.
func (h *ApiHandler) ListDeadLetter(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	records, err := h.Retry.ListDeadLetter(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list dead-letter records: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiRetryRecords(records))
}

// RedriveRetry re-queues a dead-letter record for another attempt.
func (h *ApiHandler) RedriveRetry(w http.ResponseWriter, r *http.Request, retryId openapi_types.UUID) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	err := h.Retry.Redrive(r.Context(), retryId.String())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRetryNotFound):
			http.Error(w, "Retry record not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrNotInDeadLetter):
			http.Error(w, "Retry record not in dead letter", http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("Failed to redrive retry: %v", err), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLedgerEntries lists recent audit ledger entries.
func (h *ApiHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request, params api.ListLedgerEntriesParams) {
	if _, ok := adminID(w, r); !ok {
		return
	}
	limit := defaultLedgerLimit
	if params.Limit != nil && *params.Limit > 0 {
		limit = *params.Limit
	}
	entries, err := h.Store.ListLedgerEntries(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list ledger entries: %v", err), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiLedgerEntries(entries))
}
