package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// AdminIDHeader carries the operator identity on admin routes.
// Authentication itself happens upstream of this service.
const AdminIDHeader = "X-Admin-ID"

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// RequestWithdrawal creates a withdrawal for an account.
	// (POST /accounts/{accountId}/withdrawals)
	RequestWithdrawal(w http.ResponseWriter, r *http.Request, accountId string)

	// ListWithdrawals lists an account's withdrawals.
	// (GET /accounts/{accountId}/withdrawals)
	ListWithdrawals(w http.ResponseWriter, r *http.Request, accountId string)

	// GetAccountBalance returns the account's spendable balance.
	// (GET /accounts/{accountId}/balance)
	GetAccountBalance(w http.ResponseWriter, r *http.Request, accountId string)

	// CancelWithdrawal cancels a pending withdrawal on the holder's request.
	// (POST /accounts/{accountId}/withdrawals/{transactionId}/cancel)
	CancelWithdrawal(w http.ResponseWriter, r *http.Request, accountId string, transactionId openapi_types.UUID)

	// GetWithdrawalById retrieves a withdrawal.
	// (GET /withdrawals/{transactionId})
	GetWithdrawalById(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID)

	// ApproveWithdrawal approves a pending withdrawal with a settlement handle.
	// (POST /admin/withdrawals/{transactionId}/approve)
	ApproveWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID)

	// RejectWithdrawal rejects and refunds a pending withdrawal.
	// (POST /admin/withdrawals/{transactionId}/reject)
	RejectWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID)

	// TerminateWithdrawal refunds and fails a frozen withdrawal.
	// (POST /admin/withdrawals/{transactionId}/terminate)
	TerminateWithdrawal(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID)

	// FreezeAccountWithdrawals freezes an account's in-flight withdrawals.
	// (POST /admin/accounts/{accountId}/freeze)
	FreezeAccountWithdrawals(w http.ResponseWriter, r *http.Request, accountId string)

	// InitiateEscrow opens a dual-control approval.
	// (POST /admin/escrows)
	InitiateEscrow(w http.ResponseWriter, r *http.Request)

	// ListPendingEscrows lists escrow actions awaiting a second admin.
	// (GET /admin/escrows)
	ListPendingEscrows(w http.ResponseWriter, r *http.Request)

	// ApproveEscrow countersigns and executes an escrow action.
	// (POST /admin/escrows/{escrowId}/approve)
	ApproveEscrow(w http.ResponseWriter, r *http.Request, escrowId openapi_types.UUID)

	// RejectEscrow rejects an escrow action and refunds the withdrawal.
	// (POST /admin/escrows/{escrowId}/reject)
	RejectEscrow(w http.ResponseWriter, r *http.Request, escrowId openapi_types.UUID)

	// ListDeadLetter lists retry records awaiting manual intervention.
	// (GET /admin/dead-letter)
	ListDeadLetter(w http.ResponseWriter, r *http.Request)

	// RedriveRetry re-queues a dead-letter record.
	// (POST /admin/dead-letter/{retryId}/redrive)
	RedriveRetry(w http.ResponseWriter, r *http.Request, retryId openapi_types.UUID)

	// ListLedgerEntries lists recent audit ledger entries.
	// (GET /admin/ledger)
	ListLedgerEntries(w http.ResponseWriter, r *http.Request, params ListLedgerEntriesParams)
}

// ServerInterfaceWrapper converts chi route parameters to typed handler arguments.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (siw *ServerInterfaceWrapper) uuidParam(w http.ResponseWriter, r *http.Request, name string) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	if err := id.UnmarshalText([]byte(chi.URLParam(r, name))); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter %s: %v", name, err), http.StatusBadRequest)
		return id, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	siw.Handler.RequestWithdrawal(w, r, chi.URLParam(r, "accountId"))
}

func (siw *ServerInterfaceWrapper) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListWithdrawals(w, r, chi.URLParam(r, "accountId"))
}

func (siw *ServerInterfaceWrapper) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetAccountBalance(w, r, chi.URLParam(r, "accountId"))
}

func (siw *ServerInterfaceWrapper) FreezeAccountWithdrawals(w http.ResponseWriter, r *http.Request) {
	siw.Handler.FreezeAccountWithdrawals(w, r, chi.URLParam(r, "accountId"))
}

func (siw *ServerInterfaceWrapper) TerminateWithdrawal(w http.ResponseWriter, r *http.Request) {
	transactionId, ok := siw.uuidParam(w, r, "transactionId")
	if !ok {
		return
	}
	siw.Handler.TerminateWithdrawal(w, r, transactionId)
}

func (siw *ServerInterfaceWrapper) CancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	transactionId, ok := siw.uuidParam(w, r, "transactionId")
	if !ok {
		return
	}
	siw.Handler.CancelWithdrawal(w, r, chi.URLParam(r, "accountId"), transactionId)
}

func (siw *ServerInterfaceWrapper) GetWithdrawalById(w http.ResponseWriter, r *http.Request) {
	transactionId, ok := siw.uuidParam(w, r, "transactionId")
	if !ok {
		return
	}
	siw.Handler.GetWithdrawalById(w, r, transactionId)
}

func (siw *ServerInterfaceWrapper) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	transactionId, ok := siw.uuidParam(w, r, "transactionId")
	if !ok {
		return
	}
	siw.Handler.ApproveWithdrawal(w, r, transactionId)
}

func (siw *ServerInterfaceWrapper) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	transactionId, ok := siw.uuidParam(w, r, "transactionId")
	if !ok {
		return
	}
	siw.Handler.RejectWithdrawal(w, r, transactionId)
}

func (siw *ServerInterfaceWrapper) ApproveEscrow(w http.ResponseWriter, r *http.Request) {
	escrowId, ok := siw.uuidParam(w, r, "escrowId")
	if !ok {
		return
	}
	siw.Handler.ApproveEscrow(w, r, escrowId)
}

func (siw *ServerInterfaceWrapper) RejectEscrow(w http.ResponseWriter, r *http.Request) {
	escrowId, ok := siw.uuidParam(w, r, "escrowId")
	if !ok {
		return
	}
	siw.Handler.RejectEscrow(w, r, escrowId)
}

func (siw *ServerInterfaceWrapper) RedriveRetry(w http.ResponseWriter, r *http.Request) {
	retryId, ok := siw.uuidParam(w, r, "retryId")
	if !ok {
		return
	}
	siw.Handler.RedriveRetry(w, r, retryId)
}

func (siw *ServerInterfaceWrapper) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	var params ListLedgerEntriesParams
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid format for parameter limit: %v", err), http.StatusBadRequest)
			return
		}
		limit32 := int32(limit)
		params.Limit = &limit32
	}
	siw.Handler.ListLedgerEntries(w, r, params)
}

// HandlerFromMux attaches the pipeline's routes to a chi router.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	wrapper := ServerInterfaceWrapper{Handler: si}

	r.Post("/accounts/{accountId}/withdrawals", wrapper.RequestWithdrawal)
	r.Get("/accounts/{accountId}/withdrawals", wrapper.ListWithdrawals)
	r.Get("/accounts/{accountId}/balance", wrapper.GetAccountBalance)
	r.Post("/accounts/{accountId}/withdrawals/{transactionId}/cancel", wrapper.CancelWithdrawal)
	r.Get("/withdrawals/{transactionId}", wrapper.GetWithdrawalById)

	r.Post("/admin/withdrawals/{transactionId}/approve", wrapper.ApproveWithdrawal)
	r.Post("/admin/withdrawals/{transactionId}/reject", wrapper.RejectWithdrawal)
	r.Post("/admin/withdrawals/{transactionId}/terminate", wrapper.TerminateWithdrawal)
	r.Post("/admin/accounts/{accountId}/freeze", wrapper.FreezeAccountWithdrawals)
	r.Post("/admin/escrows", si.InitiateEscrow)
	r.Get("/admin/escrows", si.ListPendingEscrows)
	r.Post("/admin/escrows/{escrowId}/approve", wrapper.ApproveEscrow)
	r.Post("/admin/escrows/{escrowId}/reject", wrapper.RejectEscrow)
	r.Get("/admin/dead-letter", si.ListDeadLetter)
	r.Post("/admin/dead-letter/{retryId}/redrive", wrapper.RedriveRetry)
	r.Get("/admin/ledger", wrapper.ListLedgerEntries)

	return r
}
