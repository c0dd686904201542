// Package api defines the HTTP wire types and routing contract for the
// payout pipeline's user and admin surfaces.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// NewWithdrawal is the request body for creating a withdrawal.
type NewWithdrawal struct {
	Amount int64 `json:"amount"`
}

// Withdrawal is the API representation of a withdrawal transaction.
type Withdrawal struct {
	Id                 openapi_types.UUID `json:"id"`
	AccountId          string             `json:"account_id"`
	Amount             int64              `json:"amount"`
	Fee                int64              `json:"fee"`
	NetAmount          int64              `json:"net_amount"`
	Status             string             `json:"status"`
	ExternalRef        *string            `json:"external_ref,omitempty"`
	DestinationAddress string             `json:"destination_address"`
	Refunded           bool               `json:"refunded"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Balance is the account's spendable balance view.
type Balance struct {
	AccountId               string `json:"account_id"`
	Balance                 int64  `json:"balance"`
	PendingWithdrawalsTotal int64  `json:"pending_withdrawals_total"`
}

// FreezeResult reports how many withdrawals an account freeze touched.
type FreezeResult struct {
	AccountId string `json:"account_id"`
	Frozen    int    `json:"frozen"`
}

// Rejection explains a refused withdrawal request.
type Rejection struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ApproveWithdrawalRequest carries the operator-supplied settlement handle.
type ApproveWithdrawalRequest struct {
	ExternalRef string `json:"external_ref"`
}

// NewEscrow is the request body for opening a dual-control approval.
type NewEscrow struct {
	TransactionId openapi_types.UUID `json:"transaction_id"`
}

// Escrow is the API representation of a dual-control action.
type Escrow struct {
	Id               openapi_types.UUID `json:"id"`
	InitiatorAdminId string             `json:"initiator_admin_id"`
	ApproverAdminId  *string            `json:"approver_admin_id,omitempty"`
	OperationType    string             `json:"operation_type"`
	TransactionId    openapi_types.UUID `json:"transaction_id"`
	Amount           int64              `json:"amount"`
	Status           string             `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	ExpiresAt        time.Time          `json:"expires_at"`
}

// RetryRecord is the API representation of a settlement retry record.
type RetryRecord struct {
	Id            openapi_types.UUID `json:"id"`
	AccountId     string             `json:"account_id"`
	UnitIds       []string           `json:"unit_ids"`
	Amount        int64              `json:"amount"`
	AttemptCount  int                `json:"attempt_count"`
	MaxRetries    int                `json:"max_retries"`
	LastError     string             `json:"last_error,omitempty"`
	ExternalRef   *string            `json:"external_ref,omitempty"`
	InDeadLetter  bool               `json:"in_dead_letter"`
	Resolved      bool               `json:"resolved"`
	NextAttemptAt time.Time          `json:"next_attempt_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// LedgerEntry is the API representation of an audit ledger entry.
type LedgerEntry struct {
	EntryId       string    `json:"entry_id"`
	TransactionId string    `json:"transaction_id"`
	AccountId     string    `json:"account_id"`
	Debit         int64     `json:"debit,omitempty"`
	Credit        int64     `json:"credit,omitempty"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

// ListLedgerEntriesParams holds the query parameters for the ledger listing.
type ListLedgerEntriesParams struct {
	Limit *int32 `json:"limit,omitempty"`
}

// Error is the generic error body.
type Error struct {
	Message string `json:"message"`
}
