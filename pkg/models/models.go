package models

import (
	"time"
)

// TransactionStatus defines the possible states of a withdrawal transaction.
type TransactionStatus string

const (
	// PENDING: funds debited, awaiting admin approval.
	PENDING TransactionStatus = "PENDING"
	// PROCESSING: approved (or auto-approved) and handed to settlement.
	PROCESSING TransactionStatus = "PROCESSING"
	// CONFIRMED: the external ledger reported the payout final.
	CONFIRMED TransactionStatus = "CONFIRMED"
	// FAILED: terminal failure; the gross amount has been refunded.
	FAILED TransactionStatus = "FAILED"
	// FROZEN: account was blocked mid-flight; no refund until termination.
	FROZEN TransactionStatus = "FROZEN"
)

// EscrowStatus defines the possible states of a dual-control escrow action.
type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "PENDING"
	EscrowApproved EscrowStatus = "APPROVED"
	EscrowRejected EscrowStatus = "REJECTED"
)

// EscrowOpWithdrawalApproval is the only escrow operation type this pipeline issues.
const EscrowOpWithdrawalApproval = "WITHDRAWAL_APPROVAL"

// Account is the mutable balance record. Balance is in minor currency units and
// is mutated only through conditional single-row updates keyed on Version.
type Account struct {
	ID                 string    `json:"id" dynamodbav:"id"`
	Balance            int64     `json:"balance" dynamodbav:"balance"`
	WithdrawalBlocked  bool      `json:"withdrawal_blocked" dynamodbav:"withdrawal_blocked"`
	IsBanned           bool      `json:"is_banned" dynamodbav:"is_banned"`
	DestinationAddress string    `json:"destination_address" dynamodbav:"destination_address"`
	LifetimeDeposited  int64     `json:"lifetime_deposited" dynamodbav:"lifetime_deposited"`
	LifetimeWithdrawn  int64     `json:"lifetime_withdrawn" dynamodbav:"lifetime_withdrawn"`
	Version            int64     `json:"version" dynamodbav:"version"`
	CreatedAt          time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Transaction is the withdrawal record. Amount is gross; Fee is computed at
// creation time and never changes. Rows are never deleted.
type Transaction struct {
	Id                 string            `dynamodbav:"id"`
	AccountID          string            `dynamodbav:"account_id"`
	Amount             int64             `dynamodbav:"amount"`
	Fee                int64             `dynamodbav:"fee"`
	Status             TransactionStatus `dynamodbav:"status"`
	ExternalRef        *string           `dynamodbav:"external_ref,omitempty"`
	DestinationAddress string            `dynamodbav:"destination_address"`
	BalanceBefore      int64             `dynamodbav:"balance_before"`
	BalanceAfter       int64             `dynamodbav:"balance_after"`
	// FeeRateOffered is the external network price-of-inclusion recorded when
	// the send was made; the reconciler compares it against the current rate.
	FeeRateOffered int64     `dynamodbav:"fee_rate_offered,omitempty"`
	Refunded       bool      `dynamodbav:"refunded"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	// CreatedDate is the UTC calendar date of CreatedAt, kept as a separate
	// attribute so the daily-total index can partition on it.
	CreatedDate string    `dynamodbav:"created_date"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

// NetAmount is what actually goes to the external network. The fee stays on
// the platform and is never sent.
func (t *Transaction) NetAmount() int64 {
	return t.Amount - t.Fee
}

// RetryState partitions the retry schedule index.
type RetryState string

const (
	RetryLive       RetryState = "LIVE"
	RetryDeadLetter RetryState = "DEAD_LETTER"
	RetryResolved   RetryState = "RESOLVED"
)

// RetryRecord tracks settlement attempts for one settlement-unit set.
// Terminal states: Resolved (paid) or InDeadLetter (manual intervention).
type RetryRecord struct {
	Id                 string    `dynamodbav:"id"`
	AccountID          string    `dynamodbav:"account_id"`
	UnitIDs            []string  `dynamodbav:"unit_ids"`
	UnitSetKey         string    `dynamodbav:"unit_set_key"`
	Amount             int64     `dynamodbav:"amount"`
	DestinationAddress string    `dynamodbav:"destination_address"`
	AttemptCount       int       `dynamodbav:"attempt_count"`
	MaxRetries         int       `dynamodbav:"max_retries"`
	NextAttemptAt      time.Time `dynamodbav:"next_attempt_at"`
	LastError          string    `dynamodbav:"last_error,omitempty"`
	ExternalRef        *string   `dynamodbav:"external_ref,omitempty"`
	InDeadLetter       bool      `dynamodbav:"in_dead_letter"`
	Resolved           bool      `dynamodbav:"resolved"`
	// State mirrors the two flags above for the schedule index: LIVE records
	// are eligible for processing, DEAD_LETTER and RESOLVED are terminal.
	State          RetryState `dynamodbav:"retry_state"`
	LeaseOwner     string     `dynamodbav:"lease_owner,omitempty"`
	LeaseExpiresAt time.Time  `dynamodbav:"lease_expires_at,omitempty"`
	CreatedAt      time.Time  `dynamodbav:"created_at"`
	UpdatedAt      time.Time  `dynamodbav:"updated_at"`
}

// EscrowAction is the dual-control gate for large withdrawals. It is created
// by one admin and can only be resolved by a different admin.
type EscrowAction struct {
	Id                 string       `dynamodbav:"id"`
	InitiatorAdminID   string       `dynamodbav:"initiator_admin_id"`
	ApproverAdminID    *string      `dynamodbav:"approver_admin_id,omitempty"`
	OperationType      string       `dynamodbav:"operation_type"`
	TransactionID      string       `dynamodbav:"transaction_id"`
	Amount             int64        `dynamodbav:"amount"`
	DestinationAddress string       `dynamodbav:"destination_address"`
	Status             EscrowStatus `dynamodbav:"status"`
	CreatedAt          time.Time    `dynamodbav:"created_at"`
	ExpiresAt          time.Time    `dynamodbav:"expires_at"`
}

// LedgerPartition is the single partition value ledger entries share so they
// can be listed newest-first through one index.
const LedgerPartition = "LEDGER_ENTRIES"

// LedgerEntry records one side of a balance mutation for audit. Every debit,
// credit and refund appends an entry with the before/after snapshot.
type LedgerEntry struct {
	EntryID       string    `dynamodbav:"entry_id"`
	TransactionID string    `dynamodbav:"transaction_id"`
	AccountID     string    `dynamodbav:"account_id"`
	Debit         int64     `dynamodbav:"debit,omitempty"`
	Credit        int64     `dynamodbav:"credit,omitempty"`
	BalanceBefore int64     `dynamodbav:"balance_before"`
	BalanceAfter  int64     `dynamodbav:"balance_after"`
	Description   string    `dynamodbav:"description"`
	Timestamp     time.Time `dynamodbav:"timestamp"`
	GSI1PK        string    `dynamodbav:"gsi1pk"`
}
