package storage

import "errors"

// ErrInsufficientFunds is returned when an account balance cannot cover a debit.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrLockConflict is returned when a conditional write lost the account row to
// a concurrent mutation. Callers retry with backoff rather than wait.
var ErrLockConflict = errors.New("account row lock conflict")

// ErrAccountNotFound is returned when the referenced account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrTransactionNotFound is returned when the referenced transaction does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrAlreadyProcessed is returned when a state transition finds no row in the
// required status, e.g. a second cancel of the same withdrawal.
var ErrAlreadyProcessed = errors.New("transaction already processed")

// ErrRetryClaimed is returned when another worker holds the lease on a retry record.
var ErrRetryClaimed = errors.New("retry record claimed by another worker")

// ErrRetryNotFound is returned when the referenced retry record does not exist.
var ErrRetryNotFound = errors.New("retry record not found")

// ErrNotInDeadLetter is returned when a re-drive targets a record that is not
// in the dead-letter state.
var ErrNotInDeadLetter = errors.New("retry record not in dead letter")

// ErrEscrowNotFound is returned when the referenced escrow action does not exist.
var ErrEscrowNotFound = errors.New("escrow action not found")

// ErrEscrowNotPending is returned when an escrow action has already been resolved.
var ErrEscrowNotPending = errors.New("escrow action not pending")

// ErrEscrowSelfApproval is returned when the initiating admin attempts to
// resolve their own escrow action.
var ErrEscrowSelfApproval = errors.New("escrow action cannot be approved by its initiator")
