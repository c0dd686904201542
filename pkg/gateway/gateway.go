// Package gateway defines the interface to the external payment network. The
// low-level client is an external collaborator; this subsystem only depends on
// the contract below.
package gateway

import "context"

// SendStatus qualifies an unsuccessful send.
type SendStatus string

const (
	// SendPending means the network accepted the payment but it is not yet
	// final. Callers must treat this as a retryable failure, not success.
	SendPending SendStatus = "pending"
	SendFailed  SendStatus = "failed"
)

// SendResult is the outcome of one send attempt.
type SendResult struct {
	Success bool
	// Handle is the external ledger's reference for this send attempt. It is
	// set on success and may be set on a pending result.
	Handle string
	Status SendStatus
	Error  string
	// FeeRateOffered is the price-of-inclusion attached to the send, recorded
	// so the reconciler can later decide whether a speed-up is warranted.
	FeeRateOffered int64
}

// LedgerStatus is the external ledger's view of a settlement handle.
type LedgerStatus string

const (
	StatusConfirmed LedgerStatus = "confirmed"
	StatusFailed    LedgerStatus = "failed"
	StatusPending   LedgerStatus = "pending"
	StatusNotFound  LedgerStatus = "not_found"
)

// StatusResult is the outcome of a status query.
type StatusResult struct {
	Status        LedgerStatus
	FinalityBlock int64
	// FeeRate is the pending transaction's offered price-of-inclusion, when
	// the ledger reports it.
	FeeRate int64
}

// PaymentGateway is the opaque client for the external payment network.
// SendPayment must be safe to call twice with the same prevHandle: given a
// handle, the implementation checks the prior attempt before paying again.
type PaymentGateway interface {
	SendPayment(ctx context.Context, destination string, amount int64, prevHandle string) (*SendResult, error)
	GetStatus(ctx context.Context, handle string) (*StatusResult, error)
	CurrentFeeRate(ctx context.Context) (int64, error)
}
