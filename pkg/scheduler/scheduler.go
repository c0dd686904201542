package scheduler

import (
	"context"
	"time"
)

// SettlementJob is the message handed to the settlement worker. It carries
// only the transaction id; the worker re-reads the row so a stale message can
// never override the store.
type SettlementJob struct {
	TransactionID string `json:"transaction_id"`
}

// Scheduler enqueues settlement jobs for asynchronous processing.
type Scheduler interface {
	// ScheduleSettlement enqueues a settlement attempt for the withdrawal,
	// optionally delayed.
	ScheduleSettlement(ctx context.Context, txID string, delay time.Duration) error
}
