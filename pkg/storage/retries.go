package storage

import (
	"context"
	"time"

	"github.com/openvest/payout-pipeline/pkg/models"
)

// RetryStore manages settlement retry records. One record exists per distinct
// settlement-unit set; duplicate failures for the same set update the existing
// record instead of creating a second one.
type RetryStore interface {
	// UpsertRetryFailure records a settlement failure. If an unresolved record
	// already exists for the same unit-set key it is updated (last error,
	// amount, carried handle); otherwise a new record is created.
	UpsertRetryFailure(ctx context.Context, rec *models.RetryRecord) (*models.RetryRecord, error)

	// GetRetry retrieves a retry record by its ID.
	GetRetry(ctx context.Context, retryID string) (*models.RetryRecord, error)

	// DueRetries retrieves unresolved, non-dead-letter records whose
	// next_attempt_at has passed.
	DueRetries(ctx context.Context, now time.Time, limit int32) ([]models.RetryRecord, error)

	// ClaimRetry takes the processing lease on a record. Returns
	// ErrRetryClaimed if another worker holds an unexpired lease.
	ClaimRetry(ctx context.Context, retryID, owner string, until time.Time) error

	// IncrementRetryAttempt bumps attempt_count and returns the updated record.
	IncrementRetryAttempt(ctx context.Context, retryID string) (*models.RetryRecord, error)

	// SaveRetryHandle records the settlement handle produced by a send attempt
	// so that later attempts can pass it to the gateway.
	SaveRetryHandle(ctx context.Context, retryID, externalRef string) error

	// ResolveRetry marks the record resolved and releases the lease.
	ResolveRetry(ctx context.Context, retryID, externalRef string) error

	// ScheduleRetry sets next_attempt_at, records the error and releases the lease.
	ScheduleRetry(ctx context.Context, retryID string, next time.Time, lastError string) error

	// MoveRetryToDeadLetter marks the record dead-letter and releases the lease.
	MoveRetryToDeadLetter(ctx context.Context, retryID, lastError string) error

	// RedriveRetry resets a dead-letter record for re-processing. Returns
	// ErrNotInDeadLetter when the record is live or already resolved.
	RedriveRetry(ctx context.Context, retryID string, next time.Time) error

	// ListDeadLetter retrieves unresolved records parked in the dead letter.
	ListDeadLetter(ctx context.Context) ([]models.RetryRecord, error)
}
