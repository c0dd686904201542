package storage

import (
	"context"

	"github.com/openvest/payout-pipeline/pkg/models"
)

// EscrowStore manages dual-control escrow actions. Approval is guarded both
// here (conditional write) and in the lifecycle handler: the approver identity
// must differ from the initiator.
type EscrowStore interface {
	// CreateEscrow inserts a new PENDING escrow action.
	CreateEscrow(ctx context.Context, escrow *models.EscrowAction) (*models.EscrowAction, error)

	// GetEscrow retrieves an escrow action by its ID.
	GetEscrow(ctx context.Context, escrowID string) (*models.EscrowAction, error)

	// ApproveEscrow resolves a PENDING escrow as APPROVED and returns the
	// updated action. Returns ErrEscrowSelfApproval when approverID matches
	// the initiator and ErrEscrowNotPending when the action was already
	// resolved.
	ApproveEscrow(ctx context.Context, escrowID, approverID string) (*models.EscrowAction, error)

	// RejectEscrow resolves a PENDING escrow as REJECTED under the same guards.
	RejectEscrow(ctx context.Context, escrowID, adminID string) (*models.EscrowAction, error)

	// ListPendingEscrows retrieves unresolved escrow actions.
	ListPendingEscrows(ctx context.Context) ([]models.EscrowAction, error)
}
