package storage

import (
	"context"

	"github.com/openvest/payout-pipeline/pkg/models"
)

// LedgerReader defines the interface for reading the audit ledger.
type LedgerReader interface {
	// ListLedgerEntries retrieves the most recent audit ledger entries.
	ListLedgerEntries(ctx context.Context, limit int32) ([]models.LedgerEntry, error)
}
