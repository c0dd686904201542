package mapping

import (
	"github.com/google/uuid"

	"github.com/openvest/payout-pipeline/pkg/api"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/withdrawal"
)

// ToApiWithdrawal converts a domain Transaction model to an API Withdrawal model.
func ToApiWithdrawal(tx *models.Transaction) *api.Withdrawal {
	id, _ := uuid.Parse(tx.Id)
	return &api.Withdrawal{
		Id:                 id,
		AccountId:          tx.AccountID,
		Amount:             tx.Amount,
		Fee:                tx.Fee,
		NetAmount:          tx.NetAmount(),
		Status:             string(tx.Status),
		ExternalRef:        tx.ExternalRef,
		DestinationAddress: tx.DestinationAddress,
		Refunded:           tx.Refunded,
		CreatedAt:          tx.CreatedAt,
		UpdatedAt:          tx.UpdatedAt,
	}
}

// ToApiWithdrawals converts a slice of domain Transactions.
func ToApiWithdrawals(txs []models.Transaction) []api.Withdrawal {
	out := make([]api.Withdrawal, 0, len(txs))
	for i := range txs {
		out = append(out, *ToApiWithdrawal(&txs[i]))
	}
	return out
}

// ToApiRejection converts a domain Rejection to its API model.
func ToApiRejection(rej *withdrawal.Rejection) *api.Rejection {
	return &api.Rejection{
		Code:      string(rej.Code),
		Message:   rej.Message,
		Retryable: rej.Retryable,
	}
}

// ToApiEscrow converts a domain EscrowAction to its API model.
func ToApiEscrow(action *models.EscrowAction) *api.Escrow {
	id, _ := uuid.Parse(action.Id)
	txID, _ := uuid.Parse(action.TransactionID)
	return &api.Escrow{
		Id:               id,
		InitiatorAdminId: action.InitiatorAdminID,
		ApproverAdminId:  action.ApproverAdminID,
		OperationType:    action.OperationType,
		TransactionId:    txID,
		Amount:           action.Amount,
		Status:           string(action.Status),
		CreatedAt:        action.CreatedAt,
		ExpiresAt:        action.ExpiresAt,
	}
}

// ToApiEscrows converts a slice of domain EscrowActions.
func ToApiEscrows(actions []models.EscrowAction) []api.Escrow {
	out := make([]api.Escrow, 0, len(actions))
	for i := range actions {
		out = append(out, *ToApiEscrow(&actions[i]))
	}
	return out
}

// ToApiRetryRecord converts a domain RetryRecord to its API model.
func ToApiRetryRecord(rec *models.RetryRecord) *api.RetryRecord {
	id, _ := uuid.Parse(rec.Id)
	return &api.RetryRecord{
		Id:            id,
		AccountId:     rec.AccountID,
		UnitIds:       rec.UnitIDs,
		Amount:        rec.Amount,
		AttemptCount:  rec.AttemptCount,
		MaxRetries:    rec.MaxRetries,
		LastError:     rec.LastError,
		ExternalRef:   rec.ExternalRef,
		InDeadLetter:  rec.InDeadLetter,
		Resolved:      rec.Resolved,
		NextAttemptAt: rec.NextAttemptAt,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// ToApiRetryRecords converts a slice of domain RetryRecords.
func ToApiRetryRecords(records []models.RetryRecord) []api.RetryRecord {
	out := make([]api.RetryRecord, 0, len(records))
	for i := range records {
		out = append(out, *ToApiRetryRecord(&records[i]))
	}
	return out
}

// ToApiLedgerEntry converts a domain LedgerEntry to its API model.
func ToApiLedgerEntry(entry *models.LedgerEntry) *api.LedgerEntry {
	return &api.LedgerEntry{
		EntryId:       entry.EntryID,
		TransactionId: entry.TransactionID,
		AccountId:     entry.AccountID,
		Debit:         entry.Debit,
		Credit:        entry.Credit,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Description:   entry.Description,
		Timestamp:     entry.Timestamp,
	}
}

// ToApiLedgerEntries converts a slice of domain LedgerEntries.
func ToApiLedgerEntries(entries []models.LedgerEntry) []api.LedgerEntry {
	out := make([]api.LedgerEntry, 0, len(entries))
	for i := range entries {
		out = append(out, *ToApiLedgerEntry(&entries[i]))
	}
	return out
}
