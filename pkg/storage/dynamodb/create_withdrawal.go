package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// CreateWithdrawal atomically debits the account for the gross amount and
// creates the withdrawal row. The caller decides the initial status (PENDING
// or PROCESSING); the store fills in ids, balance snapshots and timestamps.
func (s *Store) CreateWithdrawal(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	// 1. Get the current state of the account.
	account, err := s.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	// The validator already checked the balance; a shortfall here means the
	// balance moved since, which is a plain rejection, not a lock conflict.
	if account.Balance < tx.Amount {
		return nil, storage.ErrInsufficientFunds
	}

	// 2. Complete the transaction object with server-side details.
	now := s.Clock.Now()
	tx.Id = uuid.New().String()
	tx.BalanceBefore = account.Balance
	tx.BalanceAfter = account.Balance - tx.Amount
	tx.CreatedAt = now
	tx.CreatedDate = now.Format("2006-01-02")
	tx.UpdatedAt = now

	txAV, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	entry := models.LedgerEntry{
		EntryID:       uuid.New().String(),
		TransactionID: tx.Id,
		AccountID:     tx.AccountID,
		Debit:         tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Description:   fmt.Sprintf("Withdrawal request %s", tx.Id),
		Timestamp:     now,
		GSI1PK:        models.LedgerPartition,
	}
	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	// 3. Construct the TransactWriteItems input. The version condition is the
	// non-blocking lock acquisition: it aborts instead of waiting.
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Debit the account.
				Update: &types.Update{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.AccountID}},
					UpdateExpression:    aws.String("SET balance = balance - :amount, lifetime_withdrawn = lifetime_withdrawn + :amount, version = version + :inc, updated_at = :now"),
					ConditionExpression: aws.String("balance >= :amount AND version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", tx.Amount)},
						":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", account.Version)},
						":inc":     &types.AttributeValueMemberN{Value: "1"},
						":now":     nowAV,
					},
				},
			},
			{
				// Operation 2: Create the withdrawal row.
				Put: &types.Put{
					TableName:           aws.String(s.TransactionsTableName),
					Item:                txAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				// Operation 3: Append the audit ledger entry.
				Put: &types.Put{
					TableName:           aws.String(s.LedgerTableName),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
		},
	}

	// 4. Execute the transaction.
	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if len(tce.CancellationReasons) > 0 && tce.CancellationReasons[0].Code != nil && *tce.CancellationReasons[0].Code == "ConditionalCheckFailed" {
				return nil, storage.ErrLockConflict
			}
		}
		return nil, fmt.Errorf("failed to execute withdrawal creation: %w", err)
	}

	return tx, nil
}
