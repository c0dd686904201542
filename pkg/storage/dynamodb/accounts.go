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

// GetAccount retrieves an account from DynamoDB by its ID.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.AccountsTableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrAccountNotFound
	}

	var account models.Account
	if err := attributevalue.UnmarshalMap(result.Item, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

// CreditAccount adds amount to the account balance and appends the audit
// ledger entry in one atomic unit.
func (s *Store) CreditAccount(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error) {
	return s.mutateBalance(ctx, accountID, amount, false, txID, description)
}

// DebitAccount subtracts amount from the account balance, verifying
// sufficient funds, and appends the audit ledger entry in one atomic unit.
func (s *Store) DebitAccount(ctx context.Context, accountID string, amount int64, txID, description string) (*models.Account, error) {
	return s.mutateBalance(ctx, accountID, amount, true, txID, description)
}

// mutateBalance performs the conditional balance update. The version check is
// the row lock: a concurrent writer bumps the version and this write loses its
// condition, surfacing ErrLockConflict for the caller's bounded retry.
func (s *Store) mutateBalance(ctx context.Context, accountID string, amount int64, debit bool, txID, description string) (*models.Account, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if debit && account.Balance < amount {
		return nil, storage.ErrInsufficientFunds
	}

	now := s.Clock.Now()
	entry := models.LedgerEntry{
		EntryID:       uuid.New().String(),
		TransactionID: txID,
		AccountID:     accountID,
		BalanceBefore: account.Balance,
		Description:   description,
		Timestamp:     now,
		GSI1PK:        models.LedgerPartition,
	}
	update := "SET balance = balance + :amount, version = version + :inc, updated_at = :now"
	condition := "version = :version"
	if debit {
		entry.Debit = amount
		entry.BalanceAfter = account.Balance - amount
		update = "SET balance = balance - :amount, version = version + :inc, updated_at = :now"
		condition = "balance >= :amount AND version = :version"
	} else {
		entry.Credit = amount
		entry.BalanceAfter = account.Balance + amount
	}

	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: accountID}},
					UpdateExpression:    aws.String(update),
					ConditionExpression: aws.String(condition),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", amount)},
						":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", account.Version)},
						":inc":     &types.AttributeValueMemberN{Value: "1"},
						":now":     nowAV,
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(s.LedgerTableName),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if len(tce.CancellationReasons) > 0 && tce.CancellationReasons[0].Code != nil && *tce.CancellationReasons[0].Code == "ConditionalCheckFailed" {
				return nil, storage.ErrLockConflict
			}
		}
		return nil, fmt.Errorf("failed to execute balance mutation: %w", err)
	}

	updated := *account
	updated.Version++
	updated.UpdatedAt = now
	updated.Balance = entry.BalanceAfter

	return &updated, nil
}
