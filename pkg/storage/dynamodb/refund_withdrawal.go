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

// RefundWithdrawal re-credits the gross amount to the account and marks the
// withdrawal FAILED. The refunded flag makes the refund at-most-once: a second
// invocation loses the condition and reports ErrAlreadyProcessed.
func (s *Store) RefundWithdrawal(ctx context.Context, txID string, allowed []models.TransactionStatus, description string) error {
	tx, err := s.GetTransaction(ctx, txID)
	if err != nil {
		return fmt.Errorf("failed to get transaction for refund: %w", err)
	}

	if tx.Refunded || !statusIn(tx.Status, allowed) {
		return storage.ErrAlreadyProcessed
	}

	account, err := s.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return fmt.Errorf("failed to get account for refund: %w", err)
	}

	now := s.Clock.Now()
	entry := models.LedgerEntry{
		EntryID:       uuid.New().String(),
		TransactionID: tx.Id,
		AccountID:     tx.AccountID,
		Credit:        tx.Amount,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance + tx.Amount,
		Description:   description,
		Timestamp:     now,
		GSI1PK:        models.LedgerPartition,
	}
	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	nowAV, err := attributevalue.Marshal(now)
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	failedAV, err := attributevalue.Marshal(models.FAILED)
	if err != nil {
		return fmt.Errorf("failed to marshal failed status: %w", err)
	}

	statusValues, statusList := statusConditionValues(allowed)

	txValues := map[string]types.AttributeValue{
		":failed_status": failedAV,
		":refunded":      &types.AttributeValueMemberBOOL{Value: true},
		":not_refunded":  &types.AttributeValueMemberBOOL{Value: false},
		":now":           nowAV,
	}
	for k, v := range statusValues {
		txValues[k] = v
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Re-credit the account.
				Update: &types.Update{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.AccountID}},
					UpdateExpression:    aws.String("SET balance = balance + :amount, lifetime_withdrawn = lifetime_withdrawn - :amount, version = version + :inc, updated_at = :now"),
					ConditionExpression: aws.String("version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", tx.Amount)},
						":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", account.Version)},
						":inc":     &types.AttributeValueMemberN{Value: "1"},
						":now":     nowAV,
					},
				},
			},
			{
				// Operation 2: Mark the withdrawal FAILED with the refund flag set.
				Update: &types.Update{
					TableName:           aws.String(s.TransactionsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.Id}},
					UpdateExpression:    aws.String("SET #status = :failed_status, refunded = :refunded, updated_at = :now"),
					ConditionExpression: aws.String(fmt.Sprintf("#status IN (%s) AND refunded = :not_refunded", statusList)),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: txValues,
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

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && len(tce.CancellationReasons) > 1 {
			if tce.CancellationReasons[1].Code != nil && *tce.CancellationReasons[1].Code == "ConditionalCheckFailed" {
				return storage.ErrAlreadyProcessed
			}
			if tce.CancellationReasons[0].Code != nil && *tce.CancellationReasons[0].Code == "ConditionalCheckFailed" {
				return storage.ErrLockConflict
			}
		}
		return fmt.Errorf("failed to execute refund: %w", err)
	}

	return nil
}

func statusIn(status models.TransactionStatus, allowed []models.TransactionStatus) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

// statusConditionValues builds the expression values and placeholder list for
// an IN condition over transaction statuses.
func statusConditionValues(statuses []models.TransactionStatus) (map[string]types.AttributeValue, string) {
	values := make(map[string]types.AttributeValue, len(statuses))
	list := ""
	for i, st := range statuses {
		name := fmt.Sprintf(":allowed%d", i)
		values[name] = &types.AttributeValueMemberS{Value: string(st)}
		if i > 0 {
			list += ", "
		}
		list += name
	}
	return values, list
}
