package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// MarkProcessing transitions a PENDING or PROCESSING withdrawal to PROCESSING
// and records the settlement handle. It is idempotent for the same handle: a
// retry after a crash finds the handle already set and succeeds without
// changing anything. A row carrying a different handle loses the condition.
func (s *Store) MarkProcessing(ctx context.Context, txID, externalRef string, feeRateOffered int64) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.TransactionsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: txID}},
		UpdateExpression:    aws.String("SET #status = :processing, external_ref = :ref, fee_rate_offered = :rate, updated_at = :now"),
		ConditionExpression: aws.String("#status IN (:pending, :processing) AND (attribute_not_exists(external_ref) OR external_ref = :ref)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":    &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":processing": &types.AttributeValueMemberS{Value: string(models.PROCESSING)},
			":ref":        &types.AttributeValueMemberS{Value: externalRef},
			":rate":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", feeRateOffered)},
			":now":        nowAV,
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return storage.ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to mark transaction processing: %w", err)
	}

	return nil
}

// ConfirmWithdrawal transitions a PROCESSING withdrawal to CONFIRMED.
func (s *Store) ConfirmWithdrawal(ctx context.Context, txID string) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.TransactionsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: txID}},
		UpdateExpression:    aws.String("SET #status = :confirmed, updated_at = :now"),
		ConditionExpression: aws.String("#status = :processing"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":confirmed":  &types.AttributeValueMemberS{Value: string(models.CONFIRMED)},
			":processing": &types.AttributeValueMemberS{Value: string(models.PROCESSING)},
			":now":        nowAV,
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return storage.ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to confirm transaction: %w", err)
	}

	return nil
}

// FreezeAccountWithdrawals moves the account's PENDING and PROCESSING
// withdrawals to FROZEN. No refund happens at freeze time; a later
// termination event refunds and converts to FAILED.
func (s *Store) FreezeAccountWithdrawals(ctx context.Context, accountID string) (int, error) {
	inFlight, err := s.listAccountWithdrawals(ctx, accountID, []models.TransactionStatus{models.PENDING, models.PROCESSING})
	if err != nil {
		return 0, err
	}

	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	frozen := 0
	for _, tx := range inFlight {
		input := &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.TransactionsTableName),
			Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.Id}},
			UpdateExpression:    aws.String("SET #status = :frozen, updated_at = :now"),
			ConditionExpression: aws.String("#status IN (:pending, :processing)"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":frozen":     &types.AttributeValueMemberS{Value: string(models.FROZEN)},
				":pending":    &types.AttributeValueMemberS{Value: string(models.PENDING)},
				":processing": &types.AttributeValueMemberS{Value: string(models.PROCESSING)},
				":now":        nowAV,
			},
		}
		if _, err := s.Client.UpdateItem(ctx, input); err != nil {
			var condFailed *types.ConditionalCheckFailedException
			if errors.As(err, &condFailed) {
				// The row moved concurrently; nothing left to freeze.
				continue
			}
			return frozen, fmt.Errorf("failed to freeze transaction %s: %w", tx.Id, err)
		}
		frozen++
	}

	return frozen, nil
}
