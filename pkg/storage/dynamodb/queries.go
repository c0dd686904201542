package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// GetTransaction retrieves a withdrawal from DynamoDB by its ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": txID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrTransactionNotFound
	}

	var tx models.Transaction
	if err := attributevalue.UnmarshalMap(result.Item, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	return &tx, nil
}

// ListTransactionsByAccount retrieves all withdrawals for an account.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.listAccountWithdrawals(ctx, accountID, nil)
}

// ListPendingWithdrawals retrieves the account's PENDING withdrawals.
func (s *Store) ListPendingWithdrawals(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.listAccountWithdrawals(ctx, accountID, []models.TransactionStatus{models.PENDING})
}

// listAccountWithdrawals queries the account index, optionally filtered to a
// status set.
func (s *Store) listAccountWithdrawals(ctx context.Context, accountID string, statuses []models.TransactionStatus) ([]models.Transaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(accountTransactionsGSI),
		KeyConditionExpression: aws.String("account_id = :accountID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":accountID": &types.AttributeValueMemberS{Value: accountID},
		},
	}

	if len(statuses) > 0 {
		values, list := statusConditionValues(statuses)
		for k, v := range values {
			input.ExpressionAttributeValues[k] = v
		}
		input.FilterExpression = aws.String(fmt.Sprintf("#status IN (%s)", list))
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for account: %w", err)
	}

	var transactions []models.Transaction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}

	return transactions, nil
}

// StuckWithdrawals retrieves PROCESSING withdrawals with a settlement handle
// whose last update is older than maxAge.
func (s *Store) StuckWithdrawals(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	cutoff := s.Clock.Now().Add(-maxAge)
	cutoffStr, err := cutoff.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(statusUpdatedGSI),
		KeyConditionExpression: aws.String("#status = :status AND updated_at < :cutoff"),
		FilterExpression:       aws.String("attribute_exists(external_ref)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.PROCESSING)},
			":cutoff": &types.AttributeValueMemberS{Value: string(cutoffStr)},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck transactions: %w", err)
	}

	var transactions []models.Transaction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stuck transactions: %w", err)
	}

	return transactions, nil
}

// PendingWithdrawalsTotal sums the account's in-flight withdrawal amounts.
func (s *Store) PendingWithdrawalsTotal(ctx context.Context, accountID string) (int64, error) {
	inFlight, err := s.listAccountWithdrawals(ctx, accountID, []models.TransactionStatus{models.PENDING, models.PROCESSING})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, tx := range inFlight {
		total += tx.Amount
	}
	return total, nil
}

// TotalWithdrawnToday sums today's platform-wide withdrawal amounts across
// all rows that still count against the daily cap.
func (s *Store) TotalWithdrawnToday(ctx context.Context) (int64, error) {
	today := s.Clock.Now().Format("2006-01-02")

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(createdDateGSI),
		KeyConditionExpression: aws.String("created_date = :today"),
		FilterExpression:       aws.String("#status IN (:pending, :processing, :confirmed)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":today":      &types.AttributeValueMemberS{Value: today},
			":pending":    &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":processing": &types.AttributeValueMemberS{Value: string(models.PROCESSING)},
			":confirmed":  &types.AttributeValueMemberS{Value: string(models.CONFIRMED)},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to query today's withdrawals: %w", err)
	}

	var transactions []models.Transaction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &transactions); err != nil {
		return 0, fmt.Errorf("failed to unmarshal today's withdrawals: %w", err)
	}

	var total int64
	for _, tx := range transactions {
		total += tx.Amount
	}
	return total, nil
}
