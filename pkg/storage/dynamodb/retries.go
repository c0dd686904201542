package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// UpsertRetryFailure records a settlement failure idempotently: a duplicate
// failure for the same settlement-unit set updates the existing unresolved
// record instead of creating a second one.
func (s *Store) UpsertRetryFailure(ctx context.Context, rec *models.RetryRecord) (*models.RetryRecord, error) {
	existing, err := s.findUnresolvedByUnitSet(ctx, rec.UnitSetKey)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()

	if existing != nil {
		update := "SET amount = :amount, last_error = :err, updated_at = :now"
		values := map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.Amount)},
			":err":    &types.AttributeValueMemberS{Value: rec.LastError},
		}
		nowAV, err := attributevalue.Marshal(now)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
		}
		values[":now"] = nowAV
		if rec.ExternalRef != nil {
			update += ", external_ref = :ref"
			values[":ref"] = &types.AttributeValueMemberS{Value: *rec.ExternalRef}
		}

		if _, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.RetriesTableName),
			Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: existing.Id}},
			UpdateExpression:          aws.String(update),
			ExpressionAttributeValues: values,
		}); err != nil {
			return nil, fmt.Errorf("failed to update existing retry record: %w", err)
		}

		existing.Amount = rec.Amount
		existing.LastError = rec.LastError
		if rec.ExternalRef != nil {
			existing.ExternalRef = rec.ExternalRef
		}
		existing.UpdatedAt = now
		return existing, nil
	}

	rec.Id = uuid.New().String()
	rec.AttemptCount = 0
	rec.InDeadLetter = false
	rec.Resolved = false
	rec.State = models.RetryLive
	rec.CreatedAt = now
	rec.UpdatedAt = now

	recAV, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retry record: %w", err)
	}

	if _, err := s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.RetriesTableName),
		Item:                recAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}); err != nil {
		return nil, fmt.Errorf("failed to create retry record: %w", err)
	}

	return rec, nil
}

// findUnresolvedByUnitSet queries the unit-set index for a live or
// dead-letter record covering the same settlement units.
func (s *Store) findUnresolvedByUnitSet(ctx context.Context, unitSetKey string) (*models.RetryRecord, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.RetriesTableName),
		IndexName:              aws.String(retryUnitSetGSI),
		KeyConditionExpression: aws.String("unit_set_key = :key"),
		FilterExpression:       aws.String("resolved = :unresolved"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key":        &types.AttributeValueMemberS{Value: unitSetKey},
			":unresolved": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query retry records by unit set: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var rec models.RetryRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry record: %w", err)
	}
	return &rec, nil
}

// GetRetry retrieves a retry record by its ID.
func (s *Store) GetRetry(ctx context.Context, retryID string) (*models.RetryRecord, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": retryID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retry ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.RetriesTableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get retry record from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrRetryNotFound
	}

	var rec models.RetryRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry record: %w", err)
	}
	return &rec, nil
}

// DueRetries retrieves live records whose next_attempt_at has passed.
func (s *Store) DueRetries(ctx context.Context, now time.Time, limit int32) ([]models.RetryRecord, error) {
	nowStr, err := now.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal time: %w", err)
	}

	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.RetriesTableName),
		IndexName:              aws.String(retryScheduleGSI),
		KeyConditionExpression: aws.String("retry_state = :live AND next_attempt_at <= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":live": &types.AttributeValueMemberS{Value: string(models.RetryLive)},
			":now":  &types.AttributeValueMemberS{Value: string(nowStr)},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query due retry records: %w", err)
	}

	var records []models.RetryRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry records: %w", err)
	}
	return records, nil
}

// ClaimRetry takes the processing lease on a record so that no two workers
// attempt the same settlement-unit set concurrently.
func (s *Store) ClaimRetry(ctx context.Context, retryID, owner string, until time.Time) error {
	now := s.Clock.Now()
	nowStr, err := now.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to marshal time: %w", err)
	}
	untilAV, err := attributevalue.Marshal(until)
	if err != nil {
		return fmt.Errorf("failed to marshal lease expiry: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.RetriesTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression:    aws.String("SET lease_owner = :owner, lease_expires_at = :until"),
		ConditionExpression: aws.String("retry_state = :live AND (attribute_not_exists(lease_owner) OR lease_expires_at < :now OR lease_owner = :owner)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
			":until": untilAV,
			":now":   &types.AttributeValueMemberS{Value: string(nowStr)},
			":live":  &types.AttributeValueMemberS{Value: string(models.RetryLive)},
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return storage.ErrRetryClaimed
		}
		return fmt.Errorf("failed to claim retry record: %w", err)
	}
	return nil
}

// IncrementRetryAttempt bumps attempt_count and returns the updated record.
func (s *Store) IncrementRetryAttempt(ctx context.Context, retryID string) (*models.RetryRecord, error) {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	result, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.RetriesTableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression: aws.String("SET attempt_count = attempt_count + :one, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": nowAV,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment retry attempt: %w", err)
	}

	var rec models.RetryRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry record: %w", err)
	}
	return &rec, nil
}

// SaveRetryHandle records the settlement handle produced by a send attempt.
func (s *Store) SaveRetryHandle(ctx context.Context, retryID, externalRef string) error {
	if _, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.RetriesTableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression: aws.String("SET external_ref = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ref": &types.AttributeValueMemberS{Value: externalRef},
		},
	}); err != nil {
		return fmt.Errorf("failed to save retry handle: %w", err)
	}
	return nil
}

// ResolveRetry marks the record resolved and releases the lease.
func (s *Store) ResolveRetry(ctx context.Context, retryID, externalRef string) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	if _, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.RetriesTableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression: aws.String("SET resolved = :resolved, retry_state = :state, external_ref = :ref, updated_at = :now REMOVE lease_owner, lease_expires_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":resolved": &types.AttributeValueMemberBOOL{Value: true},
			":state":    &types.AttributeValueMemberS{Value: string(models.RetryResolved)},
			":ref":      &types.AttributeValueMemberS{Value: externalRef},
			":now":      nowAV,
		},
	}); err != nil {
		return fmt.Errorf("failed to resolve retry record: %w", err)
	}
	return nil
}

// ScheduleRetry sets the next attempt time, records the error and releases
// the lease.
func (s *Store) ScheduleRetry(ctx context.Context, retryID string, next time.Time, lastError string) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	nextAV, err := attributevalue.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal next attempt time: %w", err)
	}

	if _, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.RetriesTableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression: aws.String("SET next_attempt_at = :next, last_error = :err, updated_at = :now REMOVE lease_owner, lease_expires_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next": nextAV,
			":err":  &types.AttributeValueMemberS{Value: lastError},
			":now":  nowAV,
		},
	}); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}

// MoveRetryToDeadLetter parks the record for manual intervention. The state
// change takes it out of the live partition of the schedule index.
func (s *Store) MoveRetryToDeadLetter(ctx context.Context, retryID, lastError string) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	if _, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.RetriesTableName),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression: aws.String("SET in_dead_letter = :dead, retry_state = :state, last_error = :err, updated_at = :now REMOVE lease_owner, lease_expires_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dead":  &types.AttributeValueMemberBOOL{Value: true},
			":state": &types.AttributeValueMemberS{Value: string(models.RetryDeadLetter)},
			":err":   &types.AttributeValueMemberS{Value: lastError},
			":now":   nowAV,
		},
	}); err != nil {
		return fmt.Errorf("failed to move retry to dead letter: %w", err)
	}
	return nil
}

// RedriveRetry resets a dead-letter record for re-processing. The re-driven
// record re-enters the same execution path as automatic retries.
func (s *Store) RedriveRetry(ctx context.Context, retryID string, next time.Time) error {
	nowAV, err := attributevalue.Marshal(s.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	nextAV, err := attributevalue.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal next attempt time: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.RetriesTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: retryID}},
		UpdateExpression:    aws.String("SET in_dead_letter = :live_flag, retry_state = :state, attempt_count = :zero, next_attempt_at = :next, updated_at = :now"),
		ConditionExpression: aws.String("in_dead_letter = :dead AND resolved = :unresolved"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":live_flag":  &types.AttributeValueMemberBOOL{Value: false},
			":state":      &types.AttributeValueMemberS{Value: string(models.RetryLive)},
			":zero":       &types.AttributeValueMemberN{Value: "0"},
			":next":       nextAV,
			":now":        nowAV,
			":dead":       &types.AttributeValueMemberBOOL{Value: true},
			":unresolved": &types.AttributeValueMemberBOOL{Value: false},
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return storage.ErrNotInDeadLetter
		}
		return fmt.Errorf("failed to redrive retry record: %w", err)
	}
	return nil
}

// ListDeadLetter retrieves records parked in the dead letter.
func (s *Store) ListDeadLetter(ctx context.Context) ([]models.RetryRecord, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.RetriesTableName),
		IndexName:              aws.String(retryScheduleGSI),
		KeyConditionExpression: aws.String("retry_state = :dead"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dead": &types.AttributeValueMemberS{Value: string(models.RetryDeadLetter)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query dead-letter records: %w", err)
	}

	var records []models.RetryRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead-letter records: %w", err)
	}
	return records, nil
}
