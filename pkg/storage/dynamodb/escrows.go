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

// CreateEscrow records a pending two-admin action.
func (s *Store) CreateEscrow(ctx context.Context, action *models.EscrowAction) (*models.EscrowAction, error) {
	now := s.Clock.Now()
	action.Id = uuid.New().String()
	action.Status = models.EscrowPending
	action.CreatedAt = now

	actionAV, err := attributevalue.MarshalMap(action)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal escrow action: %w", err)
	}

	if _, err := s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.EscrowsTableName),
		Item:                actionAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}); err != nil {
		return nil, fmt.Errorf("failed to create escrow action: %w", err)
	}

	return action, nil
}

// GetEscrow retrieves an escrow action by its ID.
func (s *Store) GetEscrow(ctx context.Context, escrowID string) (*models.EscrowAction, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": escrowID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal escrow ID: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.EscrowsTableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow action from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrEscrowNotFound
	}

	var action models.EscrowAction
	if err := attributevalue.UnmarshalMap(result.Item, &action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escrow action: %w", err)
	}
	return &action, nil
}

// ApproveEscrow records the second admin's sign-off. The approver must be a
// different admin than the initiator, and the action must still be pending.
func (s *Store) ApproveEscrow(ctx context.Context, escrowID, approverID string) (*models.EscrowAction, error) {
	action, err := s.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if action.InitiatorAdminID == approverID {
		return nil, storage.ErrEscrowSelfApproval
	}

	return s.transitionEscrow(ctx, escrowID, models.EscrowApproved, &approverID)
}

// RejectEscrow closes a pending escrow action without executing it.
func (s *Store) RejectEscrow(ctx context.Context, escrowID, adminID string) (*models.EscrowAction, error) {
	return s.transitionEscrow(ctx, escrowID, models.EscrowRejected, &adminID)
}

func (s *Store) transitionEscrow(ctx context.Context, escrowID string, status models.EscrowStatus, adminID *string) (*models.EscrowAction, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.EscrowsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: escrowID}},
		UpdateExpression:    aws.String("SET #status = :new, approver_admin_id = :admin"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":     &types.AttributeValueMemberS{Value: string(status)},
			":admin":   &types.AttributeValueMemberS{Value: *adminID},
			":pending": &types.AttributeValueMemberS{Value: string(models.EscrowPending)},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil, storage.ErrEscrowNotPending
		}
		return nil, fmt.Errorf("failed to transition escrow action: %w", err)
	}

	var action models.EscrowAction
	if err := attributevalue.UnmarshalMap(result.Attributes, &action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escrow action: %w", err)
	}
	return &action, nil
}

// ListPendingEscrows retrieves escrow actions awaiting a second admin.
func (s *Store) ListPendingEscrows(ctx context.Context) ([]models.EscrowAction, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.EscrowsTableName),
		IndexName:              aws.String(escrowStatusGSI),
		KeyConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(models.EscrowPending)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending escrow actions: %w", err)
	}

	var actions []models.EscrowAction
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escrow actions: %w", err)
	}
	return actions, nil
}
