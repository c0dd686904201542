package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
	"github.com/openvest/payout-pipeline/pkg/storage/dynamodb/mocks"
)

func TestUpsertRetryFailure(t *testing.T) {
	newRec := func() *models.RetryRecord {
		return &models.RetryRecord{
			AccountID:          "acct-1",
			UnitIDs:            []string{"tx-1"},
			UnitSetKey:         "tx-1",
			Amount:             3920,
			DestinationAddress: "dest-1",
			MaxRetries:         5,
			NextAttemptAt:      testNow.Add(time.Minute),
			LastError:          "network down",
		}
	}

	t.Run("Creates New Record", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)
		mockClient.On("PutItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.PutItemOutput{}, nil)

		saved, err := store.UpsertRetryFailure(context.Background(), newRec())

		assert.NoError(t, err)
		assert.NotEmpty(t, saved.Id)
		assert.Equal(t, 0, saved.AttemptCount)
		assert.Equal(t, models.RetryLive, saved.State)
		mockClient.AssertExpectations(t)
	})

	t.Run("Updates Existing Unresolved Record", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		existing := models.RetryRecord{
			Id: "retry-1", UnitSetKey: "tx-1", AttemptCount: 2, State: models.RetryLive,
		}
		existingAV, _ := attributevalue.MarshalListOfMaps([]models.RetryRecord{existing})
		mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: existingAV}, nil)
		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)

		saved, err := store.UpsertRetryFailure(context.Background(), newRec())

		assert.NoError(t, err)
		assert.Equal(t, "retry-1", saved.Id)
		assert.Equal(t, 2, saved.AttemptCount)
		assert.Equal(t, "network down", saved.LastError)
		mockClient.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
	})
}

func TestClaimRetry(t *testing.T) {
	t.Run("Takes The Lease", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)

		err := store.ClaimRetry(context.Background(), "retry-1", "worker-1", testNow.Add(5*time.Minute))

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Held By Another Worker", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		err := store.ClaimRetry(context.Background(), "retry-1", "worker-2", testNow.Add(5*time.Minute))

		assert.ErrorIs(t, err, storage.ErrRetryClaimed)
	})
}

func TestDueRetries(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := testStore(mockClient)

	due, _ := attributevalue.MarshalListOfMaps([]models.RetryRecord{
		{Id: "retry-1", State: models.RetryLive, NextAttemptAt: testNow.Add(-time.Minute)},
	})
	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: due}, nil)

	records, err := store.DueRetries(context.Background(), testNow, 25)

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "retry-1", records[0].Id)
}

func TestRedriveRetry(t *testing.T) {
	t.Run("Resets Dead-Letter Record", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.UpdateItemOutput{}, nil)

		err := store.RedriveRetry(context.Background(), "retry-1", testNow)

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Record Not In Dead Letter", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		err := store.RedriveRetry(context.Background(), "retry-1", testNow)

		assert.ErrorIs(t, err, storage.ErrNotInDeadLetter)
	})
}

func TestGetRetry(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		rec := models.RetryRecord{Id: "retry-1", State: models.RetryLive}
		recAV, _ := attributevalue.MarshalMap(&rec)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: recAV}, nil)

		got, err := store.GetRetry(context.Background(), "retry-1")

		assert.NoError(t, err)
		assert.Equal(t, "retry-1", got.Id)
	})

	t.Run("Missing", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

		_, err := store.GetRetry(context.Background(), "retry-unknown")

		assert.ErrorIs(t, err, storage.ErrRetryNotFound)
	})
}
