package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/storage"
	"github.com/openvest/payout-pipeline/pkg/storage/dynamodb/mocks"
)

func TestRefundWithdrawal(t *testing.T) {
	account := &models.Account{ID: "acct-1", Balance: 6000, Version: 4}
	pendingTx := &models.Transaction{
		Id: "tx-1", AccountID: "acct-1", Amount: 4000, Fee: 80, Status: models.PENDING,
	}
	allowed := []models.TransactionStatus{models.PENDING}

	mockReads := func(mockClient *mocks.DynamoDBAPI, tx *models.Transaction) {
		txAV, _ := attributevalue.MarshalMap(tx)
		accountAV, _ := attributevalue.MarshalMap(account)
		// First read is the transaction, second the account.
		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.GetItemOutput{Item: txAV}, nil)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Once().Return(&dynamodb.GetItemOutput{Item: accountAV}, nil)
	}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockReads(mockClient, pendingTx)
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Once().Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		err := store.RefundWithdrawal(context.Background(), "tx-1", allowed, "refund: withdrawal rejected")

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Already Refunded", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		refunded := *pendingTx
		refunded.Refunded = true
		refunded.Status = models.FAILED
		refundedAV, _ := attributevalue.MarshalMap(&refunded)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: refundedAV}, nil)

		err := store.RefundWithdrawal(context.Background(), "tx-1", allowed, "refund: withdrawal rejected")

		assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})

	t.Run("Status Not Allowed", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		confirmed := *pendingTx
		confirmed.Status = models.CONFIRMED
		confirmedAV, _ := attributevalue.MarshalMap(&confirmed)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: confirmedAV}, nil)

		err := store.RefundWithdrawal(context.Background(), "tx-1", allowed, "refund: withdrawal rejected")

		assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)
	})

	t.Run("Lost Race On Transaction Row", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockReads(mockClient, pendingTx)
		cancellationReasons := []types.CancellationReason{
			{},
			{Code: aws.String("ConditionalCheckFailed")},
			{},
		}
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{CancellationReasons: cancellationReasons})

		err := store.RefundWithdrawal(context.Background(), "tx-1", allowed, "refund: withdrawal rejected")

		assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)
	})

	t.Run("Lost Race On Account Version", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := testStore(mockClient)

		mockReads(mockClient, pendingTx)
		cancellationReasons := []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{},
			{},
		}
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{CancellationReasons: cancellationReasons})

		err := store.RefundWithdrawal(context.Background(), "tx-1", allowed, "refund: withdrawal rejected")

		assert.ErrorIs(t, err, storage.ErrLockConflict)
	})
}
