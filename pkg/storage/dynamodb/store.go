package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/openvest/payout-pipeline/pkg/clock"
	"github.com/openvest/payout-pipeline/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses. Keeping it
// as an interface lets the per-operation tests mock the client.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                DynamoDBAPI
	Clock                 clock.Clock
	AccountsTableName     string
	TransactionsTableName string
	RetriesTableName      string
	EscrowsTableName      string
	LedgerTableName       string
}

// Tables names the DynamoDB tables backing the store.
type Tables struct {
	Accounts     string
	Transactions string
	Retries      string
	Escrows      string
	Ledger       string
}

// New creates a new Store.
func New(client DynamoDBAPI, clk clock.Clock, tables Tables) *Store {
	return &Store{
		Client:                client,
		Clock:                 clk,
		AccountsTableName:     tables.Accounts,
		TransactionsTableName: tables.Transactions,
		RetriesTableName:      tables.Retries,
		EscrowsTableName:      tables.Escrows,
		LedgerTableName:       tables.Ledger,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// Secondary index names.
const (
	accountTransactionsGSI = "account_id-created_at-index"
	statusUpdatedGSI       = "status-updated_at-index"
	createdDateGSI         = "created_date-index"
	retryScheduleGSI       = "retry_state-next_attempt_at-index"
	retryUnitSetGSI        = "unit_set_key-index"
	escrowStatusGSI        = "status-created_at-index"
	ledgerGSI              = "gsi1pk-timestamp-index"
)
