package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/openvest/payout-pipeline/pkg/clock"
	appconfig "github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/retry"
	"github.com/openvest/payout-pipeline/pkg/scheduler"
	dydbstore "github.com/openvest/payout-pipeline/pkg/storage/dynamodb"
)

var engine *retry.Engine
var snap *appconfig.Snapshot

func init() {
	// Load environment variables from .env file (useful for local testing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var err error
	snap, err = appconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Initialize dependencies once.
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := dynamodb.NewFromConfig(cfg)
	tables := dydbstore.Tables{
		Accounts:     os.Getenv("DYNAMODB_ACCOUNTS_TABLE_NAME"),
		Transactions: os.Getenv("DYNAMODB_TRANSACTIONS_TABLE_NAME"),
		Retries:      os.Getenv("DYNAMODB_RETRIES_TABLE_NAME"),
		Escrows:      os.Getenv("DYNAMODB_ESCROWS_TABLE_NAME"),
		Ledger:       os.Getenv("DYNAMODB_LEDGER_TABLE_NAME"),
	}
	if tables.Accounts == "" || tables.Transactions == "" || tables.Retries == "" ||
		tables.Escrows == "" || tables.Ledger == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}

	gatewayURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if gatewayURL == "" {
		log.Fatal("PAYMENT_GATEWAY_URL environment variable not set")
	}

	clk := clock.RealClock{}
	engine = &retry.Engine{
		Store:    dydbstore.New(dbClient, clk, tables),
		Gateway:  gateway.NewHTTPGateway(gatewayURL, os.Getenv("PAYMENT_GATEWAY_API_KEY")),
		Clock:    clk,
		Logger:   logger,
		Metrics:  metrics.NewMetrics(),
		WorkerID: "settlement_worker",
	}
}

// HandleRequest processes SQS settlement jobs.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		var job scheduler.SettlementJob
		if err := json.Unmarshal([]byte(message.Body), &job); err != nil {
			// Returning an error lets SQS retry the message.
			log.Printf("ERROR: failed to unmarshal settlement job from SQS message %s: %v", message.MessageId, err)
			return err
		}

		if err := engine.SettleWithdrawal(ctx, snap, job.TransactionID); err != nil {
			log.Printf("ERROR: failed to settle withdrawal %s: %v", job.TransactionID, err)
			return err
		}
	}

	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
