package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/openvest/payout-pipeline/pkg/clock"
	appconfig "github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/reconciler"
	dydbstore "github.com/openvest/payout-pipeline/pkg/storage/dynamodb"
)

var rec *reconciler.Reconciler
var snap *appconfig.Snapshot

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var err error
	snap, err = appconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

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
	rec = &reconciler.Reconciler{
		Store:   dydbstore.New(dbClient, clk, tables),
		Gateway: gateway.NewHTTPGateway(gatewayURL, os.Getenv("PAYMENT_GATEWAY_API_KEY")),
		Clock:   clk,
		Logger:  logger,
		Metrics: metrics.NewMetrics(),
	}
}

// HandleRequest is triggered by an EventBridge Schedule and reconciles stuck
// PROCESSING withdrawals against the external ledger.
func HandleRequest(ctx context.Context) error {
	_, err := rec.Sweep(ctx, snap)
	return err
}

func main() {
	lambda.Start(HandleRequest)
}
