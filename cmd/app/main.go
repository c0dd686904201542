package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openvest/payout-pipeline/pkg/api"
	"github.com/openvest/payout-pipeline/pkg/balance"
	"github.com/openvest/payout-pipeline/pkg/clock"
	appconfig "github.com/openvest/payout-pipeline/pkg/config"
	"github.com/openvest/payout-pipeline/pkg/gateway"
	"github.com/openvest/payout-pipeline/pkg/handlers"
	"github.com/openvest/payout-pipeline/pkg/metrics"
	"github.com/openvest/payout-pipeline/pkg/middleware"
	"github.com/openvest/payout-pipeline/pkg/retry"
	"github.com/openvest/payout-pipeline/pkg/risk"
	"github.com/openvest/payout-pipeline/pkg/scheduler"
	"github.com/openvest/payout-pipeline/pkg/withdrawal"
	dydbstore "github.com/openvest/payout-pipeline/pkg/storage/dynamodb"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	snap, err := appconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// AWS Session
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

	// SQS Client and Scheduler
	sqsClient := sqs.NewFromConfig(cfg)
	sqsQueueURL := os.Getenv("SQS_QUEUE_URL")
	if sqsQueueURL == "" {
		log.Fatal("SQS_QUEUE_URL environment variable not set")
	}
	sqsScheduler := scheduler.NewSQSScheduler(sqsClient, sqsQueueURL)

	gatewayURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if gatewayURL == "" {
		log.Fatal("PAYMENT_GATEWAY_URL environment variable not set")
	}
	paymentGateway := gateway.NewHTTPGateway(gatewayURL, os.Getenv("PAYMENT_GATEWAY_API_KEY"))

	riskURL := os.Getenv("RISK_SERVICE_URL")
	if riskURL == "" {
		log.Fatal("RISK_SERVICE_URL environment variable not set")
	}
	riskClient := risk.NewClient(riskURL, snap.GatewayTimeout)

	clk := clock.RealClock{}
	store := dydbstore.New(dbClient, clk, tables)
	m := metrics.NewMetrics()

	validator := &withdrawal.Validator{
		Accounts:     store,
		Transactions: store,
		Fraud:        riskClient,
		Recovery:     riskClient,
		Logger:       logger,
		Metrics:      m,
	}
	requestHandler := &withdrawal.RequestHandler{
		Store:     store,
		Validator: validator,
		Scheduler: sqsScheduler,
		Clock:     clk,
		Logger:    logger,
		Metrics:   m,
	}
	lifecycle := &withdrawal.LifecycleHandler{
		Store:   store,
		Gateway: paymentGateway,
		Clock:   clk,
		Logger:  logger,
		Metrics: m,
	}
	engine := &retry.Engine{
		Store:    store,
		Gateway:  paymentGateway,
		Clock:    clk,
		Logger:   logger,
		Metrics:  m,
		WorkerID: "app",
	}

	handler := &handlers.ApiHandler{
		Store:     store,
		Request:   requestHandler,
		Lifecycle: lifecycle,
		Retry:     engine,
		Balances:  balance.NewManager(store, store, logger),
		Snapshot:  func() *appconfig.Snapshot { return snap },
	}

	// Create a new Chi router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	api.HandlerFromMux(handler, router)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080" // Default port if not specified
	}

	logger.Info("starting server", "port", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
