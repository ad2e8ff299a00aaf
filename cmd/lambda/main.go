// Command lambda serves the ledger API as an API Gateway proxy Lambda.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/jacentio/ledger/internal/app"
	"github.com/jacentio/ledger/internal/config"
	"github.com/jacentio/ledger/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := app.NewDynamoDBClient(context.Background(), cfg.DynamoDB)
	if err != nil {
		logger.Fatal("init dynamodb client", zap.Error(err))
	}

	h := app.NewHandler(client, cfg, logger)
	logger.Info("starting lambda", zap.String("table", cfg.DynamoDB.Table))
	lambda.Start(h.Route)
}
