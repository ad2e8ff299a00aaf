// Command devserver serves the ledger API over HTTP for local development,
// typically against DynamoDB Local via DYNAMODB_ENDPOINT.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jacentio/ledger/internal/app"
	"github.com/jacentio/ledger/internal/config"
	"github.com/jacentio/ledger/internal/devhttp"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := app.NewDynamoDBClient(ctx, cfg.DynamoDB)
	if err != nil {
		logger.Fatal("init dynamodb client", zap.Error(err))
	}

	server := devhttp.NewApp(app.NewHandler(client, cfg, logger), cfg.HTTP.APIAccountID, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("devserver listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("table", cfg.DynamoDB.Table),
		zap.String("endpoint", cfg.DynamoDB.Endpoint),
	)
	if err := server.Listen(cfg.HTTP.Addr); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}
