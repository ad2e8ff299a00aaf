// Package app wires configuration, the DynamoDB client and the ledger layers into an
// api.Handler shared by the Lambda and local server entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/jacentio/ledger/api"
	"github.com/jacentio/ledger/internal/config"
	"github.com/jacentio/ledger/ledger"
	"github.com/jacentio/ledger/store"
)

// NewDynamoDBClient loads the default AWS configuration for cfg's region and applies
// the endpoint override, if any.
func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewHandler builds the request handler over client.
func NewHandler(client store.Client, cfg *config.Config, logger *zap.Logger) *api.Handler {
	storeCfg := store.DefaultConfig()
	storeCfg.TableName = cfg.DynamoDB.Table

	s := store.NewWithRegistry(client, storeCfg, ledger.Registry())
	repo := ledger.NewRepository(s, ledger.Config{MaxAccountsPerPartner: cfg.Ledger.MaxAccountsPerPartner}, logger)
	return api.NewHandler(ledger.NewService(repo, logger), logger)
}
