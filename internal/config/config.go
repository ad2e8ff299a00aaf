package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrTableRequired is returned by Load when DYNAMODB is unset.
var ErrTableRequired = errors.New("DYNAMODB is required")

// Config is the process configuration, read from the environment by Load.
type Config struct {
	DynamoDB DynamoDBConfig
	Ledger   LedgerConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

// DynamoDBConfig locates the ledger table.
type DynamoDBConfig struct {
	Table  string
	Region string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// LedgerConfig holds the account rules.
type LedgerConfig struct {
	MaxAccountsPerPartner int64
}

// LogConfig selects the zap level and preset.
type LogConfig struct {
	Level       string
	Environment string
}

// HTTPConfig configures the local development server.
type HTTPConfig struct {
	Addr string
	// APIAccountID stands in for the API Gateway owning account when serving locally.
	APIAccountID string
}

// Load reads the configuration from environment variables, applying defaults.
// DYNAMODB is required; MAX_ACCOUNTS_PER_PARTNER must be a positive integer.
func Load() (*Config, error) {
	maxAccounts, err := strconv.ParseInt(getEnv("MAX_ACCOUNTS_PER_PARTNER", "10"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ACCOUNTS_PER_PARTNER: %w", err)
	}
	if maxAccounts < 1 {
		return nil, fmt.Errorf("MAX_ACCOUNTS_PER_PARTNER must be positive, got %d", maxAccounts)
	}

	cfg := &Config{
		DynamoDB: DynamoDBConfig{
			Table:    getEnv("DYNAMODB", ""),
			Region:   getEnv("REGION", "us-east-1"),
			Endpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		},
		Ledger: LedgerConfig{
			MaxAccountsPerPartner: maxAccounts,
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("ENVIRONMENT", "production"),
		},
		HTTP: HTTPConfig{
			Addr:         getEnv("HTTP_ADDR", ":3000"),
			APIAccountID: getEnv("API_ACCOUNT_ID", ""),
		},
	}

	if cfg.DynamoDB.Table == "" {
		return nil, ErrTableRequired
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
