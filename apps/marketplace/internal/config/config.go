package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverJSON     = "json"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// DefaultSeaportAddress is the canonical Seaport 1.5 deployment, identical on every supported chain.
	DefaultSeaportAddress = "0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"
)

type Config struct {
	APIPort     int
	FrontendURL string
	StoreDriver string
	DbPath      string
	DbURL       string
	KafkaBroker string
	KafkaTopic  string
	LogLevel    string
	LogFile     string

	// PublishTimeout bounds how long POST /order waits for the event broker.
	PublishTimeout time.Duration
}

// FulfillConfig configures the fulfillment helper.
type FulfillConfig struct {
	APIURL         string
	RpcURL         string
	PrivateKey     string
	SeaportAddress string
	ConfirmTimeout time.Duration
	LogLevel       string
}

// NewConfig loads the backend configuration from environment variables
func NewConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIPort:     getEnvInt("PORT", 3000),
		FrontendURL: getEnv("FRONTEND_URL", "*"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverJSON)),
		DbPath:      getEnv("DB_PATH", "db.json"),
		DbURL:       os.Getenv("DB_URL"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "orders.created"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),

		PublishTimeout: getEnvDuration("PUBLISH_TIMEOUT", 5*time.Second),
	}

	switch cfg.StoreDriver {
	case StoreDriverJSON, StoreDriverMemory:
	case StoreDriverPostgres:
		if cfg.DbURL == "" {
			return nil, errors.New("DB_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// NewFulfillConfig loads the fulfillment helper configuration from environment variables
func NewFulfillConfig() (*FulfillConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &FulfillConfig{
		APIURL:         strings.TrimRight(getEnv("API_URL", "http://localhost:3000"), "/"),
		RpcURL:         os.Getenv("RPC_URL"),
		PrivateKey:     os.Getenv("PRIVATE_KEY"),
		SeaportAddress: getEnv("SEAPORT_ADDRESS", DefaultSeaportAddress),
		ConfirmTimeout: getEnvDuration("CONFIRM_TIMEOUT", 5*time.Minute),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RpcURL == "" {
		return nil, errors.New("environment variable RPC_URL not set")
	}
	if cfg.PrivateKey == "" {
		return nil, errors.New("environment variable PRIVATE_KEY not set")
	}
	return cfg, nil
}

// loadDotEnv loads .env when present. A missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
