package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/markup-backend/services/markup-service/database"
)

const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	Port   string
	AppEnv string

	DatasetSource       string
	SearchDatasetPath   string
	MatchingDatasetPath string
	DatasetBucket       string
	SearchDatasetKey    string
	MatchingDatasetKey  string
	Postgres            database.PostgresConfig

	SessionStore     string
	RedisURL         string
	DynamoTable      string
	DynamoCreate     bool
	SessionTTL       time.Duration
	RequireCategory  bool
	ProgressTopicArn string
	RefreshQueueURL  string
	AllowedOrigins   string
	UseSecrets       bool
}

// secretGetter is satisfied by *aws_pkg.SecretsClient.
type secretGetter interface {
	GetSecretJSON(ctx context.Context, name string) (map[string]string, error)
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	requireCategory, err := strconv.ParseBool(getEnv("REQUIRE_CATEGORY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUIRE_CATEGORY: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8095"),
		AppEnv:              getEnv("APP_ENV", "development"),
		DatasetSource:       strings.ToLower(getEnv("DATASET_SOURCE", SourceFile)),
		SearchDatasetPath:   getEnv("SEARCH_DATASET_PATH", "data/search.csv"),
		MatchingDatasetPath: getEnv("MATCHING_DATASET_PATH", "data/matching.csv"),
		DatasetBucket:       os.Getenv("DATASET_BUCKET"),
		SearchDatasetKey:    getEnv("SEARCH_DATASET_KEY", "datasets/search.csv"),
		MatchingDatasetKey:  getEnv("MATCHING_DATASET_KEY", "datasets/matching.csv"),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		SessionStore:     strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DynamoTable:      getEnv("DDB_TABLE_SESSIONS", "MarkupSessions"),
		DynamoCreate:     os.Getenv("DDB_CREATE_TABLE") == "true",
		SessionTTL:       ttl,
		RequireCategory:  requireCategory,
		ProgressTopicArn: os.Getenv("PROGRESS_SNS_TOPIC_ARN"),
		RefreshQueueURL:  os.Getenv("DATASET_REFRESH_QUEUE_URL"),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		UseSecrets:       os.Getenv("AWS_USE_SECRETS") == "true",
	}
	return cfg, nil
}

// applySecrets overrides connection settings from Secrets Manager.
// Missing secrets leave the environment values in place.
func (cfg *Config) applySecrets(ctx context.Context, sm secretGetter) {
	if m, err := sm.GetSecretJSON(ctx, "markup/REDIS"); err == nil {
		if v := m["REDIS_URL"]; v != "" {
			cfg.RedisURL = v
		}
	}
	if m, err := sm.GetSecretJSON(ctx, "markup/DB_CREDENTIALS"); err == nil {
		// Either our POSTGRES_* keys or the RDS-managed secret layout.
		override(&cfg.Postgres.User, m, "POSTGRES_USER", "username")
		override(&cfg.Postgres.Password, m, "POSTGRES_PASSWORD", "password")
		override(&cfg.Postgres.DB, m, "POSTGRES_DB", "dbname")
		override(&cfg.Postgres.Host, m, "POSTGRES_HOST", "host")
		override(&cfg.Postgres.Port, m, "POSTGRES_PORT", "port")
	}
}

func override(dst *string, m map[string]string, keys ...string) {
	for _, k := range keys {
		if v := m[k]; v != "" {
			*dst = v
			return
		}
	}
}

// Validate checks that the selected source and store have what they need.
func (cfg *Config) Validate() error {
	switch cfg.DatasetSource {
	case SourceFile:
		if cfg.SearchDatasetPath == "" || cfg.MatchingDatasetPath == "" {
			return fmt.Errorf("SEARCH_DATASET_PATH and MATCHING_DATASET_PATH are required")
		}
	case SourceS3:
		if cfg.DatasetBucket == "" {
			return fmt.Errorf("DATASET_BUCKET is required for the s3 dataset source")
		}
	case SourcePostgres:
		if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DB == "" || cfg.Postgres.Host == "" {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unsupported DATASET_SOURCE %q", cfg.DatasetSource)
	}

	switch cfg.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis session store")
		}
	case StoreDynamoDB:
		if cfg.DynamoTable == "" {
			return fmt.Errorf("DDB_TABLE_SESSIONS is required for the dynamodb session store")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}
	return nil
}

func (cfg *Config) IsProduction() bool {
	return cfg.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
