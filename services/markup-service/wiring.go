package main

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	ddb "github.com/yashrajoria/markup-backend/pkg/dynamodb"
	"github.com/yashrajoria/markup-backend/services/markup-service/database"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/repository"
	"go.uber.org/zap"
)

const janitorInterval = 5 * time.Minute

// newSessionRepository builds the configured session store. The returned
// cleanup func releases its connections.
func newSessionRepository(ctx context.Context, cfg *Config, awsCfg sdkaws.Config, logger *zap.Logger) (repository.SessionRepository, func(), error) {
	switch cfg.SessionStore {
	case StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Connected to Redis", zap.String("addr", opts.Addr))
		return repository.NewRedisSessionRepository(client, cfg.SessionTTL), func() { _ = client.Close() }, nil

	case StoreDynamoDB:
		client := aws_pkg.NewDynamoDBClient(awsCfg)
		if cfg.DynamoCreate {
			created, err := ddb.EnsureTable(ctx, client, ddb.TableSpec{
				Name:         cfg.DynamoTable,
				HashKey:      repository.DynamoHashKey,
				TTLAttribute: repository.DynamoTTLAttribute,
			}, time.Minute)
			if err != nil {
				return nil, nil, err
			}
			if created {
				logger.Info("Created DynamoDB session table", zap.String("table", cfg.DynamoTable))
			}
		}
		logger.Info("Using DynamoDB session store", zap.String("table", cfg.DynamoTable))
		return repository.NewDynamoSessionRepository(client, cfg.DynamoTable, cfg.SessionTTL), func() {}, nil

	default:
		repo := repository.NewMemorySessionRepository(cfg.SessionTTL)
		repo.StartJanitor(ctx, janitorInterval)
		logger.Info("Using in-memory session store", zap.Duration("ttl", cfg.SessionTTL))
		return repo, func() {}, nil
	}
}

// newDatasetLoader builds the configured dataset loader.
func newDatasetLoader(cfg *Config, awsCfg sdkaws.Config, logger *zap.Logger) (dataset.Loader, func(), error) {
	switch cfg.DatasetSource {
	case SourceS3:
		client := aws_pkg.NewS3Client(awsCfg)
		return dataset.NewCSVLoader(dataset.NewS3Source(client, cfg.DatasetBucket, cfg.SearchDatasetKey, cfg.MatchingDatasetKey)), func() {}, nil

	case SourcePostgres:
		db, err := database.ConnectPostgres(cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		return dataset.NewPostgresLoader(db), func() {
			if err := database.Close(db); err != nil {
				logger.Error("Database close error", zap.Error(err))
			}
		}, nil

	default:
		return dataset.NewCSVLoader(dataset.NewFileSource(cfg.SearchDatasetPath, cfg.MatchingDatasetPath)), func() {}, nil
	}
}
