package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	"github.com/yashrajoria/markup-backend/services/common/logger"
	"github.com/yashrajoria/markup-backend/services/markup-service/database"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var target, searchPath, matchingPath, bucket, searchKey, matchingKey string
	var batchSize int
	flag.StringVar(&target, "target", "postgres", "where to import: postgres or s3")
	flag.StringVar(&searchPath, "search", os.Getenv("SEARCH_DATASET_PATH"), "search task CSV")
	flag.StringVar(&matchingPath, "matching", os.Getenv("MATCHING_DATASET_PATH"), "matching task CSV")
	flag.StringVar(&bucket, "bucket", os.Getenv("DATASET_BUCKET"), "S3 bucket for -target=s3")
	flag.StringVar(&searchKey, "search-key", envOr("SEARCH_DATASET_KEY", "datasets/search.csv"), "S3 key of the search CSV")
	flag.StringVar(&matchingKey, "matching-key", envOr("MATCHING_DATASET_KEY", "datasets/matching.csv"), "S3 key of the matching CSV")
	flag.IntVar(&batchSize, "batch", 500, "insert batch size for -target=postgres")
	flag.Parse()

	log, err := logger.New(os.Getenv("APP_ENV"), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if searchPath == "" && matchingPath == "" {
		log.Fatal("Nothing to import: pass -search and/or -matching")
	}

	files, err := readDatasets(searchPath, matchingPath)
	if err != nil {
		log.Fatal("Dataset validation failed", zap.Error(err))
	}
	log.Info("Datasets validated",
		zap.Int("search_records", len(files.search)),
		zap.Int("matching_records", len(files.matching)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch target {
	case "postgres":
		db, err := database.ConnectPostgres(postgresFromEnv(), log)
		if err != nil {
			log.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		defer database.Close(db)
		if err := importPostgres(ctx, db, files, batchSize); err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
	case "s3":
		if bucket == "" {
			log.Fatal("DATASET_BUCKET or -bucket is required for -target=s3")
		}
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		up := &uploader{client: aws_pkg.NewS3Client(awsCfg), bucket: bucket}
		if err := up.upload(ctx, files, searchKey, matchingKey); err != nil {
			log.Fatal("Upload failed", zap.Error(err))
		}
	default:
		log.Fatal("Unknown target", zap.String("target", target))
	}

	log.Info("Import complete", zap.String("target", target))
}

func postgresFromEnv() database.PostgresConfig {
	return database.PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DB:       os.Getenv("POSTGRES_DB"),
		Host:     envOr("POSTGRES_HOST", "localhost"),
		Port:     envOr("POSTGRES_PORT", "5432"),
		SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		TimeZone: envOr("POSTGRES_TIMEZONE", "UTC"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
