package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/common/logger"
	commonmw "github.com/yashrajoria/markup-backend/services/common/middleware"
	"github.com/yashrajoria/markup-backend/services/markup-service/consumer"
	"github.com/yashrajoria/markup-backend/services/markup-service/controllers"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/middleware"
	"github.com/yashrajoria/markup-backend/services/markup-service/routes"
	"github.com/yashrajoria/markup-backend/services/markup-service/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "markup-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	// CloudWatch Logs tee (non-fatal)
	var logTee io.Writer
	if awsErr == nil {
		if cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName); err == nil && cw.IsEnabled() {
			logTee = cw
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := cw.Close(flushCtx); err != nil {
					fmt.Fprintf(os.Stderr, "log shipping: %v\n", err)
				}
			}()
		}
	}

	log, err := logger.New(cfg.AppEnv, logTee)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if awsErr != nil {
		log.Warn("AWS config load failed, AWS-backed features disabled", zap.Error(awsErr))
	}

	if cfg.UseSecrets && awsErr == nil {
		cfg.applySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	var metricsClient *aws_pkg.MetricsClient
	if awsErr == nil {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg)
	}

	// Session store
	sessionRepo, closeStore, err := newSessionRepository(ctx, cfg, awsCfg, log)
	if err != nil {
		log.Fatal("Session store init failed", zap.String("store", cfg.SessionStore), zap.Error(err))
	}
	defer closeStore()

	// Datasets
	loader, closeLoader, err := newDatasetLoader(cfg, awsCfg, log)
	if err != nil {
		log.Fatal("Dataset source init failed", zap.String("source", cfg.DatasetSource), zap.Error(err))
	}
	defer closeLoader()

	catalog := dataset.NewCatalog(loader, log)
	loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
	if err := catalog.Load(loadCtx); err != nil {
		cancelLoad()
		log.Fatal("Failed to load datasets", zap.Error(err))
	}
	cancelLoad()

	// Dependency injection
	opts := services.Options{
		RequireCategory:  cfg.RequireCategory,
		ProgressTopicArn: cfg.ProgressTopicArn,
	}
	if metricsClient != nil {
		opts.Metrics = metricsClient
	}
	if cfg.ProgressTopicArn != "" && awsErr == nil {
		opts.SNS = aws_pkg.NewSNSClient(awsCfg)
	}
	markupService := services.NewMarkupService(catalog, sessionRepo, opts, log)
	sessionService := services.NewSessionService(sessionRepo, opts.Metrics, log)

	cookie := middleware.CookieOptions{Secure: cfg.IsProduction(), MaxAge: cfg.SessionTTL}
	markupController := controllers.NewMarkupController(markupService, sessionService, cookie, log)

	// Dataset refresh consumer (optional)
	if cfg.RefreshQueueURL != "" && awsErr == nil {
		sqsConsumer := aws_pkg.NewSQSConsumer(aws_pkg.NewSQSClient(awsCfg), cfg.RefreshQueueURL, log)
		refresher := consumer.NewDatasetRefresher(markupService, log)
		go func() {
			if err := sqsConsumer.StartPolling(ctx, refresher.Handler()); err != nil && ctx.Err() == nil {
				log.Error("Dataset refresh consumer stopped", zap.Error(err))
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.Timeout(30 * time.Second))
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.Metrics(metricsClient, serviceName))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(commonmw.NewRateLimiter(ctx, rate.Limit(20), 40, 10*time.Minute)))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterMarkupRoutes(r, markupController, middleware.Session(sessionService, cookie, log))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Markup service started",
			zap.String("port", cfg.Port),
			zap.String("dataset_source", cfg.DatasetSource),
			zap.String("session_store", cfg.SessionStore),
			zap.Bool("require_category", cfg.RequireCategory),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Markup service stopped gracefully")
}
