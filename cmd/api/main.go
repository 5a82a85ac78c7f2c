package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dunamismax/logocrunch/internal/api"
	"github.com/dunamismax/logocrunch/internal/config"
	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/queue"
	"github.com/dunamismax/logocrunch/internal/ratelimit"
	"github.com/dunamismax/logocrunch/internal/storage"
	"github.com/dunamismax/logocrunch/internal/store"
	"github.com/dunamismax/logocrunch/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)
	cfg, err := config.LoadService()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "logocrunch-api",
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("setup tracing: %v", err)
	}

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name, cfg.Queue.MaxRetry)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Printf("queue client close error: %v", err)
		}
	}()

	results, closeResults, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("open result store: %v", err)
	}
	defer closeResults()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	defer redisClient.Close()

	opts := api.Options{
		QueueName:      cfg.Queue.Name,
		SourceType:     cfg.Pipeline.SourceType,
		ProgressClient: redisClient,
		ProgressPrefix: cfg.Progress.RedisKeyPrefix,
	}
	if cfg.API.RateLimit > 0 {
		limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.API.RateLimit, cfg.API.RateLimitWindow(), ratelimit.DefaultKeyPrefix)
		if err != nil {
			logger.Fatalf("create rate limiter: %v", err)
		}
		opts.RateLimiter = limiter
	}
	if cfg.Pipeline.SourceType == domain.SourceTypeObjectStore {
		storageClient, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Storage.Endpoint,
			Access:   cfg.Storage.AccessKey,
			Secret:   cfg.Storage.SecretKey,
			Bucket:   cfg.Storage.Bucket,
			UseSSL:   cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatalf("create storage client: %v", err)
		}
		opts.Documents = storageClient
	}

	app := api.NewServer(logger, queueClient, results, opts)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s source_type=%s rate_limit=%d", cfg.API.Addr, cfg.Pipeline.SourceType, cfg.API.RateLimit)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown error: %v", err)
	}
}
