package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dunamismax/logocrunch/internal/compose"
	"github.com/dunamismax/logocrunch/internal/config"
	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/storage"
	"github.com/dunamismax/logocrunch/internal/store"
	"github.com/dunamismax/logocrunch/internal/telemetry"
	"github.com/dunamismax/logocrunch/internal/webhook"
	"github.com/dunamismax/logocrunch/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmsgprefix)
	cfg, err := config.LoadService()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "logocrunch-worker",
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("setup tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	if err := compose.Startup(); err != nil {
		logger.Fatalf("start image encoder: %v", err)
	}
	defer compose.Shutdown()

	results, closeResults, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("open result store: %v", err)
	}
	defer closeResults()

	var storageClient *storage.Client
	if cfg.Pipeline.SourceType == domain.SourceTypeObjectStore {
		storageClient, err = storage.NewClient(storage.Config{
			Endpoint: cfg.Storage.Endpoint,
			Access:   cfg.Storage.AccessKey,
			Secret:   cfg.Storage.SecretKey,
			Bucket:   cfg.Storage.Bucket,
			UseSSL:   cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatalf("create storage client: %v", err)
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			logger.Fatalf("ensure bucket: %v", err)
		}
	}

	progressClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	defer progressClient.Close()

	webhookClient := webhook.NewClient(webhook.Config{
		SigningSecret:  cfg.Webhook.Secret,
		Timeout:        cfg.Webhook.Timeout(),
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
	})

	srv, err := worker.NewServer(logger, cfg, storageClient, webhookClient, results, progressClient)
	if err != nil {
		logger.Fatalf("create worker: %v", err)
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           srv.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("metrics listening on %s", cfg.Worker.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server failed: %v", err)
		}
	}()
	defer metricsServer.Close()

	logger.Printf(
		"starting worker concurrency=%d max_active_jobs=%d queue=%s redis=%s source_type=%s",
		cfg.Worker.Concurrency,
		cfg.Worker.MaxActiveJobs,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
		cfg.Pipeline.SourceType,
	)
	if err := srv.Run(); err != nil {
		logger.Printf("worker failed: %v", err)
	}
}
