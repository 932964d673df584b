// Command orchestrator runs the manga-generation orchestration core: the
// HTTP entry points (C6, C7, preferences CRUD) and the worker pool driving
// the event-driven stage handlers (C8-C11).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/api"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/blobstore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/generation"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/handlers"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/orchestrator"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/ratelimit"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	envFile := flag.String("env-file", getEnv("ORCHESTRATOR_ENV_FILE", ".env"), "Path to .env file")
	flag.Parse()

	cfg, err := config.Initialize(*envFile)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, blob, bus, textGen, imageGen := wireAdapters(ctx, cfg)

	h := handlers.New(meta, blob, bus, textGen, imageGen, cfg.ImageRetry, cfg.Scene, cfg.PDF)
	pool := orchestrator.New(bus, h, cfg.Pipeline)
	pool.Start(ctx)
	slog.Info("orchestrator worker pool started", "worker_count", cfg.Pipeline.WorkerCount)

	limiter := ratelimit.New()
	server := api.NewServer(meta, bus, limiter, &config.Defaults{
		BatchStartLimit:      cfg.BatchStartLimit,
		ContinueEpisodeLimit: cfg.ContinueEpisodeLimit,
	})
	server.SetPool(pool)

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.Start(cfg.HTTPAddr); err != nil {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down HTTP server", "error", err)
	}
	pool.Stop()
	slog.Info("orchestrator stopped")
}

// wireAdapters constructs the production AWS-backed adapters when their
// configuration is present, falling back to in-memory fakes otherwise so
// the binary also runs standalone (e.g. local development, the integration
// test harness driving this same wiring path).
func wireAdapters(ctx context.Context, cfg *config.Config) (metastore.MetaStore, blobstore.BlobStore, eventbus.EventBus, generation.TextGen, generation.ImageGen) {
	var meta metastore.MetaStore
	var blob blobstore.BlobStore
	var bus eventbus.EventBus

	if cfg.EventTopicARN != "" && cfg.EventQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			slog.Error("failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}

		meta = metastore.NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.MetaTableName)
		blob = blobstore.NewS3Store(s3.NewFromConfig(awsCfg), cfg.BlobBucketName)
		bus = eventbus.NewSNSBus(sns.NewFromConfig(awsCfg), sqs.NewFromConfig(awsCfg), cfg.EventTopicARN, cfg.EventQueueURL, cfg.PublishRetry)
		slog.Info("wired AWS-backed adapters", "meta_table", cfg.MetaTableName, "blob_bucket", cfg.BlobBucketName)
	} else {
		meta = metastore.NewInMemoryStore()
		blob = blobstore.NewInMemoryStore()
		bus = eventbus.NewInMemoryBus()
		slog.Warn("EVENT_TOPIC_ARN/EVENT_QUEUE_URL not set, using in-memory adapters")
	}

	var textGen generation.TextGen
	var imageGen generation.ImageGen
	if cfg.TextGenBaseURL != "" {
		textGen = generation.NewRestyTextGen(cfg.TextGenBaseURL, os.Getenv("TEXT_GEN_API_KEY"), 60*time.Second)
	} else {
		textGen = generation.NewFakeTextGen()
		slog.Warn("TEXT_GEN_BASE_URL not set, using fake text generator")
	}
	if cfg.ImageGenBaseURL != "" {
		imageGen = generation.NewRestyImageGen(cfg.ImageGenBaseURL, os.Getenv("IMAGE_GEN_API_KEY"), 60*time.Second)
	} else {
		imageGen = generation.NewFakeImageGen()
		slog.Warn("IMAGE_GEN_BASE_URL not set, using fake image generator")
	}

	return meta, blob, bus, textGen, imageGen
}
