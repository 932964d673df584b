package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config is the fully resolved, validated runtime configuration for the
// orchestrator process.
type Config struct {
	// HTTPAddr is the address the HTTP surface (pkg/api) listens on.
	HTTPAddr string

	// AWSRegion is passed to every AWS SDK v2 client constructed in
	// cmd/orchestrator/main.go (MetaStore, BlobStore, EventBus adapters).
	AWSRegion string

	// MetaTableName is the single DynamoDB table backing MetaStore.
	MetaTableName string

	// BlobBucketName is the S3 bucket backing BlobStore.
	BlobBucketName string

	// EventTopicARN is the SNS topic backing EventBus's publish side.
	EventTopicARN string

	// EventQueueURL is the SQS queue this process's worker pool polls
	// (EventBus's receive side).
	EventQueueURL string

	// TextGenBaseURL and ImageGenBaseURL are the base URLs of the
	// external generation providers (pkg/generation adapters).
	TextGenBaseURL  string
	ImageGenBaseURL string

	Pipeline             *PipelineConfig
	ImageRetry           *ImageRetryConfig
	PublishRetry         *PublishRetryConfig
	Scene                *SceneConfig
	PDF                  *PDFConfig
	BatchStartLimit      *RateLimitConfig
	ContinueEpisodeLimit *RateLimitConfig
}

// Initialize is the primary entry point for configuration loading: it loads
// a .env file (if present), reads environment variables over the built-in
// defaults, and validates the result before returning.
//
// Steps performed:
//  1. Load .env into the process environment (missing file is not an error)
//  2. Layer env vars over BuiltinDefaults()
//  3. Validate
func Initialize(envFile string) (*Config, error) {
	log := slog.With("env_file", envFile)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load env file: %w", err)
			}
			log.Info("no .env file found, using process environment only")
		}
	}

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"http_addr", cfg.HTTPAddr,
		"aws_region", cfg.AWSRegion,
		"meta_table", cfg.MetaTableName,
		"worker_count", cfg.Pipeline.WorkerCount)

	return cfg, nil
}

func load() (*Config, error) {
	defaults := BuiltinDefaults()

	cfg := &Config{
		HTTPAddr:        getEnv("ORCHESTRATOR_HTTP_ADDR", ":8080"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		MetaTableName:   getEnv("META_TABLE_NAME", "manga-orchestrator"),
		BlobBucketName:  getEnv("BLOB_BUCKET_NAME", "manga-orchestrator-blobs"),
		EventTopicARN:   os.Getenv("EVENT_TOPIC_ARN"),
		EventQueueURL:   os.Getenv("EVENT_QUEUE_URL"),
		TextGenBaseURL:  os.Getenv("TEXT_GEN_BASE_URL"),
		ImageGenBaseURL: os.Getenv("IMAGE_GEN_BASE_URL"),

		Pipeline:             defaults.Pipeline,
		ImageRetry:           defaults.ImageRetry,
		PublishRetry:         defaults.PublishRetry,
		Scene:                defaults.Scene,
		PDF:                  defaults.PDF,
		BatchStartLimit:      defaults.BatchStartLimit,
		ContinueEpisodeLimit: defaults.ContinueEpisodeLimit,
	}

	if v := os.Getenv("PIPELINE_WORKER_COUNT"); v != "" {
		n, err := parsePositiveInt("PIPELINE_WORKER_COUNT", v)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline.WorkerCount = n
	}

	if v := os.Getenv("MAX_SCENES_PER_EPISODE"); v != "" {
		n, err := parsePositiveInt("MAX_SCENES_PER_EPISODE", v)
		if err != nil {
			return nil, err
		}
		cfg.Scene.MaxScenesPerEpisode = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(field, raw string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0, NewValidationError(field, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, raw))
	}
	if n <= 0 {
		return 0, NewValidationError(field, fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, n))
	}
	return n, nil
}
