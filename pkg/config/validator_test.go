package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	d := BuiltinDefaults()
	return &Config{
		HTTPAddr:             ":8080",
		AWSRegion:            "us-east-1",
		MetaTableName:        "manga-orchestrator",
		BlobBucketName:       "manga-orchestrator-blobs",
		Pipeline:             d.Pipeline,
		ImageRetry:           d.ImageRetry,
		PublishRetry:         d.PublishRetry,
		Scene:                d.Scene,
		PDF:                  d.PDF,
		BatchStartLimit:      d.BatchStartLimit,
		ContinueEpisodeLimit: d.ContinueEpisodeLimit,
	}
}

func TestValidateAll_ValidConfig(t *testing.T) {
	err := NewValidator(validConfig()).ValidateAll()
	assert.NoError(t, err)
}

func TestValidatePipeline(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"nil pipeline", func(c *Config) { c.Pipeline = nil }, true},
		{"worker count zero", func(c *Config) { c.Pipeline.WorkerCount = 0 }, true},
		{"worker count too high", func(c *Config) { c.Pipeline.WorkerCount = 51 }, true},
		{"jitter equals interval", func(c *Config) { c.Pipeline.PollIntervalJitter = c.Pipeline.PollInterval }, true},
		{"negative graceful shutdown", func(c *Config) { c.Pipeline.GracefulShutdownTimeout = -1 }, true},
		{"zero story budget", func(c *Config) { c.Pipeline.StoryBudget = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := NewValidator(cfg).ValidateAll()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImageRetry_BackoffLengthMismatch(t *testing.T) {
	cfg := validConfig()
	cfg.ImageRetry.Backoff = []time.Duration{time.Second}
	cfg.ImageRetry.MaxAttempts = 3

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backoff")
}

func TestValidateRateLimits_RejectsZeroMaxRequests(t *testing.T) {
	cfg := validConfig()
	cfg.BatchStartLimit.MaxRequests = 0

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch_start_limit")
}

func TestValidatePDF_RequiresPageSize(t *testing.T) {
	cfg := validConfig()
	cfg.PDF.PageSize = ""

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}
