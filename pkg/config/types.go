package config

import "time"

// PipelineConfig controls the event-consumer worker pool that drives the
// stage handlers (C8-C11) and the wall-clock budgets each stage honors.
type PipelineConfig struct {
	// WorkerCount is the number of concurrent event-handler goroutines per
	// process. Each worker independently pulls the next event off the bus
	// subscription and dispatches it to the matching stage handler.
	WorkerCount int `yaml:"worker_count"`

	// PollInterval is the base interval between bus polls when idle.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// GracefulShutdownTimeout bounds how long in-flight handlers are given
	// to finish when the process receives a shutdown signal.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// StoryBudget, EpisodeBudget, and ImageBudget are the wall-clock
	// budgets for C8, C9, and C10 respectively (spec §5 "Cancellation").
	// A handler that exceeds its budget raises a Transient error so the
	// bus redelivers the event.
	StoryBudget   time.Duration `yaml:"story_budget"`
	EpisodeBudget time.Duration `yaml:"episode_budget"`
	ImageBudget   time.Duration `yaml:"image_budget"`
}

// DefaultPipelineConfig returns the built-in pipeline defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		WorkerCount:             5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      250 * time.Millisecond,
		GracefulShutdownTimeout: 3 * time.Minute,
		StoryBudget:             3 * time.Minute,
		EpisodeBudget:           1 * time.Minute,
		ImageBudget:             3 * time.Minute,
	}
}

// ImageRetryConfig controls the per-scene image generation retry policy (C10).
type ImageRetryConfig struct {
	// MaxAttempts is the total number of attempts per scene, including the
	// first try (spec: N_img_retry=3).
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff holds the sleep duration before each retry attempt, in order.
	// len(Backoff) must be at least MaxAttempts-1; entries past that are unused.
	Backoff []time.Duration `yaml:"backoff"`

	// InterSceneDelay is the pause between successful scene generations.
	InterSceneDelay time.Duration `yaml:"inter_scene_delay"`
}

// DefaultImageRetryConfig returns the built-in image retry policy.
func DefaultImageRetryConfig() *ImageRetryConfig {
	return &ImageRetryConfig{
		MaxAttempts:     3,
		Backoff:         []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
		InterSceneDelay: 2 * time.Second,
	}
}

// PublishRetryConfig controls the EventBus adapter's publish retry policy (C3).
type PublishRetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
	JitterFraction float64       `yaml:"jitter_fraction"`
}

// DefaultPublishRetryConfig returns the built-in publish retry policy
// (spec §4.3: base 200ms, factor 2, jitter ±25%, up to 3 attempts).
func DefaultPublishRetryConfig() *PublishRetryConfig {
	return &PublishRetryConfig{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		BackoffFactor:  2,
		JitterFraction: 0.25,
	}
}

// RateLimitConfig controls one process-local fixed-window limiter (§5.4).
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// SceneConfig bounds the scene extractor (C4).
type SceneConfig struct {
	MaxScenesPerEpisode int `yaml:"max_scenes_per_episode"`
}

// PDFConfig controls the PDF assembler (C5).
type PDFConfig struct {
	MarginMM float64 `yaml:"margin_mm"`
	PageSize string  `yaml:"page_size"` // "A4"
}

// DefaultPDFConfig returns the built-in PDF layout defaults.
func DefaultPDFConfig() *PDFConfig {
	return &PDFConfig{MarginMM: 20, PageSize: "A4"}
}
