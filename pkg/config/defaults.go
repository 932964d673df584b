package config

import "time"

// Defaults holds the system-wide default values applied when env vars are
// not set. These are the application-state defaults for the pipeline, not
// per-request overrides.
type Defaults struct {
	Pipeline          *PipelineConfig
	ImageRetry        *ImageRetryConfig
	PublishRetry      *PublishRetryConfig
	Scene             *SceneConfig
	PDF               *PDFConfig
	BatchStartLimit   *RateLimitConfig
	ContinueEpisodeLimit *RateLimitConfig
}

// BuiltinDefaults returns the hard-coded defaults compiled into the binary.
// Env vars loaded by Load override these field by field.
func BuiltinDefaults() *Defaults {
	return &Defaults{
		Pipeline:     DefaultPipelineConfig(),
		ImageRetry:   DefaultImageRetryConfig(),
		PublishRetry: DefaultPublishRetryConfig(),
		Scene:        &SceneConfig{MaxScenesPerEpisode: 8},
		PDF:          DefaultPDFConfig(),
		// BatchStartLimit: 5 batch-start requests per user per 5 minutes (spec §5.4).
		BatchStartLimit: &RateLimitConfig{MaxRequests: 5, Window: 5 * time.Minute},
		// ContinueEpisodeLimit: 10 continue-episode requests per user per 5 minutes.
		ContinueEpisodeLimit: &RateLimitConfig{MaxRequests: 10, Window: 5 * time.Minute},
	}
}
