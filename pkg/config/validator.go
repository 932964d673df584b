package config

import "fmt"

// Validator validates a fully-loaded Config with clear, field-scoped errors.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at the
// first error). Order: pipeline -> image retry -> publish retry -> scene ->
// pdf -> rate limits -> required endpoints.
func (v *Validator) ValidateAll() error {
	if err := v.validatePipeline(); err != nil {
		return fmt.Errorf("pipeline validation failed: %w", err)
	}
	if err := v.validateImageRetry(); err != nil {
		return fmt.Errorf("image retry validation failed: %w", err)
	}
	if err := v.validatePublishRetry(); err != nil {
		return fmt.Errorf("publish retry validation failed: %w", err)
	}
	if err := v.validateScene(); err != nil {
		return fmt.Errorf("scene validation failed: %w", err)
	}
	if err := v.validatePDF(); err != nil {
		return fmt.Errorf("pdf validation failed: %w", err)
	}
	if err := v.validateRateLimits(); err != nil {
		return fmt.Errorf("rate limit validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validatePipeline() error {
	p := v.cfg.Pipeline
	if p == nil {
		return NewValidationError("pipeline", fmt.Errorf("%w: pipeline config is nil", ErrMissingRequiredField))
	}
	if p.WorkerCount < 1 || p.WorkerCount > 50 {
		return NewValidationError("pipeline.worker_count",
			fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidValue, p.WorkerCount))
	}
	if p.PollInterval <= 0 {
		return NewValidationError("pipeline.poll_interval",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, p.PollInterval))
	}
	if p.PollIntervalJitter < 0 || p.PollIntervalJitter >= p.PollInterval {
		return NewValidationError("pipeline.poll_interval_jitter",
			fmt.Errorf("%w: must be non-negative and less than poll_interval", ErrInvalidValue))
	}
	if p.GracefulShutdownTimeout <= 0 {
		return NewValidationError("pipeline.graceful_shutdown_timeout",
			fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, p.GracefulShutdownTimeout))
	}
	if p.StoryBudget <= 0 || p.EpisodeBudget <= 0 || p.ImageBudget <= 0 {
		return NewValidationError("pipeline.budgets",
			fmt.Errorf("%w: story/episode/image budgets must all be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateImageRetry() error {
	r := v.cfg.ImageRetry
	if r == nil {
		return NewValidationError("image_retry", fmt.Errorf("%w: image retry config is nil", ErrMissingRequiredField))
	}
	if r.MaxAttempts < 1 {
		return NewValidationError("image_retry.max_attempts",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, r.MaxAttempts))
	}
	if len(r.Backoff) < r.MaxAttempts-1 {
		return NewValidationError("image_retry.backoff",
			fmt.Errorf("%w: must have at least max_attempts-1=%d entries, got %d",
				ErrInvalidValue, r.MaxAttempts-1, len(r.Backoff)))
	}
	for _, d := range r.Backoff {
		if d < 0 {
			return NewValidationError("image_retry.backoff",
				fmt.Errorf("%w: backoff entries must be non-negative", ErrInvalidValue))
		}
	}
	if r.InterSceneDelay < 0 {
		return NewValidationError("image_retry.inter_scene_delay",
			fmt.Errorf("%w: must be non-negative", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validatePublishRetry() error {
	r := v.cfg.PublishRetry
	if r == nil {
		return NewValidationError("publish_retry", fmt.Errorf("%w: publish retry config is nil", ErrMissingRequiredField))
	}
	if r.MaxAttempts < 1 {
		return NewValidationError("publish_retry.max_attempts",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, r.MaxAttempts))
	}
	if r.BaseDelay <= 0 {
		return NewValidationError("publish_retry.base_delay",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.BackoffFactor < 1 {
		return NewValidationError("publish_retry.backoff_factor",
			fmt.Errorf("%w: must be >= 1, got %f", ErrInvalidValue, r.BackoffFactor))
	}
	if r.JitterFraction < 0 || r.JitterFraction > 1 {
		return NewValidationError("publish_retry.jitter_fraction",
			fmt.Errorf("%w: must be between 0 and 1, got %f", ErrInvalidValue, r.JitterFraction))
	}
	return nil
}

func (v *Validator) validateScene() error {
	s := v.cfg.Scene
	if s == nil {
		return NewValidationError("scene", fmt.Errorf("%w: scene config is nil", ErrMissingRequiredField))
	}
	if s.MaxScenesPerEpisode < 1 {
		return NewValidationError("scene.max_scenes_per_episode",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, s.MaxScenesPerEpisode))
	}
	return nil
}

func (v *Validator) validatePDF() error {
	p := v.cfg.PDF
	if p == nil {
		return NewValidationError("pdf", fmt.Errorf("%w: pdf config is nil", ErrMissingRequiredField))
	}
	if p.MarginMM <= 0 {
		return NewValidationError("pdf.margin_mm",
			fmt.Errorf("%w: must be positive, got %f", ErrInvalidValue, p.MarginMM))
	}
	if p.PageSize == "" {
		return NewValidationError("pdf.page_size", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	return nil
}

func (v *Validator) validateRateLimits() error {
	for field, rl := range map[string]*RateLimitConfig{
		"batch_start_limit":       v.cfg.BatchStartLimit,
		"continue_episode_limit":  v.cfg.ContinueEpisodeLimit,
	} {
		if rl == nil {
			return NewValidationError(field, fmt.Errorf("%w", ErrMissingRequiredField))
		}
		if rl.MaxRequests < 1 {
			return NewValidationError(field+".max_requests",
				fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, rl.MaxRequests))
		}
		if rl.Window <= 0 {
			return NewValidationError(field+".window",
				fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, rl.Window))
		}
	}
	return nil
}
