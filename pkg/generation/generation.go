// Package generation defines the two opaque generation capabilities the
// core consumes: TextGen (story/episode prose) and ImageGen (scene
// images). Both are interfaces with a resty-backed REST production
// adapter and an in-memory fake, per spec §1 ("treated as two opaque
// capabilities") and §9 ("Capabilities as interfaces").
package generation

import (
	"context"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// StoryResult is TextGen's output for a new story (spec §4.8 step 2).
type StoryResult struct {
	Title    string
	Markdown string
}

// EpisodeResult is TextGen's output for one episode (spec §4.9 step 3).
type EpisodeResult struct {
	Markdown string
}

// TextGen generates story and episode prose from a preference profile and
// an opaque insights blob. Both methods are suspension points (spec §5);
// failures are classified via apperrors (Transient, ContentFiltered,
// ModelNotFound, InvalidPrompt).
type TextGen interface {
	GenerateStory(ctx context.Context, prefs models.Preferences, insights map[string]any) (StoryResult, error)
	GenerateEpisode(ctx context.Context, storyMarkdown string, episodeNumber int, prefs models.Preferences) (EpisodeResult, error)
}

// ImageResult is ImageGen's output for one scene (spec §4.10 step 6).
type ImageResult struct {
	ImageData []byte // PNG bytes
}

// ImageGen generates one scene image from a textual prompt. Implementations
// must distinguish the permanent error kinds (ContentFiltered,
// ModelNotFound, InvalidPrompt) from Transient ones, since C10's retry
// policy does not retry permanent failures.
type ImageGen interface {
	Generate(ctx context.Context, prompt string) (ImageResult, error)
}
