package generation

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// RestyTextGen is the production TextGen adapter: a REST client to an
// external large-language-model provider, transported over
// github.com/go-resty/resty/v2 (spec §1 treats the concrete provider as
// opaque; this wraps whatever HTTP endpoint it exposes).
type RestyTextGen struct {
	client  *resty.Client
	baseURL string
}

// NewRestyTextGen builds a TextGen client against baseURL with the given
// request timeout.
func NewRestyTextGen(baseURL, apiKey string, timeout time.Duration) *RestyTextGen {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetRetryCount(0) // retries are owned by the caller (spec §5 wall-clock budgets)
	return &RestyTextGen{client: client, baseURL: baseURL}
}

type generateStoryRequest struct {
	Genres         []string       `json:"genres"`
	Themes         []string       `json:"themes"`
	ArtStyle       string         `json:"artStyle"`
	TargetAudience string         `json:"targetAudience"`
	ContentRating  string         `json:"contentRating"`
	Insights       map[string]any `json:"insights,omitempty"`
}

type generateStoryResponse struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

func (g *RestyTextGen) GenerateStory(ctx context.Context, prefs models.Preferences, insights map[string]any) (StoryResult, error) {
	var out generateStoryResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateStoryRequest{
			Genres:         prefs.Genres,
			Themes:         prefs.Themes,
			ArtStyle:       prefs.ArtStyle,
			TargetAudience: prefs.TargetAudience,
			ContentRating:  prefs.ContentRating,
			Insights:       insights,
		}).
		SetResult(&out).
		Post("/v1/stories")
	if err != nil {
		return StoryResult{}, apperrors.NewTransientError(err, "generate story")
	}
	if appErr := classifyProviderResponse(resp); appErr != nil {
		return StoryResult{}, appErr
	}
	return StoryResult{Title: out.Title, Markdown: out.Markdown}, nil
}

type generateEpisodeRequest struct {
	StoryMarkdown  string `json:"storyMarkdown"`
	EpisodeNumber  int    `json:"episodeNumber"`
	ArtStyle       string `json:"artStyle"`
	TargetAudience string `json:"targetAudience"`
	ContentRating  string `json:"contentRating"`
}

type generateEpisodeResponse struct {
	Markdown string `json:"markdown"`
}

func (g *RestyTextGen) GenerateEpisode(ctx context.Context, storyMarkdown string, episodeNumber int, prefs models.Preferences) (EpisodeResult, error) {
	var out generateEpisodeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateEpisodeRequest{
			StoryMarkdown:  storyMarkdown,
			EpisodeNumber:  episodeNumber,
			ArtStyle:       prefs.ArtStyle,
			TargetAudience: prefs.TargetAudience,
			ContentRating:  prefs.ContentRating,
		}).
		SetResult(&out).
		Post("/v1/episodes")
	if err != nil {
		return EpisodeResult{}, apperrors.NewTransientError(err, "generate episode")
	}
	if appErr := classifyProviderResponse(resp); appErr != nil {
		return EpisodeResult{}, appErr
	}
	return EpisodeResult{Markdown: out.Markdown}, nil
}

var _ TextGen = (*RestyTextGen)(nil)
