package api

import (
	echo "github.com/labstack/echo/v5"
)

// StartWorkflowResponse is returned by POST /workflow/start.
type StartWorkflowResponse struct {
	WorkflowID              string `json:"workflowId"`
	RequestID               string `json:"requestId"`
	NumberOfStories         int    `json:"numberOfStories"`
	Status                  string `json:"status"`
	EstimatedCompletionTime string `json:"estimatedCompletionTime"`
}

// ContinueEpisodeResponse is returned by POST /stories/{storyId}/episodes.
type ContinueEpisodeResponse struct {
	EpisodeID               string `json:"episodeId"`
	EpisodeNumber           int    `json:"episodeNumber"`
	Status                  string `json:"status"`
	EstimatedCompletionTime string `json:"estimatedCompletionTime"`
}

// PreferencesResponse is returned by GET/POST /preferences.
type PreferencesResponse struct {
	Genres         []string       `json:"genres"`
	Themes         []string       `json:"themes"`
	ArtStyle       string         `json:"artStyle"`
	TargetAudience string         `json:"targetAudience"`
	ContentRating  string         `json:"contentRating"`
	Insights       map[string]any `json:"insights,omitempty"`
	UpdatedAt      string         `json:"updatedAt"`
}

// writeSuccess wraps data in the success envelope spec §6 defines.
func writeSuccess(c *echo.Context, status int, data any) error {
	return c.JSON(status, map[string]any{
		"success":   true,
		"data":      data,
		"requestId": requestIDFrom(c),
		"timestamp": nowISO8601(),
	})
}
