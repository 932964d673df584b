package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

func TestContinueEpisodeHandler_Unauthorized(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodPost, "/stories/story-1/episodes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContinueEpisodeHandler_StoryNotFound(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodPost, "/stories/missing-story/episodes", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContinueEpisodeHandler_StoryNotCompleted(t *testing.T) {
	s, meta, _ := testServer(t)
	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", Status: models.StatusProcessing,
		CreatedAt: now, UpdatedAt: now,
	}))

	rec := doJSON(s, http.MethodPost, "/stories/story-1/episodes", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "STORY_NOT_COMPLETED", errBody["code"])
}

func TestContinueEpisodeHandler_EpisodeAlreadyExists(t *testing.T) {
	s, meta, _ := testServer(t)
	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", Status: models.StatusCompleted,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, meta.CreateEpisode(context.Background(), models.Episode{
		EpisodeID: "ep-2", StoryID: "story-1", EpisodeNumber: 2,
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))

	rec := doJSON(s, http.MethodPost, "/stories/story-1/episodes", "user-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestContinueEpisodeHandler_Success(t *testing.T) {
	s, meta, bus := testServer(t)
	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", S3Key: "stories/story-1.md",
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, meta.SavePreferences(context.Background(), models.Preferences{
		UserID: "user-1", Genres: []string{"Adventure"}, Themes: []string{"friendship"},
		ArtStyle: "Traditional", TargetAudience: "Teens", ContentRating: "PG",
	}))

	rec := doJSON(s, http.MethodPost, "/stories/story-1/episodes", "user-1", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "GENERATING", data["status"])
	assert.Equal(t, float64(1), data["episodeNumber"])
	assert.NotEmpty(t, data["episodeId"])

	assert.Equal(t, 1, bus.Len())
}
