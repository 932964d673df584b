package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

func TestDispatch_EpisodeRequested_Success(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()

	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", S3Key: "stories/user-1/story-1/story.md",
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, h.Blob.PutText(context.Background(), "stories/user-1/story-1/story.md", "# A Tale\n\nOnce upon a time.\n", "text/markdown"))

	detail := events.NewEpisodeRequestedDetail("user-1", "corr-1", "story-1", 1, "stories/user-1/story-1/story.md", "", prefs)
	env, err := events.NewEpisodeRequestedEnvelope(detail)
	require.NoError(t, err)

	require.NoError(t, h.Dispatch(context.Background(), env))

	episode, err := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, episode.Status)
	assert.NotEmpty(t, episode.S3Key)

	assert.Equal(t, 1, bus.Len(), "handleEpisode publishes one ImageRequested")
}

func TestDispatch_EpisodeRequested_EmptyStoryMarkdownFails(t *testing.T) {
	h, meta, _, _, _ := testHandlers()

	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", S3Key: "stories/user-1/story-1/story.md",
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, h.Blob.PutText(context.Background(), "stories/user-1/story-1/story.md", "", "text/markdown"))

	detail := events.NewEpisodeRequestedDetail("user-1", "corr-1", "story-1", 1, "stories/user-1/story-1/story.md", "", prefs)
	env, err := events.NewEpisodeRequestedEnvelope(detail)
	require.NoError(t, err)

	err = h.Dispatch(context.Background(), env)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	episode, getErr := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, episode.Status)
}

func TestDispatch_EpisodeRequested_RedeliveryReusesExistingEpisodeID(t *testing.T) {
	h, meta, _, _, _ := testHandlers()

	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", S3Key: "stories/user-1/story-1/story.md",
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, meta.CreateEpisode(context.Background(), models.Episode{
		EpisodeID: "existing-episode-id", StoryID: "story-1", EpisodeNumber: 1,
		Status: models.StatusProcessing, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, h.Blob.PutText(context.Background(), "stories/user-1/story-1/story.md", "# A Tale\n\nOnce upon a time.\n", "text/markdown"))

	detail := events.NewEpisodeRequestedDetail("user-1", "corr-1", "story-1", 1, "stories/user-1/story-1/story.md", "", prefs)
	env, err := events.NewEpisodeRequestedEnvelope(detail)
	require.NoError(t, err)

	require.NoError(t, h.Dispatch(context.Background(), env))

	episode, err := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "existing-episode-id", episode.EpisodeID)
}

func TestDispatch_ContinueEpisodeRequested_UsesPresetEpisodeID(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()

	now := time.Now().UTC()
	require.NoError(t, meta.CreateStory(context.Background(), models.Story{
		StoryID: "story-1", UserID: "user-1", S3Key: "stories/user-1/story-1/story.md",
		Status: models.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, h.Blob.PutText(context.Background(), "stories/user-1/story-1/story.md", "# A Tale\n\nOnce upon a time.\n", "text/markdown"))

	detail := events.NewContinueEpisodeRequestedDetail("user-1", "corr-1", "story-1", "preset-episode-id", 2, prefs, "stories/user-1/story-1/story.md")
	env, err := events.NewContinueEpisodeRequestedEnvelope(detail)
	require.NoError(t, err)

	require.NoError(t, h.Dispatch(context.Background(), env))

	episode, err := meta.GetEpisode(context.Background(), "story-1", 2)
	require.NoError(t, err)
	assert.Equal(t, "preset-episode-id", episode.EpisodeID)
	assert.Equal(t, models.StatusCompleted, episode.Status)

	assert.Equal(t, 1, bus.Len())
}
