package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/blobstore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/generation"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

func fastImageRetryConfig() *config.ImageRetryConfig {
	return &config.ImageRetryConfig{
		MaxAttempts:     3,
		Backoff:         []time.Duration{time.Millisecond, 2 * time.Millisecond},
		InterSceneDelay: 0,
	}
}

const testEpisodeMarkdown = "# Episode 1\n\nA hero stands at the gate.\n\n[Scene Break]\n\nThe gate opens onto a ruined city.\n"

func setupCompletedEpisode(t *testing.T, meta *metastore.InMemoryStore, blob *blobstore.InMemoryStore) string {
	t.Helper()
	now := time.Now().UTC()
	key := episodeKey("user-1", "story-1", 1)
	require.NoError(t, meta.CreateEpisode(context.Background(), models.Episode{
		EpisodeID: "episode-1", StoryID: "story-1", EpisodeNumber: 1,
		Status: models.StatusCompleted, S3Key: key, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, blob.PutText(context.Background(), key, testEpisodeMarkdown, "text/markdown"))
	return key
}

func TestHandleImageRequested_Success(t *testing.T) {
	meta := metastore.NewInMemoryStore()
	blob := blobstore.NewInMemoryStore()
	bus := eventbus.NewInMemoryBus()
	image := generation.NewFakeImageGen()
	h := New(meta, blob, bus, generation.NewFakeTextGen(), image, fastImageRetryConfig(), &config.SceneConfig{MaxScenesPerEpisode: 8}, config.DefaultPDFConfig())

	key := setupCompletedEpisode(t, meta, blob)
	detail := events.NewImageRequestedDetail("user-1", "corr-1", "episode-1", key, "")

	require.NoError(t, h.HandleImageRequested(context.Background(), detail))

	episode, err := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, err)
	assert.NotNil(t, episode.PDFS3Key)
	assert.Greater(t, episode.ImageCount, 0)
	assert.Equal(t, 1, bus.Len())
}

func TestHandleImageRequested_IdempotentReplayWhenPDFAlreadyPresent(t *testing.T) {
	meta := metastore.NewInMemoryStore()
	blob := blobstore.NewInMemoryStore()
	bus := eventbus.NewInMemoryBus()
	image := generation.NewFakeImageGen()
	h := New(meta, blob, bus, generation.NewFakeTextGen(), image, fastImageRetryConfig(), &config.SceneConfig{MaxScenesPerEpisode: 8}, config.DefaultPDFConfig())

	key := setupCompletedEpisode(t, meta, blob)
	existingPDFKey := episodePDFKey("user-1", "story-1", 1)
	require.NoError(t, meta.UpdateEpisodeStatus(context.Background(), "story-1", 1, models.StatusCompleted, metastore.EpisodeUpdate{PDFS3Key: &existingPDFKey}))

	detail := events.NewImageRequestedDetail("user-1", "corr-1", "episode-1", key, "")
	require.NoError(t, h.HandleImageRequested(context.Background(), detail))

	assert.Equal(t, 0, image.Calls(), "replay must not regenerate images")
	assert.Equal(t, 1, bus.Len(), "replay still publishes the completed status update")
}

func TestHandleImageRequested_PartialSceneFailureStillSucceeds(t *testing.T) {
	meta := metastore.NewInMemoryStore()
	blob := blobstore.NewInMemoryStore()
	bus := eventbus.NewInMemoryBus()
	image := generation.NewFakeImageGen()
	image.FailNext(apperrors.NewContentFilteredError("scene 0 violates policy"))
	h := New(meta, blob, bus, generation.NewFakeTextGen(), image, fastImageRetryConfig(), &config.SceneConfig{MaxScenesPerEpisode: 8}, config.DefaultPDFConfig())

	key := setupCompletedEpisode(t, meta, blob)
	detail := events.NewImageRequestedDetail("user-1", "corr-1", "episode-1", key, "")

	require.NoError(t, h.HandleImageRequested(context.Background(), detail))

	episode, err := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, episode.ImageCount, "one of two scenes failed permanently, one succeeded")
}

func TestHandleImageRequested_AllScenesFailMarksEpisodeFailed(t *testing.T) {
	meta := metastore.NewInMemoryStore()
	blob := blobstore.NewInMemoryStore()
	bus := eventbus.NewInMemoryBus()
	image := generation.NewFakeImageGen()
	contentErr := apperrors.NewContentFilteredError("blocked")
	image.FailNext(contentErr)
	image.FailNext(contentErr)
	h := New(meta, blob, bus, generation.NewFakeTextGen(), image, fastImageRetryConfig(), &config.SceneConfig{MaxScenesPerEpisode: 8}, config.DefaultPDFConfig())

	key := setupCompletedEpisode(t, meta, blob)
	detail := events.NewImageRequestedDetail("user-1", "corr-1", "episode-1", key, "")

	err := h.HandleImageRequested(context.Background(), detail)
	require.Error(t, err)

	episode, getErr := meta.GetEpisode(context.Background(), "story-1", 1)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, episode.Status)
}

func TestIsValidImage(t *testing.T) {
	assert.False(t, isValidImage(nil))
	assert.False(t, isValidImage([]byte("not a png")))

	valid := append(append([]byte{}, pngMagic...), make([]byte, minImageSize)...)
	assert.True(t, isValidImage(valid))
	assert.False(t, isValidImage(append(append([]byte{}, pngMagic...), make([]byte, maxImageSize+1)...)))
}

func TestIsPermanentImageError(t *testing.T) {
	assert.True(t, isPermanentImageError(apperrors.NewContentFilteredError("x")))
	assert.True(t, isPermanentImageError(apperrors.NewModelNotFoundError("x")))
	assert.True(t, isPermanentImageError(apperrors.NewInvalidPromptError("x")))
	assert.False(t, isPermanentImageError(apperrors.NewTransientError(nil, "timeout")))
}

func TestEpisodeTitle(t *testing.T) {
	assert.Equal(t, "Episode 1", episodeTitle(testEpisodeMarkdown))
	assert.Equal(t, "Episode", episodeTitle("no heading here"))
}
