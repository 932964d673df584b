package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_CreateAndUpdateRequest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	req := models.GenerationRequest{
		RequestID: "req-1", UserID: "u1", Type: models.RequestTypeStory,
		Status: models.StatusPending, RelatedEntityID: "workflow-1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateRequest(ctx, req))

	require.NoError(t, store.UpdateRequestStatus(ctx, "req-1", models.StatusProcessing, RequestUpdate{}))

	got, err := store.GetRequestByUserAndId(ctx, "u1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestInMemoryStore_UpdateRequestStatus_MissingRecordIsConflict(t *testing.T) {
	store := NewInMemoryStore()
	err := store.UpdateRequestStatus(context.Background(), "ghost", models.StatusProcessing, RequestUpdate{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInMemoryStore_UpdateRequestStatus_RejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	req := models.GenerationRequest{RequestID: "req-1", UserID: "u1", Status: models.StatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateRequest(ctx, req))

	err := store.UpdateRequestStatus(ctx, "req-1", models.StatusCompleted, RequestUpdate{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInMemoryStore_UpdateRequestStatus_SameTerminalStatusIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	req := models.GenerationRequest{RequestID: "req-1", UserID: "u1", Status: models.StatusProcessing, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateRequest(ctx, req))
	require.NoError(t, store.UpdateRequestStatus(ctx, "req-1", models.StatusCompleted, RequestUpdate{}))

	err := store.UpdateRequestStatus(ctx, "req-1", models.StatusCompleted, RequestUpdate{})
	assert.NoError(t, err)

	got, err := store.GetRequestByUserAndId(ctx, "u1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestInMemoryStore_StoryOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.CreateStory(ctx, models.Story{StoryID: "s1", UserID: "u1", Status: models.StatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}))

	_, err := store.GetStory(ctx, "u2", "s1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	got, err := store.GetStory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.StoryID)
}

func TestInMemoryStore_ListStoryEpisodes_ReturnsAscending(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for _, n := range []int{3, 1, 2} {
		require.NoError(t, store.CreateEpisode(ctx, models.Episode{
			EpisodeID: "e", StoryID: "s1", EpisodeNumber: n, Status: models.StatusPending,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}))
	}

	episodes, err := store.ListStoryEpisodes(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, 1, episodes[0].EpisodeNumber)
	assert.Equal(t, 2, episodes[1].EpisodeNumber)
	assert.Equal(t, 3, episodes[2].EpisodeNumber)
}

func TestInMemoryStore_UpdateEpisodeStatus_MissingRecordIsConflict(t *testing.T) {
	store := NewInMemoryStore()
	err := store.UpdateEpisodeStatus(context.Background(), "s1", 1, models.StatusProcessing, EpisodeUpdate{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestInMemoryStore_PreferencesNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.GetLatestPreferences(context.Background(), "nobody")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestInMemoryStore_SaveAndGetLatestPreferences(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	prefs := models.Preferences{UserID: "u1", Genres: []string{"Fantasy"}, ArtStyle: "Chibi"}
	require.NoError(t, store.SavePreferences(ctx, prefs))

	got, err := store.GetLatestPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Chibi", got.ArtStyle)

	// latest-writes-win
	prefs.ArtStyle = "Dark"
	require.NoError(t, store.SavePreferences(ctx, prefs))
	got, err = store.GetLatestPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Dark", got.ArtStyle)
}

func TestInMemoryStore_BatchWorkflowProgress(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	workflow := models.BatchWorkflow{
		WorkflowID: "wf-1", RequestID: "req-1", UserID: "u1",
		NumberOfStories: 5, BatchSize: 2, TotalBatches: 3, WaveSize: 1,
		Status: models.StatusProcessing, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateBatchWorkflow(ctx, workflow))

	// creating the same workflow twice is an idempotent no-op
	require.NoError(t, store.CreateBatchWorkflow(ctx, workflow))

	updated, err := store.IncrementStoriesCompleted(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.StoriesCompleted)
	assert.Equal(t, 1, updated.WaveCompleted)
	assert.False(t, updated.Done())

	updated, err = store.AdvanceBatchWave(ctx, "wf-1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentBatch)
	assert.Equal(t, 2, updated.WaveSize)
	assert.Equal(t, 0, updated.WaveCompleted)

	// a redelivered advance to the same (or an earlier) wave is a no-op
	stale, err := store.AdvanceBatchWave(ctx, "wf-1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stale.CurrentBatch)

	for i := 0; i < 4; i++ {
		_, err := store.IncrementStoriesCompleted(ctx, "wf-1")
		require.NoError(t, err)
	}

	got, err := store.GetBatchWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.StoriesCompleted)
	assert.True(t, got.Done())

	require.NoError(t, store.MarkBatchWorkflowStatus(ctx, "wf-1", models.StatusCompleted))
	got, err = store.GetBatchWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestInMemoryStore_BatchWorkflowNotFound(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.GetBatchWorkflow(ctx, "ghost")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = store.IncrementStoriesCompleted(ctx, "ghost")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = store.AdvanceBatchWave(ctx, "ghost", 2, 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	err = store.MarkBatchWorkflowStatus(ctx, "ghost", models.StatusCompleted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}
