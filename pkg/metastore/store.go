// Package metastore defines typed access to request/story/episode/
// preference records (C1, spec §4.1). The production adapter is backed by
// a single DynamoDB table with the `by-status` and `by-entity-id` GSIs
// described in spec §6; an in-memory fake provides the same contract for
// tests.
package metastore

import (
	"context"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// RequestUpdate carries the optional observability fields a
// GenerationRequest status update may set alongside the new status.
type RequestUpdate struct {
	ErrorMessage *string
	Progress     *int
	CurrentStep  *string
}

// StoryUpdate carries the optional fields a Story status update may set.
type StoryUpdate struct {
	Title *string
	S3Key *string
}

// EpisodeUpdate carries the optional fields an Episode status update may
// set.
type EpisodeUpdate struct {
	S3Key        *string
	PDFS3Key     *string
	ImageCount   *int
	ErrorMessage *string
}

// MetaStore is the capability interface C1 exposes to the rest of the
// core. All reads are read-your-writes within a single handler
// invocation; no cross-region replication assumptions.
//
// UpdateRequestStatus, UpdateStoryStatus, and UpdateEpisodeStatus are
// conditional updates: they fail with apperrors.KindConflict if the
// target record is missing, and enforce the monotone status chain of
// models.Status. A same-status call on an already-terminal record is a
// no-op (idempotent replay), not an error.
type MetaStore interface {
	CreateRequest(ctx context.Context, req models.GenerationRequest) error
	UpdateRequestStatus(ctx context.Context, requestID string, status models.Status, update RequestUpdate) error
	GetRequestByUserAndId(ctx context.Context, userID, requestID string) (*models.GenerationRequest, error)

	CreateStory(ctx context.Context, story models.Story) error
	UpdateStoryStatus(ctx context.Context, storyID string, status models.Status, update StoryUpdate) error
	GetStory(ctx context.Context, userID, storyID string) (*models.Story, error)
	ListUserStories(ctx context.Context, userID string) ([]models.Story, error)

	CreateEpisode(ctx context.Context, episode models.Episode) error
	UpdateEpisodeStatus(ctx context.Context, storyID string, episodeNumber int, status models.Status, update EpisodeUpdate) error
	GetEpisode(ctx context.Context, storyID string, episodeNumber int) (*models.Episode, error)
	ListStoryEpisodes(ctx context.Context, storyID string) ([]models.Episode, error)

	GetLatestPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error

	// CreateBatchWorkflow, GetBatchWorkflow, IncrementStoriesCompleted, and
	// AdvanceBatchWave back the batch advancer (C11): tracking
	// storiesCompleted and the current wave's progress across the
	// StatusUpdate deliveries that mark each story's pipeline terminal.
	CreateBatchWorkflow(ctx context.Context, workflow models.BatchWorkflow) error
	GetBatchWorkflow(ctx context.Context, workflowID string) (*models.BatchWorkflow, error)
	// IncrementStoriesCompleted atomically increments StoriesCompleted and
	// WaveCompleted by one, returning the updated record. The caller
	// decides whether this increment completes the current wave; it must
	// not call this twice for the same story's terminal outcome.
	IncrementStoriesCompleted(ctx context.Context, workflowID string) (*models.BatchWorkflow, error)
	// AdvanceBatchWave sets CurrentBatch to nextBatch and starts tracking a
	// new wave of waveSize stories, resetting WaveCompleted to 0. A call
	// observing CurrentBatch already at or past nextBatch is a no-op, so
	// redelivery of the StatusUpdate that triggered the advance cannot
	// double-reset a wave already in flight.
	AdvanceBatchWave(ctx context.Context, workflowID string, nextBatch, waveSize int) (*models.BatchWorkflow, error)
	MarkBatchWorkflowStatus(ctx context.Context, workflowID string, status models.Status) error
}
