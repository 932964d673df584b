package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// storyGenWork is the common set of fields needed to drive one story's
// generation regardless of whether it arrived as a BatchStoryRequested
// (batch path, first story of a new batch) or a StoryRequested (the
// canonical C8 trigger per spec §4.8).
type storyGenWork struct {
	UserID        string
	CorrelationID string
	StoryID       string
	RequestID     string
	WorkflowID    string
	Preferences   models.Preferences
	Insights      map[string]any
}

// HandleBatchStoryRequested consumes BatchStoryRequested (C6 -> C8 per the
// control-flow diagram of spec §2). StoryID arrives already minted by the
// publisher; ensureStory looks up that id first so redelivery of this
// event reuses the existing Story record instead of minting a second one,
// mirroring ensureEpisode (episode.go) for C9.
func (h *Handlers) HandleBatchStoryRequested(ctx context.Context, v events.BatchStoryRequested) error {
	log := slog.With("workflow_id", v.WorkflowID, "request_id", v.RequestID, "correlation_id", v.CorrelationID, "current_batch", v.CurrentBatch, "story_id", v.StoryID)

	work := storyGenWork{
		UserID: v.UserID, CorrelationID: v.CorrelationID, StoryID: v.StoryID,
		RequestID: v.RequestID, WorkflowID: v.WorkflowID,
		Preferences: v.Preferences, Insights: v.Insights,
	}
	if err := h.ensureStory(ctx, work); err != nil {
		log.Error("ensure story record failed", "error", err)
		return err
	}

	return h.generateStory(ctx, work)
}

// ensureStory creates w.StoryID's Story record in PENDING if it does not
// already exist. Redelivery of the event that carries this StoryID finds
// the existing record and no-ops, keeping the handler idempotent.
func (h *Handlers) ensureStory(ctx context.Context, w storyGenWork) error {
	if _, err := h.Meta.GetStory(ctx, w.UserID, w.StoryID); err == nil {
		return nil
	} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return err
	}

	now := time.Now().UTC()
	return h.Meta.CreateStory(ctx, models.Story{
		StoryID: w.StoryID, UserID: w.UserID, Status: models.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	})
}

// HandleStoryRequested consumes StoryRequested (spec §4.8).
func (h *Handlers) HandleStoryRequested(ctx context.Context, v events.StoryRequested) error {
	return h.generateStory(ctx, storyGenWork{
		UserID: v.UserID, CorrelationID: v.CorrelationID, StoryID: v.StoryID,
		RequestID: v.RequestID, WorkflowID: v.WorkflowID,
		Preferences: v.Preferences, Insights: v.Insights,
	})
}

// generateStory runs spec §4.8 steps 1-6.
func (h *Handlers) generateStory(ctx context.Context, w storyGenWork) error {
	log := slog.With("story_id", w.StoryID, "request_id", w.RequestID, "correlation_id", w.CorrelationID, "user_id", w.UserID)

	if story, err := h.Meta.GetStory(ctx, w.UserID, w.StoryID); err == nil && story.Status == models.StatusCompleted {
		log.Info("story already completed, treating as idempotent replay")
		return nil
	}

	if err := h.Meta.UpdateStoryStatus(ctx, w.StoryID, models.StatusProcessing, metastore.StoryUpdate{}); err != nil {
		log.Error("mark story processing failed", "error", err)
		return err
	}

	result, err := h.Text.GenerateStory(ctx, w.Preferences, w.Insights)
	if err != nil {
		log.Warn("story text generation failed", "error", err)
		return h.failStory(ctx, w, err)
	}

	key := storyKey(w.UserID, w.StoryID)
	if err := h.Blob.PutText(ctx, key, result.Markdown, "text/markdown"); err != nil {
		log.Error("write story markdown failed", "error", err)
		return h.failStory(ctx, w, err)
	}

	title, s3Key := result.Title, key
	if err := h.Meta.UpdateStoryStatus(ctx, w.StoryID, models.StatusCompleted, metastore.StoryUpdate{Title: &title, S3Key: &s3Key}); err != nil {
		log.Error("mark story completed failed", "error", err)
		return err
	}

	detail := events.NewEpisodeRequestedDetail(w.UserID, w.CorrelationID, w.StoryID, 1, s3Key, w.WorkflowID, w.Preferences)
	env, err := events.NewEpisodeRequestedEnvelope(detail)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, "build episode requested envelope")
	}
	if err := h.Bus.Publish(ctx, env); err != nil {
		log.Error("publish episode requested failed", "error", err)
		return err
	}

	progress := 33
	step := "EPISODE_GENERATION"
	if err := h.Meta.UpdateRequestStatus(ctx, w.RequestID, models.StatusProcessing, metastore.RequestUpdate{CurrentStep: &step, Progress: &progress}); err != nil {
		logObservabilityConflict(log, "request progress update", err)
	}

	log.Info("story generation completed")
	return nil
}

// failStory marks the story and its owning request FAILED and publishes
// the STORY-stage StatusUpdate before re-raising err (spec §4.8 step 2,
// §7). A retryable cause is re-raised without marking anything, so the bus
// redelivers the event and the story can still complete.
func (h *Handlers) failStory(ctx context.Context, w storyGenWork, cause error) error {
	if apperrors.IsRetryable(cause) {
		return cause
	}
	msg := apperrors.SafeErrorMessage(cause)
	if updErr := h.Meta.UpdateStoryStatus(ctx, w.StoryID, models.StatusFailed, metastore.StoryUpdate{}); updErr != nil {
		slog.Error("mark story failed failed", "error", updErr)
	}
	if updErr := h.Meta.UpdateRequestStatus(ctx, w.RequestID, models.StatusFailed, metastore.RequestUpdate{ErrorMessage: &msg}); updErr != nil {
		logObservabilityConflict(slog.Default(), "request failure update", updErr)
	}

	detail := events.NewStatusUpdateDetail(w.UserID, w.CorrelationID, w.StoryID, events.StageStory, events.OutcomeFailed, &msg, w.WorkflowID)
	env, envErr := events.NewStatusUpdateEnvelope(events.SourceStory, detail)
	if envErr == nil {
		if pubErr := h.Bus.Publish(ctx, env); pubErr != nil {
			slog.Error("publish story failed status update failed", "error", pubErr)
		}
	}
	return cause
}

// logObservabilityConflict swallows a KindConflict error from an
// observability-only MetaStore write (the shared batch GenerationRequest
// may already be terminal from a sibling story's failure) rather than
// failing the whole handler over a progress field. Any other error kind is
// logged the same way: these updates are best-effort by design.
func logObservabilityConflict(log *slog.Logger, op string, err error) {
	if apperrors.IsKind(err, apperrors.KindConflict) {
		log.Debug(op+" skipped: request already terminal", "error", err)
		return
	}
	log.Warn(op+" failed", "error", err)
}
