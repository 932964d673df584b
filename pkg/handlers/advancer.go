package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// HandleStatusUpdate implements the batch advancer (C11, spec §4.11). It
// only acts on the terminal IMAGE-stage StatusUpdate of a story that
// belongs to a batch (WorkflowID set); story/episode-stage updates and
// standalone (non-batch) image updates are no-ops here.
//
// A wave is the batchSize-sized (or smaller, for the final partial wave)
// cohort of stories currently in flight. CurrentBatch only advances, and
// the next wave's StoryRequested events only publish, once every story of
// the current wave has reached a terminal IMAGE-stage outcome: counting
// each individual completion as a wave boundary (the prior behavior) over-
// launches stories whenever batchSize > 1 (spec §8 "Batch progression":
// numberOfStories=N emits exactly N StoryRequested events and N terminal
// story states).
func (h *Handlers) HandleStatusUpdate(ctx context.Context, v events.StatusUpdate) error {
	if v.Stage != events.StageImage || v.WorkflowID == "" {
		return nil
	}
	log := slog.With("workflow_id", v.WorkflowID, "correlation_id", v.CorrelationID, "outcome", v.Outcome)

	workflow, err := h.Meta.GetBatchWorkflow(ctx, v.WorkflowID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			log.Debug("status update for unknown workflow, ignoring")
			return nil
		}
		return err
	}
	if workflow.Status.IsTerminal() {
		log.Debug("workflow already terminal, ignoring redelivered status update")
		return nil
	}

	updated, err := h.Meta.IncrementStoriesCompleted(ctx, v.WorkflowID)
	if err != nil {
		log.Error("increment batch progress failed", "error", err)
		return err
	}

	if updated.Done() {
		if err := h.Meta.MarkBatchWorkflowStatus(ctx, v.WorkflowID, models.StatusCompleted); err != nil {
			log.Error("mark batch workflow completed failed", "error", err)
			return err
		}
		log.Info("batch workflow completed", "stories_completed", updated.StoriesCompleted)
		return nil
	}

	if updated.WaveCompleted < updated.WaveSize {
		log.Debug("wave still in flight", "wave_completed", updated.WaveCompleted, "wave_size", updated.WaveSize)
		return nil
	}

	waveSize := updated.BatchSize
	if waveSize < 1 {
		waveSize = 1
	}
	if remaining := updated.NumberOfStories - updated.StoriesCompleted; waveSize > remaining {
		waveSize = remaining
	}
	nextBatch := updated.CurrentBatch + 1

	storyIDs := make([]string, waveSize)
	for i := range storyIDs {
		storyIDs[i] = uuid.NewString()
	}

	now := time.Now().UTC()
	for _, storyID := range storyIDs {
		if err := h.Meta.CreateStory(ctx, models.Story{
			StoryID: storyID, UserID: updated.UserID, Status: models.StatusPending,
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			log.Error("create story record for next wave failed", "error", err)
			return err
		}
	}

	if _, err := h.Meta.AdvanceBatchWave(ctx, v.WorkflowID, nextBatch, waveSize); err != nil {
		log.Error("advance batch wave failed", "error", err)
		return err
	}

	for _, storyID := range storyIDs {
		detail := events.NewStoryRequestedDetail(
			updated.UserID, v.CorrelationID, storyID, updated.RequestID, v.WorkflowID,
			updated.Preferences, updated.Insights,
		)
		env, envErr := events.NewStoryRequestedEnvelope(detail)
		if envErr != nil {
			return apperrors.Wrap(envErr, apperrors.KindInternal, "build story requested envelope")
		}
		if pubErr := h.Bus.Publish(ctx, env); pubErr != nil {
			log.Error("publish next wave story failed", "error", pubErr)
			return pubErr
		}
	}

	log.Info("batch advanced to next wave", "current_batch", nextBatch, "wave_size", waveSize, "stories_completed", updated.StoriesCompleted)
	return nil
}
