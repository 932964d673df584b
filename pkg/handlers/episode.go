package handlers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// episodeWork is the common set of fields handleEpisode needs regardless of
// whether it arrived as EpisodeRequested (first episode, from C8) or
// ContinueEpisodeRequested (C7 -> C9).
type episodeWork struct {
	UserID        string
	CorrelationID string
	StoryID       string
	EpisodeNumber int
	StoryS3Key    string
	WorkflowID    string
	Preferences   models.Preferences

	// PresetEpisodeID is the episodeId C7 already minted and returned to
	// the caller before publishing ContinueEpisodeRequested (spec §4.7
	// step 7). Empty for the EpisodeRequested path, where no episode
	// exists yet and ensureEpisode mints the id itself.
	PresetEpisodeID string
}

// handleEpisode implements the episode handler (C9, spec §4.9).
func (h *Handlers) handleEpisode(ctx context.Context, w episodeWork) error {
	log := slog.With("story_id", w.StoryID, "episode_number", w.EpisodeNumber, "correlation_id", w.CorrelationID, "user_id", w.UserID)

	episodeID, err := h.ensureEpisode(ctx, w)
	if err != nil {
		log.Error("create episode record failed", "error", err)
		return err
	}

	storyMarkdown, err := h.Blob.GetText(ctx, w.StoryS3Key)
	if err != nil {
		log.Warn("load story markdown failed", "error", err)
		return h.failEpisode(ctx, w, episodeID, err)
	}
	if storyMarkdown == "" {
		err := apperrors.New(apperrors.KindValidation, "story markdown is empty")
		return h.failEpisode(ctx, w, episodeID, err)
	}

	result, err := h.Text.GenerateEpisode(ctx, storyMarkdown, w.EpisodeNumber, w.Preferences)
	if err != nil {
		log.Warn("episode text generation failed", "error", err)
		return h.failEpisode(ctx, w, episodeID, err)
	}

	key := episodeKey(w.UserID, w.StoryID, w.EpisodeNumber)
	if err := h.Blob.PutText(ctx, key, result.Markdown, "text/markdown"); err != nil {
		log.Error("write episode markdown failed", "error", err)
		return h.failEpisode(ctx, w, episodeID, err)
	}

	if err := h.Meta.UpdateEpisodeStatus(ctx, w.StoryID, w.EpisodeNumber, models.StatusCompleted, metastore.EpisodeUpdate{S3Key: &key}); err != nil {
		log.Error("mark episode completed failed", "error", err)
		return err
	}

	detail := events.NewImageRequestedDetail(w.UserID, w.CorrelationID, episodeID, key, w.WorkflowID)
	env, err := events.NewImageRequestedEnvelope(detail)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, "build image requested envelope")
	}
	if err := h.Bus.Publish(ctx, env); err != nil {
		log.Error("publish image requested failed", "error", err)
		return err
	}

	log.Info("episode generation completed")
	return nil
}

// ensureEpisode returns the episodeId for (storyId, episodeNumber),
// creating the record in PROCESSING if this is the first delivery (spec
// §4.9 step 1). Redelivery finds the existing record and reuses its id,
// keeping the handler idempotent.
func (h *Handlers) ensureEpisode(ctx context.Context, w episodeWork) (string, error) {
	existing, err := h.Meta.GetEpisode(ctx, w.StoryID, w.EpisodeNumber)
	if err == nil {
		return existing.EpisodeID, nil
	}
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return "", err
	}

	episodeID := w.PresetEpisodeID
	if episodeID == "" {
		episodeID = uuid.NewString()
	}
	if err := h.Meta.CreateEpisode(ctx, models.Episode{
		EpisodeID: episodeID, StoryID: w.StoryID, EpisodeNumber: w.EpisodeNumber,
		Status: models.StatusProcessing,
	}); err != nil {
		return "", err
	}
	return episodeID, nil
}

// failEpisode marks the episode FAILED and publishes the EPISODE-stage
// StatusUpdate before re-raising cause so transient failures still trigger
// bus redelivery (spec §4.9 step 7).
func (h *Handlers) failEpisode(ctx context.Context, w episodeWork, episodeID string, cause error) error {
	msg := apperrors.SafeErrorMessage(cause)
	if updErr := h.Meta.UpdateEpisodeStatus(ctx, w.StoryID, w.EpisodeNumber, models.StatusFailed, metastore.EpisodeUpdate{ErrorMessage: &msg}); updErr != nil {
		slog.Error("mark episode failed failed", "error", updErr)
	}

	detail := events.NewStatusUpdateDetail(w.UserID, w.CorrelationID, episodeID, events.StageEpisode, events.OutcomeFailed, &msg, w.WorkflowID)
	env, envErr := events.NewStatusUpdateEnvelope(events.SourceEpisode, detail)
	if envErr == nil {
		if pubErr := h.Bus.Publish(ctx, env); pubErr != nil {
			slog.Error("publish episode failed status update failed", "error", pubErr)
		}
	}
	return cause
}
