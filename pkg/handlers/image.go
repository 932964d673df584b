package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/pdfgen"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/scenes"
)

// pngMagic is the PNG file signature validated before an image is accepted
// (spec §4.10 step 6).
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	minImageSize = 1024             // 1 KB
	maxImageSize = 10 * 1024 * 1024 // 10 MB
)

// HandleImageRequested implements the image/PDF handler (C10, spec §4.10).
func (h *Handlers) HandleImageRequested(ctx context.Context, v events.ImageRequested) error {
	userID, storyID, episodeNumber, err := parseEpisodeKey(v.EpisodeS3Key)
	if err != nil {
		return err
	}
	log := slog.With("story_id", storyID, "episode_number", episodeNumber, "correlation_id", v.CorrelationID, "user_id", userID)

	episode, err := h.Meta.GetEpisode(ctx, storyID, episodeNumber)
	if err != nil {
		return err
	}
	if episode.Status != models.StatusCompleted {
		return apperrors.Newf(apperrors.KindConflict, "episode %s is not COMPLETED (status=%s)", v.EpisodeID, episode.Status)
	}
	if episode.PDFS3Key != nil {
		log.Info("image requested: pdf already present, treating as idempotent replay")
		return h.publishImageStatus(ctx, v, events.OutcomeCompleted, nil)
	}

	if err := h.Meta.UpdateEpisodeStatus(ctx, storyID, episodeNumber, models.StatusProcessing, metastore.EpisodeUpdate{}); err != nil {
		log.Error("mark episode processing failed", "error", err)
		return err
	}

	episodeMarkdown, err := h.Blob.GetText(ctx, v.EpisodeS3Key)
	if err != nil || episodeMarkdown == "" {
		if err == nil {
			err = apperrors.New(apperrors.KindValidation, "episode markdown is empty")
		}
		return h.failImage(ctx, v, storyID, episodeNumber, err)
	}

	maxScenes := 8
	if h.Scene != nil && h.Scene.MaxScenesPerEpisode > 0 {
		maxScenes = h.Scene.MaxScenesPerEpisode
	}
	sceneList := scenes.Extract(episodeMarkdown, maxScenes)

	images := h.generateSceneImages(ctx, log, sceneList)
	if len(images) == 0 {
		err := apperrors.New(apperrors.KindInternal, "no scene images succeeded")
		return h.failImage(ctx, v, storyID, episodeNumber, err)
	}

	pdfBytes, err := pdfgen.Assemble(pdfgen.Metadata{
		StoryID: storyID, EpisodeID: v.EpisodeID, EpisodeNumber: episodeNumber,
		UserID: userID, Title: episodeTitle(episodeMarkdown), GeneratedAt: time.Now().UTC(),
	}, images, h.PDF)
	if err != nil {
		log.Error("assemble pdf failed", "error", err)
		return h.failImage(ctx, v, storyID, episodeNumber, err)
	}

	pdfKey := episodePDFKey(userID, storyID, episodeNumber)
	if err := h.Blob.PutBinary(ctx, pdfKey, pdfBytes, "application/pdf"); err != nil {
		log.Error("write pdf failed", "error", err)
		return h.failImage(ctx, v, storyID, episodeNumber, err)
	}

	imageCount := len(images)
	if err := h.Meta.UpdateEpisodeStatus(ctx, storyID, episodeNumber, models.StatusCompleted, metastore.EpisodeUpdate{
		PDFS3Key: &pdfKey, ImageCount: &imageCount,
	}); err != nil {
		log.Error("mark episode image-complete failed", "error", err)
		return err
	}

	log.Info("image generation completed", "image_count", imageCount)
	return h.publishImageStatus(ctx, v, events.OutcomeCompleted, nil)
}

// generateSceneImages runs C10 step 6: sequential, ordered, bounded-retry
// image generation per scene with an inter-scene pause between successes.
// Scenes that exhaust retries or produce an invalid image are dropped;
// partial success is allowed (spec §4.10 step 7-8).
func (h *Handlers) generateSceneImages(ctx context.Context, log *slog.Logger, sceneList []scenes.Scene) []pdfgen.SceneImage {
	retry := h.ImageRetry
	maxAttempts := 3
	var backoff []time.Duration
	var interSceneDelay time.Duration
	if retry != nil {
		maxAttempts = retry.MaxAttempts
		backoff = retry.Backoff
		interSceneDelay = retry.InterSceneDelay
	}

	var images []pdfgen.SceneImage
	for _, scene := range sceneList {
		data, err := h.generateOneSceneImage(ctx, scene, maxAttempts, backoff)
		if err != nil {
			log.Warn("scene image generation exhausted retries", "scene_index", scene.Index, "error", err)
			images = append(images, pdfgen.SceneImage{Index: scene.Index, Prompt: scene.Prompt})
			continue
		}
		images = append(images, pdfgen.SceneImage{Index: scene.Index, ImageData: data, Prompt: scene.Prompt})
		if interSceneDelay > 0 {
			time.Sleep(interSceneDelay)
		}
	}

	successful := images[:0:0]
	for _, img := range images {
		if len(img.ImageData) > 0 {
			successful = append(successful, img)
		}
	}
	return successful
}

// generateOneSceneImage attempts scene generation up to maxAttempts times,
// sleeping backoff[i] before retry i+1. The distinguished permanent kinds
// are never retried (spec §4.10 step 6).
func (h *Handlers) generateOneSceneImage(ctx context.Context, scene scenes.Scene, maxAttempts int, backoff []time.Duration) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if d := backoffFor(backoff, attempt-1); d > 0 {
				time.Sleep(d)
			}
		}

		result, err := h.Image.Generate(ctx, scene.Prompt)
		if err == nil {
			if !isValidImage(result.ImageData) {
				lastErr = apperrors.New(apperrors.KindInternal, "generated image failed validity check")
				continue
			}
			return result.ImageData, nil
		}
		lastErr = err
		if isPermanentImageError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func backoffFor(backoff []time.Duration, idx int) time.Duration {
	if idx < 0 || idx >= len(backoff) {
		return 0
	}
	return backoff[idx]
}

func isPermanentImageError(err error) bool {
	return apperrors.IsKind(err, apperrors.KindContentFiltered) ||
		apperrors.IsKind(err, apperrors.KindModelNotFound) ||
		apperrors.IsKind(err, apperrors.KindInvalidPrompt)
}

// isValidImage enforces the PNG-magic and byte-length bounds of spec
// §4.10 step 6 / §8.
func isValidImage(data []byte) bool {
	return len(data) >= minImageSize && len(data) <= maxImageSize && bytes.HasPrefix(data, pngMagic)
}

// failImage marks the episode FAILED and publishes the terminal IMAGE
// StatusUpdate before re-raising cause (spec §4.10 step 7).
func (h *Handlers) failImage(ctx context.Context, v events.ImageRequested, storyID string, episodeNumber int, cause error) error {
	msg := apperrors.SafeErrorMessage(cause)
	if updErr := h.Meta.UpdateEpisodeStatus(ctx, storyID, episodeNumber, models.StatusFailed, metastore.EpisodeUpdate{ErrorMessage: &msg}); updErr != nil {
		slog.Error("mark episode image-failed failed", "error", updErr)
	}
	if pubErr := h.publishImageStatus(ctx, v, events.OutcomeFailed, &msg); pubErr != nil {
		slog.Error("publish image failed status update failed", "error", pubErr)
	}
	return cause
}

func (h *Handlers) publishImageStatus(ctx context.Context, v events.ImageRequested, outcome events.Outcome, errorMessage *string) error {
	detail := events.NewStatusUpdateDetail(v.UserID, v.CorrelationID, v.EpisodeID, events.StageImage, outcome, errorMessage, v.WorkflowID)
	env, err := events.NewStatusUpdateEnvelope(events.SourceEpisode, detail)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, "build status update envelope")
	}
	return h.Bus.Publish(ctx, env)
}

// episodeTitle returns the first top-level markdown heading in markdown, or
// "Episode" if none is present.
func episodeTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return "Episode"
}
