// Package handlers implements the event-driven stage handlers (C8-C11,
// spec §4.8-§4.11): story generation, episode generation, image/PDF
// assembly, and batch advancement. Handlers are polymorphic over the
// variant set decoded by pkg/events and are dispatched by pkg/orchestrator.
package handlers

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/blobstore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/generation"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
)

// Handlers wires the five capability interfaces and configuration needed
// by the stage handlers. One instance is shared by every worker goroutine
// in pkg/orchestrator; handlers carry no per-invocation state themselves.
type Handlers struct {
	Meta  metastore.MetaStore
	Blob  blobstore.BlobStore
	Bus   eventbus.EventBus
	Text  generation.TextGen
	Image generation.ImageGen

	ImageRetry *config.ImageRetryConfig
	Scene      *config.SceneConfig
	PDF        *config.PDFConfig
}

// New builds a Handlers from its dependencies and configuration.
func New(meta metastore.MetaStore, blob blobstore.BlobStore, bus eventbus.EventBus, text generation.TextGen, image generation.ImageGen, imageRetry *config.ImageRetryConfig, scene *config.SceneConfig, pdf *config.PDFConfig) *Handlers {
	return &Handlers{
		Meta: meta, Blob: blob, Bus: bus, Text: text, Image: image,
		ImageRetry: imageRetry, Scene: scene, PDF: pdf,
	}
}

// Dispatch decodes envelope and routes it to the matching stage handler
// (spec §9 "Polymorphism over events"). An unknown detail-type is a
// permanent failure: Decode itself returns a plain error, not an
// *apperrors.AppError, which the orchestrator's IsRetryable check treats
// as non-transient (ack, do not redeliver).
func (h *Handlers) Dispatch(ctx context.Context, env events.Envelope) error {
	detail, err := events.Decode(env)
	if err != nil {
		return err
	}

	switch v := detail.(type) {
	case events.BatchStoryRequested:
		return h.HandleBatchStoryRequested(ctx, v)
	case events.StoryRequested:
		return h.HandleStoryRequested(ctx, v)
	case events.EpisodeRequested:
		return h.handleEpisode(ctx, episodeWork{
			StoryID: v.StoryID, EpisodeNumber: v.EpisodeNumber,
			StoryS3Key: v.StoryS3Key, Preferences: v.Preferences,
			UserID: v.UserID, CorrelationID: v.CorrelationID,
			WorkflowID: v.WorkflowID,
		})
	case events.ContinueEpisodeRequested:
		return h.handleEpisode(ctx, episodeWork{
			StoryID: v.StoryID, EpisodeNumber: v.NextEpisodeNumber,
			StoryS3Key: v.StoryS3Key, Preferences: v.OriginalPreferences,
			UserID: v.UserID, CorrelationID: v.CorrelationID,
			PresetEpisodeID: v.EpisodeID,
		})
	case events.ImageRequested:
		return h.HandleImageRequested(ctx, v)
	case events.StatusUpdate:
		return h.HandleStatusUpdate(ctx, v)
	default:
		slog.Error("dispatch: decoded detail of unrecognized type", "detail_type", env.DetailType)
		return nil
	}
}
