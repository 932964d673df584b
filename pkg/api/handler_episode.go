package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// continueEpisodeHandler handles POST /stories/:storyId/episodes (C7, spec
// §4.7): generates the next episode of an already-completed story.
func (s *Server) continueEpisodeHandler(c *echo.Context) error {
	principal, ok := principalFrom(c)
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required").WithCode("UNAUTHORIZED"))
	}

	storyID := c.Param("storyId")
	if storyID == "" {
		return s.writeError(c, apperrors.New(apperrors.KindValidation, "storyId is required").WithCode("VALIDATION_ERROR"))
	}

	rlKey := fmt.Sprintf("continue-episode-%s-%s", principal.Sub, c.RealIP())
	if !s.limiter.Allow(rlKey, s.rates.ContinueEpisodeLimit.MaxRequests, s.rates.ContinueEpisodeLimit.Window) {
		return s.writeError(c, apperrors.NewRateLimitedError("continue-episode rate limit exceeded").WithCode("RATE_LIMIT_EXCEEDED"))
	}

	ctx := c.Request().Context()
	story, err := s.meta.GetStory(ctx, principal.Sub, storyID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return s.writeError(c, apperrors.NewNotFoundError("story").WithCode("STORY_NOT_FOUND"))
		}
		return s.writeError(c, err)
	}
	if story.Status != models.StatusCompleted {
		return s.writeError(c, apperrors.New(apperrors.KindValidation, "story is not yet completed").
			WithCode("STORY_NOT_COMPLETED").
			WithContext(map[string]any{"status": string(story.Status)}))
	}

	episodes, err := s.meta.ListStoryEpisodes(ctx, storyID)
	if err != nil {
		return s.writeError(c, err)
	}
	next := len(episodes) + 1
	for _, ep := range episodes {
		if ep.EpisodeNumber == next {
			return s.writeError(c, apperrors.New(apperrors.KindConflict, "episode already exists").
				WithCode("EPISODE_ALREADY_EXISTS").
				WithContext(map[string]any{
					"episodeId":     ep.EpisodeID,
					"episodeNumber": ep.EpisodeNumber,
					"status":        string(ep.Status),
				}))
		}
	}

	prefs, err := s.meta.GetLatestPreferences(ctx, principal.Sub)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return s.writeError(c, apperrors.New(apperrors.KindValidation, "no preferences on file for this user").WithCode("PREFERENCES_NOT_FOUND"))
		}
		return s.writeError(c, err)
	}

	episodeID := uuid.NewString()
	requestID := uuid.NewString()
	now := time.Now().UTC()

	if err := s.meta.CreateRequest(ctx, models.GenerationRequest{
		RequestID: requestID, UserID: principal.Sub, Type: models.RequestTypeEpisode,
		Status: models.StatusProcessing, RelatedEntityID: episodeID,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return s.writeError(c, err)
	}

	detail := events.NewContinueEpisodeRequestedDetail(
		principal.Sub, requestID, storyID, episodeID, next, *prefs, story.S3Key,
	)
	env, err := events.NewContinueEpisodeRequestedEnvelope(detail)
	if err != nil {
		return s.writeError(c, apperrors.Wrap(err, apperrors.KindInternal, "build continue episode requested envelope"))
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		return s.writeError(c, err)
	}

	return writeSuccess(c, http.StatusAccepted, ContinueEpisodeResponse{
		EpisodeID:               episodeID,
		EpisodeNumber:           next,
		Status:                  "GENERATING",
		EstimatedCompletionTime: now.Add(2 * time.Minute).Format(time.RFC3339),
	})
}
