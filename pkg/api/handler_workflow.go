package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// startWorkflowHandler handles POST /workflow/start (C6, spec §4.6).
func (s *Server) startWorkflowHandler(c *echo.Context) error {
	principal, ok := principalFrom(c)
	if !ok {
		return s.writeError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required").WithCode("UNAUTHORIZED"))
	}

	var req StartWorkflowRequest
	if err := bindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return s.writeError(c, validationError(err))
	}

	batchSize := 1
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}

	rlKey := fmt.Sprintf("workflow-%s-%s", principal.Sub, c.RealIP())
	if !s.limiter.Allow(rlKey, s.rates.BatchStartLimit.MaxRequests, s.rates.BatchStartLimit.Window) {
		return s.writeError(c, apperrors.NewRateLimitedError("batch start rate limit exceeded").WithCode("RATE_LIMIT_EXCEEDED"))
	}

	ctx := c.Request().Context()
	prefs, err := s.meta.GetLatestPreferences(ctx, principal.Sub)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return s.writeError(c, apperrors.New(apperrors.KindValidation, "no preferences on file for this user").WithCode("PREFERENCES_NOT_FOUND"))
		}
		return s.writeError(c, err)
	}

	workflowID := uuid.NewString()
	requestID := uuid.NewString()
	storyID := uuid.NewString()
	now := time.Now().UTC()
	totalBatches := int(math.Ceil(float64(req.NumberOfStories) / float64(batchSize)))

	if err := s.meta.CreateRequest(ctx, models.GenerationRequest{
		RequestID: requestID, UserID: principal.Sub, Type: models.RequestTypeStory,
		Status: models.StatusProcessing, RelatedEntityID: workflowID,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return s.writeError(c, err)
	}

	if err := s.meta.CreateBatchWorkflow(ctx, models.BatchWorkflow{
		WorkflowID: workflowID, RequestID: requestID, UserID: principal.Sub,
		NumberOfStories: req.NumberOfStories, BatchSize: batchSize,
		CurrentBatch: 1, TotalBatches: totalBatches, WaveSize: 1,
		Status: models.StatusProcessing,
		Preferences: *prefs, Insights: prefs.Insights,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return s.writeError(c, err)
	}

	detail := events.NewBatchStoryRequestedDetail(
		principal.Sub, requestID, workflowID, requestID, storyID,
		req.NumberOfStories, 1, totalBatches, *prefs, prefs.Insights,
	)
	env, err := events.NewBatchStoryRequestedEnvelope(detail)
	if err != nil {
		return s.writeError(c, apperrors.Wrap(err, apperrors.KindInternal, "build batch story requested envelope"))
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		return s.writeError(c, err)
	}

	return writeSuccess(c, http.StatusAccepted, StartWorkflowResponse{
		WorkflowID:              workflowID,
		RequestID:               requestID,
		NumberOfStories:         req.NumberOfStories,
		Status:                  "STARTED",
		EstimatedCompletionTime: now.Add(time.Duration(req.NumberOfStories) * 3 * time.Minute).Format(time.RFC3339),
	})
}
